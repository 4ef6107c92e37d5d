package pages

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PageSection is one row of the live draft tree. Editors mutate these rows
// directly; publishing reads them into an immutable snapshot. SectionKey is
// the stable identifier that survives across versions, ParentPath is the
// comma-free ordered ancestor key list stored as a JSON array.
type PageSection struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	PageID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_page_sections_page_key,priority:1;index" json:"page_id"`
	SectionKey string    `gorm:"type:text;not null;uniqueIndex:uq_page_sections_page_key,priority:2" json:"section_key"`
	Kind       string    `gorm:"type:text;not null" json:"kind"`

	ParentPath datatypes.JSON `gorm:"type:jsonb" json:"parent_path,omitempty"`
	Position   int            `gorm:"not null;default:0" json:"position"`

	Translations datatypes.JSON `gorm:"type:jsonb" json:"translations,omitempty"`
	DataConfig   datatypes.JSON `gorm:"type:jsonb" json:"data_config,omitempty"`
	Condition    datatypes.JSON `gorm:"type:jsonb" json:"condition,omitempty"`
	StyleConfig  datatypes.JSON `gorm:"type:jsonb" json:"style_config,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// PageRecord is a row of the small tabular store that stored data-configs
// retrieve against at render time. Collection plays the role of a table
// name; Payload is the record body.
type PageRecord struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Collection string         `gorm:"type:text;not null;index" json:"collection"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
