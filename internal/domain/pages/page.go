package pages

import (
	"time"

	"github.com/google/uuid"
)

// Page is the editable document root. PublishedVersionID is the publish
// pointer: nil means the page serves only as a draft and public requests
// see a 404. Whether a version is live is derived from this pointer alone,
// never from PageVersion.PublishedAt.
type Page struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Keyword  string `gorm:"type:text;not null;uniqueIndex" json:"keyword"`
	Title    string `gorm:"type:text;not null" json:"title"`
	PageType string `gorm:"type:text;not null;default:'default'" json:"page_type"`

	PublishedVersionID *uuid.UUID `gorm:"type:uuid;index" json:"published_version_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
