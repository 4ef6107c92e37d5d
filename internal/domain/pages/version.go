package pages

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PageVersion is an immutable snapshot row. After creation only PublishedAt
// changes, and only once: it is stamped the first time the version becomes
// the publish pointer and survives later unpublishes as history.
//
// Exactly one of Snapshot / SnapshotGz is populated on disk: large payloads
// are stored gzip-compressed. The version repo decompresses transparently,
// so everyone above it only ever sees Snapshot.
type PageVersion struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	PageID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_page_versions_page_number,priority:1" json:"page_id"`
	VersionNumber int       `gorm:"not null;uniqueIndex:uq_page_versions_page_number,priority:2" json:"version_number"`
	VersionName   string    `gorm:"type:text" json:"version_name,omitempty"`

	Snapshot   datatypes.JSON `gorm:"type:jsonb" json:"snapshot,omitempty"`
	SnapshotGz []byte         `gorm:"column:snapshot_gz" json:"-"`

	// Fingerprint is the structural hash of the stored snapshot, persisted
	// so has-changes checks never re-read the blob.
	Fingerprint string `gorm:"type:text;not null;index" json:"fingerprint"`

	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}
