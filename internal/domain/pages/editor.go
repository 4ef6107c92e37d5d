package pages

import (
	"time"

	"github.com/google/uuid"
)

// Editor is an authenticated user of the admin/preview surface. CanPreview
// is the capability the draft guard checks before serving unpublished
// content.
type Editor struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Email        string `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"type:text;not null" json:"-"`
	DisplayName  string `gorm:"type:text" json:"display_name,omitempty"`

	CanPreview bool `gorm:"not null;default:false" json:"can_preview"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
