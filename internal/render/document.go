package render

import (
	"time"

	"github.com/google/uuid"

	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

// Document is the final rendered page: replayed structure with dynamic
// content resolved. Draft marks documents produced from the live tree
// rather than a published snapshot; those must never be cached.
type Document struct {
	PageID     uuid.UUID  `json:"page_id"`
	VersionID  *uuid.UUID `json:"version_id,omitempty"`
	Keyword    string     `json:"keyword"`
	Title      string     `json:"title"`
	Language   string     `json:"language"`
	Draft      bool       `json:"draft"`
	RenderedAt time.Time  `json:"rendered_at"`

	Sections []*DocumentSection `json:"sections"`
}

// DocumentSection is one rendered node. Fields hold interpolated content,
// Data the resolved record payload for record-backed kinds.
type DocumentSection struct {
	Key      string            `json:"key"`
	Kind     snapshot.Kind     `json:"kind"`
	Position int               `json:"position"`
	Style    map[string]string `json:"style,omitempty"`

	Fields map[string]string `json:"fields,omitempty"`
	Data   map[string]string `json:"data,omitempty"`

	Children []*DocumentSection `json:"children,omitempty"`
}
