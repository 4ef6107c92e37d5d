// Package snapshot defines the self-contained serialized form of a page:
// metadata, the section tree, per-language translations, data-retrieval
// configs and condition definitions. Replaying a snapshot requires no reads
// of the live draft.
package snapshot

import (
	"fmt"
	"time"
)

// Kind is the closed set of section kinds. Rendering matches on it
// exhaustively; adding a kind is a compile-time-visible change.
type Kind string

const (
	KindContainer  Kind = "container"
	KindHeading    Kind = "heading"
	KindText       Kind = "text"
	KindMedia      Kind = "media"
	KindRecordList Kind = "record_list"
	KindForm       Kind = "form"
)

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	switch k {
	case KindContainer, KindHeading, KindText, KindMedia, KindRecordList, KindForm:
		return k, nil
	}
	return "", fmt.Errorf("unknown section kind %q", s)
}

// Operator is the closed set of condition operators evaluated against the
// render context.
type Operator string

const (
	OpEquals        Operator = "equals"
	OpNotEquals     Operator = "not_equals"
	OpIn            Operator = "in"
	OpBefore        Operator = "before"
	OpAfter         Operator = "after"
	OpRoleIs        Operator = "role_is"
	OpAuthenticated Operator = "authenticated"
)

func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpIn, OpBefore, OpAfter, OpRoleIs, OpAuthenticated:
		return true
	}
	return false
}

// Fields maps field name to stored content for one language.
type Fields map[string]string

// DataConfig is a stored data-retrieval instruction: which collection to
// read, an equality filter, and the projected field names.
type DataConfig struct {
	Collection string            `json:"collection"`
	Filter     map[string]string `json:"filter,omitempty"`
	Fields     []string          `json:"fields,omitempty"`
}

// Condition is a stored visibility rule re-evaluated at render time.
type Condition struct {
	Operator Operator `json:"operator"`
	Field    string   `json:"field,omitempty"`
	Value    string   `json:"value,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// Section is one node of the stored tree. ParentPath is the ordered list of
// ancestor section keys, outermost first; empty means root.
type Section struct {
	Key          string            `json:"key"`
	Kind         Kind              `json:"kind"`
	ParentPath   []string          `json:"parent_path,omitempty"`
	Position     int               `json:"position"`
	Translations map[string]Fields `json:"translations,omitempty"`
	DataConfig   *DataConfig       `json:"data_config,omitempty"`
	Condition    *Condition        `json:"condition,omitempty"`
	Style        map[string]string `json:"style,omitempty"`
}

// Meta carries the page-level part of a snapshot.
type Meta struct {
	PageKeyword     string    `json:"page_keyword"`
	PageType        string    `json:"page_type"`
	Title           string    `json:"title"`
	DefaultLanguage string    `json:"default_language"`
	CapturedAt      time.Time `json:"captured_at"`
}

// Snapshot is the immutable serialized page document.
type Snapshot struct {
	Meta      Meta      `json:"meta"`
	Sections  []Section `json:"sections"`
	Languages []string  `json:"languages,omitempty"`
}

// IsEmpty reports whether the snapshot carries no sections.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Sections) == 0
}

// Validate runs the structural schema checks: required top-level keys,
// valid kinds and operators, and a buildable acyclic tree. Callers wrap the
// returned error as a validation failure (on write) or a corrupt-snapshot
// failure (on read).
func Validate(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if s.Meta.PageKeyword == "" {
		return fmt.Errorf("snapshot meta missing page_keyword")
	}
	if s.Meta.DefaultLanguage == "" {
		return fmt.Errorf("snapshot meta missing default_language")
	}
	for i := range s.Sections {
		sec := &s.Sections[i]
		if sec.Key == "" {
			return fmt.Errorf("section %d has empty key", i)
		}
		if _, err := ParseKind(string(sec.Kind)); err != nil {
			return fmt.Errorf("section %q: %w", sec.Key, err)
		}
		if sec.DataConfig != nil && sec.DataConfig.Collection == "" {
			return fmt.Errorf("section %q data config missing collection", sec.Key)
		}
		if sec.Condition != nil && !sec.Condition.Operator.Valid() {
			return fmt.Errorf("section %q condition has unknown operator %q", sec.Key, sec.Condition.Operator)
		}
		for lang := range sec.Translations {
			if lang == "" {
				return fmt.Errorf("section %q has translation with empty language", sec.Key)
			}
		}
	}
	if _, err := BuildTree(s); err != nil {
		return err
	}
	return nil
}
