package snapshot

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Normalize returns a deep copy in canonical form: cosmetic whitespace
// trimmed from stored content, sections ordered by (parent path, position,
// key), languages sorted. Map keys are ordered by the JSON encoder, and all
// numeric fields are integers, so marshaling a normalized snapshot is
// byte-stable.
func Normalize(s *Snapshot) *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{Meta: s.Meta}
	out.Meta.Title = strings.TrimSpace(out.Meta.Title)
	// Capture time is provenance, not content; two snapshots captured at
	// different instants but structurally identical must compare equal.
	out.Meta.CapturedAt = time.Time{}

	out.Languages = append([]string(nil), s.Languages...)
	sort.Strings(out.Languages)

	out.Sections = make([]Section, len(s.Sections))
	for i, sec := range s.Sections {
		out.Sections[i] = normalizeSection(sec)
	}
	sort.SliceStable(out.Sections, func(a, b int) bool {
		pa := strings.Join(out.Sections[a].ParentPath, "\x00")
		pb := strings.Join(out.Sections[b].ParentPath, "\x00")
		if pa != pb {
			return pa < pb
		}
		if out.Sections[a].Position != out.Sections[b].Position {
			return out.Sections[a].Position < out.Sections[b].Position
		}
		return out.Sections[a].Key < out.Sections[b].Key
	})
	return out
}

func normalizeSection(sec Section) Section {
	ns := Section{
		Key:        sec.Key,
		Kind:       sec.Kind,
		ParentPath: append([]string(nil), sec.ParentPath...),
		Position:   sec.Position,
	}
	if len(sec.Translations) > 0 {
		ns.Translations = make(map[string]Fields, len(sec.Translations))
		for lang, fields := range sec.Translations {
			nf := make(Fields, len(fields))
			for name, content := range fields {
				nf[name] = strings.TrimSpace(content)
			}
			ns.Translations[lang] = nf
		}
	}
	if sec.DataConfig != nil {
		dc := DataConfig{
			Collection: sec.DataConfig.Collection,
			Fields:     append([]string(nil), sec.DataConfig.Fields...),
		}
		sort.Strings(dc.Fields)
		if len(sec.DataConfig.Filter) > 0 {
			dc.Filter = make(map[string]string, len(sec.DataConfig.Filter))
			for k, v := range sec.DataConfig.Filter {
				dc.Filter[k] = strings.TrimSpace(v)
			}
		}
		ns.DataConfig = &dc
	}
	if sec.Condition != nil {
		c := *sec.Condition
		c.Values = append([]string(nil), sec.Condition.Values...)
		sort.Strings(c.Values)
		ns.Condition = &c
	}
	if len(sec.Style) > 0 {
		ns.Style = make(map[string]string, len(sec.Style))
		for k, v := range sec.Style {
			ns.Style[k] = strings.TrimSpace(v)
		}
	}
	return ns
}

// MarshalCanonical marshals the normalized form compactly. Two snapshots
// are structurally equal iff their canonical bytes are equal.
func MarshalCanonical(s *Snapshot) ([]byte, error) {
	return json.Marshal(Normalize(s))
}

// MarshalPretty renders the normalized form indented for line-oriented
// human diffs.
func MarshalPretty(s *Snapshot) ([]byte, error) {
	return json.MarshalIndent(Normalize(s), "", "  ")
}
