package diff

import (
	"reflect"
	"sort"

	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

// Summary counts section-level changes and names the translation languages
// that differ.
type Summary struct {
	SectionsAdded    int      `json:"sections_added"`
	SectionsRemoved  int      `json:"sections_removed"`
	SectionsModified int      `json:"sections_modified"`
	SectionsMoved    int      `json:"sections_moved"`
	LanguagesChanged []string `json:"languages_changed,omitempty"`
}

// Empty reports whether the summary describes two structurally equal trees.
func (s *Summary) Empty() bool {
	return s.SectionsAdded == 0 && s.SectionsRemoved == 0 &&
		s.SectionsModified == 0 && s.SectionsMoved == 0 &&
		len(s.LanguagesChanged) == 0
}

// summarize matches sections by their stable key. A key present only in B
// is an addition, only in A a removal. A section whose content is unchanged
// but whose position or parent path differs is reported as moved, not as
// remove+add.
func summarize(a, b *snapshot.Snapshot) *Summary {
	out := &Summary{}
	langs := map[string]struct{}{}

	inA := make(map[string]*snapshot.Section, len(a.Sections))
	for i := range a.Sections {
		inA[a.Sections[i].Key] = &a.Sections[i]
	}
	inB := make(map[string]*snapshot.Section, len(b.Sections))
	for i := range b.Sections {
		inB[b.Sections[i].Key] = &b.Sections[i]
	}

	for key, sb := range inB {
		sa, ok := inA[key]
		if !ok {
			out.SectionsAdded++
			collectLanguages(langs, sb.Translations, nil)
			continue
		}
		contentEqual := sectionContentEqual(sa, sb)
		placeEqual := sa.Position == sb.Position && reflect.DeepEqual(sa.ParentPath, sb.ParentPath)
		switch {
		case contentEqual && placeEqual:
			// unchanged
		case contentEqual:
			out.SectionsMoved++
		default:
			out.SectionsModified++
			collectLanguages(langs, sa.Translations, sb.Translations)
		}
	}
	for key, sa := range inA {
		if _, ok := inB[key]; !ok {
			out.SectionsRemoved++
			collectLanguages(langs, sa.Translations, nil)
		}
	}

	for lang := range langs {
		out.LanguagesChanged = append(out.LanguagesChanged, lang)
	}
	sort.Strings(out.LanguagesChanged)
	return out
}

func sectionContentEqual(a, b *snapshot.Section) bool {
	return a.Kind == b.Kind &&
		reflect.DeepEqual(a.Translations, b.Translations) &&
		reflect.DeepEqual(a.DataConfig, b.DataConfig) &&
		reflect.DeepEqual(a.Condition, b.Condition) &&
		reflect.DeepEqual(a.Style, b.Style)
}

// collectLanguages records languages whose field content differs between
// the two translation maps; with b nil every language of a counts.
func collectLanguages(into map[string]struct{}, a, b map[string]snapshot.Fields) {
	for lang, fa := range a {
		if b == nil {
			into[lang] = struct{}{}
			continue
		}
		if !reflect.DeepEqual(fa, b[lang]) {
			into[lang] = struct{}{}
		}
	}
	for lang, fb := range b {
		if a == nil {
			into[lang] = struct{}{}
			continue
		}
		if !reflect.DeepEqual(fb, a[lang]) {
			into[lang] = struct{}{}
		}
	}
}
