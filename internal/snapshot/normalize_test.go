package snapshot

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func baseSnapshot() *Snapshot {
	return &Snapshot{
		Meta: Meta{
			PageKeyword:     "landing",
			PageType:        "default",
			Title:           "Landing",
			DefaultLanguage: "en",
			CapturedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Languages: []string{"de", "en"},
		Sections: []Section{
			{
				Key:  "hero",
				Kind: KindHeading,
				Translations: map[string]Fields{
					"en": {"text": "Welcome"},
					"de": {"text": "Willkommen"},
				},
			},
			{Key: "body", Kind: KindText, Position: 1},
		},
	}
}

func TestNormalizeTrimsWhitespaceAndSortsLanguages(t *testing.T) {
	s := baseSnapshot()
	s.Meta.Title = "  Landing \n"
	s.Languages = []string{"en", "de"}
	s.Sections[0].Translations["en"]["text"] = "  Welcome  "

	n := Normalize(s)
	if n.Meta.Title != "Landing" {
		t.Fatalf("title: want=%q got=%q", "Landing", n.Meta.Title)
	}
	if strings.Join(n.Languages, ",") != "de,en" {
		t.Fatalf("languages: want=de,en got=%v", n.Languages)
	}
	if got := n.Sections[0].Translations["en"]["text"]; got != "Welcome" {
		t.Fatalf("content: want=Welcome got=%q", got)
	}
	// Normalize must not mutate its input.
	if s.Sections[0].Translations["en"]["text"] != "  Welcome  " {
		t.Fatal("input snapshot was mutated")
	}
}

func TestNormalizeOrdersSectionsDeterministically(t *testing.T) {
	s := baseSnapshot()
	reversed := baseSnapshot()
	reversed.Sections[0], reversed.Sections[1] = reversed.Sections[1], reversed.Sections[0]

	a, err := MarshalCanonical(s)
	if err != nil {
		t.Fatalf("MarshalCanonical: %v", err)
	}
	b, err := MarshalCanonical(reversed)
	if err != nil {
		t.Fatalf("MarshalCanonical: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("canonical bytes differ for reordered input")
	}
}

func TestFingerprintIgnoresCaptureTime(t *testing.T) {
	a := baseSnapshot()
	b := baseSnapshot()
	b.Meta.CapturedAt = b.Meta.CapturedAt.Add(48 * time.Hour)

	fa, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	fb, err := Fingerprint(b)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fa != fb {
		t.Fatalf("capture time leaked into fingerprint: %s vs %s", fa, fb)
	}
	if !strings.HasPrefix(fa, "xxh64:") {
		t.Fatalf("fingerprint format: got=%s", fa)
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	a := baseSnapshot()
	b := baseSnapshot()
	b.Sections[0].Translations["en"]["text"] = "Changed"

	fa, _ := Fingerprint(a)
	fb, _ := Fingerprint(b)
	if fa == fb {
		t.Fatal("content change did not change fingerprint")
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"missing keyword", func(s *Snapshot) { s.Meta.PageKeyword = "" }},
		{"missing default language", func(s *Snapshot) { s.Meta.DefaultLanguage = "" }},
		{"unknown kind", func(s *Snapshot) { s.Sections[0].Kind = "carousel" }},
		{"empty section key", func(s *Snapshot) { s.Sections[0].Key = "" }},
		{"data config without collection", func(s *Snapshot) {
			s.Sections[0].DataConfig = &DataConfig{}
		}},
		{"unknown operator", func(s *Snapshot) {
			s.Sections[0].Condition = &Condition{Operator: "matches"}
		}},
		{"cyclic tree", func(s *Snapshot) {
			s.Sections[0].ParentPath = []string{"body"}
			s.Sections[1].ParentPath = []string{"hero"}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := baseSnapshot()
			tc.mutate(s)
			if err := Validate(s); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsGoodSnapshot(t *testing.T) {
	if err := Validate(baseSnapshot()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
