package render

import (
	"testing"

	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

func skeletonSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Meta: snapshot.Meta{
			PageKeyword:     "shop",
			PageType:        "shop",
			Title:           "Shop",
			DefaultLanguage: "en",
		},
		Languages: []string{"en", "de"},
		Sections: []snapshot.Section{
			{
				Key:  "hero",
				Kind: snapshot.KindContainer,
			},
			{
				Key:        "hero-title",
				Kind:       snapshot.KindHeading,
				ParentPath: []string{"hero"},
				Translations: map[string]snapshot.Fields{
					"en":      {"text": "Welcome"},
					"de":      {"text": "Willkommen"},
					"de@shop": {"text": "Willkommen im Shop"},
				},
			},
			{
				Key:      "contact",
				Kind:     snapshot.KindForm,
				Position: 1,
			},
		},
	}
}

func TestBuildSkeletonLayersTranslations(t *testing.T) {
	skel, err := BuildSkeleton(skeletonSnapshot(), "de", "shop")
	if err != nil {
		t.Fatalf("BuildSkeleton: %v", err)
	}
	if len(skel.Sections) != 2 {
		t.Fatalf("roots: want=2 got=%d", len(skel.Sections))
	}
	hero := skel.Sections[0]
	if hero.Key != "hero" || len(hero.Children) != 1 {
		t.Fatalf("hero shape wrong: %+v", hero)
	}
	title := hero.Children[0]
	if title.Fields["text"] != "Willkommen im Shop" {
		t.Fatalf("page-type layer not applied: %q", title.Fields["text"])
	}
}

func TestBuildSkeletonFallsBackToDefaultLanguage(t *testing.T) {
	skel, err := BuildSkeleton(skeletonSnapshot(), "fr", "shop")
	if err != nil {
		t.Fatalf("BuildSkeleton: %v", err)
	}
	title := skel.Sections[0].Children[0]
	if title.Fields["text"] != "Welcome" {
		t.Fatalf("default-language fallback: got %q", title.Fields["text"])
	}
}

func TestBuildSkeletonAppliesKindDefaults(t *testing.T) {
	skel, err := BuildSkeleton(skeletonSnapshot(), "en", "shop")
	if err != nil {
		t.Fatalf("BuildSkeleton: %v", err)
	}
	form := skel.Sections[1]
	if form.Kind != snapshot.KindForm {
		t.Fatalf("expected form section, got %s", form.Kind)
	}
	if form.Fields["submit_label"] != "Submit" {
		t.Fatalf("kind default missing: %+v", form.Fields)
	}
}

func TestBuildSkeletonRejectsBrokenTree(t *testing.T) {
	s := skeletonSnapshot()
	s.Sections[1].ParentPath = []string{"ghost"}
	if _, err := BuildSkeleton(s, "en", "shop"); err == nil {
		t.Fatal("expected tree error")
	}
}
