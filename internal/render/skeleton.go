package render

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

// Skeleton is the static phase of a render: the replayed section tree with
// translations layered for one language, before any dynamic evaluation.
// Skeletons are deterministic per (page, version, language) and therefore
// safe to share across requests; conditions and data configs ride along
// untouched so the dynamic phase can re-run them per request.
type Skeleton struct {
	PageID    uuid.UUID  `json:"page_id"`
	VersionID *uuid.UUID `json:"version_id,omitempty"`
	Keyword   string     `json:"keyword"`
	Title     string     `json:"title"`
	Language  string     `json:"language"`

	Sections []*SkeletonSection `json:"sections"`
}

// SkeletonSection is one replayed node: structure and layered content from
// the snapshot, dynamic instructions still pending.
type SkeletonSection struct {
	Key      string            `json:"key"`
	Kind     snapshot.Kind     `json:"kind"`
	Position int               `json:"position"`
	Style    map[string]string `json:"style,omitempty"`

	Fields     snapshot.Fields      `json:"fields,omitempty"`
	DataConfig *snapshot.DataConfig `json:"data_config,omitempty"`
	Condition  *snapshot.Condition  `json:"condition,omitempty"`

	Children []*SkeletonSection `json:"children,omitempty"`
}

// BuildSkeleton replays a snapshot structurally for one language. The
// translation layering is, lowest precedence first: per-kind schema
// defaults, default-language content, requested-language content, and the
// page-type-specific variant keyed "<lang>@<pageType>".
func BuildSkeleton(snap *snapshot.Snapshot, language, pageType string) (*Skeleton, error) {
	tree, err := snapshot.BuildTree(snap)
	if err != nil {
		return nil, fmt.Errorf("replay section tree: %w", err)
	}

	var build func(idx int) *SkeletonSection
	build = func(idx int) *SkeletonSection {
		sec := tree.Nodes[idx].Section
		node := &SkeletonSection{
			Key:      sec.Key,
			Kind:     sec.Kind,
			Position: sec.Position,
			Style:    sec.Style,
			Fields: LayerTranslations(
				KindDefaults(sec.Kind),
				sec.Translations[snap.Meta.DefaultLanguage],
				sec.Translations[language],
				sec.Translations[language+"@"+pageType],
			),
			DataConfig: sec.DataConfig,
			Condition:  sec.Condition,
		}
		for _, child := range tree.Nodes[idx].Children {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	sk := &Skeleton{
		Keyword:  snap.Meta.PageKeyword,
		Title:    snap.Meta.Title,
		Language: language,
	}
	for _, root := range tree.Roots {
		sk.Sections = append(sk.Sections, build(root))
	}
	return sk, nil
}

// KindDefaults returns the schema-default field content for a section kind.
// The switch is exhaustive over the closed kind set.
func KindDefaults(k snapshot.Kind) snapshot.Fields {
	switch k {
	case snapshot.KindContainer:
		return nil
	case snapshot.KindHeading:
		return snapshot.Fields{"text": ""}
	case snapshot.KindText:
		return snapshot.Fields{"body": ""}
	case snapshot.KindMedia:
		return snapshot.Fields{"url": "", "alt": ""}
	case snapshot.KindRecordList:
		return snapshot.Fields{"empty_message": ""}
	case snapshot.KindForm:
		return snapshot.Fields{"submit_label": "Submit"}
	}
	return nil
}
