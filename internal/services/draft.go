package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	repo "github.com/pagelift/pagelift-backend/internal/data/repos/pages"
	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

// DraftStore assembles the live section rows of a page into a snapshot.
// This is the read side of the editing surface: publish captures what it
// returns, and the draft render path replays it directly.
type DraftStore interface {
	Snapshot(dbc dbctx.Context, page *types.Page) (*snapshot.Snapshot, error)
	Fingerprint(dbc dbctx.Context, page *types.Page) (string, error)
	Discard(dbc dbctx.Context, page *types.Page) error
}

type draftStore struct {
	log             *logger.Logger
	sectionRepo     repo.PageSectionRepo
	defaultLanguage string
}

func NewDraftStore(baseLog *logger.Logger, sectionRepo repo.PageSectionRepo, defaultLanguage string) DraftStore {
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}
	return &draftStore{
		log:             baseLog.With("service", "DraftStore"),
		sectionRepo:     sectionRepo,
		defaultLanguage: defaultLanguage,
	}
}

func (s *draftStore) Snapshot(dbc dbctx.Context, page *types.Page) (*snapshot.Snapshot, error) {
	rows, err := s.sectionRepo.ListByPageID(dbc, page.ID)
	if err != nil {
		return nil, fmt.Errorf("load draft sections: %w", err)
	}

	snap := &snapshot.Snapshot{
		Meta: snapshot.Meta{
			PageKeyword:     page.Keyword,
			PageType:        page.PageType,
			Title:           page.Title,
			DefaultLanguage: s.defaultLanguage,
			CapturedAt:      time.Now().UTC(),
		},
	}

	langs := map[string]struct{}{}
	for _, row := range rows {
		sec, err := sectionFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", row.SectionKey, err)
		}
		for lang := range sec.Translations {
			langs[lang] = struct{}{}
		}
		snap.Sections = append(snap.Sections, *sec)
	}
	for lang := range langs {
		snap.Languages = append(snap.Languages, lang)
	}
	sort.Strings(snap.Languages)
	return snap, nil
}

// Fingerprint hashes the draft without publishing it; combined with the
// fingerprint stored on the active version this makes has-changes O(1) in
// snapshot size comparisons.
func (s *draftStore) Fingerprint(dbc dbctx.Context, page *types.Page) (string, error) {
	snap, err := s.Snapshot(dbc, page)
	if err != nil {
		return "", err
	}
	return snapshot.Fingerprint(snap)
}

// Discard drops every draft section row of the page. Published versions are
// untouched; the next publish starts from an empty draft.
func (s *draftStore) Discard(dbc dbctx.Context, page *types.Page) error {
	if err := s.sectionRepo.DeleteByPageID(dbc, page.ID); err != nil {
		return fmt.Errorf("discard draft sections: %w", err)
	}
	return nil
}

func sectionFromRow(row *types.PageSection) (*snapshot.Section, error) {
	kind, err := snapshot.ParseKind(row.Kind)
	if err != nil {
		return nil, err
	}
	sec := &snapshot.Section{
		Key:      row.SectionKey,
		Kind:     kind,
		Position: row.Position,
	}
	if hasJSON(row.ParentPath) {
		if err := json.Unmarshal(row.ParentPath, &sec.ParentPath); err != nil {
			return nil, fmt.Errorf("decode parent path: %w", err)
		}
	}
	if hasJSON(row.Translations) {
		if err := json.Unmarshal(row.Translations, &sec.Translations); err != nil {
			return nil, fmt.Errorf("decode translations: %w", err)
		}
	}
	if hasJSON(row.DataConfig) {
		var dc snapshot.DataConfig
		if err := json.Unmarshal(row.DataConfig, &dc); err != nil {
			return nil, fmt.Errorf("decode data config: %w", err)
		}
		sec.DataConfig = &dc
	}
	if hasJSON(row.Condition) {
		var cond snapshot.Condition
		if err := json.Unmarshal(row.Condition, &cond); err != nil {
			return nil, fmt.Errorf("decode condition: %w", err)
		}
		sec.Condition = &cond
	}
	if hasJSON(row.StyleConfig) {
		if err := json.Unmarshal(row.StyleConfig, &sec.Style); err != nil {
			return nil, fmt.Errorf("decode style config: %w", err)
		}
	}
	return sec, nil
}

// hasJSON filters both empty and SQL-null JSONB payloads.
func hasJSON(b []byte) bool {
	s := strings.TrimSpace(string(b))
	return s != "" && s != "null"
}
