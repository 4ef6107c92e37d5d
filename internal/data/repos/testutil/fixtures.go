package testutil

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	repo "github.com/pagelift/pagelift-backend/internal/data/repos/pages"
	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

func SeedPage(tb testing.TB, dbc dbctx.Context, keyword string) *types.Page {
	tb.Helper()
	rows, err := repo.NewPageRepo(DB(tb), Logger(tb)).Create(dbc, []*types.Page{{
		Keyword:  keyword,
		Title:    "Test " + keyword,
		PageType: "default",
	}})
	if err != nil {
		tb.Fatalf("seed page %q: %v", keyword, err)
	}
	return rows[0]
}

// SeedSection inserts one draft section row. Translations carry a single
// "en" layer with a "text" field.
func SeedSection(tb testing.TB, dbc dbctx.Context, pageID uuid.UUID, key, kind string, parentPath []string, position int, text string) *types.PageSection {
	tb.Helper()
	row := &types.PageSection{
		PageID:     pageID,
		SectionKey: key,
		Kind:       kind,
		Position:   position,
	}
	if len(parentPath) > 0 {
		row.ParentPath = mustJSON(tb, parentPath)
	}
	if text != "" {
		row.Translations = mustJSON(tb, map[string]snapshot.Fields{
			"en": {"text": text},
		})
	}
	rows, err := repo.NewPageSectionRepo(DB(tb), Logger(tb)).Create(dbc, []*types.PageSection{row})
	if err != nil {
		tb.Fatalf("seed section %q: %v", key, err)
	}
	return rows[0]
}

func SeedRecord(tb testing.TB, dbc dbctx.Context, collection string, payload map[string]interface{}) *types.PageRecord {
	tb.Helper()
	rows, err := repo.NewPageRecordRepo(DB(tb), Logger(tb)).Create(dbc, []*types.PageRecord{{
		Collection: collection,
		Payload:    mustJSON(tb, payload),
	}})
	if err != nil {
		tb.Fatalf("seed record in %q: %v", collection, err)
	}
	return rows[0]
}

func SeedEditor(tb testing.TB, dbc dbctx.Context, email, passwordHash string, canPreview bool) *types.Editor {
	tb.Helper()
	rows, err := repo.NewEditorRepo(DB(tb), Logger(tb)).Create(dbc, []*types.Editor{{
		Email:        email,
		PasswordHash: passwordHash,
		CanPreview:   canPreview,
	}})
	if err != nil {
		tb.Fatalf("seed editor %q: %v", email, err)
	}
	return rows[0]
}

func mustJSON(tb testing.TB, v interface{}) []byte {
	tb.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal fixture: %v", err)
	}
	return raw
}
