package pages_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	repo "github.com/pagelift/pagelift-backend/internal/data/repos/pages"
	"github.com/pagelift/pagelift-backend/internal/data/repos/testutil"
	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
)

func versionRow(pageID uuid.UUID, number int, blob []byte) *types.PageVersion {
	return &types.PageVersion{
		PageID:        pageID,
		VersionNumber: number,
		Snapshot:      blob,
		Fingerprint:   fmt.Sprintf("xxh64:%016x", number),
		CreatedBy:     uuid.New(),
		CreatedAt:     time.Now().UTC(),
	}
}

func TestVersionRepoCompressionRoundTrip(t *testing.T) {
	dbc := testutil.Tx(t)
	page := testutil.SeedPage(t, dbc, "compress-round-trip")

	// Threshold of 16 bytes forces compression for any real snapshot.
	r := repo.NewPageVersionRepo(testutil.DB(t), testutil.Logger(t), 16)

	blob, err := json.Marshal(map[string]interface{}{
		"meta":     map[string]string{"page_keyword": "compress-round-trip"},
		"sections": []string{"a", "b", "c"},
	})
	if err != nil {
		t.Fatalf("marshal blob: %v", err)
	}
	created, err := r.Create(dbc, versionRow(page.ID, 1, blob))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// On disk the row must carry only the compressed column.
	var stored struct {
		Snapshot   []byte
		SnapshotGz []byte
	}
	if err := dbc.Tx.Model(&types.PageVersion{}).
		Select("snapshot", "snapshot_gz").
		Where("id = ?", created.ID).
		Scan(&stored).Error; err != nil {
		t.Fatalf("read stored row: %v", err)
	}
	if len(stored.Snapshot) != 0 {
		t.Fatalf("raw snapshot stored despite threshold: %d bytes", len(stored.Snapshot))
	}
	if len(stored.SnapshotGz) == 0 {
		t.Fatal("compressed snapshot missing")
	}

	got, err := r.GetByID(dbc, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !bytes.Equal([]byte(got.Snapshot), blob) {
		t.Fatalf("inflated snapshot mismatch:\ngot=%s\nwant=%s", got.Snapshot, blob)
	}
	if len(got.SnapshotGz) != 0 {
		t.Fatal("SnapshotGz leaked out of the repo")
	}
}

func TestVersionRepoListOrdersAndPaginates(t *testing.T) {
	dbc := testutil.Tx(t)
	page := testutil.SeedPage(t, dbc, "list-pages")
	r := repo.NewPageVersionRepo(testutil.DB(t), testutil.Logger(t), 0)

	for n := 1; n <= 5; n++ {
		if _, err := r.Create(dbc, versionRow(page.ID, n, []byte(`{}`))); err != nil {
			t.Fatalf("Create %d: %v", n, err)
		}
	}

	rows, total, err := r.ListByPageID(dbc, page.ID, 2, 1)
	if err != nil {
		t.Fatalf("ListByPageID: %v", err)
	}
	if total != 5 {
		t.Fatalf("total: want=5 got=%d", total)
	}
	if len(rows) != 2 {
		t.Fatalf("page size: want=2 got=%d", len(rows))
	}
	if rows[0].VersionNumber != 4 || rows[1].VersionNumber != 3 {
		t.Fatalf("order: want 4,3 got %d,%d", rows[0].VersionNumber, rows[1].VersionNumber)
	}
	if len(rows[0].Snapshot) != 0 {
		t.Fatal("list surface returned snapshot blob")
	}
}

func TestVersionRepoMaxVersionNumber(t *testing.T) {
	dbc := testutil.Tx(t)
	page := testutil.SeedPage(t, dbc, "max-number")
	r := repo.NewPageVersionRepo(testutil.DB(t), testutil.Logger(t), 0)

	max, err := r.MaxVersionNumber(dbc, page.ID)
	if err != nil {
		t.Fatalf("MaxVersionNumber: %v", err)
	}
	if max != 0 {
		t.Fatalf("empty page max: want=0 got=%d", max)
	}

	for _, n := range []int{1, 3, 2} {
		if _, err := r.Create(dbc, versionRow(page.ID, n, []byte(`{}`))); err != nil {
			t.Fatalf("Create %d: %v", n, err)
		}
	}
	max, err = r.MaxVersionNumber(dbc, page.ID)
	if err != nil {
		t.Fatalf("MaxVersionNumber: %v", err)
	}
	if max != 3 {
		t.Fatalf("max: want=3 got=%d", max)
	}
}

func TestVersionRepoMarkPublishedStampsOnce(t *testing.T) {
	dbc := testutil.Tx(t)
	page := testutil.SeedPage(t, dbc, "publish-once")
	r := repo.NewPageVersionRepo(testutil.DB(t), testutil.Logger(t), 0)

	created, err := r.Create(dbc, versionRow(page.ID, 1, []byte(`{}`)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := r.MarkPublished(dbc, created.ID, first); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	if err := r.MarkPublished(dbc, created.ID, first.Add(time.Hour)); err != nil {
		t.Fatalf("MarkPublished again: %v", err)
	}

	got, err := r.GetByID(dbc, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(first) {
		t.Fatalf("published_at: want=%v got=%v", first, got.PublishedAt)
	}
}

func TestVersionRepoDeleteOldUnpublished(t *testing.T) {
	dbc := testutil.Tx(t)
	page := testutil.SeedPage(t, dbc, "retention")
	r := repo.NewPageVersionRepo(testutil.DB(t), testutil.Logger(t), 0)

	var rows []*types.PageVersion
	for n := 1; n <= 5; n++ {
		created, err := r.Create(dbc, versionRow(page.ID, n, []byte(`{}`)))
		if err != nil {
			t.Fatalf("Create %d: %v", n, err)
		}
		rows = append(rows, created)
	}
	// Version 3 was once published and must survive regardless of age.
	if err := r.MarkPublished(dbc, rows[2].ID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	// Version 1 is the active pointer and must survive too.
	skip := rows[0].ID

	deleted, err := r.DeleteOldUnpublished(dbc, page.ID, 1, &skip)
	if err != nil {
		t.Fatalf("DeleteOldUnpublished: %v", err)
	}
	// Unpublished, non-active versions newest-first are 5,4,2; keep=1
	// retains 5 and deletes 4 and 2.
	if deleted != 2 {
		t.Fatalf("deleted: want=2 got=%d", deleted)
	}
	remaining, total, err := r.ListByPageID(dbc, page.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListByPageID: %v", err)
	}
	if total != 3 {
		t.Fatalf("remaining total: want=3 got=%d", total)
	}
	want := map[int]bool{5: true, 3: true, 1: true}
	for _, row := range remaining {
		if !want[row.VersionNumber] {
			t.Fatalf("unexpected survivor %d", row.VersionNumber)
		}
	}
}

func TestVersionRepoGetByIDAbsent(t *testing.T) {
	dbc := testutil.Tx(t)
	r := repo.NewPageVersionRepo(testutil.DB(t), testutil.Logger(t), 0)

	got, err := r.GetByID(dbc, uuid.New())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("absent id returned row: %+v", got)
	}
	got, err = r.GetByID(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Tx}, uuid.Nil)
	if err != nil || got != nil {
		t.Fatalf("nil id: want (nil,nil) got (%v,%v)", got, err)
	}
}
