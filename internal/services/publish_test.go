package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/pagelift/pagelift-backend/internal/data/repos"
	pagerepos "github.com/pagelift/pagelift-backend/internal/data/repos/pages"
	"github.com/pagelift/pagelift-backend/internal/data/repos/testutil"
	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/domain/pages"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/services"
	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

type harness struct {
	dbc      dbctx.Context
	pageRepo pagerepos.PageRepo
	drafts   services.DraftStore
	versions services.VersionStore
	pub      services.PublishController
	renderer services.HybridRenderer
	records  services.RecordSource
}

// newHarness wires the service stack over the per-test transaction: the tx
// runner nests via savepoints, direct repo calls fall back to the same tx.
func newHarness(t *testing.T) *harness {
	t.Helper()
	dbc := testutil.Tx(t)
	db := dbc.Tx
	log := testutil.Logger(t)

	runner := repos.NewGormTxRunner(db)
	pageRepo := pagerepos.NewPageRepo(db, log)
	versionRepo := pagerepos.NewPageVersionRepo(db, log, 0)
	sectionRepo := pagerepos.NewPageSectionRepo(db, log)
	recordRepo := pagerepos.NewPageRecordRepo(db, log)

	cache := services.NewNoopRenderCache()
	drafts := services.NewDraftStore(log, sectionRepo, "en")
	versions := services.NewVersionStore(log, runner, pageRepo, versionRepo)
	pub := services.NewPublishController(log, runner, pageRepo, drafts, versions, cache)
	records := services.NewRecordSource(log, recordRepo)
	renderer := services.NewHybridRenderer(log, pageRepo, versions, drafts, records, cache)

	return &harness{
		dbc:      dbc,
		pageRepo: pageRepo,
		drafts:   drafts,
		versions: versions,
		pub:      pub,
		renderer: renderer,
		records:  records,
	}
}

func TestPublishLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	editorID := uuid.New()

	page := testutil.SeedPage(t, h.dbc, "lifecycle")
	testutil.SeedSection(t, h.dbc, page.ID, "hero", "heading", nil, 0, "Welcome")
	testutil.SeedSection(t, h.dbc, page.ID, "body", "text", nil, 1, "Body copy")

	v1, err := h.pub.Publish(ctx, page.ID, "v1", nil, editorID)
	if err != nil {
		t.Fatalf("publish v1: %v", err)
	}
	if v1.VersionNumber != 1 {
		t.Fatalf("first version number: want=1 got=%d", v1.VersionNumber)
	}
	if v1.PublishedAt == nil {
		t.Fatal("published version missing published_at")
	}

	active, err := h.versions.GetActiveVersion(h.dbc, page.ID)
	if err != nil {
		t.Fatalf("GetActiveVersion: %v", err)
	}
	if active == nil || active.ID != v1.ID {
		t.Fatalf("active version: want=%s got=%+v", v1.ID, active)
	}

	changed, activeID, err := h.pub.HasUnpublishedChanges(ctx, page.ID)
	if err != nil {
		t.Fatalf("HasUnpublishedChanges: %v", err)
	}
	if changed {
		t.Fatal("fresh publish reports unpublished changes")
	}
	if activeID == nil || *activeID != v1.ID {
		t.Fatalf("active id: want=%s got=%v", v1.ID, activeID)
	}

	// Mutating the draft must flip the flag without a full diff.
	testutil.SeedSection(t, h.dbc, page.ID, "cta", "form", nil, 2, "")
	changed, _, err = h.pub.HasUnpublishedChanges(ctx, page.ID)
	if err != nil {
		t.Fatalf("HasUnpublishedChanges after edit: %v", err)
	}
	if !changed {
		t.Fatal("draft edit not detected")
	}

	v2, err := h.pub.Publish(ctx, page.ID, "v2", map[string]interface{}{"note": "adds cta"}, editorID)
	if err != nil {
		t.Fatalf("publish v2: %v", err)
	}
	if v2.VersionNumber != 2 {
		t.Fatalf("second version number: want=2 got=%d", v2.VersionNumber)
	}
	if v2.PublishedAt == nil {
		t.Fatal("second publish returned record without published_at")
	}

	if err := h.pub.Unpublish(ctx, page.ID); err != nil {
		t.Fatalf("Unpublish: %v", err)
	}
	active, err = h.versions.GetActiveVersion(h.dbc, page.ID)
	if err != nil {
		t.Fatalf("GetActiveVersion after unpublish: %v", err)
	}
	if active != nil {
		t.Fatalf("still active after unpublish: %+v", active)
	}
	// Unpublish clears the pointer but keeps history.
	_, total, err := h.versions.ListVersions(h.dbc, page.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if total != 2 {
		t.Fatalf("history lost: want=2 got=%d", total)
	}
	// Unpublishing again stays a no-op.
	if err := h.pub.Unpublish(ctx, page.ID); err != nil {
		t.Fatalf("second Unpublish: %v", err)
	}
}

func TestPublishExistingRestoresWithoutNewRow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	page := testutil.SeedPage(t, h.dbc, "restore")
	testutil.SeedSection(t, h.dbc, page.ID, "hero", "heading", nil, 0, "One")
	v1, err := h.pub.Publish(ctx, page.ID, "v1", nil, uuid.New())
	if err != nil {
		t.Fatalf("publish v1: %v", err)
	}
	if err := h.pub.Unpublish(ctx, page.ID); err != nil {
		t.Fatalf("Unpublish: %v", err)
	}

	restored, err := h.pub.PublishExisting(ctx, page.ID, v1.ID)
	if err != nil {
		t.Fatalf("PublishExisting: %v", err)
	}
	if restored.ID != v1.ID {
		t.Fatalf("restored wrong version: %s", restored.ID)
	}
	_, total, err := h.versions.ListVersions(h.dbc, page.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if total != 1 {
		t.Fatalf("restore created a row: total=%d", total)
	}
}

func TestPublishExistingRejectsForeignVersion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pageA := testutil.SeedPage(t, h.dbc, "owner-a")
	pageB := testutil.SeedPage(t, h.dbc, "owner-b")
	testutil.SeedSection(t, h.dbc, pageA.ID, "hero", "heading", nil, 0, "A")
	v, err := h.pub.Publish(ctx, pageA.ID, "v1", nil, uuid.New())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	_, err = h.pub.PublishExisting(ctx, pageB.ID, v.ID)
	if !pages.IsCode(err, pages.CodeNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestPublishEmptyDraftRejected(t *testing.T) {
	h := newHarness(t)
	page := testutil.SeedPage(t, h.dbc, "empty-draft")

	_, err := h.pub.Publish(context.Background(), page.ID, "v1", nil, uuid.New())
	if !pages.IsCode(err, pages.CodeValidation) {
		t.Fatalf("want validation, got %v", err)
	}
}

func TestDiscardDraftClearsSectionsKeepsHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	page := testutil.SeedPage(t, h.dbc, "discard-draft")
	testutil.SeedSection(t, h.dbc, page.ID, "hero", "heading", nil, 0, "Keep me published")
	v1, err := h.pub.Publish(ctx, page.ID, "v1", nil, uuid.New())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := h.pub.DiscardDraft(ctx, page.ID); err != nil {
		t.Fatalf("DiscardDraft: %v", err)
	}
	snap := mustDraftSnapshot(t, h, page)
	if !snap.IsEmpty() {
		t.Fatalf("draft sections survived discard: %d", len(snap.Sections))
	}
	// History and the active pointer stay intact.
	active, err := h.versions.GetActiveVersion(h.dbc, page.ID)
	if err != nil || active == nil || active.ID != v1.ID {
		t.Fatalf("active version after discard: %+v err=%v", active, err)
	}
	changed, _, err := h.pub.HasUnpublishedChanges(ctx, page.ID)
	if err != nil {
		t.Fatalf("HasUnpublishedChanges: %v", err)
	}
	if !changed {
		t.Fatal("empty draft against a published version must read as changed")
	}

	if err := h.pub.DiscardDraft(ctx, uuid.New()); !pages.IsCode(err, pages.CodeNotFound) {
		t.Fatalf("unknown page: want not_found, got %v", err)
	}
}

func TestDeleteActiveVersionConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	page := testutil.SeedPage(t, h.dbc, "delete-active")
	testutil.SeedSection(t, h.dbc, page.ID, "hero", "heading", nil, 0, "X")
	v, err := h.pub.Publish(ctx, page.ID, "v1", nil, uuid.New())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	err = h.versions.DeleteVersion(h.dbc, v.ID)
	if !pages.IsCode(err, pages.CodeConflict) {
		t.Fatalf("want conflict, got %v", err)
	}

	if err := h.pub.Unpublish(ctx, page.ID); err != nil {
		t.Fatalf("Unpublish: %v", err)
	}
	if err := h.versions.DeleteVersion(h.dbc, v.ID); err != nil {
		t.Fatalf("delete after unpublish: %v", err)
	}
	_, err = h.versions.GetVersion(h.dbc, v.ID)
	if !pages.IsCode(err, pages.CodeNotFound) {
		t.Fatalf("want not_found after delete, got %v", err)
	}
}

func TestPruneVersionsKeepsActive(t *testing.T) {
	h := newHarness(t)

	page := testutil.SeedPage(t, h.dbc, "prune")
	testutil.SeedSection(t, h.dbc, page.ID, "hero", "heading", nil, 0, "X")

	var versionIDs []uuid.UUID
	for i := 0; i < 4; i++ {
		v, err := h.versions.CreateVersion(h.dbc, page.ID, mustDraftSnapshot(t, h, page), "", nil, uuid.New())
		if err != nil {
			t.Fatalf("CreateVersion %d: %v", i, err)
		}
		versionIDs = append(versionIDs, v.ID)
	}
	if err := h.versions.SetPublishPointer(h.dbc, page.ID, versionIDs[0]); err != nil {
		t.Fatalf("SetPublishPointer: %v", err)
	}

	deleted, err := h.versions.PruneVersions(h.dbc, page.ID, 1)
	if err != nil {
		t.Fatalf("PruneVersions: %v", err)
	}
	// Unpublished newest-first are 4,3,2; keep=1 retains 4, deletes 3 and 2.
	if deleted != 2 {
		t.Fatalf("deleted: want=2 got=%d", deleted)
	}
	active, err := h.versions.GetActiveVersion(h.dbc, page.ID)
	if err != nil || active == nil || active.ID != versionIDs[0] {
		t.Fatalf("active version pruned: %+v err=%v", active, err)
	}
}

// TestConcurrentPublishNumbersUnique races real serializable transactions,
// so it runs on the shared database instead of the per-test rollback tx and
// cleans up after itself.
func TestConcurrentPublishNumbersUnique(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	runner := repos.NewGormTxRunner(db)
	pageRepo := pagerepos.NewPageRepo(db, log)
	versionRepo := pagerepos.NewPageVersionRepo(db, log, 0)
	sectionRepo := pagerepos.NewPageSectionRepo(db, log)
	drafts := services.NewDraftStore(log, sectionRepo, "en")
	versions := services.NewVersionStore(log, runner, pageRepo, versionRepo)
	pub := services.NewPublishController(log, runner, pageRepo, drafts, versions, services.NewNoopRenderCache())

	page := testutil.SeedPage(t, dbc, fmt.Sprintf("publish-race-%s", uuid.New()))
	testutil.SeedSection(t, dbc, page.ID, "hero", "heading", nil, 0, "X")
	t.Cleanup(func() {
		db.Model(&types.Page{}).Where("id = ?", page.ID).Update("published_version_id", nil)
		db.Where("page_id = ?", page.ID).Delete(&types.PageVersion{})
		db.Where("page_id = ?", page.ID).Delete(&types.PageSection{})
		db.Where("id = ?", page.ID).Delete(&types.Page{})
	})

	const racers = 8
	results := make([]*types.PageVersion, racers)
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = pub.Publish(ctx, page.ID, "", nil, uuid.New())
		}(i)
	}
	wg.Wait()

	seen := map[int]bool{}
	committed := 0
	for i := 0; i < racers; i++ {
		if errs[i] != nil {
			if !pages.IsCode(errs[i], pages.CodeConflict) {
				t.Fatalf("racer %d: want conflict, got %v", i, errs[i])
			}
			continue
		}
		committed++
		if seen[results[i].VersionNumber] {
			t.Fatalf("version number %d committed twice", results[i].VersionNumber)
		}
		seen[results[i].VersionNumber] = true
	}
	if committed == 0 {
		t.Fatal("no publish committed")
	}
	// Committed numbers are gap-free from 1.
	for n := 1; n <= committed; n++ {
		if !seen[n] {
			t.Fatalf("committed numbers have a gap at %d (got %v)", n, seen)
		}
	}
}

func mustDraftSnapshot(t *testing.T, h *harness, page *types.Page) *snapshot.Snapshot {
	t.Helper()
	snap, err := h.drafts.Snapshot(h.dbc, page)
	if err != nil {
		t.Fatalf("draft snapshot: %v", err)
	}
	return snap
}
