package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pagelift/pagelift-backend/internal/data/repos"
	repo "github.com/pagelift/pagelift-backend/internal/data/repos/pages"
	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/domain/pages"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

// PublishController drives the page publish state machine: a page is either
// unpublished or points at exactly one active version. Each operation runs
// in one transaction; a losing racer gets a conflict error back and decides
// for itself whether to retry.
type PublishController interface {
	Publish(ctx context.Context, pageID uuid.UUID, versionName string, metadata map[string]interface{}, authorID uuid.UUID) (*types.PageVersion, error)
	PublishExisting(ctx context.Context, pageID, versionID uuid.UUID) (*types.PageVersion, error)
	Unpublish(ctx context.Context, pageID uuid.UUID) error
	DiscardDraft(ctx context.Context, pageID uuid.UUID) error
	HasUnpublishedChanges(ctx context.Context, pageID uuid.UUID) (bool, *uuid.UUID, error)
}

type publishController struct {
	log      *logger.Logger
	tx       repos.TxRunner
	pageRepo repo.PageRepo
	drafts   DraftStore
	versions VersionStore
	cache    RenderCache
}

func NewPublishController(baseLog *logger.Logger, tx repos.TxRunner, pageRepo repo.PageRepo, drafts DraftStore, versions VersionStore, cache RenderCache) PublishController {
	return &publishController{
		log:      baseLog.With("service", "PublishController"),
		tx:       tx,
		pageRepo: pageRepo,
		drafts:   drafts,
		versions: versions,
		cache:    cache,
	}
}

// Publish captures the current draft as a new version and makes it active.
func (s *publishController) Publish(ctx context.Context, pageID uuid.UUID, versionName string, metadata map[string]interface{}, authorID uuid.UUID) (*types.PageVersion, error) {
	const op = "PublishController.Publish"

	var created *types.PageVersion
	err := s.tx.InSerializableTx(ctx, func(dbc dbctx.Context) error {
		page, err := s.pageRepo.GetByID(dbc, pageID)
		if err != nil {
			return pages.Wrap(pages.CodeInternal, op, err)
		}
		if page == nil {
			return pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("page %s not found", pageID), nil)
		}
		snap, err := s.drafts.Snapshot(dbc, page)
		if err != nil {
			return pages.Wrap(pages.CodeInternal, op, err)
		}
		if snap.IsEmpty() {
			return pages.NewError(pages.CodeValidation, op, "draft has no sections to publish", nil)
		}
		created, err = s.versions.CreateVersion(dbc, pageID, snap, versionName, metadata, authorID)
		if err != nil {
			return err
		}
		if err := s.versions.SetPublishPointer(dbc, pageID, created.ID); err != nil {
			return err
		}
		// Re-read so the returned record carries the published_at stamp.
		created, err = s.versions.GetVersion(dbc, created.ID)
		return err
	})
	if err != nil {
		return nil, conflictOr(op, err)
	}
	s.cache.InvalidatePage(ctx, pageID)
	s.log.Info("page published",
		"page_id", pageID, "version_id", created.ID, "version_number", created.VersionNumber)
	return created, nil
}

// PublishExisting re-activates a prior version without creating a new row.
func (s *publishController) PublishExisting(ctx context.Context, pageID, versionID uuid.UUID) (*types.PageVersion, error) {
	const op = "PublishController.PublishExisting"

	var version *types.PageVersion
	err := s.tx.InSerializableTx(ctx, func(dbc dbctx.Context) error {
		if err := s.versions.SetPublishPointer(dbc, pageID, versionID); err != nil {
			return err
		}
		var err error
		version, err = s.versions.GetVersion(dbc, versionID)
		return err
	})
	if err != nil {
		return nil, conflictOr(op, err)
	}
	s.cache.InvalidatePage(ctx, pageID)
	s.log.Info("prior version re-published", "page_id", pageID, "version_id", versionID)
	return version, nil
}

// Unpublish clears the active pointer. Already-unpublished pages are a
// no-op, not an error.
func (s *publishController) Unpublish(ctx context.Context, pageID uuid.UUID) error {
	const op = "PublishController.Unpublish"

	err := s.tx.InSerializableTx(ctx, func(dbc dbctx.Context) error {
		page, err := s.pageRepo.GetByID(dbc, pageID)
		if err != nil {
			return pages.Wrap(pages.CodeInternal, op, err)
		}
		if page == nil {
			return pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("page %s not found", pageID), nil)
		}
		return s.versions.ClearPublishPointer(dbc, pageID)
	})
	if err != nil {
		return conflictOr(op, err)
	}
	s.cache.InvalidatePage(ctx, pageID)
	s.log.Info("page unpublished", "page_id", pageID)
	return nil
}

// DiscardDraft throws away the page's draft section rows. The active
// version and history stay as they are.
func (s *publishController) DiscardDraft(ctx context.Context, pageID uuid.UUID) error {
	const op = "PublishController.DiscardDraft"

	err := s.tx.InSerializableTx(ctx, func(dbc dbctx.Context) error {
		page, err := s.pageRepo.GetByID(dbc, pageID)
		if err != nil {
			return pages.Wrap(pages.CodeInternal, op, err)
		}
		if page == nil {
			return pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("page %s not found", pageID), nil)
		}
		return s.drafts.Discard(dbc, page)
	})
	if err != nil {
		return conflictOr(op, err)
	}
	s.log.Info("draft discarded", "page_id", pageID)
	return nil
}

// HasUnpublishedChanges compares the draft fingerprint against the active
// version's fingerprint. No active version counts as "changed" whenever the
// draft is non-empty. The active version id rides along so callers can show
// what the draft diverged from.
func (s *publishController) HasUnpublishedChanges(ctx context.Context, pageID uuid.UUID) (bool, *uuid.UUID, error) {
	const op = "PublishController.HasUnpublishedChanges"
	dbc := dbctx.Context{Ctx: ctx}

	page, err := s.pageRepo.GetByID(dbc, pageID)
	if err != nil {
		return false, nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	if page == nil {
		return false, nil, pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("page %s not found", pageID), nil)
	}
	draftFP, err := s.drafts.Fingerprint(dbc, page)
	if err != nil {
		return false, nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	if page.PublishedVersionID == nil {
		snap, err := s.drafts.Snapshot(dbc, page)
		if err != nil {
			return false, nil, pages.Wrap(pages.CodeInternal, op, err)
		}
		return !snap.IsEmpty(), nil, nil
	}
	activeFP, err := s.versions.VersionFingerprint(dbc, *page.PublishedVersionID)
	if err != nil {
		return false, nil, err
	}
	return draftFP != activeFP, page.PublishedVersionID, nil
}

// conflictOr keeps already-coded errors intact and maps serialization and
// duplicate-key failures to the conflict code.
func conflictOr(op string, err error) error {
	if repos.IsConflict(err) {
		return pages.NewError(pages.CodeConflict, op, "concurrent publish on the same page", err)
	}
	if pages.CodeOf(err) != "" {
		return err
	}
	return pages.Wrap(pages.CodeInternal, op, err)
}
