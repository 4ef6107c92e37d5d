package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pagelift/pagelift-backend/internal/data/repos"
	repo "github.com/pagelift/pagelift-backend/internal/data/repos/pages"
	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/domain/pages"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

// VersionStore owns immutable page snapshots and per-page version
// numbering. Methods take a dbctx so PublishController can compose several
// of them inside one transaction; with a nil Tx each method opens its own.
type VersionStore interface {
	CreateVersion(dbc dbctx.Context, pageID uuid.UUID, snap *snapshot.Snapshot, name string, metadata map[string]interface{}, authorID uuid.UUID) (*types.PageVersion, error)
	SetPublishPointer(dbc dbctx.Context, pageID, versionID uuid.UUID) error
	ClearPublishPointer(dbc dbctx.Context, pageID uuid.UUID) error

	GetActiveVersion(dbc dbctx.Context, pageID uuid.UUID) (*types.PageVersion, error)
	GetVersion(dbc dbctx.Context, versionID uuid.UUID) (*types.PageVersion, error)
	ListVersions(dbc dbctx.Context, pageID uuid.UUID, limit, offset int) ([]*types.PageVersion, int64, error)
	DeleteVersion(dbc dbctx.Context, versionID uuid.UUID) error
	PruneVersions(dbc dbctx.Context, pageID uuid.UUID, keep int) (int64, error)

	VersionFingerprint(dbc dbctx.Context, versionID uuid.UUID) (string, error)
	DecodeSnapshot(v *types.PageVersion) (*snapshot.Snapshot, error)
}

type versionStore struct {
	log         *logger.Logger
	tx          repos.TxRunner
	pageRepo    repo.PageRepo
	versionRepo repo.PageVersionRepo
}

func NewVersionStore(baseLog *logger.Logger, tx repos.TxRunner, pageRepo repo.PageRepo, versionRepo repo.PageVersionRepo) VersionStore {
	return &versionStore{
		log:         baseLog.With("service", "VersionStore"),
		tx:          tx,
		pageRepo:    pageRepo,
		versionRepo: versionRepo,
	}
}

// inOwnTx runs fn inside a serializable transaction unless the caller
// already supplied one. Version-number allocation needs the serializable
// level; everything else just rides along.
func (s *versionStore) inOwnTx(dbc dbctx.Context, fn func(dbc dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return s.tx.InSerializableTx(dbc.Ctx, fn)
}

func (s *versionStore) CreateVersion(dbc dbctx.Context, pageID uuid.UUID, snap *snapshot.Snapshot, name string, metadata map[string]interface{}, authorID uuid.UUID) (*types.PageVersion, error) {
	const op = "VersionStore.CreateVersion"

	if err := snapshot.Validate(snap); err != nil {
		return nil, pages.Wrap(pages.CodeValidation, op, err)
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, pages.Wrap(pages.CodeValidation, op, err)
	}
	fp, err := snapshot.Fingerprint(snap)
	if err != nil {
		return nil, pages.NewError(pages.CodeInternal, op, "fingerprint snapshot", err)
	}

	row := &types.PageVersion{
		PageID:      pageID,
		VersionName: name,
		Snapshot:    datatypes.JSON(raw),
		Fingerprint: fp,
		CreatedBy:   authorID,
		CreatedAt:   time.Now().UTC(),
	}
	if metadata != nil {
		mb, err := json.Marshal(metadata)
		if err != nil {
			return nil, pages.Wrap(pages.CodeValidation, op, err)
		}
		row.Metadata = mb
	}

	err = s.inOwnTx(dbc, func(dbc dbctx.Context) error {
		page, err := s.pageRepo.GetByID(dbc, pageID)
		if err != nil {
			return err
		}
		if page == nil {
			return pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("page %s not found", pageID), nil)
		}
		// Read-max-then-insert is the critical section; the unique index on
		// (page_id, version_number) backstops it under weaker isolation.
		max, err := s.versionRepo.MaxVersionNumber(dbc, pageID)
		if err != nil {
			return err
		}
		row.VersionNumber = max + 1
		_, err = s.versionRepo.Create(dbc, row)
		return err
	})
	if err != nil {
		if repos.IsConflict(err) {
			return nil, pages.NewError(pages.CodeConflict, op, "concurrent publish allocated the same version number", err)
		}
		if pages.CodeOf(err) != "" {
			return nil, err
		}
		return nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	s.log.Info("version created",
		"page_id", pageID, "version_id", row.ID, "version_number", row.VersionNumber)
	return row, nil
}

func (s *versionStore) SetPublishPointer(dbc dbctx.Context, pageID, versionID uuid.UUID) error {
	const op = "VersionStore.SetPublishPointer"
	return s.inOwnTx(dbc, func(dbc dbctx.Context) error {
		version, err := s.versionRepo.GetByID(dbc, versionID)
		if err != nil {
			return pages.Wrap(pages.CodeInternal, op, err)
		}
		if version == nil || version.PageID != pageID {
			return pages.NewError(pages.CodeNotFound, op,
				fmt.Sprintf("version %s does not belong to page %s", versionID, pageID), nil)
		}
		rows, err := s.pageRepo.SetPublishedVersion(dbc, pageID, versionID)
		if err != nil {
			return pages.Wrap(pages.CodeInternal, op, err)
		}
		if rows == 0 {
			return pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("page %s not found", pageID), nil)
		}
		if version.PublishedAt == nil {
			if err := s.versionRepo.MarkPublished(dbc, versionID, time.Now().UTC()); err != nil {
				return pages.Wrap(pages.CodeInternal, op, err)
			}
		}
		return nil
	})
}

func (s *versionStore) ClearPublishPointer(dbc dbctx.Context, pageID uuid.UUID) error {
	const op = "VersionStore.ClearPublishPointer"
	if err := s.pageRepo.ClearPublishedVersion(dbc, pageID); err != nil {
		return pages.Wrap(pages.CodeInternal, op, err)
	}
	return nil
}

func (s *versionStore) GetActiveVersion(dbc dbctx.Context, pageID uuid.UUID) (*types.PageVersion, error) {
	const op = "VersionStore.GetActiveVersion"
	page, err := s.pageRepo.GetByID(dbc, pageID)
	if err != nil {
		return nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	if page == nil {
		return nil, pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("page %s not found", pageID), nil)
	}
	if page.PublishedVersionID == nil {
		return nil, nil
	}
	version, err := s.versionRepo.GetByID(dbc, *page.PublishedVersionID)
	if err != nil {
		return nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	return version, nil
}

func (s *versionStore) GetVersion(dbc dbctx.Context, versionID uuid.UUID) (*types.PageVersion, error) {
	const op = "VersionStore.GetVersion"
	version, err := s.versionRepo.GetByID(dbc, versionID)
	if err != nil {
		return nil, pages.Wrap(pages.CodeInternal, op, err)
	}
	if version == nil {
		return nil, pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("version %s not found", versionID), nil)
	}
	return version, nil
}

func (s *versionStore) ListVersions(dbc dbctx.Context, pageID uuid.UUID, limit, offset int) ([]*types.PageVersion, int64, error) {
	const op = "VersionStore.ListVersions"
	page, err := s.pageRepo.GetByID(dbc, pageID)
	if err != nil {
		return nil, 0, pages.Wrap(pages.CodeInternal, op, err)
	}
	if page == nil {
		return nil, 0, pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("page %s not found", pageID), nil)
	}
	rows, total, err := s.versionRepo.ListByPageID(dbc, pageID, limit, offset)
	if err != nil {
		return nil, 0, pages.Wrap(pages.CodeInternal, op, err)
	}
	return rows, total, nil
}

// DeleteVersion hard-deletes one version; the active pointer target must be
// unpublished first.
func (s *versionStore) DeleteVersion(dbc dbctx.Context, versionID uuid.UUID) error {
	const op = "VersionStore.DeleteVersion"
	run := func(dbc dbctx.Context) error {
		version, err := s.versionRepo.GetByID(dbc, versionID)
		if err != nil {
			return pages.Wrap(pages.CodeInternal, op, err)
		}
		if version == nil {
			return pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("version %s not found", versionID), nil)
		}
		page, err := s.pageRepo.GetByID(dbc, version.PageID)
		if err != nil {
			return pages.Wrap(pages.CodeInternal, op, err)
		}
		if page != nil && page.PublishedVersionID != nil && *page.PublishedVersionID == versionID {
			return pages.NewError(pages.CodeConflict, op, "version is currently published; unpublish first", nil)
		}
		if err := s.versionRepo.DeleteByID(dbc, versionID); err != nil {
			return pages.Wrap(pages.CodeInternal, op, err)
		}
		return nil
	}
	if dbc.Tx != nil {
		return run(dbc)
	}
	return s.tx.InTx(dbc.Ctx, run)
}

// PruneVersions applies the retention policy: keep the newest keep
// unpublished versions, hard-delete the rest. The active version is always
// retained.
func (s *versionStore) PruneVersions(dbc dbctx.Context, pageID uuid.UUID, keep int) (int64, error) {
	const op = "VersionStore.PruneVersions"
	page, err := s.pageRepo.GetByID(dbc, pageID)
	if err != nil {
		return 0, pages.Wrap(pages.CodeInternal, op, err)
	}
	if page == nil {
		return 0, pages.NewError(pages.CodeNotFound, op, fmt.Sprintf("page %s not found", pageID), nil)
	}
	deleted, err := s.versionRepo.DeleteOldUnpublished(dbc, pageID, keep, page.PublishedVersionID)
	if err != nil {
		return 0, pages.Wrap(pages.CodeInternal, op, err)
	}
	if deleted > 0 {
		s.log.Info("pruned old versions", "page_id", pageID, "deleted", deleted, "keep", keep)
	}
	return deleted, nil
}

func (s *versionStore) VersionFingerprint(dbc dbctx.Context, versionID uuid.UUID) (string, error) {
	version, err := s.GetVersion(dbc, versionID)
	if err != nil {
		return "", err
	}
	return version.Fingerprint, nil
}

// DecodeSnapshot unmarshals and re-validates a stored blob. Any failure
// here means the stored snapshot is corrupt and the whole render must fail
// rather than serve partial output.
func (s *versionStore) DecodeSnapshot(v *types.PageVersion) (*snapshot.Snapshot, error) {
	const op = "VersionStore.DecodeSnapshot"
	var snap snapshot.Snapshot
	if err := json.Unmarshal(v.Snapshot, &snap); err != nil {
		return nil, pages.Wrap(pages.CodeCorruptSnapshot, op, err)
	}
	if err := snapshot.Validate(&snap); err != nil {
		return nil, pages.Wrap(pages.CodeCorruptSnapshot, op, err)
	}
	return &snap, nil
}
