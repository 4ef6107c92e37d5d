package pages

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"gorm.io/gorm"

	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

// DefaultCompressThreshold is the snapshot size above which blobs are
// stored gzip-compressed.
const DefaultCompressThreshold = 8 << 10

type PageVersionRepo interface {
	Create(dbc dbctx.Context, row *types.PageVersion) (*types.PageVersion, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PageVersion, error)
	ListByPageID(dbc dbctx.Context, pageID uuid.UUID, limit, offset int) ([]*types.PageVersion, int64, error)
	MaxVersionNumber(dbc dbctx.Context, pageID uuid.UUID) (int, error)
	MarkPublished(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	DeleteByID(dbc dbctx.Context, id uuid.UUID) error
	DeleteOldUnpublished(dbc dbctx.Context, pageID uuid.UUID, keep int, skipID *uuid.UUID) (int64, error)
}

type pageVersionRepo struct {
	db        *gorm.DB
	log       *logger.Logger
	threshold int
}

func NewPageVersionRepo(db *gorm.DB, baseLog *logger.Logger, compressThreshold int) PageVersionRepo {
	if compressThreshold <= 0 {
		compressThreshold = DefaultCompressThreshold
	}
	return &pageVersionRepo{
		db:        db,
		log:       baseLog.With("repo", "PageVersionRepo"),
		threshold: compressThreshold,
	}
}

func (r *pageVersionRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *pageVersionRepo) Create(dbc dbctx.Context, row *types.PageVersion) (*types.PageVersion, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	stored := *row
	if len(stored.Snapshot) >= r.threshold {
		gz, err := deflate(stored.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("compress snapshot: %w", err)
		}
		stored.SnapshotGz = gz
		stored.Snapshot = nil
		r.log.Debug("stored snapshot compressed",
			"version_id", stored.ID, "raw_bytes", len(row.Snapshot), "gz_bytes", len(gz))
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(&stored).Error; err != nil {
		return nil, err
	}
	row.ID = stored.ID
	return row, nil
}

// GetByID returns nil when absent. Compressed blobs are inflated before the
// row leaves the repo; callers never see SnapshotGz populated.
func (r *pageVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.PageVersion, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.PageVersion
	if err := r.conn(dbc).WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	if err := inflateRow(out[0]); err != nil {
		return nil, err
	}
	return out[0], nil
}

func (r *pageVersionRepo) ListByPageID(dbc dbctx.Context, pageID uuid.UUID, limit, offset int) ([]*types.PageVersion, int64, error) {
	t := r.conn(dbc).WithContext(dbc.Ctx)
	var total int64
	if err := t.Model(&types.PageVersion{}).Where("page_id = ?", pageID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.PageVersion
	q := t.Where("page_id = ?", pageID).Order("version_number DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	// The list surface omits blobs; detail reads go through GetByID.
	if err := q.Omit("snapshot", "snapshot_gz").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *pageVersionRepo) MaxVersionNumber(dbc dbctx.Context, pageID uuid.UUID) (int, error) {
	var max int
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.PageVersion{}).
		Where("page_id = ?", pageID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error
	return max, err
}

// MarkPublished stamps published_at exactly once; rows already stamped are
// left untouched.
func (r *pageVersionRepo) MarkPublished(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.PageVersion{}).
		Where("id = ? AND published_at IS NULL", id).
		Update("published_at", at).Error
}

func (r *pageVersionRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.PageVersion{}).Error
}

// DeleteOldUnpublished hard-deletes never-published versions beyond the
// newest keep rows. skipID (the active pointer) is never deleted regardless
// of age.
func (r *pageVersionRepo) DeleteOldUnpublished(dbc dbctx.Context, pageID uuid.UUID, keep int, skipID *uuid.UUID) (int64, error) {
	t := r.conn(dbc).WithContext(dbc.Ctx)
	var staleIDs []uuid.UUID
	q := t.Model(&types.PageVersion{}).
		Where("page_id = ? AND published_at IS NULL", pageID).
		Order("version_number DESC").
		Offset(keep)
	if skipID != nil {
		q = q.Where("id <> ?", *skipID)
	}
	if err := q.Pluck("id", &staleIDs).Error; err != nil {
		return 0, err
	}
	if len(staleIDs) == 0 {
		return 0, nil
	}
	res := t.Where("id IN ?", staleIDs).Delete(&types.PageVersion{})
	return res.RowsAffected, res.Error
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflateRow(v *types.PageVersion) error {
	if len(v.SnapshotGz) == 0 {
		return nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(v.SnapshotGz))
	if err != nil {
		return fmt.Errorf("open compressed snapshot: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("decompress snapshot: %w", err)
	}
	v.Snapshot = raw
	v.SnapshotGz = nil
	return nil
}
