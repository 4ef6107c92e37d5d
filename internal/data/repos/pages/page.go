package pages

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

type PageRepo interface {
	Create(dbc dbctx.Context, rows []*types.Page) ([]*types.Page, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Page, error)
	GetByKeyword(dbc dbctx.Context, keyword string) (*types.Page, error)
	SetPublishedVersion(dbc dbctx.Context, pageID, versionID uuid.UUID) (int64, error)
	ClearPublishedVersion(dbc dbctx.Context, pageID uuid.UUID) error
}

type pageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPageRepo(db *gorm.DB, baseLog *logger.Logger) PageRepo {
	return &pageRepo{db: db, log: baseLog.With("repo", "PageRepo")}
}

func (r *pageRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *pageRepo) Create(dbc dbctx.Context, rows []*types.Page) ([]*types.Page, error) {
	if len(rows) == 0 {
		return []*types.Page{}, nil
	}
	for _, row := range rows {
		if row != nil && row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *pageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Page, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Page
	if err := r.conn(dbc).WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *pageRepo) GetByKeyword(dbc dbctx.Context, keyword string) (*types.Page, error) {
	if keyword == "" {
		return nil, nil
	}
	var out []*types.Page
	if err := r.conn(dbc).WithContext(dbc.Ctx).Where("keyword = ?", keyword).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// SetPublishedVersion flips the publish pointer and returns the number of
// rows updated so callers can detect a missing page.
func (r *pageRepo) SetPublishedVersion(dbc dbctx.Context, pageID, versionID uuid.UUID) (int64, error) {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.Page{}).
		Where("id = ?", pageID).
		Update("published_version_id", versionID)
	return res.RowsAffected, res.Error
}

// ClearPublishedVersion is idempotent: clearing an already-unpublished page
// succeeds.
func (r *pageRepo) ClearPublishedVersion(dbc dbctx.Context, pageID uuid.UUID) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.Page{}).
		Where("id = ?", pageID).
		Update("published_version_id", nil).Error
}
