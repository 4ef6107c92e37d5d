package pages

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

type PageRecordRepo interface {
	Create(dbc dbctx.Context, rows []*types.PageRecord) ([]*types.PageRecord, error)
	ListByCollection(dbc dbctx.Context, collection string) ([]*types.PageRecord, error)
}

type pageRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPageRecordRepo(db *gorm.DB, baseLog *logger.Logger) PageRecordRepo {
	return &pageRecordRepo{db: db, log: baseLog.With("repo", "PageRecordRepo")}
}

func (r *pageRecordRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *pageRecordRepo) Create(dbc dbctx.Context, rows []*types.PageRecord) ([]*types.PageRecord, error) {
	if len(rows) == 0 {
		return []*types.PageRecord{}, nil
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

// ListByCollection returns an empty slice for collections that do not
// exist; missing data is not an error at this layer.
func (r *pageRecordRepo) ListByCollection(dbc dbctx.Context, collection string) ([]*types.PageRecord, error) {
	var out []*types.PageRecord
	if collection == "" {
		return out, nil
	}
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("collection = ?", collection).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
