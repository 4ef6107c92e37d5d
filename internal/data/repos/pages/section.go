package pages

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

type PageSectionRepo interface {
	Create(dbc dbctx.Context, rows []*types.PageSection) ([]*types.PageSection, error)
	ListByPageID(dbc dbctx.Context, pageID uuid.UUID) ([]*types.PageSection, error)
	DeleteByPageID(dbc dbctx.Context, pageID uuid.UUID) error
}

type pageSectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPageSectionRepo(db *gorm.DB, baseLog *logger.Logger) PageSectionRepo {
	return &pageSectionRepo{db: db, log: baseLog.With("repo", "PageSectionRepo")}
}

func (r *pageSectionRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *pageSectionRepo) Create(dbc dbctx.Context, rows []*types.PageSection) ([]*types.PageSection, error) {
	if len(rows) == 0 {
		return []*types.PageSection{}, nil
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

func (r *pageSectionRepo) ListByPageID(dbc dbctx.Context, pageID uuid.UUID) ([]*types.PageSection, error) {
	var out []*types.PageSection
	if pageID == uuid.Nil {
		return out, nil
	}
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("page_id = ?", pageID).
		Order("position ASC, section_key ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pageSectionRepo) DeleteByPageID(dbc dbctx.Context, pageID uuid.UUID) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Where("page_id = ?", pageID).
		Delete(&types.PageSection{}).Error
}
