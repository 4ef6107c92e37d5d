package pages

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

type EditorRepo interface {
	Create(dbc dbctx.Context, rows []*types.Editor) ([]*types.Editor, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Editor, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.Editor, error)
}

type editorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEditorRepo(db *gorm.DB, baseLog *logger.Logger) EditorRepo {
	return &editorRepo{db: db, log: baseLog.With("repo", "EditorRepo")}
}

func (r *editorRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *editorRepo) Create(dbc dbctx.Context, rows []*types.Editor) ([]*types.Editor, error) {
	if len(rows) == 0 {
		return []*types.Editor{}, nil
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

func (r *editorRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Editor, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Editor
	if err := r.conn(dbc).WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *editorRepo) GetByEmail(dbc dbctx.Context, email string) (*types.Editor, error) {
	if email == "" {
		return nil, nil
	}
	var out []*types.Editor
	if err := r.conn(dbc).WithContext(dbc.Ctx).Where("email = ?", email).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}
