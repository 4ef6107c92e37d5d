package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	types "github.com/pagelift/pagelift-backend/internal/domain"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

// Service owns the GORM connection. Postgres is the production driver;
// sqlite exists for local development and ad-hoc testing.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(log *logger.Logger, driver, dsn string) (*Service, error) {
	serviceLog := log.With("service", "DBService")

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	serviceLog.Info("connecting to database", "driver", driver)
	conn, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", driver, err)
	}

	if driver == "postgres" {
		if err := conn.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
		}
	}
	return &Service{db: conn, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) AutoMigrateAll() error {
	s.log.Info("auto migrating tables")
	return s.db.AutoMigrate(
		&types.Page{},
		&types.PageVersion{},
		&types.PageSection{},
		&types.PageRecord{},
		&types.Editor{},
	)
}
