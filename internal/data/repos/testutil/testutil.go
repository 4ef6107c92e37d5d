// Package testutil provides the shared database harness for repo and
// service integration tests. Tests are gated on TEST_POSTGRES_DSN and skip
// when it is unset; each test runs inside a transaction rolled back in
// cleanup so the database stays clean across runs.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/pagelift/pagelift-backend/internal/data/db"
	"github.com/pagelift/pagelift-backend/internal/platform/dbctx"
	"github.com/pagelift/pagelift-backend/internal/platform/logger"
)

var (
	once   sync.Once
	shared *gorm.DB
	logOne *logger.Logger
	setupE error
)

// Logger returns a test logger, silent unless TEST_LOG=1.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	mode := "production"
	if os.Getenv("TEST_LOG") == "1" {
		mode = "development"
	}
	if logOne == nil {
		l, err := logger.New(mode)
		if err != nil {
			tb.Fatalf("init logger: %v", err)
		}
		logOne = l
	}
	return logOne
}

// DB returns the shared migrated database, skipping the test when no DSN is
// configured.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("TEST_POSTGRES_DSN not set")
	}
	once.Do(func() {
		svc, err := db.New(Logger(tb), "postgres", dsn)
		if err != nil {
			setupE = err
			return
		}
		if err := svc.AutoMigrateAll(); err != nil {
			setupE = err
			return
		}
		shared = svc.DB()
	})
	if setupE != nil {
		tb.Fatalf("test database setup: %v", setupE)
	}
	return shared
}

// Tx opens a transaction rolled back when the test finishes.
func Tx(tb testing.TB) dbctx.Context {
	tb.Helper()
	tx := DB(tb).WithContext(context.Background()).Begin()
	if tx.Error != nil {
		tb.Fatalf("begin test tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		tx.Rollback()
	})
	return dbctx.Context{Ctx: context.Background(), Tx: tx}
}
