// Package storagetest opens throwaway document stores for service tests.
package storagetest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
	"github.com/smallbiznis/flashmarket/pkg/docstore/sqlstore"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns an in-memory sqlite store private to t.
func New(t *testing.T, now func() time.Time) docstore.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := sqlstore.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlstore.New(db, now)
}

// Seed writes documents before a test runs.
func Seed(t *testing.T, store docstore.Store, collection, id string, data docstore.Document) {
	t.Helper()
	if err := store.Set(t.Context(), collection, id, data); err != nil {
		t.Fatalf("seed %s/%s: %v", collection, id, err)
	}
}
