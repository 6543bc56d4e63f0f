// Package storetest opens throwaway in-memory databases for package tests.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vesaa/patchbay/internal/store"
)

// New returns a migrated in-memory SQLite database that lives for the test.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := store.Open(store.Options{Driver: "sqlite", Path: ":memory:"}, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
