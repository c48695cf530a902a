package testsupport

import (
	"context"
	"testing"

	"autotube/internal/config"
	"autotube/internal/jobs"
)

// MustOpenStore opens the job store cfg selects and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) jobs.Store {
	t.Helper()

	var store jobs.Store
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		sqliteStore, err := jobs.OpenSQLite(context.Background(), cfg.Store.SQLitePath)
		if err != nil {
			t.Fatalf("jobs.OpenSQLite: %v", err)
		}
		store = sqliteStore
	default:
		store = jobs.NewMemoryStore()
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
