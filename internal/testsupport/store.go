package testsupport

import (
	"testing"

	"sortbook/internal/catalog"
	"sortbook/internal/config"
)

// MustOpenStore opens a catalog store for the config and closes it
// when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
