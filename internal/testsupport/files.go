package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteGarbage fills the target path with bytes that are not a valid zip
// archive. A size <= 0 writes a single byte.
func WriteGarbage(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = 0x42
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
