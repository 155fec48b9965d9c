package migrations

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLatestVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000001_init.up.sql",
		"000001_init.down.sql",
		"000003_indexes.up.sql",
		"notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("-- placeholder"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if got := latestVersion(dir); got != 3 {
		t.Errorf("latestVersion = %d, want 3", got)
	}
}

func TestLatestVersionMissingDir(t *testing.T) {
	if got := latestVersion(filepath.Join(t.TempDir(), "absent")); got != 0 {
		t.Errorf("latestVersion on missing dir = %d, want 0", got)
	}
}
