package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/basket/murmur/internal/config"
)

func TestResolvePaths_HonorsOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MURMUR_CACHE_DIR", dir)

	paths, err := config.ResolvePaths()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paths.CacheDir != dir {
		t.Fatalf("expected cache dir %s, got %s", dir, paths.CacheDir)
	}
	if paths.DBPath != filepath.Join(dir, "runs.db") {
		t.Fatalf("unexpected db path: %s", paths.DBPath)
	}
	if paths.WorktreeRoot != filepath.Join(dir, "worktrees") {
		t.Fatalf("unexpected worktree root: %s", paths.WorktreeRoot)
	}
}

func TestPaths_EnsureDirs(t *testing.T) {
	dir := t.TempDir()
	paths := config.Paths{
		CacheDir:      filepath.Join(dir, "cache"),
		WorktreeRoot:  filepath.Join(dir, "cache", "worktrees"),
		RepoCloneRoot: filepath.Join(dir, "cache", "repos"),
	}
	if err := paths.EnsureDirs(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, dir := range []string{paths.CacheDir, paths.WorktreeRoot, paths.RepoCloneRoot} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist", dir)
		}
	}
}
