// Package config provides the ambient Paths/OrchestratorConfig value every
// constructor in the core accepts, plus a file watcher that reloads it and
// publishes a bus event on change. File parsing for the CLI's own flags is
// out of scope (§1); this package only owns the orchestrator's own
// configuration value.
package config

import (
	"os"
	"path/filepath"
)

// Paths resolves every on-disk location the core needs from the OS, once,
// at construction. No mutable process-wide singleton; pass the value in.
type Paths struct {
	CacheDir      string // <os-cache>/murmur
	DBPath        string // <CacheDir>/runs.db
	WorktreeRoot  string // <CacheDir>/worktrees
	RepoCloneRoot string // <CacheDir>/repos
}

// ResolvePaths builds a Paths value rooted at the OS user cache directory,
// overridable via MURMUR_CACHE_DIR for tests and containerized deployments.
func ResolvePaths() (Paths, error) {
	root := os.Getenv("MURMUR_CACHE_DIR")
	if root == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return Paths{}, err
		}
		root = filepath.Join(cacheDir, "murmur")
	}
	return Paths{
		CacheDir:      root,
		DBPath:        filepath.Join(root, "runs.db"),
		WorktreeRoot:  filepath.Join(root, "worktrees"),
		RepoCloneRoot: filepath.Join(root, "repos"),
	}, nil
}

// EnsureDirs creates every directory Paths names, idempotently.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.CacheDir, p.WorktreeRoot, p.RepoCloneRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
