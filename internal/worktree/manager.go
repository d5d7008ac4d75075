package worktree

import (
	"log/slog"

	"github.com/go-git/go-git/v5"

	"github.com/basket/murmur/internal/murmurerr"
)

// Manager is the orchestrator-facing entry point: resolve a base, create a
// cached worktree for it, and keep its sidecar metadata current.
type Manager struct {
	pool   *Pool
	logger *slog.Logger
}

// NewManager builds a Manager over pool.
func NewManager(pool *Pool) *Manager {
	return &Manager{pool: pool, logger: slog.Default()}
}

// WithLogger overrides the Manager's logger, used for diagnostics that
// should never fail a worktree operation (e.g. a failed hook install).
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// CreateCached creates a worktree for repoRoot/repoName at the cache-derived
// path for branchName, resolving the branching point first.
func (m *Manager) CreateCached(repoRoot, repoName, taskID string, branchOpts BranchingOptions, createOpts CreateOptions) (Info, error) {
	repo, err := git.PlainOpen(repoRoot)
	if err != nil {
		return Info{}, murmurerr.Configf("open repository", err)
	}

	point, err := FindBranchingPoint(repo, branchOpts)
	if err != nil {
		return Info{}, err
	}

	worktreeDir := Path(m.pool.Root(), repoName, createOpts.BranchName)
	info, err := Create(repoRoot, worktreeDir, point, createOpts)
	if err != nil {
		return Info{}, err
	}

	meta := NewMetadata(taskID, point.Commit, createOpts.BranchName)
	if err := meta.Save(info.Path); err != nil {
		return Info{}, err
	}

	if err := installHooks(info.Path); err != nil {
		m.logger.Warn("hook install failed", "worktree", info.Path, "error", err)
	}

	return info, nil
}

// Release marks a worktree as Completed or Abandoned and refreshes its
// last-used timestamp, readying it for eviction or reuse consideration.
func (m *Manager) Release(worktreeDir string, succeeded bool) error {
	meta, err := LoadMetadata(worktreeDir)
	if err != nil {
		return err
	}
	meta.Touch()
	if succeeded {
		meta.Status = StatusCompleted
	} else {
		meta.Status = StatusAbandoned
	}
	return meta.Save(worktreeDir)
}
