package worktree

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/basket/murmur/internal/murmurerr"
)

// PoolConfig bounds how many worktrees a repo may keep cached and for how
// long a non-active one survives before eviction.
type PoolConfig struct {
	MaxPerRepo int
	MaxAgeSecs uint64
}

// DefaultPoolConfig mirrors the original's defaults: 10 per repo, 7 days.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxPerRepo: 10, MaxAgeSecs: 7 * 24 * 3600}
}

// Cached is a worktree discovered on disk, with its sidecar metadata if one
// could be loaded.
type Cached struct {
	Path     string
	Metadata *Metadata
}

// Pool manages the cached worktrees for every repo under one cache root.
type Pool struct {
	root   string
	config PoolConfig
}

// NewPool builds a Pool rooted at root with the given config.
func NewPool(root string, config PoolConfig) *Pool {
	return &Pool{root: root, config: config}
}

// Root returns the pool's cache root.
func (p *Pool) Root() string { return p.root }

// List returns every cached worktree directory for repoName.
func (p *Pool) List(repoName string) ([]Cached, error) {
	repoDir := filepath.Join(p.root, repoName)
	entries, err := os.ReadDir(repoDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, murmurerr.Io(err)
	}

	var cached []Cached
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(repoDir, entry.Name())
		c := Cached{Path: path}
		if m, err := LoadMetadata(path); err == nil {
			c.Metadata = &m
		}
		cached = append(cached, c)
	}
	return cached, nil
}

// FindAvailable returns a reusable worktree for taskID: an exact task_id
// match first, then any worktree marked Available.
func (p *Pool) FindAvailable(repoName, taskID string) (*Cached, error) {
	all, err := p.List(repoName)
	if err != nil {
		return nil, err
	}

	for _, c := range all {
		if c.Metadata != nil && c.Metadata.TaskID == taskID && c.Metadata.Status == StatusAvailable {
			found := c
			return &found, nil
		}
	}
	for _, c := range all {
		if c.Metadata != nil && c.Metadata.Status == StatusAvailable {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

// Sweep evicts worktrees for repoName that are too old or that exceed the
// per-repo cap, oldest-by-last_used first. Active worktrees are never
// touched. Per-entry removal failures are returned as a joined list but do
// not stop the sweep.
func (p *Pool) Sweep(repoName string) (removed []string, failures []error) {
	all, err := p.List(repoName)
	if err != nil {
		return nil, []error{err}
	}

	now := time.Now()
	maxAge := time.Duration(p.config.MaxAgeSecs) * time.Second

	var survivors []Cached
	for _, c := range all {
		if shouldEvictByAge(c, now, maxAge, p.config.MaxAgeSecs > 0) {
			if err := os.RemoveAll(c.Path); err != nil {
				failures = append(failures, murmurerr.Io(err))
				survivors = append(survivors, c)
				continue
			}
			removed = append(removed, c.Path)
			continue
		}
		survivors = append(survivors, c)
	}

	if p.config.MaxPerRepo > 0 {
		var evictable []Cached
		for _, c := range survivors {
			if c.Metadata == nil || c.Metadata.Status != StatusActive {
				evictable = append(evictable, c)
			}
		}
		sort.Slice(evictable, func(i, j int) bool {
			return lastUsed(evictable[i]).Before(lastUsed(evictable[j]))
		})

		excess := len(survivors) - p.config.MaxPerRepo
		for i := 0; i < excess && i < len(evictable); i++ {
			c := evictable[i]
			if err := os.RemoveAll(c.Path); err != nil {
				failures = append(failures, murmurerr.Io(err))
				continue
			}
			removed = append(removed, c.Path)
		}
	}

	return removed, failures
}

func shouldEvictByAge(c Cached, now time.Time, maxAge time.Duration, ageEnabled bool) bool {
	if !ageEnabled {
		return false
	}
	if c.Metadata != nil {
		if c.Metadata.Status == StatusActive {
			return false
		}
		return now.Sub(c.Metadata.LastUsed) > maxAge
	}
	info, err := os.Stat(c.Path)
	if err != nil {
		return false
	}
	return now.Sub(info.ModTime()) > maxAge
}

func lastUsed(c Cached) time.Time {
	if c.Metadata != nil {
		return c.Metadata.LastUsed
	}
	return time.Unix(0, 0)
}
