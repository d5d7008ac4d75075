package worktree

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper runs Pool.Sweep on a cron schedule for a fixed set of repos,
// logging per-repo results instead of surfacing them as errors: a sweep is
// maintenance, not a user-facing operation (spec.md §4.3, §9 "Worktree
// pool: per-item eviction errors are logged, sweeps continue").
type Sweeper struct {
	pool   *Pool
	repos  []string
	logger *slog.Logger
	cron   *cron.Cron
}

// NewSweeper builds a Sweeper over pool for the given repo names.
func NewSweeper(pool *Pool, repos []string, logger *slog.Logger) *Sweeper {
	return &Sweeper{pool: pool, repos: repos, logger: logger, cron: cron.New()}
}

// Start schedules the sweep to run every intervalSecs seconds (config's
// sweep_interval_secs) and begins running it in the background.
func (s *Sweeper) Start(intervalSecs int) error {
	spec := fmt.Sprintf("@every %ds", intervalSecs)
	_, err := s.cron.AddFunc(spec, s.runOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule, blocking until any in-flight sweep finishes.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) runOnce() {
	for _, repo := range s.repos {
		removed, failures := s.pool.Sweep(repo)
		for _, err := range failures {
			s.logger.Warn("worktree sweep eviction failed", "repo", repo, "error", err)
		}
		if len(removed) > 0 {
			s.logger.Info("worktree sweep evicted worktrees", "repo", repo, "count", len(removed))
		}
	}
}
