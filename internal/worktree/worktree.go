// Package worktree manages a cache of isolated git working trees keyed by
// (repository, branch): creation with base-branch resolution, dirty-state
// detection, and LRU/age-based eviction (spec.md §4.3).
package worktree

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/basket/murmur/internal/murmurerr"
)

// hookConfigFile is the presence check for opportunistic hook installation
// (spec.md §4.3 step 6): if absent, Create skips hook setup entirely.
const hookConfigFile = ".pre-commit-config.yaml"

// Info describes a freshly created worktree.
type Info struct {
	Path   string
	Branch string
	Commit string
}

// CreateOptions controls worktree creation.
type CreateOptions struct {
	BranchName string
	Force      bool
}

// SanitizeBranch maps a branch name to a filesystem-safe directory segment
// by replacing '/', '\\', ':' with '-'.
func SanitizeBranch(branch string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-")
	return replacer.Replace(branch)
}

// Path derives the on-disk worktree directory for a (repo, branch) pair
// under root.
func Path(root, repoName, branchName string) string {
	return filepath.Join(root, repoName, SanitizeBranch(branchName))
}

// Create adds a new worktree at worktreeDir, rooted at the branching point's
// commit, in repoRoot. If the directory already exists, Force must be set or
// the call fails; likewise for a pre-existing branch of the same name.
func Create(repoRoot, worktreeDir string, point BranchingPoint, opts CreateOptions) (Info, error) {
	if _, err := os.Stat(worktreeDir); err == nil {
		if !opts.Force {
			return Info{}, murmurerr.Config(fmt.Sprintf("worktree already exists at %s; use force to recreate", worktreeDir))
		}
		if err := Remove(repoRoot, worktreeDir); err != nil {
			return Info{}, err
		}
	}

	exists, err := branchExists(repoRoot, opts.BranchName)
	if err != nil {
		return Info{}, err
	}
	if exists {
		if !opts.Force {
			return Info{}, murmurerr.Config(fmt.Sprintf("branch %q already exists; use force to recreate", opts.BranchName))
		}
		if err := deleteBranch(repoRoot, opts.BranchName); err != nil {
			return Info{}, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(worktreeDir), 0755); err != nil {
		return Info{}, murmurerr.Io(err)
	}

	cmd := exec.Command("git", "worktree", "add", "-b", opts.BranchName, worktreeDir, point.Commit)
	cmd.Dir = repoRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		return Info{}, murmurerr.Configf("git worktree add failed", fmt.Errorf("%s: %s", err, strings.TrimSpace(string(out))))
	}

	return Info{Path: worktreeDir, Branch: opts.BranchName, Commit: point.Commit}, nil
}

// Remove removes a worktree. It tries `git worktree remove --force` first
// and falls back to a raw directory delete if the worktree was never
// properly registered with git.
func Remove(repoRoot, worktreeDir string) error {
	cmd := exec.Command("git", "worktree", "remove", "--force", worktreeDir)
	cmd.Dir = repoRoot
	if err := cmd.Run(); err != nil {
		if _, statErr := os.Stat(worktreeDir); statErr == nil {
			if err := os.RemoveAll(worktreeDir); err != nil {
				return murmurerr.Io(err)
			}
		}
	}
	return nil
}

// IsDirty reports whether a worktree has uncommitted changes. A failing
// `git status` is treated as dirty, matching the conservative original
// behavior.
func IsDirty(worktreeDir string) (bool, error) {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = worktreeDir
	out, err := cmd.Output()
	if err != nil {
		return true, nil
	}
	return len(strings.TrimSpace(string(out))) > 0, nil
}

// installHooks opportunistically runs `pre-commit install` in a freshly
// created worktree if the repo carries a pre-commit config (spec.md §4.3
// step 6). A missing config is not an error; a failed install is logged by
// the caller and never aborts worktree creation.
func installHooks(worktreeDir string) error {
	if _, err := os.Stat(filepath.Join(worktreeDir, hookConfigFile)); err != nil {
		return nil
	}
	cmd := exec.Command("pre-commit", "install", "--install-hooks")
	cmd.Dir = worktreeDir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pre-commit install: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func branchExists(repoRoot, branch string) (bool, error) {
	cmd := exec.Command("git", "rev-parse", "--verify", branch)
	cmd.Dir = repoRoot
	return cmd.Run() == nil, nil
}

func deleteBranch(repoRoot, branch string) error {
	cmd := exec.Command("git", "branch", "-D", branch)
	cmd.Dir = repoRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		return murmurerr.Configf("git branch -D failed", fmt.Errorf("%s: %s", err, strings.TrimSpace(string(out))))
	}
	return nil
}
