package worktree

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/basket/murmur/internal/murmurerr"
)

// BranchingPoint identifies the base a new worktree/branch is created from.
type BranchingPoint struct {
	Reference  string
	Commit     string
	BranchName string
}

// BranchingOptions controls how FindBranchingPoint picks a base.
type BranchingOptions struct {
	BaseBranch string // explicit override, takes priority over all defaults
	Remote     string // defaults to "origin"
}

// FindBranchingPoint resolves the best base for a new worktree, trying in
// order: an explicit override, origin/main, origin/master, local main, local
// master.
func FindBranchingPoint(repo *git.Repository, opts BranchingOptions) (BranchingPoint, error) {
	remote := opts.Remote
	if remote == "" {
		remote = "origin"
	}

	if opts.BaseBranch != "" {
		return resolveBranchReference(repo, opts.BaseBranch)
	}

	candidates := []string{
		fmt.Sprintf("%s/main", remote),
		fmt.Sprintf("%s/master", remote),
		"main",
		"master",
	}
	for _, ref := range candidates {
		if point, err := resolveBranchReference(repo, ref); err == nil {
			return point, nil
		}
	}
	return BranchingPoint{}, murmurerr.Config("no suitable base branch found; expected main, master, or an explicit base")
}

func resolveBranchReference(repo *git.Repository, reference string) (BranchingPoint, error) {
	// Try as a remote-tracking branch first (refs/remotes/<reference>).
	if ref, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteParts(reference)), true); err == nil {
		commit, cerr := repo.CommitObject(ref.Hash())
		if cerr != nil {
			return BranchingPoint{}, murmurerr.Configf(fmt.Sprintf("failed to resolve %s", reference), cerr)
		}
		return BranchingPoint{Reference: reference, Commit: commit.Hash.String(), BranchName: branchLeaf(reference)}, nil
	}

	// Try as a local branch (refs/heads/<reference>).
	if ref, err := repo.Reference(plumbing.NewBranchReferenceName(reference), true); err == nil {
		commit, cerr := repo.CommitObject(ref.Hash())
		if cerr != nil {
			return BranchingPoint{}, murmurerr.Configf(fmt.Sprintf("failed to resolve %s", reference), cerr)
		}
		return BranchingPoint{Reference: reference, Commit: commit.Hash.String(), BranchName: reference}, nil
	}

	// Try as a direct reference name.
	if ref, err := repo.Reference(plumbing.ReferenceName(reference), true); err == nil {
		commit, cerr := repo.CommitObject(ref.Hash())
		if cerr != nil {
			return BranchingPoint{}, murmurerr.Configf(fmt.Sprintf("failed to resolve %s", reference), cerr)
		}
		return BranchingPoint{Reference: reference, Commit: commit.Hash.String(), BranchName: branchLeaf(reference)}, nil
	}

	return BranchingPoint{}, murmurerr.Config(fmt.Sprintf("branch %q not found", reference))
}

// remoteParts splits "origin/main" into ("origin", "main") for
// plumbing.NewRemoteReferenceName, which wants them separately.
func remoteParts(reference string) (string, string) {
	remote, branch, ok := strings.Cut(reference, "/")
	if !ok {
		return "", reference
	}
	return remote, branch
}

func branchLeaf(reference string) string {
	parts := strings.Split(reference, "/")
	return parts[len(parts)-1]
}
