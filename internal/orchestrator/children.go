package orchestrator

import (
	"github.com/basket/murmur/internal/depgraph"
)

// resolveChildren gathers the issue set an epic run schedules: the epic's
// natively-tracked sub-issues (already resolved by the tracker), unioned
// with any open issue whose embedded metadata names epic as its parent.
// The epic itself is never included — it is a container, not a unit of
// work the supervisor spawns an agent for.
func resolveChildren(source depgraph.Source, epic depgraph.Issue) ([]depgraph.Issue, error) {
	seen := make(map[uint64]bool)
	var children []depgraph.Issue

	for _, ref := range epic.SubIssues {
		if !ref.IsLocal() || seen[ref.Number] {
			continue
		}
		child, err := source.GetIssue(ref.Number)
		if err != nil {
			return nil, err
		}
		seen[ref.Number] = true
		children = append(children, child)
	}

	open, err := source.ListOpenIssues()
	if err != nil {
		return nil, err
	}
	for _, candidate := range open {
		if seen[candidate.Number] || candidate.Number == epic.Number {
			continue
		}
		meta, ok := depgraph.ParseMetadata(candidate.Body)
		if !ok || meta.Parent == nil || *meta.Parent != epic.Number {
			continue
		}
		seen[candidate.Number] = true
		children = append(children, candidate)
	}

	return children, nil
}
