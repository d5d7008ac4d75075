package depgraph

import (
	"sort"

	"github.com/basket/murmur/internal/murmurerr"
)

// Graph is the derived (never persisted) dependency structure for a bounded
// set of issues. Invariants: Ready and Blocked partition the input set;
// every edge in Dependencies points only to an issue in the input set;
// cross-repo refs never contribute an edge.
type Graph struct {
	Nodes        map[uint64]bool     // the full input issue set
	Dependencies map[uint64][]uint64 // issue -> issues it depends on
	Dependents   map[uint64][]uint64 // issue -> issues that depend on it
	Parents      map[uint64]uint64   // issue -> epic parent
	Ready        map[uint64]bool
	Blocked      map[uint64]bool
}

// BuildGraph parses dependencies for every issue and builds the graph.
// Invalid textual refs anywhere in the input abort construction: every bad
// ref across every issue is collected into a single InvalidDependencyRefs
// error, never partial.
func BuildGraph(issues []Issue) (*Graph, error) {
	inputSet := make(map[uint64]bool, len(issues))
	for _, issue := range issues {
		inputSet[issue.Number] = true
	}

	g := &Graph{
		Nodes:        inputSet,
		Dependencies: make(map[uint64][]uint64),
		Dependents:   make(map[uint64][]uint64),
		Parents:      make(map[uint64]uint64),
		Ready:        make(map[uint64]bool),
		Blocked:      make(map[uint64]bool),
	}

	var invalid []string
	parsed := make(map[uint64]IssueDependencies, len(issues))
	for _, issue := range issues {
		deps, err := ParseDependencies(issue.Body)
		if err != nil {
			if e, ok := murmurerr.As(err); ok && e.Kind == murmurerr.KindInvalidDependencyRefs {
				invalid = append(invalid, e.Refs...)
				continue
			}
			return nil, err
		}
		parsed[issue.Number] = deps
	}
	if len(invalid) > 0 {
		return nil, invalidDependencyRefsErr(invalid)
	}

	for _, issue := range issues {
		deps := parsed[issue.Number]

		// Sub-issue links already resolved by the tracker collaborator are
		// unioned in as additional local dependencies.
		localDeps := deps.LocalDeps()
		for _, r := range issue.SubIssues {
			if r.IsLocal() && !containsUint64(localDeps, r.Number) {
				localDeps = append(localDeps, r.Number)
			}
		}

		// Keep only references that land in the input set; everything else
		// (forward refs to issues outside the scanned batch) is unknowable.
		var edges []uint64
		for _, dep := range localDeps {
			if inputSet[dep] {
				edges = append(edges, dep)
			}
		}

		if len(edges) > 0 {
			g.Dependencies[issue.Number] = edges
			for _, dep := range edges {
				g.Dependents[dep] = append(g.Dependents[dep], issue.Number)
			}
		}

		if deps.Parent != nil && deps.Parent.IsLocal() {
			g.Parents[issue.Number] = deps.Parent.Number
		}

		if len(edges) == 0 {
			g.Ready[issue.Number] = true
		} else {
			g.Blocked[issue.Number] = true
		}
	}

	return g, nil
}

func containsUint64(xs []uint64, x uint64) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// ReadyIssues returns the ready set as a sorted slice for deterministic
// iteration in callers and tests.
func (g *Graph) ReadyIssues() []uint64 {
	return sortedKeys(g.Ready)
}

// BlockedIssues returns the blocked set as a sorted slice.
func (g *Graph) BlockedIssues() []uint64 {
	return sortedKeys(g.Blocked)
}

func sortedKeys(set map[uint64]bool) []uint64 {
	out := make([]uint64, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FindCycles runs a DFS with three-color marking over Dependencies and
// returns every cycle found, each as the traversal path starting from the
// cycle's entry node. Idempotent and side-effect-free.
func (g *Graph) FindCycles() [][]uint64 {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[uint64]int)
	var cycles [][]uint64

	nodes := make([]uint64, 0, len(g.Dependencies))
	for n := range g.Dependencies {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	var path []uint64
	var visit func(node uint64) []uint64
	visit = func(node uint64) []uint64 {
		color[node] = gray
		path = append(path, node)

		deps := g.Dependencies[node]
		for _, dep := range deps {
			switch color[dep] {
			case white:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			case gray:
				for i, n := range path {
					if n == dep {
						cyc := make([]uint64, len(path)-i)
						copy(cyc, path[i:])
						return cyc
					}
				}
			}
		}

		path = path[:len(path)-1]
		color[node] = black
		return nil
	}

	for _, node := range nodes {
		if color[node] == white {
			if cyc := visit(node); cyc != nil {
				cycles = append(cycles, cyc)
			}
		}
	}
	return cycles
}

// TopologicalOrder returns a valid topological order (dependencies before
// dependents) via DFS post-order, or ok=false if the graph contains a cycle.
// Tie-breaking among independent siblings is unspecified: this is *a* valid
// order, not a canonical one.
func (g *Graph) TopologicalOrder() ([]uint64, bool) {
	visited := make(map[uint64]bool)
	onStack := make(map[uint64]bool)
	var order []uint64

	sortedNodes := sortedKeys(g.Nodes)

	var visit func(node uint64) bool
	visit = func(node uint64) bool {
		if onStack[node] {
			return false
		}
		if visited[node] {
			return true
		}
		onStack[node] = true
		for _, dep := range g.Dependencies[node] {
			if !visit(dep) {
				return false
			}
		}
		onStack[node] = false
		visited[node] = true
		order = append(order, node)
		return true
	}

	for _, node := range sortedNodes {
		if !visited[node] {
			if !visit(node) {
				return nil, false
			}
		}
	}
	return order, true
}

// Layers computes, for each issue in a valid topological order, a layer
// index as 1 + max(depth(dep)) across its dependencies (0 if none). Issues
// sharing a layer index are mutually independent and may run concurrently.
// Used by the orchestrator, not by the engine itself.
func (g *Graph) Layers() ([][]uint64, bool) {
	order, ok := g.TopologicalOrder()
	if !ok {
		return nil, false
	}

	depth := make(map[uint64]int, len(order))
	maxDepth := -1
	for _, node := range order {
		d := 0
		for _, dep := range g.Dependencies[node] {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[node] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	layers := make([][]uint64, maxDepth+1)
	for _, node := range order {
		d := depth[node]
		layers[d] = append(layers[d], node)
	}
	for _, layer := range layers {
		sort.Slice(layer, func(i, j int) bool { return layer[i] < layer[j] })
	}
	return layers, true
}
