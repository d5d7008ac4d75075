// Package depgraph implements the dependency DAG engine: it turns a
// heterogeneous set of issue-body references (free text, an embedded
// metadata block, or a tracker's native sub-issue list) into a consistent
// local dependency graph with deterministic ready/blocked partitioning,
// cycle detection, and a topological (layered) execution order.
package depgraph

import "time"

// IssueState is the open/closed lifecycle state of an Issue.
type IssueState string

const (
	IssueStateOpen   IssueState = "open"
	IssueStateClosed IssueState = "closed"
)

// Issue is the abstract work item the DAG engine consumes. How issues are
// fetched is a collaborator contract (see internal/depgraph.Source); the
// engine itself only ever reads these fields.
type Issue struct {
	Number           uint64
	Title            string
	Body             string
	State            IssueState
	Labels           []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	SubIssues        []IssueRef // native tracker sub-issue links, already resolved
	SubIssueSummary  string     // e.g. "3 of 5 complete", when the tracker reports it
}

// Source is the issue-tracker collaborator the DAG engine and orchestrator
// depend on. Implementations live outside this module (§1 Non-goals); this
// interface is the contract they must satisfy.
type Source interface {
	GetIssue(number uint64) (Issue, error)
	ListIssues(filter string) ([]Issue, error)
	ListOpenIssues() ([]Issue, error)
	GetIssueWithTracking(number uint64) (Issue, error)
	CheckDependencyStatus(number uint64) (DependencyStatus, error)
}

// DependencyStatus is the tri-state result of Source.CheckDependencyStatus.
type DependencyStatus struct {
	Kind     DependencyStatusKind
	PRNumber uint64 // set when Kind == DependencyStatusInProgress
}

type DependencyStatusKind int

const (
	DependencyStatusComplete DependencyStatusKind = iota
	DependencyStatusInProgress
	DependencyStatusPending
)
