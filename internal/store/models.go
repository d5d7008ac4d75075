// Package store is the durable SQLite run store: agent run lifecycle rows,
// append-only conversation logs, and worktree bookkeeping (spec.md §4.4).
package store

import "time"

// AgentRun is a persisted agent invocation. end_time, exit_code, and
// duration_seconds are set together, once, on completion.
type AgentRun struct {
	ID              int64
	AgentType       string
	IssueNumber     *int64
	Prompt          string
	Workdir         string
	ConfigJSON      string
	PID             *int
	StartTime       time.Time
	EndTime         *time.Time
	ExitCode        *int
	DurationSeconds *int64
	CreatedAt       time.Time
}

// NewAgentRun builds a fresh, not-yet-spawned run row.
func NewAgentRun(agentType, prompt, workdir, configJSON string) AgentRun {
	now := time.Now().UTC()
	if configJSON == "" {
		configJSON = "{}"
	}
	return AgentRun{
		AgentType:  agentType,
		Prompt:     prompt,
		Workdir:    workdir,
		ConfigJSON: configJSON,
		StartTime:  now,
		CreatedAt:  now,
	}
}

// WithIssueNumber sets the issue number and returns the run for chaining.
func (r AgentRun) WithIssueNumber(n int64) AgentRun {
	r.IssueNumber = &n
	return r
}

// IsRunning reports whether the run has no recorded end and a live PID.
func (r AgentRun) IsRunning() bool {
	return r.EndTime == nil && r.PID != nil
}

// IsCompleted reports whether the run has terminated.
func (r AgentRun) IsCompleted() bool {
	return r.EndTime != nil
}

// IsSuccessful reports whether the run terminated with exit code 0.
func (r AgentRun) IsSuccessful() bool {
	return r.ExitCode != nil && *r.ExitCode == 0
}

// Complete marks the run terminated at now, deriving duration from StartTime.
func (r *AgentRun) Complete(exitCode int) {
	now := time.Now().UTC()
	r.EndTime = &now
	r.ExitCode = &exitCode
	secs := int64(now.Sub(r.StartTime).Seconds())
	r.DurationSeconds = &secs
}

// ConversationLog is one append-only event in a run's conversation stream.
type ConversationLog struct {
	ID          int64
	AgentRunID  int64
	Sequence    int64
	Timestamp   time.Time
	MessageType string
	MessageJSON string
	CreatedAt   time.Time
}

// NewConversationLog builds a log entry stamped at the current time.
func NewConversationLog(agentRunID, sequence int64, messageType, messageJSON string) ConversationLog {
	now := time.Now().UTC()
	return ConversationLog{
		AgentRunID:  agentRunID,
		Sequence:    sequence,
		Timestamp:   now,
		MessageType: messageType,
		MessageJSON: messageJSON,
		CreatedAt:   now,
	}
}

// WorktreeStatus mirrors internal/worktree.Status for persisted rows, plus
// the store-only "stale" status applied by a startup recovery sweep.
type WorktreeStatus string

const (
	WorktreeStatusActive    WorktreeStatus = "active"
	WorktreeStatusCompleted WorktreeStatus = "completed"
	WorktreeStatusAbandoned WorktreeStatus = "abandoned"
	WorktreeStatusStale     WorktreeStatus = "stale"
)

// WorktreeRecord is the durable mirror of a worktree cache entry (§3/§6).
type WorktreeRecord struct {
	ID           int64
	Path         string
	BranchName   string
	IssueNumber  *int64
	AgentRunID   *int64
	MainRepoPath *string
	BaseCommit   *string
	Status       WorktreeStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewWorktreeRecord builds a fresh, active worktree row.
func NewWorktreeRecord(path, branchName string) WorktreeRecord {
	now := time.Now().UTC()
	return WorktreeRecord{
		Path:       path,
		BranchName: branchName,
		Status:     WorktreeStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// WithIssueNumber sets the issue number and returns the record for chaining.
func (w WorktreeRecord) WithIssueNumber(n int64) WorktreeRecord {
	w.IssueNumber = &n
	return w
}
