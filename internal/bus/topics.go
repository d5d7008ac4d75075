package bus

// WorktreeEvent is published when the pool creates, releases, or evicts a worktree.
type WorktreeEvent struct {
	Path       string
	BranchName string
	RepoName   string
	Reason     string // "age" | "cap" | "manual", set on eviction only
}

// StreamMessageEvent mirrors one parsed conversation-log event for live subscribers
// (internal/live), published alongside the store insert rather than instead of it.
type StreamMessageEvent struct {
	RunID       string
	Sequence    int64
	MessageType string
	MessageJSON string
}

// ConfigReloadedEvent is published after the config watcher successfully reloads
// and validates the orchestrator configuration file.
type ConfigReloadedEvent struct {
	Path string
}
