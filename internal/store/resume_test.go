package store

import (
	"strings"
	"testing"
)

func TestFindIncompleteRuns_ExcludesSuccessful(t *testing.T) {
	s := newTestStore(t)
	runs := NewAgentRunRepository(s)
	conversations := NewConversationRepository(s)

	done := NewAgentRun("implementer", "task", "/tmp", "{}").WithIssueNumber(42)
	done.Complete(0)
	if _, err := runs.Insert(t.Context(), &done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	incomplete, err := FindIncompleteRuns(t.Context(), runs, conversations, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(incomplete) != 0 {
		t.Fatalf("expected no incomplete runs, got %+v", incomplete)
	}
}

func TestFindIncompleteRuns_IncludesStillRunning(t *testing.T) {
	s := newTestStore(t)
	runs := NewAgentRunRepository(s)
	conversations := NewConversationRepository(s)

	running := NewAgentRun("implementer", "task", "/tmp", "{}").WithIssueNumber(42)
	if _, err := runs.Insert(t.Context(), &running); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	incomplete, err := FindIncompleteRuns(t.Context(), runs, conversations, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(incomplete) != 1 {
		t.Fatalf("expected 1 incomplete run, got %+v", incomplete)
	}
	if !incomplete[0].WasInterrupted() {
		t.Fatal("expected a still-running run to be reported interrupted")
	}
}

func TestFindIncompleteRuns_IncludesFailed(t *testing.T) {
	s := newTestStore(t)
	runs := NewAgentRunRepository(s)
	conversations := NewConversationRepository(s)

	failed := NewAgentRun("implementer", "task", "/tmp", "{}").WithIssueNumber(42)
	failed.Complete(1)
	if _, err := runs.Insert(t.Context(), &failed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	incomplete, err := FindIncompleteRuns(t.Context(), runs, conversations, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(incomplete) != 1 {
		t.Fatalf("expected 1 incomplete run, got %+v", incomplete)
	}
	if !incomplete[0].HadError() {
		t.Fatal("expected a nonzero-exit run to report HadError")
	}
	if incomplete[0].WasInterrupted() {
		t.Fatal("a run with a recorded exit code was not interrupted")
	}
}

func TestFindIncompleteRuns_CountsMessages(t *testing.T) {
	s := newTestStore(t)
	runs := NewAgentRunRepository(s)
	conversations := NewConversationRepository(s)

	run := NewAgentRun("implementer", "task", "/tmp", "{}").WithIssueNumber(42)
	runID, err := runs.Insert(t.Context(), &run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batch := []ConversationLog{
		NewConversationLog(runID, 0, "user", "{}"),
		NewConversationLog(runID, 1, "assistant", "{}"),
	}
	if err := conversations.InsertBatch(t.Context(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	incomplete, err := FindIncompleteRuns(t.Context(), runs, conversations, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(incomplete) != 1 || incomplete[0].MessageCount != 2 {
		t.Fatalf("expected message count 2, got %+v", incomplete)
	}
}

func TestFindLatestIncompleteRun_NoneFound(t *testing.T) {
	s := newTestStore(t)
	runs := NewAgentRunRepository(s)
	conversations := NewConversationRepository(s)

	latest, err := FindLatestIncompleteRun(t.Context(), runs, conversations, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil, got %+v", latest)
	}
}

func TestFindLatestIncompleteRun_ReturnsMostRecent(t *testing.T) {
	s := newTestStore(t)
	runs := NewAgentRunRepository(s)
	conversations := NewConversationRepository(s)

	older := NewAgentRun("implementer", "older task", "/tmp", "{}").WithIssueNumber(42)
	if _, err := runs.Insert(t.Context(), &older); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	newer := NewAgentRun("implementer", "newer task", "/tmp", "{}").WithIssueNumber(42)
	newer.StartTime = older.StartTime.Add(1)
	if _, err := runs.Insert(t.Context(), &newer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	latest, err := FindLatestIncompleteRun(t.Context(), runs, conversations, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a result")
	}
	if latest.Prompt != "newer task" {
		t.Fatalf("expected the most recent run by start_time, got %+v", latest)
	}
}

func TestReconstructConversation_OrdersBySequence(t *testing.T) {
	s := newTestStore(t)
	runs := NewAgentRunRepository(s)
	conversations := NewConversationRepository(s)

	run := NewAgentRun("implementer", "task", "/tmp", "{}")
	runID, err := runs.Insert(t.Context(), &run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batch := []ConversationLog{
		NewConversationLog(runID, 0, "user", `{"text":"start"}`),
		NewConversationLog(runID, 1, "assistant", `{"text":"working"}`),
	}
	if err := conversations.InsertBatch(t.Context(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messages, err := ReconstructConversation(t.Context(), conversations, runID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].MessageType != "user" || messages[1].MessageType != "assistant" {
		t.Fatalf("unexpected ordering: %+v", messages)
	}
}

func TestReconstructConversation_RejectsInvalidJSON(t *testing.T) {
	s := newTestStore(t)
	runs := NewAgentRunRepository(s)
	conversations := NewConversationRepository(s)

	run := NewAgentRun("implementer", "task", "/tmp", "{}")
	runID, err := runs.Insert(t.Context(), &run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := NewConversationLog(runID, 0, "assistant", "not json")
	if _, err := conversations.Insert(t.Context(), &bad); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := ReconstructConversation(t.Context(), conversations, runID); err == nil {
		t.Fatal("expected an error reconstructing a log with invalid message_json")
	}
}

func TestBuildResumePrompt_WithoutMessages(t *testing.T) {
	prompt := BuildResumePrompt("Implement feature X", nil, "process crashed")

	for _, want := range []string{
		"RESUMING INTERRUPTED SESSION",
		"Reason for resume: process crashed",
		"Original task:",
		"Implement feature X",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "messages") {
		t.Fatalf("did not expect a message histogram with no messages, got:\n%s", prompt)
	}
}

func TestBuildResumePrompt_WithMessageHistogram(t *testing.T) {
	messages := []ConversationMessage{
		{Sequence: 0, MessageType: "user"},
		{Sequence: 1, MessageType: "assistant"},
		{Sequence: 2, MessageType: "assistant"},
		{Sequence: 3, MessageType: "tool_use"},
	}
	prompt := BuildResumePrompt("Implement feature X", messages, "exit code 1")

	for _, want := range []string{
		"RESUMING INTERRUPTED SESSION",
		"Reason for resume: exit code 1",
		"4 messages",
		"Assistant sent 2 messages",
		"Used 1 tools",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q, got:\n%s", want, prompt)
		}
	}
}
