package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/basket/murmur/internal/murmurerr"
)

// ResumableRun describes an incomplete agent run found for an issue
// (original_source murmur-core/src/workflow/resume.rs, supplemented per
// SPEC_FULL.md C.1/C.2).
type ResumableRun struct {
	RunID        int64
	IssueNumber  *int64
	Prompt       string
	Workdir      string
	StartTime    time.Time
	ExitCode     *int
	MessageCount int64
}

// HadError reports whether the run terminated with a non-zero exit code.
func (r ResumableRun) HadError() bool {
	return r.ExitCode != nil && *r.ExitCode != 0
}

// WasInterrupted reports whether the run has no recorded exit code at all
// (still running, or the process died without the supervisor completing it).
func (r ResumableRun) WasInterrupted() bool {
	return r.ExitCode == nil
}

// FindIncompleteRuns returns every run for an issue that is either still
// running (no end_time) or failed (non-zero exit), most recent first.
func FindIncompleteRuns(ctx context.Context, runs *AgentRunRepository, conversations *ConversationRepository, issueNumber int64) ([]ResumableRun, error) {
	all, err := runs.FindByIssue(ctx, issueNumber)
	if err != nil {
		return nil, err
	}

	var incomplete []ResumableRun
	for _, run := range all {
		isIncomplete := !run.IsCompleted() || !run.IsSuccessful()
		if !isIncomplete {
			continue
		}
		count, err := conversations.CountByAgentRun(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		incomplete = append(incomplete, ResumableRun{
			RunID:        run.ID,
			IssueNumber:  run.IssueNumber,
			Prompt:       run.Prompt,
			Workdir:      run.Workdir,
			StartTime:    run.StartTime,
			ExitCode:     run.ExitCode,
			MessageCount: count,
		})
	}
	return incomplete, nil
}

// FindLatestIncompleteRun returns the most recent incomplete run for an
// issue, if any (FindByIssue already orders by start_time descending).
func FindLatestIncompleteRun(ctx context.Context, runs *AgentRunRepository, conversations *ConversationRepository, issueNumber int64) (*ResumableRun, error) {
	incomplete, err := FindIncompleteRuns(ctx, runs, conversations, issueNumber)
	if err != nil {
		return nil, err
	}
	if len(incomplete) == 0 {
		return nil, nil
	}
	return &incomplete[0], nil
}

// ConversationMessage is a reconstructed conversation event, JSON-decoded
// from its stored form.
type ConversationMessage struct {
	Sequence    int64
	MessageType string
	Message     json.RawMessage
}

// ReconstructConversation loads every event for a run, in sequence order.
func ReconstructConversation(ctx context.Context, conversations *ConversationRepository, runID int64) ([]ConversationMessage, error) {
	logs, err := conversations.FindByAgentRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	messages := make([]ConversationMessage, 0, len(logs))
	for _, log := range logs {
		if !json.Valid([]byte(log.MessageJSON)) {
			return nil, murmurerr.InvalidData(fmt.Sprintf("conversation log %d has invalid message_json", log.ID))
		}
		messages = append(messages, ConversationMessage{
			Sequence:    log.Sequence,
			MessageType: log.MessageType,
			Message:     json.RawMessage(log.MessageJSON),
		})
	}
	return messages, nil
}

// BuildResumePrompt synthesizes a resume prompt: a banner, the reason, the
// original prompt, and a message-type histogram, exactly matching
// original_source's build_resume_prompt (SPEC_FULL.md C.1).
func BuildResumePrompt(originalPrompt string, messages []ConversationMessage, reason string) string {
	var b strings.Builder

	b.WriteString("RESUMING INTERRUPTED SESSION\n\n")
	fmt.Fprintf(&b, "Reason for resume: %s\n\n", reason)
	b.WriteString("Original task:\n")
	b.WriteString(originalPrompt)
	b.WriteString("\n\n")

	if len(messages) > 0 {
		fmt.Fprintf(&b, "Previous session had %d messages. ", len(messages))

		var assistantMsgs, toolUses int
		for _, m := range messages {
			switch m.MessageType {
			case "assistant":
				assistantMsgs++
			case "tool_use":
				toolUses++
			}
		}
		if assistantMsgs > 0 {
			fmt.Fprintf(&b, "Assistant sent %d messages. ", assistantMsgs)
		}
		if toolUses > 0 {
			fmt.Fprintf(&b, "Used %d tools. ", toolUses)
		}
		b.WriteString("\n\n")
	}

	b.WriteString("Please review what was done in the previous session and continue the work. ")
	b.WriteString("Check the current state of the files and complete any remaining tasks.\n")

	return b.String()
}
