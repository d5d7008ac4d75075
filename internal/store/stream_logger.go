package store

import (
	"context"
	"log/slog"
	"sync"
)

// StreamLogger satisfies internal/agent.ConversationWriter: it persists
// every dispatched stream event to conversation_logs. On construction it
// reads the run's current next_sequence once and increments an in-memory
// counter thereafter, so a resumed run continues at the right offset
// without a read before every write (spec.md §4.4).
type StreamLogger struct {
	repo   *ConversationRepository
	runID  int64
	logger *slog.Logger

	mu      sync.Mutex
	nextSeq int64
}

// NewStreamLogger builds a StreamLogger bound to one run, seeded from the
// run's current next_sequence.
func NewStreamLogger(ctx context.Context, repo *ConversationRepository, runID int64, logger *slog.Logger) (*StreamLogger, error) {
	seq, err := repo.NextSequence(ctx, runID)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamLogger{repo: repo, runID: runID, logger: logger, nextSeq: seq}, nil
}

// AppendEvent implements agent.ConversationWriter. The runID parameter is
// accepted to satisfy the interface but this logger is bound to a single
// run at construction; a mismatch indicates caller misuse and is logged.
// Insert failures are logged but never returned as fatal: per spec.md
// §4.4, the primary contract is agent completion, not lossless logging.
func (l *StreamLogger) AppendEvent(runID string, messageType, messageJSON string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.nextSeq
	l.nextSeq++

	log := NewConversationLog(l.runID, seq, messageType, messageJSON)
	if _, err := l.repo.Insert(context.Background(), &log); err != nil {
		l.logger.Warn("conversation log insert failed",
			"run_id", l.runID, "sequence", seq, "message_type", messageType, "error", err)
		return err
	}
	return nil
}
