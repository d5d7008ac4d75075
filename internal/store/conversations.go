package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/basket/murmur/internal/murmurerr"
)

// ConversationRepository persists the append-only conversation_logs stream
// (spec.md §4.4).
type ConversationRepository struct {
	store *Store
}

// NewConversationRepository binds a repository to a store.
func NewConversationRepository(s *Store) *ConversationRepository {
	return &ConversationRepository{store: s}
}

// Insert writes a single log row and sets its ID.
func (r *ConversationRepository) Insert(ctx context.Context, log *ConversationLog) (int64, error) {
	var id int64
	err := retryOnBusy(ctx, 5, func() error {
		res, err := r.store.db.ExecContext(ctx, `
			INSERT INTO conversation_logs (
				agent_run_id, sequence, timestamp, message_type, message_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?);
		`, log.AgentRunID, log.Sequence, formatTime(log.Timestamp), log.MessageType, log.MessageJSON, formatTime(log.CreatedAt))
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, murmurerr.Storage("insert conversation_log", err)
	}
	log.ID = id
	return id, nil
}

// InsertBatch writes every log in a single transaction, rolling back
// entirely on the first failure.
func (r *ConversationRepository) InsertBatch(ctx context.Context, logs []ConversationLog) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return murmurerr.Storage("begin conversation_log batch tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range logs {
		log := &logs[i]
		res, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_logs (
				agent_run_id, sequence, timestamp, message_type, message_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?);
		`, log.AgentRunID, log.Sequence, formatTime(log.Timestamp), log.MessageType, log.MessageJSON, formatTime(log.CreatedAt))
		if err != nil {
			return murmurerr.Storage("insert batch conversation_log", err)
		}
		if log.ID, err = res.LastInsertId(); err != nil {
			return murmurerr.Storage("batch conversation_log last insert id", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return murmurerr.Storage("commit conversation_log batch tx", err)
	}
	return nil
}

const conversationLogSelect = `
	SELECT id, agent_run_id, sequence, timestamp, message_type, message_json, created_at
	FROM conversation_logs`

// FindByID loads one log row, or murmurerr.NotFound if absent.
func (r *ConversationRepository) FindByID(ctx context.Context, id int64) (ConversationLog, error) {
	row := r.store.db.QueryRowContext(ctx, conversationLogSelect+` WHERE id = ?;`, id)
	log, err := scanConversationLog(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return ConversationLog{}, murmurerr.NotFound("conversation_log", strconv.FormatInt(id, 10))
		}
		return ConversationLog{}, murmurerr.Storage("scan conversation_log", err)
	}
	return log, nil
}

// FindByAgentRun returns every log for a run, ordered by sequence ascending.
func (r *ConversationRepository) FindByAgentRun(ctx context.Context, agentRunID int64) ([]ConversationLog, error) {
	return r.queryLogs(ctx, conversationLogSelect+` WHERE agent_run_id = ? ORDER BY sequence ASC;`, agentRunID)
}

// FindByMessageType returns every log of a given message type, newest first.
func (r *ConversationRepository) FindByMessageType(ctx context.Context, messageType string) ([]ConversationLog, error) {
	return r.queryLogs(ctx, conversationLogSelect+` WHERE message_type = ? ORDER BY timestamp DESC;`, messageType)
}

// FindByTimeRange returns every log with timestamp in [start, end], ascending.
func (r *ConversationRepository) FindByTimeRange(ctx context.Context, start, end time.Time) ([]ConversationLog, error) {
	return r.queryLogs(ctx, conversationLogSelect+` WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC;`,
		formatTime(start), formatTime(end))
}

// NextSequence returns max(sequence)+1 for a run, or 0 if it has no logs
// yet. Used by the streaming logger to continue a resumed run's sequence.
func (r *ConversationRepository) NextSequence(ctx context.Context, agentRunID int64) (int64, error) {
	var maxSeq sql.NullInt64
	if err := r.store.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM conversation_logs WHERE agent_run_id = ?;`, agentRunID).Scan(&maxSeq); err != nil {
		return 0, murmurerr.Storage("next_sequence", err)
	}
	if !maxSeq.Valid {
		return 0, nil
	}
	return maxSeq.Int64 + 1, nil
}

// CountByAgentRun returns the number of logs recorded for a run.
func (r *ConversationRepository) CountByAgentRun(ctx context.Context, agentRunID int64) (int64, error) {
	var count int64
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversation_logs WHERE agent_run_id = ?;`, agentRunID).Scan(&count); err != nil {
		return 0, murmurerr.Storage("count_by_agent_run", err)
	}
	return count, nil
}

// DeleteByAgentRun removes every log for a run, returning the count removed.
func (r *ConversationRepository) DeleteByAgentRun(ctx context.Context, agentRunID int64) (int64, error) {
	res, err := r.store.db.ExecContext(ctx, `DELETE FROM conversation_logs WHERE agent_run_id = ?;`, agentRunID)
	if err != nil {
		return 0, murmurerr.Storage("delete_by_agent_run", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, murmurerr.Storage("delete_by_agent_run rows affected", err)
	}
	return affected, nil
}

func (r *ConversationRepository) queryLogs(ctx context.Context, query string, args ...any) ([]ConversationLog, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, murmurerr.Storage("query conversation_logs", err)
	}
	defer rows.Close()

	var out []ConversationLog
	for rows.Next() {
		log, err := scanConversationLog(rows.Scan)
		if err != nil {
			return nil, murmurerr.Storage("scan conversation_log", err)
		}
		out = append(out, log)
	}
	if err := rows.Err(); err != nil {
		return nil, murmurerr.Storage("conversation_log rows", err)
	}
	return out, nil
}

func scanConversationLog(scan func(dest ...any) error) (ConversationLog, error) {
	var log ConversationLog
	var timestamp, createdAt string
	if err := scan(&log.ID, &log.AgentRunID, &log.Sequence, &timestamp, &log.MessageType, &log.MessageJSON, &createdAt); err != nil {
		return ConversationLog{}, err
	}
	var err error
	if log.Timestamp, err = parseTime(timestamp); err != nil {
		return ConversationLog{}, err
	}
	if log.CreatedAt, err = parseTime(createdAt); err != nil {
		return ConversationLog{}, err
	}
	return log, nil
}
