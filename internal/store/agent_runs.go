package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/basket/murmur/internal/murmurerr"
)

// AgentRunRepository persists AgentRun rows (spec.md §4.4).
type AgentRunRepository struct {
	store *Store
}

// NewAgentRunRepository binds a repository to a store.
func NewAgentRunRepository(s *Store) *AgentRunRepository {
	return &AgentRunRepository{store: s}
}

// Insert writes a new run and sets its ID.
func (r *AgentRunRepository) Insert(ctx context.Context, run *AgentRun) (int64, error) {
	var id int64
	err := retryOnBusy(ctx, 5, func() error {
		res, err := r.store.db.ExecContext(ctx, `
			INSERT INTO agent_runs (
				agent_type, issue_number, prompt, workdir, config_json, pid,
				start_time, end_time, exit_code, duration_seconds, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
		`,
			run.AgentType, run.IssueNumber, run.Prompt, run.Workdir, run.ConfigJSON, run.PID,
			formatTime(run.StartTime), formatTimePtr(run.EndTime), run.ExitCode, run.DurationSeconds, formatTime(run.CreatedAt),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, murmurerr.Storage("insert agent_run", err)
	}
	run.ID = id
	return id, nil
}

// Update rewrites the mutable fields of an existing run by ID.
func (r *AgentRunRepository) Update(ctx context.Context, run *AgentRun) error {
	if run.ID == 0 {
		return murmurerr.InvalidData("cannot update agent_run without id")
	}
	var affected int64
	err := retryOnBusy(ctx, 5, func() error {
		res, err := r.store.db.ExecContext(ctx, `
			UPDATE agent_runs SET
				agent_type = ?, issue_number = ?, prompt = ?, workdir = ?, config_json = ?, pid = ?,
				start_time = ?, end_time = ?, exit_code = ?, duration_seconds = ?
			WHERE id = ?;
		`,
			run.AgentType, run.IssueNumber, run.Prompt, run.Workdir, run.ConfigJSON, run.PID,
			formatTime(run.StartTime), formatTimePtr(run.EndTime), run.ExitCode, run.DurationSeconds, run.ID,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return murmurerr.Storage("update agent_run", err)
	}
	if affected == 0 {
		return murmurerr.NotFound("agent_run", strconv.FormatInt(run.ID, 10))
	}
	return nil
}

// FindByID loads one run, or murmurerr.NotFound if absent.
func (r *AgentRunRepository) FindByID(ctx context.Context, id int64) (AgentRun, error) {
	row := r.store.db.QueryRowContext(ctx, agentRunSelect+` WHERE id = ?;`, id)
	run, err := scanAgentRun(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return AgentRun{}, murmurerr.NotFound("agent_run", strconv.FormatInt(id, 10))
		}
		return AgentRun{}, murmurerr.Storage("scan agent_run", err)
	}
	return run, nil
}

// FindByIssue returns every run for an issue, newest start_time first.
func (r *AgentRunRepository) FindByIssue(ctx context.Context, issueNumber int64) ([]AgentRun, error) {
	return r.queryRuns(ctx, agentRunSelect+` WHERE issue_number = ? ORDER BY start_time DESC;`, issueNumber)
}

// FindByDateRange returns runs with start_time in [start, end], ascending... actually
// mirrors the original's descending order.
func (r *AgentRunRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]AgentRun, error) {
	return r.queryRuns(ctx, agentRunSelect+` WHERE start_time >= ? AND start_time <= ? ORDER BY start_time DESC;`,
		formatTime(start), formatTime(end))
}

// FindByAgentType returns every run of the given agent type.
func (r *AgentRunRepository) FindByAgentType(ctx context.Context, agentType string) ([]AgentRun, error) {
	return r.queryRuns(ctx, agentRunSelect+` WHERE agent_type = ? ORDER BY start_time DESC;`, agentType)
}

// FindAll returns every run, most recent first, optionally capped at limit
// (limit <= 0 means unlimited).
func (r *AgentRunRepository) FindAll(ctx context.Context, limit int) ([]AgentRun, error) {
	query := agentRunSelect + ` ORDER BY start_time DESC;`
	if limit > 0 {
		query = fmt.Sprintf(agentRunSelect+` ORDER BY start_time DESC LIMIT %d;`, limit)
	}
	return r.queryRuns(ctx, query)
}

// FindRunning returns every run with no end_time and a recorded PID.
func (r *AgentRunRepository) FindRunning(ctx context.Context) ([]AgentRun, error) {
	return r.queryRuns(ctx, agentRunSelect+` WHERE end_time IS NULL AND pid IS NOT NULL ORDER BY start_time DESC;`)
}

// Delete removes a run by ID (and, via ON DELETE CASCADE, its conversation
// logs and any worktree row it owns).
func (r *AgentRunRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.store.db.ExecContext(ctx, `DELETE FROM agent_runs WHERE id = ?;`, id)
	if err != nil {
		return murmurerr.Storage("delete agent_run", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return murmurerr.Storage("delete agent_run rows affected", err)
	}
	if affected == 0 {
		return murmurerr.NotFound("agent_run", strconv.FormatInt(id, 10))
	}
	return nil
}

// Count returns the total number of runs.
func (r *AgentRunRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agent_runs;`).Scan(&count); err != nil {
		return 0, murmurerr.Storage("count agent_runs", err)
	}
	return count, nil
}

// CountByIssue returns the number of runs recorded for an issue.
func (r *AgentRunRepository) CountByIssue(ctx context.Context, issueNumber int64) (int64, error) {
	var count int64
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agent_runs WHERE issue_number = ?;`, issueNumber).Scan(&count); err != nil {
		return 0, murmurerr.Storage("count agent_runs by issue", err)
	}
	return count, nil
}

const agentRunSelect = `
	SELECT id, agent_type, issue_number, prompt, workdir, config_json, pid,
	       start_time, end_time, exit_code, duration_seconds, created_at
	FROM agent_runs`

func (r *AgentRunRepository) queryRuns(ctx context.Context, query string, args ...any) ([]AgentRun, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, murmurerr.Storage("query agent_runs", err)
	}
	defer rows.Close()

	var out []AgentRun
	for rows.Next() {
		run, err := scanAgentRun(rows.Scan)
		if err != nil {
			return nil, murmurerr.Storage("scan agent_run", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, murmurerr.Storage("agent_run rows", err)
	}
	return out, nil
}

func scanAgentRun(scan func(dest ...any) error) (AgentRun, error) {
	var run AgentRun
	var startTime, createdAt string
	var endTime sql.NullString
	if err := scan(
		&run.ID, &run.AgentType, &run.IssueNumber, &run.Prompt, &run.Workdir, &run.ConfigJSON, &run.PID,
		&startTime, &endTime, &run.ExitCode, &run.DurationSeconds, &createdAt,
	); err != nil {
		return AgentRun{}, err
	}
	var err error
	if run.StartTime, err = parseTime(startTime); err != nil {
		return AgentRun{}, err
	}
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return AgentRun{}, err
	}
	if endTime.Valid {
		t, err := parseTime(endTime.String)
		if err != nil {
			return AgentRun{}, err
		}
		run.EndTime = &t
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
