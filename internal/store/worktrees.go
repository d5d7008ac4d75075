package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/basket/murmur/internal/murmurerr"
)

// WorktreeRepository persists WorktreeRecord rows, mirroring the on-disk
// worktree cache entries managed by internal/worktree (spec.md §3/§4.4).
type WorktreeRepository struct {
	store *Store
}

// NewWorktreeRepository binds a repository to a store.
func NewWorktreeRepository(s *Store) *WorktreeRepository {
	return &WorktreeRepository{store: s}
}

const worktreeSelect = `
	SELECT id, path, branch_name, issue_number, agent_run_id, main_repo_path, base_commit, status, created_at, updated_at
	FROM worktrees`

// Insert writes a new worktree row and sets its ID.
func (r *WorktreeRepository) Insert(ctx context.Context, rec *WorktreeRecord) (int64, error) {
	res, err := r.store.db.ExecContext(ctx, `
		INSERT INTO worktrees (path, branch_name, issue_number, agent_run_id, main_repo_path, base_commit, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, rec.Path, rec.BranchName, rec.IssueNumber, rec.AgentRunID, rec.MainRepoPath, rec.BaseCommit, string(rec.Status),
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	if err != nil {
		return 0, murmurerr.Storage("insert worktree", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, murmurerr.Storage("worktree last insert id", err)
	}
	rec.ID = id
	return id, nil
}

// Update rewrites an existing worktree row by ID.
func (r *WorktreeRepository) Update(ctx context.Context, rec *WorktreeRecord) error {
	if rec.ID == 0 {
		return murmurerr.InvalidData("worktree record has no id")
	}
	rec.UpdatedAt = time.Now().UTC()
	_, err := r.store.db.ExecContext(ctx, `
		UPDATE worktrees SET path = ?, branch_name = ?, issue_number = ?, agent_run_id = ?,
			main_repo_path = ?, base_commit = ?, status = ?, updated_at = ?
		WHERE id = ?;
	`, rec.Path, rec.BranchName, rec.IssueNumber, rec.AgentRunID, rec.MainRepoPath, rec.BaseCommit,
		string(rec.Status), formatTime(rec.UpdatedAt), rec.ID)
	if err != nil {
		return murmurerr.Storage("update worktree", err)
	}
	return nil
}

// FindByPath returns the worktree at path, or (nil, nil) if none exists.
func (r *WorktreeRepository) FindByPath(ctx context.Context, path string) (*WorktreeRecord, error) {
	return r.findOne(ctx, worktreeSelect+` WHERE path = ?;`, path)
}

// FindByBranch returns the worktree for a branch, or (nil, nil) if none exists.
func (r *WorktreeRepository) FindByBranch(ctx context.Context, branchName string) (*WorktreeRecord, error) {
	return r.findOne(ctx, worktreeSelect+` WHERE branch_name = ?;`, branchName)
}

// FindByStatus returns every worktree in the given status, newest first.
func (r *WorktreeRepository) FindByStatus(ctx context.Context, status WorktreeStatus) ([]WorktreeRecord, error) {
	return r.queryRecords(ctx, worktreeSelect+` WHERE status = ? ORDER BY created_at DESC;`, string(status))
}

// FindActive is a shorthand for FindByStatus(active).
func (r *WorktreeRepository) FindActive(ctx context.Context) ([]WorktreeRecord, error) {
	return r.FindByStatus(ctx, WorktreeStatusActive)
}

// FindStale is a shorthand for FindByStatus(stale).
func (r *WorktreeRepository) FindStale(ctx context.Context) ([]WorktreeRecord, error) {
	return r.FindByStatus(ctx, WorktreeStatusStale)
}

// DeleteByPath removes the worktree row at path, if any.
func (r *WorktreeRepository) DeleteByPath(ctx context.Context, path string) error {
	if _, err := r.store.db.ExecContext(ctx, `DELETE FROM worktrees WHERE path = ?;`, path); err != nil {
		return murmurerr.Storage("delete worktree by path", err)
	}
	return nil
}

// MarkAllActiveAsStale transitions every active worktree to stale, as a
// startup recovery sweep (a prior process crash leaves rows active when
// the worktrees may no longer be in use). Returns the count affected.
func (r *WorktreeRepository) MarkAllActiveAsStale(ctx context.Context) (int64, error) {
	res, err := r.store.db.ExecContext(ctx, `
		UPDATE worktrees SET status = ?, updated_at = ? WHERE status = ?;
	`, string(WorktreeStatusStale), formatTime(time.Now().UTC()), string(WorktreeStatusActive))
	if err != nil {
		return 0, murmurerr.Storage("mark_all_active_as_stale", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, murmurerr.Storage("mark_all_active_as_stale rows affected", err)
	}
	return affected, nil
}

func (r *WorktreeRepository) findOne(ctx context.Context, query string, args ...any) (*WorktreeRecord, error) {
	row := r.store.db.QueryRowContext(ctx, query, args...)
	rec, err := scanWorktreeRecord(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, murmurerr.Storage("scan worktree", err)
	}
	return &rec, nil
}

func (r *WorktreeRepository) queryRecords(ctx context.Context, query string, args ...any) ([]WorktreeRecord, error) {
	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, murmurerr.Storage("query worktrees", err)
	}
	defer rows.Close()

	var out []WorktreeRecord
	for rows.Next() {
		rec, err := scanWorktreeRecord(rows.Scan)
		if err != nil {
			return nil, murmurerr.Storage("scan worktree", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, murmurerr.Storage("worktree rows", err)
	}
	return out, nil
}

func scanWorktreeRecord(scan func(dest ...any) error) (WorktreeRecord, error) {
	var rec WorktreeRecord
	var status, createdAt, updatedAt string
	if err := scan(
		&rec.ID, &rec.Path, &rec.BranchName, &rec.IssueNumber, &rec.AgentRunID, &rec.MainRepoPath, &rec.BaseCommit,
		&status, &createdAt, &updatedAt,
	); err != nil {
		return WorktreeRecord{}, err
	}
	rec.Status = WorktreeStatus(status)
	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return WorktreeRecord{}, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return WorktreeRecord{}, err
	}
	return rec, nil
}
