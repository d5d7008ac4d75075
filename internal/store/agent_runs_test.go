package store

import (
	"testing"

	"github.com/basket/murmur/internal/murmurerr"
)

func TestAgentRunRepository_InsertAndFindByID(t *testing.T) {
	s := newTestStore(t)
	repo := NewAgentRunRepository(s)

	run := NewAgentRun("implementer", "Fix bug", "/tmp/work", `{"model":"sonnet"}`)
	id, err := repo.Insert(t.Context(), &run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.FindByID(t.Context(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AgentType != "implementer" || got.Prompt != "Fix bug" || got.Workdir != "/tmp/work" {
		t.Fatalf("unexpected round-trip: %+v", got)
	}
}

func TestAgentRunRepository_RoundTripPreservesFields(t *testing.T) {
	s := newTestStore(t)
	repo := NewAgentRunRepository(s)

	run := NewAgentRun("reviewer", "Review PR", "/tmp/review", `{}`)
	run = run.WithIssueNumber(42)
	id, err := repo.Insert(t.Context(), &run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.FindByID(t.Context(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IssueNumber == nil || *got.IssueNumber != 42 {
		t.Fatalf("expected issue number 42, got %+v", got.IssueNumber)
	}
}

func TestAgentRunRepository_FindByID_NotFound(t *testing.T) {
	s := newTestStore(t)
	repo := NewAgentRunRepository(s)

	_, err := repo.FindByID(t.Context(), 999)
	if !murmurerr.Is(err, murmurerr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAgentRunRepository_Update(t *testing.T) {
	s := newTestStore(t)
	repo := NewAgentRunRepository(s)

	run := NewAgentRun("planner", "Plan feature", "/tmp/work", "{}")
	id, err := repo.Insert(t.Context(), &run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run.Complete(0)
	if err := repo.Update(t.Context(), &run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := repo.FindByID(t.Context(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.IsCompleted() || !updated.IsSuccessful() {
		t.Fatalf("expected completed+successful run, got %+v", updated)
	}
}

func TestAgentRunRepository_FindByIssue(t *testing.T) {
	s := newTestStore(t)
	repo := NewAgentRunRepository(s)

	r1 := NewAgentRun("implementer", "Task 1", "/tmp/1", "{}").WithIssueNumber(42)
	r2 := NewAgentRun("reviewer", "Task 2", "/tmp/2", "{}").WithIssueNumber(42)
	r3 := NewAgentRun("planner", "Task 3", "/tmp/3", "{}").WithIssueNumber(99)

	for _, r := range []*AgentRun{&r1, &r2, &r3} {
		if _, err := repo.Insert(t.Context(), r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	runs42, err := repo.FindByIssue(t.Context(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs42) != 2 {
		t.Fatalf("expected 2 runs for issue 42, got %d", len(runs42))
	}

	runs99, err := repo.FindByIssue(t.Context(), 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs99) != 1 {
		t.Fatalf("expected 1 run for issue 99, got %d", len(runs99))
	}
}

func TestAgentRunRepository_FindRunning(t *testing.T) {
	s := newTestStore(t)
	repo := NewAgentRunRepository(s)

	running := NewAgentRun("implementer", "Task", "/tmp", "{}")
	pid := 1234
	running.PID = &pid
	if _, err := repo.Insert(t.Context(), &running); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := NewAgentRun("implementer", "Task 2", "/tmp", "{}")
	done.PID = &pid
	done.Complete(0)
	if _, err := repo.Insert(t.Context(), &done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := repo.FindRunning(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].ID != running.ID {
		t.Fatalf("expected only the running run, got %+v", result)
	}
}

func TestAgentRunRepository_FindAllRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	repo := NewAgentRunRepository(s)

	for i := 0; i < 5; i++ {
		run := NewAgentRun("implementer", "Task", "/tmp", "{}")
		if _, err := repo.Insert(t.Context(), &run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	all, err := repo.FindAll(t.Context(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5, got %d", len(all))
	}

	limited, err := repo.FindAll(t.Context(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 3 {
		t.Fatalf("expected 3, got %d", len(limited))
	}
}

func TestAgentRunRepository_DeleteAndCount(t *testing.T) {
	s := newTestStore(t)
	repo := NewAgentRunRepository(s)

	run := NewAgentRun("implementer", "Task", "/tmp", "{}")
	id, err := repo.Insert(t.Context(), &run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := repo.Count(t.Context())
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d err=%v", count, err)
	}

	if err := repo.Delete(t.Context(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.FindByID(t.Context(), id); !murmurerr.Is(err, murmurerr.KindNotFound) {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
}

func TestAgentRunRepository_CountByIssue(t *testing.T) {
	s := newTestStore(t)
	repo := NewAgentRunRepository(s)

	r1 := NewAgentRun("implementer", "Task 1", "/tmp", "{}").WithIssueNumber(42)
	r2 := NewAgentRun("planner", "Task 2", "/tmp", "{}").WithIssueNumber(42)
	r3 := NewAgentRun("reviewer", "Task 3", "/tmp", "{}").WithIssueNumber(99)
	for _, r := range []*AgentRun{&r1, &r2, &r3} {
		if _, err := repo.Insert(t.Context(), r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if n, err := repo.CountByIssue(t.Context(), 42); err != nil || n != 2 {
		t.Fatalf("expected 2, got %d err=%v", n, err)
	}
	if n, err := repo.CountByIssue(t.Context(), 123); err != nil || n != 0 {
		t.Fatalf("expected 0, got %d err=%v", n, err)
	}
}
