package worktree

import (
	"path/filepath"
	"testing"
	"time"
)

func TestMetadata_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewMetadata("42", "abc123", "murmur/42-test")

	if err := m.Save(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadMetadata(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.TaskID != "42" || loaded.BaseCommit != "abc123" || loaded.Branch != "murmur/42-test" {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if loaded.Status != StatusActive {
		t.Fatalf("expected status active, got %s", loaded.Status)
	}
	if loaded.CreatedAt.Sub(m.CreatedAt).Abs() > time.Second {
		t.Fatalf("created_at mismatch: got %v want %v", loaded.CreatedAt, m.CreatedAt)
	}
}

func TestMetadata_Touch(t *testing.T) {
	m := NewMetadata("1", "c", "b")
	before := m.LastUsed
	time.Sleep(time.Millisecond)
	m.Touch()
	if !m.LastUsed.After(before) {
		t.Fatal("expected last_used to advance")
	}
}

func TestLoadMetadata_MissingFile(t *testing.T) {
	_, err := LoadMetadata(filepath.Join(t.TempDir(), "nonexistent"))
	if err == nil {
		t.Fatal("expected error for missing sidecar")
	}
}

func TestLoadMetadata_SkipsUnknownKeysAndComments(t *testing.T) {
	dir := t.TempDir()
	m := NewMetadata("7", "deadbeef", "feature-x")
	if err := m.Save(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadMetadata(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.TaskID != "7" {
		t.Fatalf("expected task_id 7, got %s", loaded.TaskID)
	}
}
