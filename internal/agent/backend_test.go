package agent

import (
	"context"
	"testing"
)

func TestClaudeBackend_Name(t *testing.T) {
	if got := NewClaudeBackend().Name(); got != "claude" {
		t.Fatalf("expected claude, got %s", got)
	}
}

func TestCursorBackend_Name(t *testing.T) {
	if got := NewCursorBackend().Name(); got != "cursor" {
		t.Fatalf("expected cursor, got %s", got)
	}
}

func TestClaudeBackend_BuildCommandArgs(t *testing.T) {
	b := &ClaudeBackend{Path: "claude", Model: "opus"}
	cmd := b.BuildCommand("/tmp")
	want := []string{"claude", "--print", "--verbose", "--output-format", "stream-json", "--dangerously-skip-permissions", "--model", "opus"}
	if len(cmd.Args) != len(want) {
		t.Fatalf("expected args %v, got %v", want, cmd.Args)
	}
	for i, a := range want {
		if cmd.Args[i] != a {
			t.Fatalf("expected args %v, got %v", want, cmd.Args)
		}
	}
}

func TestCursorBackend_BuildCommandArgs(t *testing.T) {
	b := &CursorBackend{Path: "cursor-agent"}
	cmd := b.BuildCommand("/tmp")
	want := []string{"cursor-agent", "--print", "--output-format", "json"}
	if len(cmd.Args) != len(want) {
		t.Fatalf("expected args %v, got %v", want, cmd.Args)
	}
}

func TestClaudeBackend_SpawnInvalidWorkdir(t *testing.T) {
	b := NewClaudeBackend()
	_, err := b.Spawn(context.Background(), "test", "/nonexistent/path/12345")
	if err == nil {
		t.Fatal("expected error for nonexistent workdir")
	}
}

func TestCursorBackend_SpawnInvalidWorkdir(t *testing.T) {
	b := NewCursorBackend()
	_, err := b.Spawn(context.Background(), "test", "/nonexistent/path/12345")
	if err == nil {
		t.Fatal("expected error for nonexistent workdir")
	}
}

func TestClaudeBackend_SpawnMissingBinary(t *testing.T) {
	b := &ClaudeBackend{Path: "/usr/bin/nonexistent-claude-binary"}
	_, err := b.Spawn(context.Background(), "test", t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("claude"); ok {
		t.Fatal("expected empty registry")
	}
	r.Register(NewClaudeBackend())
	b, ok := r.Get("claude")
	if !ok || b.Name() != "claude" {
		t.Fatalf("expected claude backend, got %v", b)
	}
}

func TestRegistry_WithDefaults(t *testing.T) {
	r := NewRegistryWithDefaults()
	registered := r.ListRegistered()
	if len(registered) != 2 {
		t.Fatalf("expected 2 registered backends, got %v", registered)
	}
	if _, ok := r.Get("claude"); !ok {
		t.Fatal("expected claude registered")
	}
	if _, ok := r.Get("cursor"); !ok {
		t.Fatal("expected cursor registered")
	}
}
