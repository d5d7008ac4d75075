package workflow

import (
	"strings"
	"testing"
)

func TestResolvePrompt_SubstitutesStepOutputs(t *testing.T) {
	template := "Use the result of {step-1.output} to finish {step-2.output}."
	outputs := map[string]string{
		"step-1": "42",
		"step-2": "the report",
	}
	got := ResolvePrompt(template, outputs)
	want := "Use the result of 42 to finish the report."
	if got != want {
		t.Errorf("ResolvePrompt() = %q, want %q", got, want)
	}
}

func TestResolvePrompt_LeavesUnknownPlaceholders(t *testing.T) {
	got := ResolvePrompt("refer to {missing.output}", map[string]string{})
	if got != "refer to {missing.output}" {
		t.Errorf("ResolvePrompt() = %q, want placeholder left untouched", got)
	}
}

func TestBuildRetryPrompt_IncludesOriginalTaskAndError(t *testing.T) {
	got := BuildRetryPrompt("implement the parser", "panic: nil pointer", 2)
	for _, want := range []string{"implement the parser", "panic: nil pointer", "attempt 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("BuildRetryPrompt() missing %q: %s", want, got)
		}
	}
}

func TestTopoSortSubTasks_GroupsByWave(t *testing.T) {
	subtasks := []SubTask{
		NewSubTask("a", "first"),
		NewSubTask("b", "second").WithDependencies([]string{"a"}),
		NewSubTask("c", "third").WithDependencies([]string{"a"}),
		NewSubTask("d", "fourth").WithDependencies([]string{"b", "c"}),
	}
	waves, err := topoSortSubTasks(subtasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(waves) != 3 {
		t.Fatalf("expected 3 waves, got %d", len(waves))
	}
	if len(waves[0]) != 1 || waves[0][0].ID != "a" {
		t.Fatalf("expected wave 0 to be just [a], got %v", waves[0])
	}
	if len(waves[1]) != 2 {
		t.Fatalf("expected wave 1 to have 2 parallel subtasks, got %d", len(waves[1]))
	}
	if len(waves[2]) != 1 || waves[2][0].ID != "d" {
		t.Fatalf("expected wave 2 to be just [d], got %v", waves[2])
	}
}

func TestTopoSortSubTasks_UnknownDependency(t *testing.T) {
	subtasks := []SubTask{
		NewSubTask("a", "first").WithDependencies([]string{"ghost"}),
	}
	if _, err := topoSortSubTasks(subtasks); err == nil {
		t.Fatal("expected an error for an unknown dependency")
	}
}

func TestTopoSortSubTasks_Cycle(t *testing.T) {
	subtasks := []SubTask{
		NewSubTask("a", "first").WithDependencies([]string{"b"}),
		NewSubTask("b", "second").WithDependencies([]string{"a"}),
	}
	if _, err := topoSortSubTasks(subtasks); err == nil {
		t.Fatal("expected an error for a dependency cycle")
	}
}
