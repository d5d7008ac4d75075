package workflow

import (
	"strings"
	"testing"
)

func TestReviewVerdict(t *testing.T) {
	if !VerdictApproved.IsApproved() {
		t.Error("Approved should be approved")
	}
	if VerdictRequestChanges.IsApproved() {
		t.Error("RequestChanges should not be approved")
	}
	if !VerdictRequestChanges.IsBlocking() {
		t.Error("RequestChanges should be blocking")
	}
	if VerdictApproved.IsBlocking() {
		t.Error("Approved should not be blocking")
	}
}

func TestReviewIssue_String(t *testing.T) {
	issue := NewReviewIssue("fix the bug").AtFile("main.go").AtLine(42).WithSuggestion("use a different approach")
	got := issue.String()
	want := "main.go:42: fix the bug (suggestion: use a different approach)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestReviewIssue_String_OmitsUnsetParts(t *testing.T) {
	issue := NewReviewIssue("looks fine")
	if got := issue.String(); got != "looks fine" {
		t.Errorf("String() = %q, want %q", got, "looks fine")
	}
}

func TestReviewState_New(t *testing.T) {
	s := NewReviewState(TriggerAfterImplementation, "task", "/tmp")
	if s.IsApproved() || s.NeedsChanges() {
		t.Error("a fresh review state should be neither approved nor needing changes")
	}
}

func TestReviewState_RecordResult(t *testing.T) {
	s := NewReviewState(TriggerOnDemand, "task", "/tmp")
	s.RecordResult(ReviewResult{Verdict: VerdictApproved})
	if !s.IsApproved() {
		t.Error("expected state to reflect the approved verdict")
	}
	if s.NeedsChanges() {
		t.Error("approved verdict should not need changes")
	}
}

func TestReviewState_ExceededMaxIterations(t *testing.T) {
	s := NewReviewState(TriggerOnDemand, "task", "/tmp")
	if s.ExceededMaxIterations() {
		t.Error("fresh state should not have exceeded iterations")
	}
	s.RecordIteration()
	s.RecordIteration()
	if !s.ExceededMaxIterations() {
		t.Error("expected iterations at the default max (2) to be exceeded")
	}
}

func TestBuildReviewPrompt_IncludesTaskAndDiff(t *testing.T) {
	req := ReviewRequest{Type: ReviewCode, Task: "add retry logic", Diff: "+ added a retry loop"}
	prompt := BuildReviewPrompt(req)
	if !containsAll(prompt, "add retry logic", "added a retry loop", "VERDICT", "BLOCKING") {
		t.Errorf("prompt missing expected sections: %s", prompt)
	}
}

func TestBuildReviewPrompt_IncludesPriorFeedback(t *testing.T) {
	req := ReviewRequest{Type: ReviewTest, Task: "task", PriorFeedback: "add an edge case for empty input"}
	prompt := BuildReviewPrompt(req)
	if !containsAll(prompt, "add an edge case for empty input") {
		t.Errorf("expected prior feedback in prompt: %s", prompt)
	}
}

func TestParseReviewOutput_ApprovedWithPositives(t *testing.T) {
	output := "- VERDICT: APPROVE\n" +
		"- BLOCKING:\n" +
		"- IMPORTANT:\n" +
		"- SUGGESTIONS:\n" +
		"- POSITIVE:\n" +
		"- clear error messages\n" +
		"- good test coverage\n"
	result := ParseReviewOutput(output)
	if result.Verdict != VerdictApproved {
		t.Fatalf("expected Approved, got %v", result.Verdict)
	}
	if len(result.Positives) != 2 {
		t.Fatalf("expected 2 positives, got %d: %v", len(result.Positives), result.Positives)
	}
}

func TestParseReviewOutput_RequestChangesWithBlockingIssues(t *testing.T) {
	output := "- VERDICT: REQUEST_CHANGES\n" +
		"- BLOCKING:\n" +
		"- missing nil check on line 10\n" +
		"- IMPORTANT:\n" +
		"- could simplify the loop\n"
	result := ParseReviewOutput(output)
	if result.Verdict != VerdictRequestChanges {
		t.Fatalf("expected RequestChanges, got %v", result.Verdict)
	}
	if len(result.Blocking) != 1 || len(result.Important) != 1 {
		t.Fatalf("expected 1 blocking and 1 important issue, got %d/%d", len(result.Blocking), len(result.Important))
	}
}

func containsAll(haystack string, needles ...string) bool {
	for _, n := range needles {
		if !strings.Contains(haystack, n) {
			return false
		}
	}
	return true
}
