package workflow

import (
	"fmt"
	"strings"
)

// ReviewTrigger names the event that asked for a review.
type ReviewTrigger int

const (
	TriggerAfterImplementation ReviewTrigger = iota
	TriggerAfterTestsPass
	TriggerBeforePR
	TriggerOnDemand
)

func (t ReviewTrigger) String() string {
	switch t {
	case TriggerAfterImplementation:
		return "after_implementation"
	case TriggerAfterTestsPass:
		return "after_tests_pass"
	case TriggerBeforePR:
		return "before_pr"
	case TriggerOnDemand:
		return "on_demand"
	default:
		return "unknown"
	}
}

// ReviewType scopes a review to one concern, each with its own focus
// areas and file selection in the prompt (spec.md §4.5: "review types
// Spec/Test/Code/Final"). There is no original_source equivalent for this
// split — it is spec.md's own distillation-level concept, so the prompt
// template below is designed from spec.md's prose rather than ported.
type ReviewType int

const (
	ReviewSpec ReviewType = iota
	ReviewTest
	ReviewCode
	ReviewFinal
)

func (t ReviewType) String() string {
	switch t {
	case ReviewSpec:
		return "spec"
	case ReviewTest:
		return "test"
	case ReviewCode:
		return "code"
	case ReviewFinal:
		return "final"
	default:
		return "unknown"
	}
}

// focusAreas is the type-scoped checklist injected into the review
// prompt.
func (t ReviewType) focusAreas() []string {
	switch t {
	case ReviewSpec:
		return []string{
			"Does the specification fully describe the behavior?",
			"Are inputs, outputs, and edge cases all covered?",
			"Is it detailed enough to write tests from?",
		}
	case ReviewTest:
		return []string{
			"Do the tests cover the main functionality and edge cases?",
			"Are the tests readable and well-named?",
			"Do the tests avoid asserting on implementation details?",
		}
	case ReviewCode:
		return []string{
			"Is the implementation correct and minimal?",
			"Does it follow the codebase's existing conventions?",
			"Are there any obvious bugs, race conditions, or missed edge cases?",
		}
	case ReviewFinal:
		return []string{
			"Is the change complete relative to the original task?",
			"Do the spec, tests, and implementation agree with each other?",
			"Is this ready to open as a pull request?",
		}
	default:
		return nil
	}
}

// ReviewVerdict is the reviewer's overall judgment.
type ReviewVerdict int

const (
	VerdictPending ReviewVerdict = iota
	VerdictApproved
	VerdictRequestChanges
	VerdictComment
)

func (v ReviewVerdict) String() string {
	switch v {
	case VerdictPending:
		return "Pending"
	case VerdictApproved:
		return "Approved"
	case VerdictRequestChanges:
		return "Request Changes"
	case VerdictComment:
		return "Comment"
	default:
		return "Unknown"
	}
}

// IsApproved reports whether the verdict clears the review.
func (v ReviewVerdict) IsApproved() bool { return v == VerdictApproved }

// IsBlocking reports whether the verdict demands changes before
// proceeding.
func (v ReviewVerdict) IsBlocking() bool { return v == VerdictRequestChanges }

// ReviewIssue is one point the reviewer raised, optionally anchored to a
// file/line and carrying a suggested fix.
type ReviewIssue struct {
	File       string
	Line       int // 0 means unset
	Description string
	Suggestion string
}

// NewReviewIssue builds a bare issue.
func NewReviewIssue(description string) ReviewIssue {
	return ReviewIssue{Description: description}
}

// AtFile attaches a file path.
func (i ReviewIssue) AtFile(file string) ReviewIssue { i.File = file; return i }

// AtLine attaches a line number.
func (i ReviewIssue) AtLine(line int) ReviewIssue { i.Line = line; return i }

// WithSuggestion attaches a suggested fix.
func (i ReviewIssue) WithSuggestion(suggestion string) ReviewIssue { i.Suggestion = suggestion; return i }

// String renders "file:line: description (suggestion: ...)", omitting
// whichever parts are unset.
func (i ReviewIssue) String() string {
	var b strings.Builder
	if i.File != "" {
		b.WriteString(i.File)
		if i.Line > 0 {
			fmt.Fprintf(&b, ":%d", i.Line)
		}
		b.WriteString(": ")
	}
	b.WriteString(i.Description)
	if i.Suggestion != "" {
		fmt.Fprintf(&b, " (suggestion: %s)", i.Suggestion)
	}
	return b.String()
}

// ReviewResult is the structured outcome of one review pass.
type ReviewResult struct {
	Verdict     ReviewVerdict
	Blocking    []ReviewIssue
	Important   []ReviewIssue
	Suggestions []ReviewIssue
	Positives   []string
}

// ReviewRequest is everything a reviewer agent needs: the task, the file
// set partitioned by role, the diff, and any prior feedback from an
// earlier iteration of the same review.
type ReviewRequest struct {
	Type         ReviewType
	Task         string
	Workdir      string
	Diff         string
	Files        []string // files relevant to review but not role-specific
	TestFiles    []string
	ImplFiles    []string
	SpecContent  string
	PriorFeedback string
	Iteration    int
	MaxIterations int
}

// ReviewState tracks one review cycle's progress across iterations.
type ReviewState struct {
	Trigger       ReviewTrigger
	Task          string
	Workdir       string
	Diff          string
	Result        ReviewResult
	Iterations    int
	MaxIterations int
}

// DefaultReviewMaxIterations bounds review round-trips before the cycle
// is forced to a terminal decision.
const DefaultReviewMaxIterations = 2

// NewReviewState starts a review cycle.
func NewReviewState(trigger ReviewTrigger, task, workdir string) *ReviewState {
	return &ReviewState{Trigger: trigger, Task: task, Workdir: workdir, MaxIterations: DefaultReviewMaxIterations}
}

// WithDiff attaches the diff under review.
func (s *ReviewState) WithDiff(diff string) *ReviewState { s.Diff = diff; return s }

// IsApproved reports the current verdict.
func (s *ReviewState) IsApproved() bool { return s.Result.Verdict.IsApproved() }

// NeedsChanges reports the current verdict.
func (s *ReviewState) NeedsChanges() bool { return s.Result.Verdict.IsBlocking() }

// RecordIteration counts one more round of review.
func (s *ReviewState) RecordIteration() { s.Iterations++ }

// ExceededMaxIterations reports whether the review loop ran out of
// budget.
func (s *ReviewState) ExceededMaxIterations() bool { return s.Iterations >= s.MaxIterations }

// RecordResult stores a review pass's outcome and advances the iteration
// counter.
func (s *ReviewState) RecordResult(result ReviewResult) {
	s.Result = result
	s.RecordIteration()
}

// BuildReviewPrompt renders the agent-facing review prompt: task,
// iteration banner, prior feedback (if any), type-scoped focus areas,
// the file lists scoped by role, the diff, and the canonical
// output-format block the parser below expects.
func BuildReviewPrompt(req ReviewRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review the following changes for the task:\n\n%s\n\n", req.Task)

	if req.MaxIterations > 0 {
		fmt.Fprintf(&b, "Review iteration %d of %d.\n\n", req.Iteration+1, req.MaxIterations)
	}

	if req.PriorFeedback != "" {
		fmt.Fprintf(&b, "Feedback from the previous review round:\n%s\n\n", req.PriorFeedback)
	}

	if req.SpecContent != "" {
		fmt.Fprintf(&b, "Specification:\n%s\n\n", req.SpecContent)
	}

	b.WriteString("Focus areas for this review:\n")
	for _, area := range req.Type.focusAreas() {
		fmt.Fprintf(&b, "- %s\n", area)
	}
	b.WriteString("\n")

	if len(req.SpecFiles()) > 0 {
		fmt.Fprintf(&b, "Spec files: %v\n", req.SpecFiles())
	}
	if len(req.TestFiles) > 0 {
		fmt.Fprintf(&b, "Test files: %v\n", req.TestFiles)
	}
	if len(req.ImplFiles) > 0 {
		fmt.Fprintf(&b, "Implementation files: %v\n", req.ImplFiles)
	}
	if len(req.Files) > 0 {
		fmt.Fprintf(&b, "Other files: %v\n", req.Files)
	}

	fmt.Fprintf(&b, "\nDiff:\n```\n%s\n```\n\n", req.Diff)

	b.WriteString("Provide your review in the following format:\n" +
		"- VERDICT: APPROVE/REQUEST_CHANGES/COMMENT\n" +
		"- BLOCKING: List any blocking issues\n" +
		"- IMPORTANT: List important but non-blocking issues\n" +
		"- SUGGESTIONS: List nice-to-have improvements\n" +
		"- POSITIVE: List good patterns observed")

	return b.String()
}

// SpecFiles returns the spec-scoped file list, which is just SpecContent
// named as a single synthetic entry when present (spec review has no
// dedicated file-list field since a spec is usually one document).
func (r ReviewRequest) SpecFiles() []string {
	if r.SpecContent == "" {
		return nil
	}
	return []string{"(spec content included above)"}
}

// ParseReviewOutput parses a review agent's response in the canonical
// "- VERDICT: ...\n- BLOCKING: ...\n..." format BuildReviewPrompt asks
// for into a ReviewResult. Unrecognized lines are ignored; a missing
// VERDICT line leaves the verdict Pending.
func ParseReviewOutput(output string) ReviewResult {
	var result ReviewResult
	var section string

	for _, rawLine := range strings.Split(output, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if upper := strings.ToUpper(line); strings.HasPrefix(upper, "- VERDICT:") || strings.HasPrefix(upper, "VERDICT:") {
			value := strings.ToUpper(strings.TrimSpace(afterColon(line)))
			switch {
			case strings.Contains(value, "REQUEST_CHANGES") || strings.Contains(value, "REQUEST CHANGES"):
				result.Verdict = VerdictRequestChanges
			case strings.Contains(value, "APPROVE"):
				result.Verdict = VerdictApproved
			case strings.Contains(value, "COMMENT"):
				result.Verdict = VerdictComment
			}
			section = ""
			continue
		}

		switch {
		case hasSectionPrefix(line, "BLOCKING"):
			section = "blocking"
			continue
		case hasSectionPrefix(line, "IMPORTANT"):
			section = "important"
			continue
		case hasSectionPrefix(line, "SUGGESTIONS"):
			section = "suggestions"
			continue
		case hasSectionPrefix(line, "POSITIVE"):
			section = "positive"
			continue
		}

		item := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if item == "" {
			continue
		}
		switch section {
		case "blocking":
			result.Blocking = append(result.Blocking, NewReviewIssue(item))
		case "important":
			result.Important = append(result.Important, NewReviewIssue(item))
		case "suggestions":
			result.Suggestions = append(result.Suggestions, NewReviewIssue(item))
		case "positive":
			result.Positives = append(result.Positives, item)
		}
	}

	return result
}

func hasSectionPrefix(line, name string) bool {
	upper := strings.ToUpper(strings.TrimPrefix(line, "-"))
	upper = strings.TrimSpace(upper)
	return strings.HasPrefix(upper, name+":")
}

func afterColon(line string) string {
	idx := strings.Index(line, ":")
	if idx == -1 {
		return ""
	}
	return line[idx+1:]
}
