package workflow

import "fmt"

// TransitionResult is the outcome of attempting (or validating) a TDD
// phase transition.
type TransitionResult struct {
	kind       transitionKind
	reason     string
	suggestion string
	newPhase   TDDPhase
	message    string
}

type transitionKind int

const (
	transitionAllowed transitionKind = iota
	transitionBlocked
	transitionCompleted
)

// Allowed builds a TransitionResult signalling the transition may proceed
// but has not yet been applied.
func Allowed() TransitionResult { return TransitionResult{kind: transitionAllowed} }

// Blocked builds a TransitionResult recording why a transition was
// refused and what to do about it.
func Blocked(reason, suggestion string) TransitionResult {
	return TransitionResult{kind: transitionBlocked, reason: reason, suggestion: suggestion}
}

// Completed builds a TransitionResult recording that the transition was
// applied and the state machine now sits at newPhase.
func Completed(newPhase TDDPhase, message string) TransitionResult {
	return TransitionResult{kind: transitionCompleted, newPhase: newPhase, message: message}
}

// IsAllowed reports whether the transition proceeded, either pending
// (Allowed) or already applied (Completed).
func (r TransitionResult) IsAllowed() bool {
	return r.kind == transitionAllowed || r.kind == transitionCompleted
}

// IsBlocked reports whether the transition was refused.
func (r TransitionResult) IsBlocked() bool { return r.kind == transitionBlocked }

// BlockingReason returns the reason for a Blocked result, or "" otherwise.
func (r TransitionResult) BlockingReason() string {
	if r.kind == transitionBlocked {
		return r.reason
	}
	return ""
}

// Suggestion returns the suggested fix for a Blocked result, or ""
// otherwise.
func (r TransitionResult) Suggestion() string {
	if r.kind == transitionBlocked {
		return r.suggestion
	}
	return ""
}

// NewPhase returns the phase reached by a Completed result, and whether
// this result was in fact Completed.
func (r TransitionResult) NewPhase() (TDDPhase, bool) {
	if r.kind == transitionCompleted {
		return r.newPhase, true
	}
	return 0, false
}

// ValidateTransition checks whether moving from the state's current phase
// to target is allowed, consulting testResults only when target's
// validation contract needs them (requires_test_failure /
// requires_test_success). nil testResults when they're required blocks
// the transition rather than panicking.
func (s *TDDState) ValidateTransition(target TDDPhase, testResults *TestResults) TransitionResult {
	from := s.Phase

	if !from.CanTransitionTo(target) {
		return Blocked(
			fmt.Sprintf("cannot transition from %s to %s", from, target),
			fmt.Sprintf("valid transitions from %s: %v", from, from.ValidTransitions()),
		)
	}

	validation := target.ValidationRequirements()

	if validation.RequiresTestFailure {
		if testResults == nil {
			return Blocked("test results required to verify red phase", "run tests first to verify they fail")
		}
		if testResults.IsGreen() {
			return Blocked(
				"tests should FAIL in red phase but all pass",
				"write tests that verify unimplemented behavior, or ensure tests target the new functionality",
			)
		}
		if testResults.ExecutionError != "" {
			return Blocked(
				fmt.Sprintf("tests have execution errors: %s", testResults.ExecutionError),
				"fix test setup errors before proceeding",
			)
		}
	}

	if validation.RequiresTestSuccess {
		if testResults == nil {
			return Blocked("test results required to verify green phase", "run tests first to verify they pass")
		}
		if testResults.IsRed() {
			return Blocked(
				fmt.Sprintf("%d tests still failing", testResults.Failed),
				"fix implementation to make tests pass",
			)
		}
		if testResults.ExecutionError != "" {
			return Blocked(
				fmt.Sprintf("tests have execution errors: %s", testResults.ExecutionError),
				"fix test or implementation errors before proceeding",
			)
		}
		if testResults.Passed == 0 {
			return Blocked("no tests passed", "ensure there are tests to run and they're being executed")
		}
	}

	return Allowed()
}

// PhaseValidator runs tests in workdir and turns the result into a
// TransitionResult for the red/green gates, without needing a full
// TDDState (used standalone by the coordinator's Testing phase).
type PhaseValidator struct {
	workdir string
	runner  *TestRunner
}

// NewPhaseValidator builds a PhaseValidator bound to workdir's tests.
func NewPhaseValidator(workdir string) *PhaseValidator {
	return &PhaseValidator{workdir: workdir, runner: NewTestRunner(workdir)}
}

// RunTests executes the detected framework once.
func (v *PhaseValidator) RunTests() TestResults { return v.runner.Run() }

// Workdir returns the bound working directory.
func (v *PhaseValidator) Workdir() string { return v.workdir }

// ValidateRed runs tests and checks the VerifyRed invariant directly.
func (v *PhaseValidator) ValidateRed() TransitionResult {
	results := v.RunTests()
	if results.ExecutionError != "" {
		return Blocked(fmt.Sprintf("tests have execution errors: %s", results.ExecutionError), "fix test setup errors before proceeding")
	}
	if results.IsGreen() {
		return Blocked(
			"tests should FAIL in red phase but all pass",
			"write tests that verify unimplemented behavior, or ensure tests target the new functionality",
		)
	}
	return Allowed()
}

// ValidateGreen runs tests and checks the VerifyGreen invariant directly.
func (v *PhaseValidator) ValidateGreen() TransitionResult {
	results := v.RunTests()
	if results.ExecutionError != "" {
		return Blocked(fmt.Sprintf("tests have execution errors: %s", results.ExecutionError), "fix test or implementation errors before proceeding")
	}
	if results.IsRed() {
		return Blocked(fmt.Sprintf("%d tests still failing", results.Failed), "fix implementation to make tests pass")
	}
	if results.Passed == 0 {
		return Blocked("no tests passed", "ensure there are tests to run and they're being executed")
	}
	return Allowed()
}

// ValidateAndAdvance runs the tests needed by the next skip-aware phase
// (if any), validates the transition, and applies it on success,
// recording a Blocked attempt in history on failure.
func (s *TDDState) ValidateAndAdvance() TransitionResult {
	target, ok := s.computeNextPhase()
	if !ok {
		return Blocked("already at terminal phase", "workflow is complete")
	}

	validation := target.ValidationRequirements()
	var results *TestResults
	if validation.RequiresTestFailure || validation.RequiresTestSuccess {
		r := NewTestRunner(s.Workdir).Run()
		results = &r
	}

	result := s.ValidateTransition(target, results)
	switch {
	case result.kind == transitionAllowed:
		s.Advance(true, "")
		return Completed(s.Phase, "")
	case result.kind == transitionBlocked:
		s.History = append(s.History, TDDTransition{From: s.Phase, To: target, Success: false, Message: result.BlockingReason()})
		return result
	default:
		return result
	}
}
