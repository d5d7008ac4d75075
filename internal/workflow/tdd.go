package workflow

import "fmt"

// TDDPhase is one state in the write-spec/write-tests/red/implement/
// green/refactor cycle (spec.md §4.5).
type TDDPhase int

const (
	PhaseWriteSpec TDDPhase = iota
	PhaseWriteTests
	PhaseVerifyRed
	PhaseImplement
	PhaseVerifyGreen
	PhaseRefactor
	PhaseComplete
)

func (p TDDPhase) String() string {
	switch p {
	case PhaseWriteSpec:
		return "write_spec"
	case PhaseWriteTests:
		return "write_tests"
	case PhaseVerifyRed:
		return "verify_red"
	case PhaseImplement:
		return "implement"
	case PhaseVerifyGreen:
		return "verify_green"
	case PhaseRefactor:
		return "refactor"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Description is a one-line human summary of the phase's purpose.
func (p TDDPhase) Description() string {
	switch p {
	case PhaseWriteSpec:
		return "Write a specification for the behavior"
	case PhaseWriteTests:
		return "Write tests from the specification"
	case PhaseVerifyRed:
		return "Verify the tests fail before implementation"
	case PhaseImplement:
		return "Implement the minimal code to pass the tests"
	case PhaseVerifyGreen:
		return "Verify all tests pass"
	case PhaseRefactor:
		return "Refactor while keeping tests green"
	case PhaseComplete:
		return "Cycle complete"
	default:
		return "unknown phase"
	}
}

// Next returns the phase reached by linear forward progression, or false
// at the terminal phase.
func (p TDDPhase) Next() (TDDPhase, bool) {
	switch p {
	case PhaseWriteSpec:
		return PhaseWriteTests, true
	case PhaseWriteTests:
		return PhaseVerifyRed, true
	case PhaseVerifyRed:
		return PhaseImplement, true
	case PhaseImplement:
		return PhaseVerifyGreen, true
	case PhaseVerifyGreen:
		return PhaseRefactor, true
	case PhaseRefactor:
		return PhaseComplete, true
	default:
		return 0, false
	}
}

// IsTerminal reports whether the cycle has nothing further to do.
func (p TDDPhase) IsTerminal() bool {
	return p == PhaseComplete
}

// CanTransitionTo reports whether a transition from p to target is
// structurally valid: the linear next step, a restart to WriteSpec from
// anywhere, or one of a small set of specific backward loops
// (VerifyRed->WriteTests, VerifyGreen->Implement, Refactor->VerifyGreen,
// Complete->Refactor). Forward-skipping any other phase is never allowed.
func (p TDDPhase) CanTransitionTo(target TDDPhase) bool {
	if p == target {
		return false
	}
	if target == PhaseWriteSpec {
		return true
	}
	if next, ok := p.Next(); ok && next == target {
		return true
	}
	switch {
	case p == PhaseVerifyRed && target == PhaseWriteTests:
		return true
	case p == PhaseVerifyGreen && target == PhaseImplement:
		return true
	case p == PhaseRefactor && target == PhaseVerifyGreen:
		return true
	case p == PhaseComplete && target == PhaseRefactor:
		return true
	}
	return false
}

var allTDDPhases = []TDDPhase{
	PhaseWriteSpec, PhaseWriteTests, PhaseVerifyRed, PhaseImplement,
	PhaseVerifyGreen, PhaseRefactor, PhaseComplete,
}

// ValidTransitions lists every phase p may structurally move to.
func (p TDDPhase) ValidTransitions() []TDDPhase {
	var out []TDDPhase
	for _, candidate := range allTDDPhases {
		if p.CanTransitionTo(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// PhaseValidation is the per-phase validation contract: what must be true
// of the TDDState, and of the latest TestResults, before the transition
// into this phase is allowed.
type PhaseValidation struct {
	Description            string
	RequiresSpec           bool
	RequiresTests          bool
	RequiresTestFailure    bool
	RequiresTestSuccess    bool
	RequiresImplementation bool
}

// ValidationRequirements returns the validation contract for entering
// phase p.
func (p TDDPhase) ValidationRequirements() PhaseValidation {
	switch p {
	case PhaseWriteSpec:
		return PhaseValidation{Description: p.Description()}
	case PhaseWriteTests:
		return PhaseValidation{Description: p.Description(), RequiresSpec: true}
	case PhaseVerifyRed:
		return PhaseValidation{Description: p.Description(), RequiresSpec: true, RequiresTests: true, RequiresTestFailure: true}
	case PhaseImplement:
		return PhaseValidation{Description: p.Description(), RequiresSpec: true, RequiresTests: true}
	case PhaseVerifyGreen:
		return PhaseValidation{Description: p.Description(), RequiresSpec: true, RequiresTests: true, RequiresImplementation: true, RequiresTestSuccess: true}
	case PhaseRefactor:
		return PhaseValidation{Description: p.Description(), RequiresSpec: true, RequiresTests: true, RequiresImplementation: true, RequiresTestSuccess: true}
	case PhaseComplete:
		return PhaseValidation{Description: p.Description()}
	default:
		return PhaseValidation{Description: "unknown phase"}
	}
}

// TDDTransition records one recorded phase change attempt, successful or
// not, for TDDState.History.
type TDDTransition struct {
	From    TDDPhase
	To      TDDPhase
	Success bool
	Message string
}

// DefaultMaxIterations bounds the Implement<->VerifyGreen retry loop
// before the cycle is a terminal failure.
const DefaultMaxIterations = 3

// TDDState tracks one behavior's progress through the TDD cycle.
type TDDState struct {
	Phase        TDDPhase
	Behavior     string
	SpecFile     string
	TestFiles    []string
	ImplFiles    []string
	Workdir      string
	Iterations   int
	MaxIterations int
	SkipSpec     bool
	SkipRefactor bool
	History      []TDDTransition
}

// NewTDDState starts a fresh cycle at WriteSpec.
func NewTDDState(behavior, workdir string) *TDDState {
	return &TDDState{
		Phase:         PhaseWriteSpec,
		Behavior:      behavior,
		Workdir:       workdir,
		MaxIterations: DefaultMaxIterations,
	}
}

// NewTDDStateWithoutSpec starts a cycle that skips WriteSpec entirely.
func NewTDDStateWithoutSpec(behavior, workdir string) *TDDState {
	s := NewTDDState(behavior, workdir)
	s.Phase = PhaseWriteTests
	s.SkipSpec = true
	return s
}

// WithSpecFile records the path a WriteSpec phase produced.
func (s *TDDState) WithSpecFile(path string) *TDDState { s.SpecFile = path; return s }

// WithTestFiles records the paths a WriteTests phase produced.
func (s *TDDState) WithTestFiles(paths []string) *TDDState { s.TestFiles = paths; return s }

// WithImplFiles records the paths an Implement phase produced.
func (s *TDDState) WithImplFiles(paths []string) *TDDState { s.ImplFiles = paths; return s }

// WithMaxIterations overrides DefaultMaxIterations.
func (s *TDDState) WithMaxIterations(n int) *TDDState { s.MaxIterations = n; return s }

// WithSkipSpec skips straight to WriteTests instead of WriteSpec.
func (s *TDDState) WithSkipSpec(skip bool) *TDDState {
	s.SkipSpec = skip
	if skip && s.Phase == PhaseWriteSpec {
		s.Phase = PhaseWriteTests
	}
	return s
}

// WithSkipRefactor skips Refactor, completing directly from VerifyGreen.
func (s *TDDState) WithSkipRefactor(skip bool) *TDDState { s.SkipRefactor = skip; return s }

// computeNextPhase applies skip_spec/skip_refactor overrides atop the
// phase's linear Next().
func (s *TDDState) computeNextPhase() (TDDPhase, bool) {
	if s.Phase == PhaseWriteSpec && s.SkipSpec {
		return PhaseWriteTests, true
	}
	if s.Phase == PhaseVerifyGreen && s.SkipRefactor {
		return PhaseComplete, true
	}
	return s.Phase.Next()
}

// Advance records the outcome of attempting the current phase and, on
// success, moves to the skip-aware next phase. Iterations increments
// specifically when leaving Implement (the Implement<->VerifyGreen
// round-trip is what MaxIterations bounds). Returns the phase reached, or
// false if nothing changed (already terminal, or advance failed).
func (s *TDDState) Advance(success bool, message string) (TDDPhase, bool) {
	from := s.Phase
	if !success {
		s.History = append(s.History, TDDTransition{From: from, To: from, Success: false, Message: message})
		return from, false
	}

	next, ok := s.computeNextPhase()
	if !ok {
		return from, false
	}
	if from == PhaseImplement {
		s.Iterations++
	}
	s.History = append(s.History, TDDTransition{From: from, To: next, Success: true, Message: message})
	s.Phase = next
	return next, true
}

// TransitionTo attempts a specific (possibly backward) transition,
// validating it structurally via CanTransitionTo first. Returns false
// without effect if the transition is not structurally valid.
func (s *TDDState) TransitionTo(target TDDPhase, message string) bool {
	if !s.Phase.CanTransitionTo(target) {
		return false
	}
	s.History = append(s.History, TDDTransition{From: s.Phase, To: target, Success: true, Message: message})
	s.Phase = target
	return true
}

// RetryTests loops VerifyRed back to WriteTests (tests need rework).
func (s *TDDState) RetryTests(message string) bool {
	return s.retryTo(PhaseWriteTests, message)
}

// RetryImplement loops VerifyGreen back to Implement (implementation
// needs more work).
func (s *TDDState) RetryImplement(message string) bool {
	return s.retryTo(PhaseImplement, message)
}

func (s *TDDState) retryTo(target TDDPhase, message string) bool {
	if !s.Phase.CanTransitionTo(target) {
		return false
	}
	s.History = append(s.History, TDDTransition{From: s.Phase, To: target, Success: false, Message: message})
	s.Phase = target
	return true
}

// Restart returns to WriteSpec (or WriteTests if SkipSpec) and zeroes the
// iteration counter, for when the behavior itself needs rethinking.
func (s *TDDState) Restart(message string) {
	target := PhaseWriteSpec
	if s.SkipSpec {
		target = PhaseWriteTests
	}
	s.History = append(s.History, TDDTransition{From: s.Phase, To: target, Success: false, Message: message})
	s.Phase = target
	s.Iterations = 0
}

// ExceededMaxIterations reports whether the Implement<->VerifyGreen loop
// has run out of budget.
func (s *TDDState) ExceededMaxIterations() bool {
	return s.Iterations >= s.MaxIterations
}

// IsComplete reports whether the cycle reached its terminal phase.
func (s *TDDState) IsComplete() bool { return s.Phase == PhaseComplete }

// CurrentValidation returns the validation contract for the current
// phase.
func (s *TDDState) CurrentValidation() PhaseValidation {
	return s.Phase.ValidationRequirements()
}

// ValidTransitions lists the phases reachable from the current one.
func (s *TDDState) ValidTransitions() []TDDPhase {
	return s.Phase.ValidTransitions()
}

// CurrentPrompt renders the agent-facing instructions for the current
// phase.
func (s *TDDState) CurrentPrompt() string {
	switch s.Phase {
	case PhaseWriteSpec:
		return writeSpecPrompt(s.Behavior)
	case PhaseWriteTests:
		return writeTestsPrompt(s.Behavior, s.SpecFile)
	case PhaseVerifyRed:
		return verifyRedPrompt()
	case PhaseImplement:
		return implementPrompt()
	case PhaseVerifyGreen:
		return verifyGreenPrompt()
	case PhaseRefactor:
		return refactorPrompt()
	case PhaseComplete:
		return "TDD cycle complete."
	default:
		return ""
	}
}

func writeSpecPrompt(behavior string) string {
	return fmt.Sprintf(
		"Write a specification document for the following behavior:\n\n%s\n\n"+
			"The specification should:\n"+
			"- Clearly describe the expected behavior\n"+
			"- Define inputs and outputs\n"+
			"- List edge cases and error conditions\n"+
			"- Be detailed enough to write tests from", behavior)
}

func writeTestsPrompt(behavior, specFile string) string {
	var specRef string
	if specFile != "" {
		specRef = fmt.Sprintf("Specification: %s\n\n", specFile)
	}
	return fmt.Sprintf(
		"%sWrite tests for the following behavior:\n\n%s\n\n"+
			"The tests should:\n"+
			"- Cover main functionality\n"+
			"- Include edge cases\n"+
			"- Be clear and readable\n"+
			"- NOT include any implementation code", specRef, behavior)
}

func verifyRedPrompt() string {
	return "Run the tests to verify they FAIL:\n\n" +
		"The tests should fail because the implementation doesn't exist yet."
}

func implementPrompt() string {
	return "Implement the MINIMAL code to make the tests pass:\n\n" +
		"- Write only enough code to satisfy the tests\n" +
		"- Do not add extra features\n" +
		"- Do not refactor yet\n" +
		"- Focus on making tests green"
}

func verifyGreenPrompt() string {
	return "Run all tests to verify they PASS:\n\n" +
		"Every test should now succeed."
}

func refactorPrompt() string {
	return "Refactor the code while keeping tests green:\n\n" +
		"- Remove duplication\n" +
		"- Improve naming\n" +
		"- Simplify complex logic\n" +
		"- Ensure code follows conventions\n" +
		"- Run tests after each change"
}
