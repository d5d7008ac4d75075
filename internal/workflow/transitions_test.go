package workflow

import "testing"

func TestValidateTransition_StructurallyInvalid(t *testing.T) {
	s := NewTDDState("thing", "/tmp")
	result := s.ValidateTransition(PhaseVerifyRed, nil)
	if !result.IsBlocked() {
		t.Fatal("expected forward-skip to be blocked")
	}
	if result.BlockingReason() == "" {
		t.Error("expected a blocking reason")
	}
}

func TestValidateTransition_VerifyRed_RequiresFailure(t *testing.T) {
	s := NewTDDState("thing", "/tmp")
	s.Phase = PhaseWriteTests

	if r := s.ValidateTransition(PhaseVerifyRed, nil); !r.IsBlocked() {
		t.Error("expected nil test results to block VerifyRed")
	}

	green := TestResults{Passed: 3}
	if r := s.ValidateTransition(PhaseVerifyRed, &green); !r.IsBlocked() {
		t.Error("expected all-green results to block VerifyRed")
	}

	red := TestResults{Failed: 1}
	if r := s.ValidateTransition(PhaseVerifyRed, &red); !r.IsAllowed() {
		t.Error("expected a failing test to allow VerifyRed")
	}
}

func TestValidateTransition_VerifyGreen_RequiresSuccess(t *testing.T) {
	s := NewTDDState("thing", "/tmp")
	s.Phase = PhaseImplement

	if r := s.ValidateTransition(PhaseVerifyGreen, nil); !r.IsBlocked() {
		t.Error("expected nil test results to block VerifyGreen")
	}

	red := TestResults{Failed: 1}
	if r := s.ValidateTransition(PhaseVerifyGreen, &red); !r.IsBlocked() {
		t.Error("expected failing tests to block VerifyGreen")
	}

	noTests := TestResults{}
	if r := s.ValidateTransition(PhaseVerifyGreen, &noTests); !r.IsBlocked() {
		t.Error("expected zero passed tests to block VerifyGreen")
	}

	green := TestResults{Passed: 3}
	if r := s.ValidateTransition(PhaseVerifyGreen, &green); !r.IsAllowed() {
		t.Error("expected passing tests to allow VerifyGreen")
	}
}

func TestValidateTransition_ExecutionErrorBlocks(t *testing.T) {
	s := NewTDDState("thing", "/tmp")
	s.Phase = PhaseWriteTests
	errored := TestResults{ExecutionError: "syntax error"}
	if r := s.ValidateTransition(PhaseVerifyRed, &errored); !r.IsBlocked() {
		t.Error("expected an execution error to block the transition")
	}
}

func TestTransitionResult_Completed(t *testing.T) {
	r := Completed(PhaseImplement, "moved on")
	if !r.IsAllowed() {
		t.Error("Completed should be allowed")
	}
	phase, ok := r.NewPhase()
	if !ok || phase != PhaseImplement {
		t.Errorf("NewPhase() = %v, %v; want Implement, true", phase, ok)
	}
}
