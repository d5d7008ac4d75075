package agent

import (
	"encoding/json"
	"errors"
	"testing"
)

type fakeWriter struct {
	rows []fakeRow
	fail bool
}

type fakeRow struct {
	runID       string
	messageType string
	messageJSON string
}

func (f *fakeWriter) AppendEvent(runID, messageType, messageJSON string) error {
	if f.fail {
		return errors.New("append failed")
	}
	f.rows = append(f.rows, fakeRow{runID, messageType, messageJSON})
	return nil
}

func TestDbLogger_S6SequencePersisted(t *testing.T) {
	w := &fakeWriter{}
	d := NewDbLogger("run-1", w)

	d.OnSystem("init", "s1")
	d.OnUser("please fix the bug")
	d.OnAssistantText("Hello")
	d.OnToolUse("Read", json.RawMessage(`{"file":"/x"}`))
	d.OnToolResult("ok", false)
	cost := &CostInfo{InputTokens: 10, OutputTokens: 5}
	durationMs := uint64(42)
	d.OnComplete(cost, &durationMs)

	if len(w.rows) != 6 {
		t.Fatalf("expected 6 persisted rows, got %d", len(w.rows))
	}

	want := []string{"system", "user", "assistant", "tool_use", "tool_result", "result"}
	for i, row := range w.rows {
		if row.runID != "run-1" {
			t.Fatalf("row %d: expected runID run-1, got %s", i, row.runID)
		}
		if row.messageType != want[i] {
			t.Fatalf("row %d: expected type %s, got %s", i, want[i], row.messageType)
		}
		var decoded StreamMessage
		if err := json.Unmarshal([]byte(row.messageJSON), &decoded); err != nil {
			t.Fatalf("row %d: persisted JSON does not parse: %v", i, err)
		}
		if decoded.Type != MessageType(want[i]) {
			t.Fatalf("row %d: decoded type %s, expected %s", i, decoded.Type, want[i])
		}
	}

	var userDecoded StreamMessage
	json.Unmarshal([]byte(w.rows[1].messageJSON), &userDecoded)
	if userDecoded.Message.Content != "please fix the bug" {
		t.Fatalf("expected user content 'please fix the bug', got %s", userDecoded.Message.Content)
	}

	if w.rows[2].messageJSON == "" {
		t.Fatal("expected non-empty assistant JSON")
	}
	var assistantDecoded StreamMessage
	json.Unmarshal([]byte(w.rows[2].messageJSON), &assistantDecoded)
	if assistantDecoded.Message.Content != "Hello" {
		t.Fatalf("expected assistant content Hello, got %s", assistantDecoded.Message.Content)
	}

	var resultDecoded StreamMessage
	json.Unmarshal([]byte(w.rows[5].messageJSON), &resultDecoded)
	if resultDecoded.Cost == nil || resultDecoded.Cost.InputTokens != 10 {
		t.Fatalf("expected result cost with input_tokens 10, got %+v", resultDecoded.Cost)
	}
	if resultDecoded.DurationMs == nil || *resultDecoded.DurationMs != 42 {
		t.Fatalf("expected duration_ms 42, got %v", resultDecoded.DurationMs)
	}
}

func TestDbLogger_ParseErrorNotPersisted(t *testing.T) {
	w := &fakeWriter{}
	d := NewDbLogger("run-1", w)
	d.OnParseError("garbage", errors.New("bad json"))
	if len(w.rows) != 0 {
		t.Fatalf("expected no persisted rows for a parse error, got %d", len(w.rows))
	}
}

func TestDbLogger_WriterFailureSwallowed(t *testing.T) {
	w := &fakeWriter{fail: true}
	d := NewDbLogger("run-1", w)
	d.OnAssistantText("hi")
}

func TestPrintHandler_NonVerboseSuppressesDiagnostics(t *testing.T) {
	p := NewPrintHandler(false)
	p.OnSystem("init", "s1")
	p.OnToolUse("Read", json.RawMessage(`{}`))
	p.OnToolResult("ok", false)
	p.OnParseError("garbage", errors.New("bad"))
}

func TestPrintHandler_VerboseTruncatesLongOutput(t *testing.T) {
	p := NewPrintHandler(true)
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	p.OnToolResult(string(long), false)
}

func TestPrintHandler_OnCompletePrintsNewline(t *testing.T) {
	p := NewPrintHandler(false)
	p.OnComplete(nil, nil)
}
