package agent

import (
	"encoding/json"
	"strings"
	"testing"
)

type recordingHandler struct {
	NopHandler
	systemCalls []string
	user        []string
	assistant   []string
	toolUses    []string
	toolResults []string
	completes   int
	parseErrors int
}

func (r *recordingHandler) OnSystem(subtype, sessionID string) {
	r.systemCalls = append(r.systemCalls, subtype+"/"+sessionID)
}
func (r *recordingHandler) OnUser(text string) { r.user = append(r.user, text) }
func (r *recordingHandler) OnAssistantText(text string) { r.assistant = append(r.assistant, text) }
func (r *recordingHandler) OnToolUse(tool string, _ json.RawMessage) {
	r.toolUses = append(r.toolUses, tool)
}
func (r *recordingHandler) OnToolResult(output string, isError bool) {
	r.toolResults = append(r.toolResults, output)
}
func (r *recordingHandler) OnComplete(cost *CostInfo, durationMs *uint64) { r.completes++ }
func (r *recordingHandler) OnParseError(string, error)                   { r.parseErrors++ }

func TestStreamer_S6FullSequence(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"system","subtype":"init","session_id":"s1"}`,
		`{"type":"user","message":{"content":"please fix the bug"}}`,
		`{"type":"assistant","message":{"content":"Hello"}}`,
		`{"type":"tool_use","tool":"Read","input":{"file":"/x"}}`,
		`{"type":"tool_result","output":"ok","is_error":false}`,
		`{"type":"result","cost":{"input_tokens":10,"output_tokens":5},"duration_ms":42}`,
	}, "\n")

	h := &recordingHandler{}
	if err := NewStreamer(strings.NewReader(input)).Stream(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(h.systemCalls) != 1 || h.systemCalls[0] != "init/s1" {
		t.Fatalf("expected one system call init/s1, got %v", h.systemCalls)
	}
	if len(h.user) != 1 || h.user[0] != "please fix the bug" {
		t.Fatalf("expected one user message, got %v", h.user)
	}
	if len(h.assistant) != 1 || h.assistant[0] != "Hello" {
		t.Fatalf("expected assistant text Hello, got %v", h.assistant)
	}
	if len(h.toolUses) != 1 || h.toolUses[0] != "Read" {
		t.Fatalf("expected tool use Read, got %v", h.toolUses)
	}
	if len(h.toolResults) != 1 || h.toolResults[0] != "ok" {
		t.Fatalf("expected tool result ok, got %v", h.toolResults)
	}
	if h.completes != 1 {
		t.Fatalf("expected one complete call, got %d", h.completes)
	}
}

func TestStreamer_SkipsBlankLines(t *testing.T) {
	input := "\n\n" + `{"type":"assistant","message":{"content":"hi"}}` + "\n\n"
	h := &recordingHandler{}
	if err := NewStreamer(strings.NewReader(input)).Stream(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.assistant) != 1 {
		t.Fatalf("expected one assistant message, got %v", h.assistant)
	}
}

func TestStreamer_MalformedLineReportsParseError(t *testing.T) {
	input := "not json at all\n" + `{"type":"assistant","message":{"content":"ok"}}` + "\n"
	h := &recordingHandler{}
	if err := NewStreamer(strings.NewReader(input)).Stream(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.parseErrors != 1 {
		t.Fatalf("expected 1 parse error, got %d", h.parseErrors)
	}
	if len(h.assistant) != 1 {
		t.Fatalf("expected the valid line to still parse, got %v", h.assistant)
	}
}

func TestStreamer_UnterminatedFinalLine(t *testing.T) {
	input := `{"type":"assistant","message":{"content":"no trailing newline"}}`
	h := &recordingHandler{}
	if err := NewStreamer(strings.NewReader(input)).Stream(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.assistant) != 1 || h.assistant[0] != "no trailing newline" {
		t.Fatalf("expected final unterminated line to parse, got %v", h.assistant)
	}
}

func TestParseStreamMessage_Assistant(t *testing.T) {
	var msg StreamMessage
	if err := json.Unmarshal([]byte(`{"type":"assistant","message":{"content":"Hello world"}}`), &msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != MessageAssistant || msg.Message.Content != "Hello world" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestParseStreamMessage_Result(t *testing.T) {
	var msg StreamMessage
	raw := `{"type":"result","cost":{"input_tokens":100,"output_tokens":50},"duration_ms":1234}`
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Cost == nil || msg.Cost.InputTokens != 100 || msg.Cost.OutputTokens != 50 {
		t.Fatalf("unexpected cost: %+v", msg.Cost)
	}
	if msg.DurationMs == nil || *msg.DurationMs != 1234 {
		t.Fatalf("unexpected duration: %v", msg.DurationMs)
	}
}
