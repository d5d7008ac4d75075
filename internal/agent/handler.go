package agent

import (
	"encoding/json"
	"fmt"
	"os"
)

// StreamHandler receives dispatched events from a Streamer. Variants
// {PrintHandler, DbLogger} are the concrete implementations (capability-based
// dispatch, not inheritance).
type StreamHandler interface {
	OnSystem(subtype, sessionID string)
	OnUser(text string)
	OnAssistantText(text string)
	OnToolUse(tool string, input json.RawMessage)
	OnToolResult(output string, isError bool)
	OnComplete(cost *CostInfo, durationMs *uint64)
	OnParseError(line string, err error)
}

// NopHandler implements StreamHandler with no-ops; embed it to implement
// only the callbacks a handler cares about.
type NopHandler struct{}

func (NopHandler) OnSystem(string, string)           {}
func (NopHandler) OnUser(string)                     {}
func (NopHandler) OnAssistantText(string)            {}
func (NopHandler) OnToolUse(string, json.RawMessage) {}
func (NopHandler) OnToolResult(string, bool)         {}
func (NopHandler) OnComplete(*CostInfo, *uint64)     {}
func (NopHandler) OnParseError(string, error)        {}

// PrintHandler writes assistant text to stdout and, when verbose, tool and
// lifecycle detail to stderr.
type PrintHandler struct {
	NopHandler
	Verbose bool
}

// NewPrintHandler builds a PrintHandler.
func NewPrintHandler(verbose bool) *PrintHandler {
	return &PrintHandler{Verbose: verbose}
}

func (p *PrintHandler) OnSystem(subtype, _ string) {
	if p.Verbose && subtype != "" {
		fmt.Fprintf(os.Stderr, "[system: %s]\n", subtype)
	}
}

func (p *PrintHandler) OnUser(text string) {
	if p.Verbose && text != "" {
		fmt.Fprintf(os.Stderr, "\n[user: %s]\n", text)
	}
}

func (p *PrintHandler) OnAssistantText(text string) {
	fmt.Print(text)
}

func (p *PrintHandler) OnToolUse(tool string, input json.RawMessage) {
	if p.Verbose {
		fmt.Fprintf(os.Stderr, "\n[tool: %s with input: %s]\n", tool, input)
	}
}

func (p *PrintHandler) OnToolResult(output string, isError bool) {
	if !p.Verbose {
		return
	}
	prefix := "result"
	if isError {
		prefix = "error"
	}
	display := output
	if len(display) > 200 {
		display = fmt.Sprintf("%s... (%d chars)", display[:200], len(output))
	}
	fmt.Fprintf(os.Stderr, "[%s: %s]\n", prefix, display)
}

func (p *PrintHandler) OnComplete(cost *CostInfo, durationMs *uint64) {
	fmt.Println()
	if !p.Verbose {
		return
	}
	if cost != nil {
		fmt.Fprintf(os.Stderr, "[tokens: %d in, %d out]\n", cost.InputTokens, cost.OutputTokens)
	}
	if durationMs != nil {
		fmt.Fprintf(os.Stderr, "[duration: %dms]\n", *durationMs)
	}
}

func (p *PrintHandler) OnParseError(line string, err error) {
	if p.Verbose {
		fmt.Fprintf(os.Stderr, "[parse error on line %q: %v]\n", line, err)
	}
}

// ConversationWriter is the run store's append contract, declared here to
// avoid internal/agent importing internal/store. DbLogger is the supervisor
// side of the durable run store's streaming writer (spec.md §4.4).
type ConversationWriter interface {
	AppendEvent(runID string, messageType, messageJSON string) error
}

// DbLogger persists every dispatched event to a ConversationWriter,
// reconstructing the per-type JSON payload for storage rather than
// depending on the raw input line, so replays remain stable even if the
// backend emits extra fields this supervisor does not model.
type DbLogger struct {
	RunID  string
	Writer ConversationWriter
}

// NewDbLogger builds a DbLogger bound to one run.
func NewDbLogger(runID string, w ConversationWriter) *DbLogger {
	return &DbLogger{RunID: runID, Writer: w}
}

func (d *DbLogger) append(messageType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = d.Writer.AppendEvent(d.RunID, messageType, string(raw))
}

func (d *DbLogger) OnSystem(subtype, sessionID string) {
	d.append(string(MessageSystem), StreamMessage{Type: MessageSystem, Subtype: subtype, SessionID: sessionID})
}

func (d *DbLogger) OnUser(text string) {
	d.append(string(MessageUser), StreamMessage{Type: MessageUser, Message: AssistantMessage{Content: text}})
}

func (d *DbLogger) OnAssistantText(text string) {
	d.append(string(MessageAssistant), StreamMessage{Type: MessageAssistant, Message: AssistantMessage{Content: text}})
}

func (d *DbLogger) OnToolUse(tool string, input json.RawMessage) {
	d.append(string(MessageToolUse), StreamMessage{Type: MessageToolUse, Tool: tool, Input: input})
}

func (d *DbLogger) OnToolResult(output string, isError bool) {
	d.append(string(MessageToolResult), StreamMessage{Type: MessageToolResult, Output: output, IsError: isError})
}

func (d *DbLogger) OnComplete(cost *CostInfo, durationMs *uint64) {
	d.append(string(MessageResult), StreamMessage{Type: MessageResult, Cost: cost, DurationMs: durationMs})
}

func (d *DbLogger) OnParseError(string, error) {}
