package agent

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MessageType is the discriminant of the line-delimited JSON event stream
// an agent backend emits on stdout.
type MessageType string

const (
	MessageSystem     MessageType = "system"
	MessageUser       MessageType = "user"
	MessageAssistant  MessageType = "assistant"
	MessageToolUse    MessageType = "tool_use"
	MessageToolResult MessageType = "tool_result"
	MessageResult     MessageType = "result"
)

// StreamMessage is the tagged union of every event shape the stream
// protocol (spec.md §6) defines. Only the fields relevant to Type are
// populated; the rest are zero.
type StreamMessage struct {
	Type MessageType `json:"type"`

	// system
	Subtype   string `json:"subtype,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// user, assistant
	Message AssistantMessage `json:"message,omitempty"`

	// tool_use
	Tool  string          `json:"tool,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	Output  string `json:"output,omitempty"`
	IsError bool   `json:"is_error,omitempty"`

	// result
	Cost          *CostInfo `json:"cost,omitempty"`
	DurationMs    *uint64   `json:"duration_ms,omitempty"`
	DurationAPIMs *uint64   `json:"duration_api_ms,omitempty"`
}

// AssistantMessage carries the assistant's text content.
type AssistantMessage struct {
	Content string `json:"content"`
}

// CostInfo carries token accounting from a terminal result event.
type CostInfo struct {
	InputTokens      uint64  `json:"input_tokens"`
	OutputTokens     uint64  `json:"output_tokens"`
	CacheReadTokens  *uint64 `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens *uint64 `json:"cache_write_tokens,omitempty"`
}

// Streamer reads line-delimited JSON from an agent's stdout and dispatches
// each parsed message to a StreamHandler. Stops at EOF (the process closed
// stdout), which callers observe as the stream ending before Handle.Wait
// returns the exit status.
type Streamer struct {
	reader *bufio.Reader
}

// NewStreamer wraps r for line-delimited JSON reading.
func NewStreamer(r io.Reader) *Streamer {
	return &Streamer{reader: bufio.NewReader(r)}
}

// Stream reads until EOF, dispatching every line to handler. A line that
// fails to parse as a StreamMessage is reported via OnParseError and
// otherwise skipped, never aborting the stream.
func (s *Streamer) Stream(handler StreamHandler) error {
	for {
		line, err := s.reader.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			dispatchLine(handler, trimmed)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func dispatchLine(handler StreamHandler, line string) {
	var msg StreamMessage
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		handler.OnParseError(line, err)
		return
	}
	switch msg.Type {
	case MessageSystem:
		handler.OnSystem(msg.Subtype, msg.SessionID)
	case MessageUser:
		handler.OnUser(msg.Message.Content)
	case MessageAssistant:
		handler.OnAssistantText(msg.Message.Content)
	case MessageToolUse:
		handler.OnToolUse(msg.Tool, msg.Input)
	case MessageToolResult:
		handler.OnToolResult(msg.Output, msg.IsError)
	case MessageResult:
		handler.OnComplete(msg.Cost, msg.DurationMs)
	default:
		handler.OnParseError(line, fmt.Errorf("unknown stream message type %q", msg.Type))
	}
}
