package orchestrator

import (
	"encoding/json"

	"github.com/basket/murmur/internal/agent"
	"github.com/basket/murmur/internal/bus"
)

// multiHandler fans out every dispatched stream event to each handler in
// order, so a run can be persisted, broadcast, and printed from the same
// read loop without internal/agent knowing about any of those concerns.
type multiHandler struct {
	handlers []agent.StreamHandler
}

func newMultiHandler(handlers ...agent.StreamHandler) *multiHandler {
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) OnSystem(subtype, sessionID string) {
	for _, h := range m.handlers {
		h.OnSystem(subtype, sessionID)
	}
}

func (m *multiHandler) OnUser(text string) {
	for _, h := range m.handlers {
		h.OnUser(text)
	}
}

func (m *multiHandler) OnAssistantText(text string) {
	for _, h := range m.handlers {
		h.OnAssistantText(text)
	}
}

func (m *multiHandler) OnToolUse(tool string, input json.RawMessage) {
	for _, h := range m.handlers {
		h.OnToolUse(tool, input)
	}
}

func (m *multiHandler) OnToolResult(output string, isError bool) {
	for _, h := range m.handlers {
		h.OnToolResult(output, isError)
	}
}

func (m *multiHandler) OnComplete(cost *agent.CostInfo, durationMs *uint64) {
	for _, h := range m.handlers {
		h.OnComplete(cost, durationMs)
	}
}

func (m *multiHandler) OnParseError(line string, err error) {
	for _, h := range m.handlers {
		h.OnParseError(line, err)
	}
}

// busHandler republishes every dispatched event on the event bus alongside
// the store.StreamLogger's durable insert (bus.TopicStreamMessage doc
// comment), so internal/live can fan events out to websocket subscribers
// without touching the database.
type busHandler struct {
	agent.NopHandler
	bus   *bus.Bus
	runID string
}

func newBusHandler(b *bus.Bus, runID string) *busHandler {
	return &busHandler{bus: b, runID: runID}
}

func (h *busHandler) publish(messageType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.bus.Publish(bus.TopicStreamMessage, bus.StreamMessageEvent{
		RunID:       h.runID,
		MessageType: messageType,
		MessageJSON: string(raw),
	})
}

func (h *busHandler) OnSystem(subtype, sessionID string) {
	h.publish("system", map[string]string{"subtype": subtype, "session_id": sessionID})
}

func (h *busHandler) OnUser(text string) {
	h.publish("user", map[string]string{"content": text})
}

func (h *busHandler) OnAssistantText(text string) {
	h.publish("assistant", map[string]string{"content": text})
}

func (h *busHandler) OnToolUse(tool string, input json.RawMessage) {
	h.publish("tool_use", map[string]any{"tool": tool, "input": input})
}

func (h *busHandler) OnToolResult(output string, isError bool) {
	h.publish("tool_result", map[string]any{"output": output, "is_error": isError})
}

func (h *busHandler) OnComplete(cost *agent.CostInfo, durationMs *uint64) {
	h.publish("result", map[string]any{"cost": cost, "duration_ms": durationMs})
}
