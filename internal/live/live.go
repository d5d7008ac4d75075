// Package live fans conversation-log events out to websocket subscribers
// (SPEC_FULL.md §B: "optional live fan-out of conversation-log events to
// dashboard subscribers, mirroring the teacher's gateway websocket
// transport"). It never blocks a run: a slow or gone client only misses
// events, the bus already drops on a full subscriber buffer.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/basket/murmur/internal/bus"
)

// Hub accepts websocket connections and forwards bus.TopicStreamMessage
// events to every connected client, optionally filtered to one run.
type Hub struct {
	bus    *bus.Bus
	logger *slog.Logger

	// AllowOrigins mirrors the teacher's origin allowlist (gateway.go's
	// Config.AllowOrigins); empty means same-origin only.
	AllowOrigins []string

	clientsMu sync.RWMutex
	clients   map[*client]struct{}
}

// NewHub builds a Hub over bus. logger may be nil (defaults to slog.Default()).
func NewHub(eventBus *bus.Bus, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{bus: eventBus, logger: logger, clients: make(map[*client]struct{})}
}

type client struct {
	conn   *websocket.Conn
	runID  string // empty means subscribe to every run
	cancel context.CancelFunc
}

// ServeHTTP upgrades the request to a websocket and streams
// bus.StreamMessageEvent payloads to it until the client disconnects. An
// optional "run_id" query parameter restricts forwarding to one run.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.AllowOrigins,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &client{conn: conn, runID: r.URL.Query().Get("run_id"), cancel: cancel}
	h.addClient(c)
	h.logger.Info("live: client connected", "run_id", c.runID)

	defer func() {
		cancel()
		h.removeClient(c)
		h.logger.Info("live: client disconnected", "run_id", c.runID)
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	// This connection is server-push only; CloseRead spins a background
	// reader that answers pings and cancels ctx the moment the client sends
	// anything (including a close frame), which is exactly the "ignore
	// whatever the client says, just watch for disconnect" shape this needs.
	ctx = conn.CloseRead(ctx)

	sub := h.bus.Subscribe(bus.TopicStreamMessage)
	defer h.bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Ch():
			if !ok {
				return
			}
			msg, ok := ev.Payload.(bus.StreamMessageEvent)
			if !ok {
				continue
			}
			if c.runID != "" && msg.RunID != c.runID {
				continue
			}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				return
			}
		}
	}
}

func (h *Hub) addClient(c *client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) removeClient(c *client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	delete(h.clients, c)
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
