// Package hub fans a recording replay out to websocket viewers.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/scriptcast/internal/asciicast"
)

const defaultBatchInterval = 16 * time.Millisecond

type Hub struct {
	clients      map[string]*Client
	register     chan *clientRegistration
	unregister   chan *Client
	broadcast    chan []byte
	onControl    func(action string)
	token        string
	mu           sync.RWMutex
	header       []byte
	headerMu     sync.RWMutex
	rateLimiter  *RateLimiter
	batchEnabled bool
	ctxWrap      *ctxWrapper
	running      atomic.Bool
	logger       *slog.Logger
}

type ctxWrapper struct {
	ctx context.Context
}

type clientRegistration struct {
	client *Client
	header []byte
}

// New creates a hub. An empty token disables authentication; otherwise
// viewers must pass it as the token query parameter. onControl receives
// viewer pause and resume requests.
func New(token string, onControl func(action string)) *Hub {
	h := &Hub{
		clients:      make(map[string]*Client),
		register:     make(chan *clientRegistration, 16),
		unregister:   make(chan *Client, 16),
		broadcast:    make(chan []byte, 256),
		onControl:    onControl,
		token:        token,
		batchEnabled: true,
		ctxWrap:      &ctxWrapper{ctx: context.Background()},
		logger:       slog.Default(),
	}
	h.rateLimiter = NewRateLimiter(defaultBatchInterval, h.sendEvent)
	return h
}

func (h *Hub) getContext() context.Context {
	if h.ctxWrap != nil {
		return h.ctxWrap.ctx
	}
	return context.Background()
}

func (h *Hub) Run(ctx context.Context) {
	h.ctxWrap = &ctxWrapper{ctx: ctx}
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			h.rateLimiter.FlushAll()
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return

		case reg := <-h.register:
			h.mu.Lock()
			h.clients[reg.client.id] = reg.client
			h.mu.Unlock()
			if reg.header != nil {
				select {
				case reg.client.send <- reg.header:
				default:
				}
			}
			go reg.client.writePump(h.getContext())
			go reg.client.readPump(h.getContext())
			h.logger.Info("viewer connected", "client", reg.client.id, "total", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("viewer disconnected", "client", client.id, "total", h.ClientCount())

		case data := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.logger.Warn("viewer send buffer full, dropping message", "client", c.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && r.URL.Query().Get("token") != h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept error", "error", err)
		return
	}

	client := newClient(conn, h)

	h.headerMu.RLock()
	header := h.header
	h.headerMu.RUnlock()

	select {
	case h.register <- &clientRegistration{client: client, header: header}:
	default:
		h.logger.Warn("hub not accepting connections")
		conn.Close(websocket.StatusTryAgainLater, "server busy")
		return
	}
}

// SetHeader records the header sent to viewers on connect and announces it
// to those already connected.
func (h *Hub) SetHeader(header asciicast.Header) {
	data, err := json.Marshal(newHeaderMessage(header))
	if err != nil {
		h.logger.Error("error marshaling header message", "error", err)
		return
	}
	h.headerMu.Lock()
	h.header = data
	h.headerMu.Unlock()
	h.enqueue(data)
}

// BroadcastEvent sends an event to every viewer. Output may be batched;
// other kinds flush pending output first to keep order.
func (h *Hub) BroadcastEvent(msg EventMessage) {
	msg.Type = "event"
	if h.batchEnabled && h.rateLimiter != nil && msg.Kind == "o" {
		h.rateLimiter.Add(msg)
		return
	}
	h.FlushPendingOutput()
	h.sendEvent(msg)
}

func (h *Hub) sendEvent(msg EventMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("error marshaling event message", "error", err)
		return
	}
	h.enqueue(data)
}

// BroadcastEnd tells viewers the replay is over.
func (h *Hub) BroadcastEnd() {
	h.FlushPendingOutput()
	data, _ := json.Marshal(EndMessage{Type: "end"})
	h.enqueue(data)
}

func (h *Hub) enqueue(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

func (h *Hub) SendError(client *Client, message string) {
	data, err := json.Marshal(ErrorMessage{Type: "error", Message: message})
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleControl(action string) {
	if h.onControl != nil {
		h.onControl(action)
	}
}

func (h *Hub) SetOnControl(fn func(action string)) {
	h.onControl = fn
}

func (h *Hub) SetBatchEnabled(enabled bool) {
	h.batchEnabled = enabled
}

func (h *Hub) FlushPendingOutput() {
	if h.rateLimiter != nil {
		h.rateLimiter.FlushAll()
	}
}

func (h *Hub) isRunning() bool {
	return h.running.Load()
}

func (h *Hub) unregisterClient(c *Client) {
	if !h.isRunning() {
		c.conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	select {
	case h.unregister <- c:
	default:
		h.logger.Warn("unregister channel full, forcing close", "client", c.id)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
