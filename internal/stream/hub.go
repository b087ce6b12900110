// Package stream pushes rendered frames to WebSocket subscribers.
//
// The Hub is a render sink: every advance decision becomes one JSON frame
// message fanned out to all connected clients, and robust-mode teardowns
// become teardown messages so clients can discard stale surfaces. Slow or
// broken connections are dropped rather than allowed to stall playback.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sweep/internal/frame"
	"sweep/internal/logging"
	"sweep/internal/render"
)

const writeWait = 5 * time.Second

var _ render.Sink = (*Hub)(nil)

type helloMessage struct {
	Type       string `json:"type"`
	Session    string `json:"session_id"`
	ServerTime int64  `json:"server_time"`
}

type frameMessage struct {
	Type     string      `json:"type"`
	Surface  string      `json:"surface"`
	Layer    int         `json:"layer"`
	ScanTime string      `json:"scan_time,omitempty"`
	Rows     int         `json:"rows"`
	Cols     int         `json:"cols"`
	Values   [][]float64 `json:"values"`
}

type teardownMessage struct {
	Type    string `json:"type"`
	Surface string `json:"surface"`
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub serves /ws and fans rendered frames out to every subscriber.
type Hub struct {
	bind    string
	session string
	logger  *slog.Logger

	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[string]*subscriber

	listener net.Listener
	server   *http.Server
}

// NewHub builds a hub that will listen on bind. session is echoed to clients
// in the hello message so recordings can be correlated with playback logs.
func NewHub(bind, session string, logger *slog.Logger) *Hub {
	h := &Hub{
		bind:    bind,
		session: session,
		logger:  logging.NewComponentLogger(logger, "stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		subscribers: make(map[string]*subscriber),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	h.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// Start binds the listener and serves until ctx is cancelled or Stop is
// called. It returns once the listener is accepting.
func (h *Hub) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", h.bind)
	if err != nil {
		return fmt.Errorf("stream listen: %w", err)
	}
	h.listener = listener

	go func() {
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("stream server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.server.Shutdown(shutdownCtx)
	}()

	h.logger.Info("stream listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, for callers that asked for an
// ephemeral port.
func (h *Hub) Addr() string {
	if h.listener == nil {
		return h.bind
	}
	return h.listener.Addr().String()
}

// Stop shuts the server down and closes every subscriber connection.
func (h *Hub) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.server.Shutdown(shutdownCtx)

	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]*subscriber)
	h.mu.Unlock()
	for _, sub := range subs {
		sub.conn.Close()
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", logging.Error(err))
		return
	}

	id := uuid.NewString()
	sub := &subscriber{conn: conn}

	hello, err := json.Marshal(helloMessage{
		Type:       "hello",
		Session:    h.session,
		ServerTime: time.Now().UnixMilli(),
	})
	if err != nil {
		conn.Close()
		return
	}
	if err := sub.write(hello); err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.subscribers[id] = sub
	h.mu.Unlock()
	h.logger.Info("subscriber connected", logging.String("subscriber", id))

	// Read loop exists only to detect the close handshake; inbound payloads
	// are discarded.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(id)
				return
			}
		}
	}()
}

// drop removes a subscriber and closes its connection. Safe to call twice.
func (h *Hub) drop(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
	if ok {
		sub.conn.Close()
		h.logger.Info("subscriber disconnected", logging.String("subscriber", id))
	}
}

// Render implements the render sink by broadcasting the surface's layer as a
// frame message.
func (h *Hub) Render(_ context.Context, f *frame.Frame, surface *render.Surface) error {
	layer := f.Layer(surface.Options.Layer)
	msg := frameMessage{
		Type:    "frame",
		Surface: surface.ID,
		Layer:   surface.Options.Layer,
		Values:  layer,
		Rows:    len(layer),
	}
	if len(layer) > 0 {
		msg.Cols = len(layer[0])
	}
	if f.HasScanTime() {
		msg.ScanTime = f.ScanTime.UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode frame message: %w", err)
	}
	h.broadcast(data)
	return nil
}

// Teardown implements the render sink by telling clients to discard the
// surface's last frame.
func (h *Hub) Teardown(_ context.Context, surface *render.Surface) error {
	data, err := json.Marshal(teardownMessage{Type: "teardown", Surface: surface.ID})
	if err != nil {
		return fmt.Errorf("encode teardown message: %w", err)
	}
	h.broadcast(data)
	return nil
}

// broadcast writes data to every subscriber, dropping the ones whose writes
// fail. A dead client never fails playback.
func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.write(data); err != nil {
			h.logger.Warn("dropping subscriber",
				logging.String("subscriber", id),
				logging.Error(err),
			)
			h.drop(id)
		}
	}
}
