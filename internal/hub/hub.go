package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/minutelab/minute/internal/gateway"
)

var (
	// ErrCapacity is returned when a connection is rejected before
	// registration because the hub is full.
	ErrCapacity = errors.New("hub: connection capacity reached")
	// ErrProtocol marks a malformed frame or failed read; it terminates only
	// the offending connection.
	ErrProtocol = errors.New("hub: protocol violation")
)

// Hub owns the registry of live connections. The registry map is mutated
// only by the control loop in Run, which consumes the register/unregister
// channels; callers see the current size through a shared read lock.
type Hub struct {
	gateway *gateway.Gateway

	maxConnections int
	clients        map[*Client]struct{}
	register       chan registerRequest
	unregister     chan *Client

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type registerRequest struct {
	client *Client
	reply  chan error
}

func New(gw *gateway.Gateway, maxConnections int) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		gateway:        gw,
		maxConnections: maxConnections,
		clients:        make(map[*Client]struct{}),
		register:       make(chan registerRequest),
		unregister:     make(chan *Client),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

// Run is the hub's control loop. It is the single mutator of the client
// registry and exits when Shutdown cancels the hub context.
func (h *Hub) Run() {
	slog.Info("connection hub started", "max_connections", h.maxConnections)
	defer slog.Info("connection hub stopped")
	defer close(h.done)

	for {
		select {
		case req := <-h.register:
			req.reply <- h.admit(req.client)

		case client := <-h.unregister:
			h.remove(client)

		case <-h.ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) admit(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) >= h.maxConnections {
		return ErrCapacity
	}
	h.clients[client] = struct{}{}
	return nil
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	h.mu.Unlock()
	if ok {
		client.close()
		slog.Debug("client unregistered", "client_id", client.id)
	}
}

// Register admits a websocket connection. When the hub is at capacity the
// socket is closed immediately and the connection never appears in the
// registry. On success the connection's read and write pumps are running
// when Register returns.
func (h *Hub) Register(conn *websocket.Conn) error {
	// Cheap rejection without bothering the control loop.
	h.mu.RLock()
	full := len(h.clients) >= h.maxConnections
	h.mu.RUnlock()
	if full {
		_ = conn.Close()
		return ErrCapacity
	}

	client := newClient(h, conn)
	req := registerRequest{client: client, reply: make(chan error, 1)}
	select {
	case h.register <- req:
	case <-h.ctx.Done():
		_ = conn.Close()
		return h.ctx.Err()
	}
	if err := <-req.reply; err != nil {
		_ = conn.Close()
		return err
	}

	slog.Info("client registered", "client_id", client.id, "remote_addr", conn.RemoteAddr())
	go client.writePump()
	go client.readPump()
	return nil
}

// Unregister removes a client from the registry. Idempotent; safe to call
// from any goroutine.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
		// Shutdown path closes every client itself.
	}
}

// Shutdown cancels the hub's root scope, which propagates to every
// connection and in-flight chunk task, and waits for the control loop to
// drain the registry.
func (h *Hub) Shutdown() {
	h.cancel()
	<-h.done
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
