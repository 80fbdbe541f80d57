package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/minutelab/minute/internal/gateway"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size.
	maxFrameSize = 1 << 20

	// Outbound queue capacity. A peer that lets this fill up is
	// disconnected rather than allowed to buffer results without bound.
	sendQueueSize = 256

	// Deadline for one chunk's trip through the transcription provider.
	chunkTimeout = 30 * time.Second
)

// Client is one registered socket connection. The read pump spawns a
// short-lived task per binary frame; the write pump delivers result events
// in FIFO order interleaved with keepalive pings.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan gateway.ResultEvent

	ctx    context.Context
	cancel context.CancelFunc

	sendMu sync.Mutex
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(h.ctx)
	return &Client{
		id:     uuid.New().String(),
		hub:    h,
		conn:   conn,
		send:   make(chan gateway.ResultEvent, sendQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// close tears the connection down: cancels the client scope (and every
// chunk task derived from it), closes the outbound queue and the socket.
// Idempotent.
func (c *Client) close() {
	c.sendMu.Lock()
	if c.closed {
		c.sendMu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.sendMu.Unlock()

	c.cancel()
	_ = c.conn.Close()
}

// deliver enqueues a result event for the write pump. A full queue means
// the peer is not draining results; the connection is force-closed instead
// of blocking the chunk task or silently dropping the event.
func (c *Client) deliver(evt gateway.ResultEvent) {
	c.sendMu.Lock()
	if c.closed {
		c.sendMu.Unlock()
		return
	}
	select {
	case c.send <- evt:
		c.sendMu.Unlock()
	default:
		c.sendMu.Unlock()
		slog.Warn("outbound queue full, disconnecting unresponsive client", "client_id", c.id)
		c.hub.Unregister(c)
	}
}

// readPump reads frames until the connection fails. Each binary frame
// becomes an independent chunk task; everything else is ignored. Any read
// error unregisters the connection.
func (c *Client) readPump() {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	seq := 0
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("read failed, dropping connection", "client_id", c.id, "error", err, "kind", ErrProtocol)
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}

		chunkSeq := seq
		seq++
		go c.processChunk(chunkSeq, data)
	}
}

// processChunk runs one audio chunk through the gateway under the chunk
// deadline. The context derives from the connection scope, so hub shutdown
// and unregistration cancel in-flight chunks transitively.
func (c *Client) processChunk(seq int, data []byte) {
	ctx, cancel := context.WithTimeout(c.ctx, chunkTimeout)
	defer cancel()
	c.hub.gateway.StreamChunk(ctx, seq, data, c.deliver)
}

// writePump drains the outbound queue in FIFO order and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.Unregister(c)
	}()

	for {
		select {
		case evt, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				slog.Error("failed to marshal result event", "client_id", c.id, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("write failed, dropping connection", "client_id", c.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
