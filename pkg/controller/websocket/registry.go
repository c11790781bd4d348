package websocket

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/auth"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/chat"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
	"github.com/threadlens-lab/threadlens/pkg/utils/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Send pings to the peer with this period
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer (64KB)
	maxMessageSize = 64 * 1024

	// Buffer size for the per-connection send queue
	connSendBufferSize = 256
)

// Conn is one live authenticated connection. Outbound events flow through a
// FIFO send queue so the client observes them in production order. The send
// channel is never closed; teardown is signalled through ctx so that a
// concurrent Emit can never hit a closed channel.
type Conn struct {
	conn      *websocket.Conn
	send      chan []byte
	principal *auth.Principal
	id        string

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

// ID returns the unique connection identifier
func (c *Conn) ID() string {
	return c.id
}

// Principal returns the identity bound to this connection
func (c *Conn) Principal() *auth.Principal {
	return c.principal
}

// Context is cancelled when the connection is torn down; in-flight jobs
// derive from it so a disconnect abandons their external calls.
func (c *Conn) Context() context.Context {
	return c.ctx
}

// Emit queues one event for delivery. It blocks rather than drops when the
// queue is full: event order and completeness matter more than throughput
// here, and the pacing delay already bounds the rate.
func (c *Conn) Emit(ev *chat.Event) {
	select {
	case c.send <- ev.ToBytes():
	case <-c.ctx.Done():
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(c.cancel)
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings. It runs in its own goroutine per connection.
func (c *Conn) writePump() {
	logger := logging.From(c.ctx)
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.cancel()
		if err := c.conn.Close(); err != nil {
			logger.Debug("failed to close connection in writePump", "error", err)
		}
	}()

	for {
		select {
		case <-c.ctx.Done():
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logger.Debug("failed to write close message", "error", err)
				}
			}
			return

		case message := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Error("failed to set write deadline", "error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Registry is the process-wide table of live connections. It exists for
// introspection; single-connection correctness never depends on it.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	ctx   context.Context
}

func NewRegistry(ctx context.Context) *Registry {
	return &Registry{
		conns: make(map[string]*Conn),
		ctx:   ctx,
	}
}

// NewConn wraps an upgraded websocket connection for the given principal
func (r *Registry) NewConn(conn *websocket.Conn, principal *auth.Principal) *Conn {
	ctx, cancel := context.WithCancel(r.ctx)
	return &Conn{
		conn:      conn,
		send:      make(chan []byte, connSendBufferSize),
		principal: principal,
		id:        newConnID(principal.Sub),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[c.id] = c

	logging.From(r.ctx).Info("connection registered",
		"conn_id", c.id,
		"user_id", c.principal.Sub,
		"total", len(r.conns))
}

// Unregister removes the connection and releases its resources. Safe to
// call on every exit path, including repeated calls.
func (r *Registry) Unregister(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.id]; !ok {
		c.close()
		return
	}
	delete(r.conns, c.id)
	c.close()

	logging.From(r.ctx).Info("connection unregistered",
		"conn_id", c.id,
		"user_id", c.principal.Sub,
		"remaining", len(r.conns))
}

// Count returns the number of live connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// ActiveUsers returns the distinct principals with a live connection
func (r *Registry) ActiveUsers() []types.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[types.UserID]bool)
	var users []types.UserID
	for _, c := range r.conns {
		if !seen[c.principal.Sub] {
			seen[c.principal.Sub] = true
			users = append(users, c.principal.Sub)
		}
	}
	return users
}

// Close tears down all live connections
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.conns {
		delete(r.conns, id)
		c.close()
	}
}

func newConnID(userID types.UserID) string {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Sprintf("conn_%s_%d", userID, time.Now().UnixNano())
	}
	return fmt.Sprintf("conn_%s_%s", userID, hex.EncodeToString(randomBytes))
}
