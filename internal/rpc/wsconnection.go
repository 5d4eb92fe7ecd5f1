package rpc

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Subprotocol is the OCPP 1.6J websocket subprotocol name, required by
// spec.md's transport section.
const Subprotocol = "ocpp1.6"

// WebsocketConnection bridges a blocking gorilla/websocket.Conn to the
// non-blocking Connection capability, grounded on the teacher's
// ws.Connection read/write pumps (backend/services/ocpp-server/internal/ws)
// but rewritten so the core, rather than the connection, owns the
// control loop: instead of a MessageProcessor callback invoked from
// the read pump's goroutine, inbound frames are buffered into a
// channel that Poll drains from the core's own thread.
type WebsocketConnection struct {
	logger *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool

	recv chan []byte
	send chan []byte
	done chan struct{}
}

// NewWebsocketConnection returns a disconnected WebsocketConnection.
// Call Dial to establish the session.
func NewWebsocketConnection(logger *zap.Logger) *WebsocketConnection {
	return &WebsocketConnection{
		logger: logger,
		recv:   make(chan []byte, 32),
		send:   make(chan []byte, 4),
	}
}

// Dial connects to endpoint (a ws:// or wss:// URL naming the charge
// point's own path segment) using creds for the handshake, and starts
// the background read/write pumps. Any previous session is closed
// first.
func (c *WebsocketConnection) Dial(ctx context.Context, endpoint string, creds *Credentials) error {
	c.Close()

	if _, err := url.Parse(endpoint); err != nil {
		return err
	}

	header := http.Header{}
	if creds != nil {
		creds.Apply(header)
	}

	dialer := websocket.Dialer{
		Subprotocols:     []string{Subprotocol},
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	c.mu.Unlock()
	c.connected.Store(true)

	go c.readPump(c.done)
	go c.writePump(c.done)
	return nil
}

func (c *WebsocketConnection) readPump(done chan struct{}) {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.logger.Info("websocket read closed", zap.Error(err))
			c.teardown(done)
			return
		}
		select {
		case c.recv <- data:
		case <-done:
			return
		default:
			c.logger.Warn("dropping inbound frame, recv buffer full")
		}
	}
}

func (c *WebsocketConnection) writePump(done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case data := <-c.send:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Info("websocket write failed", zap.Error(err))
				c.teardown(done)
				return
			}
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				return
			}
			_ = conn.WriteMessage(websocket.PingMessage, nil)
		}
	}
}

func (c *WebsocketConnection) teardown(done chan struct{}) {
	c.connected.Store(false)
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	select {
	case <-done:
	default:
		close(done)
	}
}

// IsConnected implements Connection.
func (c *WebsocketConnection) IsConnected() bool { return c.connected.Load() }

// TryRecv implements Connection.
func (c *WebsocketConnection) TryRecv() ([]byte, bool) {
	select {
	case data := <-c.recv:
		return data, true
	default:
		return nil, false
	}
}

// Send implements Connection. It drops the frame rather than blocking
// if the write pump is not keeping up; a dropped CALL then times out
// in the outbox, which reports the timeout to its result handler
// without re-sending, same as a frame lost on the wire.
func (c *WebsocketConnection) Send(data []byte) error {
	if !c.connected.Load() {
		return websocket.ErrCloseSent
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("dropping outbound frame, send buffer full")
		return nil
	}
}

// Close implements Connection.
func (c *WebsocketConnection) Close() error {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.conn = nil
	c.mu.Unlock()
	c.connected.Store(false)
	if done != nil {
		select {
		case <-done:
		default:
			close(done)
		}
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
