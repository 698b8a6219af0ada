package signaling

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn is a gorilla-websocket-backed bidirectional persistent JSON message
// stream. Its ReadPump/WritePump pair mirrors the teacher's Client, but a
// Conn never interprets frame contents itself — that is the Dispatcher's
// job.
type Conn struct {
	ws     *websocket.Conn
	send   chan any
	logger *zap.Logger

	readLimit    int64
	pongTimeout  time.Duration
	pingInterval time.Duration
	writeTimeout time.Duration

	closed    atomic.Bool
	closeOnce sync.Once
}

func NewConn(ws *websocket.Conn, logger *zap.Logger, readLimit int64, pongTimeout, pingInterval, writeTimeout time.Duration) *Conn {
	return &Conn{
		ws:           ws,
		send:         make(chan any, 64),
		logger:       logger,
		readLimit:    readLimit,
		pongTimeout:  pongTimeout,
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
	}
}

// Open reports whether this connection has not yet been closed.
func (c *Conn) Open() bool {
	return !c.closed.Load()
}

// Send enqueues v for delivery on the write pump. Non-blocking: when the
// queue is full, v itself is dropped and a warning is logged. A closed
// connection's Send is a silent no-op.
func (c *Conn) Send(v any) error {
	// Close may run between the check below and the channel send; the
	// resulting send-on-closed-channel panic is swallowed so a concurrent
	// Close still turns Send into a no-op.
	defer func() { _ = recover() }()
	if c.closed.Load() {
		return nil
	}
	select {
	case c.send <- v:
	default:
		c.logger.Warn("dropping message to slow consumer")
	}
	return nil
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.send)
		c.ws.Close()
	})
	return nil
}

// ReadPump blocks, invoking onMessage for every raw text frame received,
// until the connection errors or closes. onDisconnect fires exactly once
// when the loop exits for any reason.
func (c *Conn) ReadPump(onMessage func(raw []byte), onDisconnect func()) {
	defer onDisconnect()

	c.ws.SetReadLimit(c.readLimit)
	c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		onMessage(raw)
	}
}

// WritePump drains the send queue to the socket and pings on interval,
// until Close is called.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				c.logger.Error("failed to marshal outbound message", zap.Error(err))
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("websocket write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
