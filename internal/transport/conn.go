package transport

import (
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 64 << 10
	sendBufSize       = 256
	maxMessagesPerSec = 200
)

var ErrClosed = errors.New("connection closed")

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Conn is one websocket peer. All frames are binary msgpack envelopes.
// Writes go through a buffered queue drained by WritePump.
type Conn struct {
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	Remote string

	log        zerolog.Logger
	msgCount   int
	msgResetAt time.Time
}

// NewConn wraps an established websocket
func NewConn(ws *websocket.Conn, remote string, log zerolog.Logger) *Conn {
	return &Conn{
		ws:     ws,
		send:   make(chan []byte, sendBufSize),
		done:   make(chan struct{}),
		Remote: remote,
		log:    log.With().Str("remote", remote).Logger(),
	}
}

// Send queues a frame. It reports false when the peer is gone or too slow.
func (c *Conn) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		c.log.Warn().Msg("send queue full, dropping frame")
		return false
	}
}

// Done is closed once the connection is closed
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close stops both pumps. It is safe to call more than once.
func (c *Conn) Close() error {
	c.once.Do(func() {
		close(c.done)
	})
	return nil
}

// ReadPump hands every incoming binary frame to handle until the peer
// disconnects, then closes the connection
func (c *Conn) ReadPump(handle func([]byte)) {
	defer func() {
		c.Close()
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("ws read")
			}
			return
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn().Msg("rate limit exceeded, disconnecting")
			return
		}

		if msgType != websocket.BinaryMessage {
			continue
		}
		handle(message)
	}
}

// WritePump drains the send queue and keeps the peer alive with pings
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, message); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.flush()
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued
func (c *Conn) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.ws.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}
