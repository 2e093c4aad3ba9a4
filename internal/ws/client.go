package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 12 * time.Second
	pingPeriod = 3 * time.Second // must be < pongWait
)

type closeFrame struct {
	code   int
	reason string
}

// clientConn owns one websocket. Only writePump writes to rawConn; everybody
// else goes through the buffered send queue.
type clientConn struct {
	id      string
	rawConn *websocket.Conn
	send    chan []byte
	closing chan closeFrame
	done    chan struct{}
	once    sync.Once
}

func newClientConn(id string, rawConn *websocket.Conn, buffer int) *clientConn {
	return &clientConn{
		id:      id,
		rawConn: rawConn,
		send:    make(chan []byte, buffer),
		closing: make(chan closeFrame, 1),
		done:    make(chan struct{}),
	}
}

// enqueue never blocks. It reports false when the queue is full.
func (c *clientConn) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// closeWith asks writePump to flush the queue and send a close frame.
func (c *clientConn) closeWith(code int, reason string) {
	select {
	case c.closing <- closeFrame{code: code, reason: reason}:
	default:
	}
}

// kill drops the connection without a close handshake.
func (c *clientConn) kill() {
	c.once.Do(func() {
		close(c.done)
		if c.rawConn != nil {
			_ = c.rawConn.Close()
		}
	})
}

func (c *clientConn) write(mt int, data []byte) error {
	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data) // Text/Binary only
}

func (c *clientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.kill()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case f := <-c.closing:
			c.flush()
			_ = c.rawConn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(f.code, f.reason),
				time.Now().Add(writeWait),
			)
			return
		case <-ticker.C:
			if err := c.rawConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// flush writes whatever is already queued.
func (c *clientConn) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}
