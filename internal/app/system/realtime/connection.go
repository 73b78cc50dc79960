// internal/app/system/realtime/connection.go
package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var errClosed = errors.New("connection closed")

// Subscriber is anything the Hub can fan frames out to.
type Subscriber interface {
	ID() string
	UserID() string
	Send(payload []byte) error
	Close(code int, reason string)
}

// Connection wraps a websocket and serialises outbound writes through a
// buffered channel. A slow client whose buffer fills is disconnected.
type Connection struct {
	id     string
	userID string

	ws    *websocket.Conn
	send  chan []byte
	once  sync.Once
	close chan struct{}
}

// NewConnection constructs a Connection for the given user.
func NewConnection(userID string, ws *websocket.Conn) *Connection {
	return &Connection{
		id:     uuid.NewString(),
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		close:  make(chan struct{}),
	}
}

// ID returns the connection's unique id.
func (c *Connection) ID() string { return c.id }

// UserID returns the id of the user who opened the connection.
func (c *Connection) UserID() string { return c.userID }

// Send enqueues payload for delivery.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.close:
		return errClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("connection buffer exceeded")
	}
}

// Close terminates the connection. Safe to call more than once.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		deadline := time.Now().Add(writeWait)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

// Run pumps frames until the client goes away or the connection is closed.
// Clients are receive-only; anything they send is discarded.
func (c *Connection) Run() {
	go c.writeLoop()
	c.readLoop()
}

func (c *Connection) readLoop() {
	defer c.Close(websocket.CloseNormalClosure, "")
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(kind int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(kind, payload)
}
