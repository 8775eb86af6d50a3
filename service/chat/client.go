package chat

import (
	"sync"
	"time"

	"LinkupIM/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

// Client is one user's live connection to this gateway. A user has at most
// one active client; a new registration replaces the previous one.
type Client struct {
	ConnID string
	UserID string
	WS     *websocket.Conn
	Send   chan []byte // consumed by a single writer goroutine

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Close shuts the writer down and closes the socket. Safe to call twice.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.WS.Close()
	})
}

// WritePump drains Send onto the socket. One goroutine per client; exits on
// Close or write failure.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.Send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				logger.Infof("[ws] write failed conn=%s user=%s err=%v", c.ConnID, c.UserID, err)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(mt int, payload []byte) error {
	if err := c.WS.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.WS.WriteMessage(mt, payload)
}
