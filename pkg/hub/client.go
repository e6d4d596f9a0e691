package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// Socket timings. A dashboard tab that stops answering pings is dropped
// after pongTimeout.
const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = pongTimeout * 9 / 10

	// Dashboard clients send nothing but control frames
	readLimit = 4 * 1024

	sendBuffer = 256
)

// Client is one dashboard socket subscribed to a hub. The connection is
// read only to notice pongs and disconnects.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient subscribes conn to hub. The initial messages, typically a
// state snapshot or recent history, are queued ahead of any broadcast.
// If the hub has already stopped the client starts out closed.
func NewClient(hub *Hub, conn *websocket.Conn, initial ...Message) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer+len(initial)),
	}
	for _, msg := range initial {
		c.send <- msg
	}
	select {
	case hub.register <- c:
	case <-hub.done:
		close(c.send)
	}
	return c
}

// Run serves the connection from the websocket handler and returns once
// the peer is gone.
func (c *Client) Run() {
	go c.deliver()
	c.listen()
}

func (c *Client) listen() {
	defer c.leave()

	c.conn.SetReadLimit(readLimit)
	c.extendDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendDeadline()
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("client dropped", "error", err)
			}
			return
		}
	}
}

func (c *Client) extendDeadline() {
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
}

// leave unsubscribes unless the hub is already shutting everyone down
func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
	c.conn.Close()
}

// deliver is the only writer on the connection. It ends when the hub
// closes the send queue or a write fails.
func (c *Client) deliver() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, nil)
				return
			}
			if err := c.write(msg.frameType(), msg.Data); err != nil {
				return
			}
		case <-ping.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(frame int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(frame, data)
}
