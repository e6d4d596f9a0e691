// Package notify forwards marker events to an external websocket server as
// MARKER:<kind>:<label>:<x>:<y> text lines.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-artable/internal/log"
	"github.com/teslashibe/go-artable/pkg/events"
)

const (
	// queueSize bounds the lines waiting to be sent
	queueSize = 256

	// writeWait is how long to wait for a write to complete
	writeWait = 5 * time.Second

	// redialDelay is the minimum gap between connection attempts
	redialDelay = 2 * time.Second
)

// Notifier sends event lines over one websocket connection, dialing
// lazily and redialing after failures. Lines that cannot be delivered
// are dropped.
type Notifier struct {
	url    string
	dialer websocket.Dialer
	queue  chan string
	log    *slog.Logger

	conn     *websocket.Conn
	lastDial time.Time

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// New creates a notifier for the server at url, e.g. ws://localhost:5500
func New(url string) *Notifier {
	return &Notifier{
		url: url,
		dialer: websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
		},
		queue: make(chan string, queueSize),
		log:   log.Component("notify").With("url", url),
	}
}

// Publish queues e for delivery. It never blocks; when the queue is full
// the event is dropped.
func (n *Notifier) Publish(e events.Event) {
	n.Send(e.Line())
}

// Send queues a raw line
func (n *Notifier) Send(line string) {
	select {
	case n.queue <- line:
	default:
		n.dropped.Add(1)
		n.log.Warn("queue full, dropping", "line", line)
	}
}

// Run delivers queued lines until ctx is cancelled
func (n *Notifier) Run(ctx context.Context) error {
	defer n.disconnect()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-n.queue:
			if err := n.deliver(ctx, line); err != nil {
				n.dropped.Add(1)
				n.log.Warn("failed to send", "line", line, "error", err)
				continue
			}
			n.sent.Add(1)
			n.log.Debug("sent", "line", line)
		}
	}
}

// Sent returns the number of delivered lines
func (n *Notifier) Sent() uint64 { return n.sent.Load() }

// Dropped returns the number of lines that were not delivered
func (n *Notifier) Dropped() uint64 { return n.dropped.Load() }

func (n *Notifier) deliver(ctx context.Context, line string) error {
	if n.conn == nil {
		if err := n.connect(ctx); err != nil {
			return err
		}
	}
	n.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := n.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		n.disconnect()
		return err
	}
	return nil
}

func (n *Notifier) connect(ctx context.Context) error {
	if wait := redialDelay - time.Since(n.lastDial); wait > 0 {
		return fmt.Errorf("notify: redial in %v", wait.Round(time.Millisecond))
	}
	n.lastDial = time.Now()

	conn, _, err := n.dialer.DialContext(ctx, n.url, nil)
	if err != nil {
		return fmt.Errorf("notify: dial: %w", err)
	}
	n.conn = conn
	n.log.Info("connected")

	// Drain anything the server sends so control frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

func (n *Notifier) disconnect() {
	if n.conn == nil {
		return
	}
	n.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	n.conn.Close()
	n.conn = nil
}
