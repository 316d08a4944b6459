// Package stream implements the live push side of the console: a WebSocket
// client that parses each inbound message into an event and keeps the K
// most recent in a fixed-capacity buffer. The client itself never
// reconnects; retry is a caller-supplied policy (see DialWithRetry).
package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meridian-labs/lookout/internal/event"
	"github.com/meridian-labs/lookout/internal/logger"
)

// Options configures a stream client.
type Options struct {
	// BufferSize is the live buffer capacity; non-positive values use
	// DefaultBufferSize.
	BufferSize int

	// HandshakeTimeout bounds the WebSocket handshake.
	HandshakeTimeout time.Duration
}

// Client owns one live WebSocket connection to the backend's event feed.
// The receive loop is the only writer to the buffer; the view reads
// committed buffer state. A closed connection stays closed.
type Client struct {
	url       string
	conn      *websocket.Conn
	buffer    *Buffer
	log       *logger.Logger
	connected atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	updates   chan struct{}
}

// Dial connects to the stream endpoint and starts the receive loop.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	c := &Client{
		url:     url,
		conn:    conn,
		buffer:  NewBuffer(opts.BufferSize),
		log:     logger.WithField("component", "stream"),
		done:    make(chan struct{}),
		updates: make(chan struct{}, 1),
	}
	c.connected.Store(true)

	go c.readLoop()

	c.log.WithField("url", url).Info("Stream connected")
	return c, nil
}

// readLoop receives messages until the connection closes. Malformed
// payloads are dropped with a warning; the connection stays open.
func (c *Client) readLoop() {
	defer func() {
		c.connected.Store(false)
		close(c.done)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.WithError(err).Warn("Stream connection closed unexpectedly")
			} else {
				c.log.Debug("Stream connection closed")
			}
			return
		}

		ev, err := event.Parse(data)
		if err != nil {
			c.log.WithError(err).Warn("Dropping malformed stream message")
			continue
		}

		c.buffer.Append(ev)
		c.notify()
	}
}

// notify coalesces update signals; a slow reader sees at most one pending.
func (c *Client) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Connected reports whether the connection is still live. It flips to
// false on any close and never flips back.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Buffer exposes the live event buffer.
func (c *Client) Buffer() *Buffer {
	return c.buffer
}

// Events returns the buffered events in arrival order.
func (c *Client) Events() []event.Event {
	return c.buffer.Events()
}

// Updates signals when new events have been buffered. Signals are
// coalesced, not one-per-event.
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

// Done is closed once the receive loop has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close tears the connection down. It is idempotent and safe to call
// from view teardown regardless of connection state.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		err = c.conn.Close()
		c.log.Debug("Stream client closed")
	})
	return err
}
