// Package client implements the viewer-side connection engine: it opens the
// sync WebSocket, detects loss, and retries with bounded exponential backoff.
// State resynchronization after a reconnect relies entirely on the server's
// join-time snapshot; nothing is queued or replayed.
package client

import (
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/linomassaro/SyncStream/pkg/protocol"
	"go.uber.org/zap"
)

// Status is the connection state surfaced to the presentation layer.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 10 * time.Second
)

// Options configures a Client.
type Options struct {
	// URL is the sync endpoint, e.g. ws://host:8090/ws. SessionID and
	// ViewerID are appended as query parameters.
	URL       string
	SessionID string
	ViewerID  string

	Dialer     *websocket.Dialer
	MaxRetries int           // automatic retries before the error state; default 5
	BaseDelay  time.Duration // first retry delay; default 1s
	MaxDelay   time.Duration // delay cap; default 10s

	// OnMessage is called for every inbound envelope. OnStatus is called on
	// every state transition. Neither callback may call back into the Client.
	OnMessage func(protocol.Envelope)
	OnStatus  func(Status)

	Logger *zap.Logger
}

// Client is the reconnection state machine:
// connecting -> connected -> disconnected -> (connecting | error).
// The error state is terminal until Connect is called again.
type Client struct {
	opts Options

	mu         sync.Mutex
	status     Status
	conn       *websocket.Conn
	retries    int
	retryTimer *time.Timer
	stopped    bool
	gen        int // dial generation; stale goroutine events are ignored
}

// New creates a client. It does not connect until Connect is called.
func New(opts Options) *Client {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay == 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{opts: opts, status: StatusDisconnected}
}

// Connect starts (or restarts) the connection attempt, resetting the retry
// counter. It is the only way out of the error state.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusConnecting || c.status == StatusConnected {
		return
	}
	c.stopped = false
	c.retries = 0
	c.setStatus(StatusConnecting)
	c.gen++
	go c.dial(c.gen)
}

// Disconnect closes the connection, cancels any pending retry, and forces
// the disconnected state without scheduling further attempts.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.gen++
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.setStatus(StatusDisconnected)
}

// Send writes an envelope to the server. Sends while not connected are
// silently dropped; the next snapshot resyncs state.
func (c *Client) Send(env protocol.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusConnected || c.conn == nil {
		return
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		c.opts.Logger.Debug("send failed", zap.Error(err))
	}
}

// Status returns the current connection state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) dial(gen int) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen || c.stopped {
			return
		}
		c.setStatus(StatusError)
		return
	}
	q := u.Query()
	q.Set("sessionId", c.opts.SessionID)
	q.Set("viewerId", c.opts.ViewerID)
	u.RawQuery = q.Encode()

	conn, resp, err := c.opts.Dialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.stopped {
		if err == nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.opts.Logger.Debug("dial failed", zap.Error(err))
		c.onLoss()
		return
	}
	c.conn = conn
	c.retries = 0
	c.setStatus(StatusConnected)
	go c.readLoop(conn, gen)
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.opts.Logger.Warn("malformed server message", zap.Error(err))
			continue
		}
		if cb := c.opts.OnMessage; cb != nil {
			cb(env)
		}
	}
	_ = conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.stopped {
		return
	}
	c.conn = nil
	c.onLoss()
}

// onLoss runs the disconnected-state logic. Caller holds c.mu.
func (c *Client) onLoss() {
	c.setStatus(StatusDisconnected)
	if c.retries >= c.opts.MaxRetries {
		c.setStatus(StatusError)
		return
	}
	delay := retryDelay(c.retries, c.opts.BaseDelay, c.opts.MaxDelay)
	c.retries++
	c.retryTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.stopped || c.status != StatusDisconnected {
			return
		}
		c.setStatus(StatusConnecting)
		c.gen++
		go c.dial(c.gen)
	})
}

// setStatus records a transition and fires OnStatus. Caller holds c.mu.
func (c *Client) setStatus(st Status) {
	if c.status == st {
		return
	}
	c.status = st
	if cb := c.opts.OnStatus; cb != nil {
		cb(st)
	}
}

// retryDelay returns min(base * 2^attempt, max).
func retryDelay(attempt int, base, max time.Duration) time.Duration {
	d := base << uint(attempt)
	if d <= 0 || d > max {
		return max
	}
	return d
}
