package service

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/linomassaro/SyncStream/internal/metrics"
	"go.uber.org/zap"
)

const sendBufferSize = 256

// Conn is the ephemeral association of one transport with a (session, viewer)
// pair. Outbound payloads go through a buffered channel drained by the
// handler's write pump; the multiplexer never writes to the socket directly.
type Conn struct {
	ID        string
	SessionID string
	ViewerID  string

	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Outbox returns the channel the write pump drains.
func (c *Conn) Outbox() <-chan []byte { return c.send }

// Done is closed when the connection is unregistered.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Open reports whether the connection is still registered.
func (c *Conn) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Multiplexer owns the live set of transport connections and is the only
// component that fans messages out to them. It never touches the session
// store or viewer registry.
type Multiplexer struct {
	mu        sync.RWMutex
	conns     map[string]*Conn
	bySession map[string]map[*Conn]struct{}
	log       *zap.Logger
}

// NewMultiplexer creates an empty multiplexer.
func NewMultiplexer(log *zap.Logger) *Multiplexer {
	return &Multiplexer{
		conns:     make(map[string]*Conn),
		bySession: make(map[string]map[*Conn]struct{}),
		log:       log,
	}
}

// Register inserts a connection mapping. At most one entry exists per
// connID; a duplicate id displaces the previous registration.
func (m *Multiplexer) Register(connID string, ws *websocket.Conn, sessionID, viewerID string) *Conn {
	c := &Conn{
		ID:        connID,
		SessionID: sessionID,
		ViewerID:  viewerID,
		ws:        ws,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
	}
	m.mu.Lock()
	if old, ok := m.conns[connID]; ok {
		m.removeLocked(old)
	}
	m.conns[connID] = c
	if m.bySession[sessionID] == nil {
		m.bySession[sessionID] = make(map[*Conn]struct{})
	}
	m.bySession[sessionID][c] = struct{}{}
	m.mu.Unlock()

	metrics.OpenConnections.Inc()
	m.log.Info("connection registered",
		zap.String("conn_id", connID),
		zap.String("session_id", sessionID),
		zap.String("viewer_id", viewerID))
	return c
}

// Unregister removes a connection mapping. Idempotent.
func (m *Multiplexer) Unregister(connID string) {
	m.mu.Lock()
	c, ok := m.conns[connID]
	if ok {
		m.removeLocked(c)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	metrics.OpenConnections.Dec()
	m.log.Info("connection unregistered",
		zap.String("conn_id", connID),
		zap.String("session_id", c.SessionID),
		zap.String("viewer_id", c.ViewerID))
}

func (m *Multiplexer) removeLocked(c *Conn) {
	delete(m.conns, c.ID)
	if set, ok := m.bySession[c.SessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(m.bySession, c.SessionID)
		}
	}
	close(c.done)
}

// Broadcast delivers payload to every open connection of the session except
// those registered for excludeViewerID. Delivery is fire-and-forget: a full
// buffer or closed peer is skipped, never retried, and never blocks the loop.
func (m *Multiplexer) Broadcast(sessionID string, payload []byte, excludeViewerID string) {
	m.mu.RLock()
	set := m.bySession[sessionID]
	targets := make([]*Conn, 0, len(set))
	for c := range set {
		if excludeViewerID != "" && c.ViewerID == excludeViewerID {
			continue
		}
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	metrics.Broadcasts.Inc()
	for _, c := range targets {
		m.Send(c, payload)
	}
}

// Send delivers payload to a single connection, non-blocking. Used for the
// join-time snapshot, which goes to the new connection only.
func (m *Multiplexer) Send(c *Conn, payload []byte) {
	if !c.Open() {
		return
	}
	select {
	case c.send <- payload:
	default:
		m.log.Warn("send buffer full, dropping message",
			zap.String("conn_id", c.ID),
			zap.String("viewer_id", c.ViewerID))
	}
}

// CountOpen returns the number of open connections registered for a session.
func (m *Multiplexer) CountOpen(sessionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySession[sessionID])
}

// ViewerIDsOpen returns the viewer ids of the session's open connections.
// This, not the registry, is the viewer-count signal exposed externally.
func (m *Multiplexer) ViewerIDsOpen(sessionID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.bySession[sessionID]))
	for c := range m.bySession[sessionID] {
		out = append(out, c.ViewerID)
	}
	return out
}
