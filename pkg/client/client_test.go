package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/linomassaro/SyncStream/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryDelaySequence(t *testing.T) {
	base := time.Second
	max := 10 * time.Second
	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		10000 * time.Millisecond, // capped
	}
	for attempt, expected := range want {
		assert.Equal(t, expected, retryDelay(attempt, base, max), "attempt %d", attempt)
	}
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *statusRecorder) record(st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, st)
}

func (r *statusRecorder) all() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}

func (r *statusRecorder) count(st Status) int {
	n := 0
	for _, s := range r.all() {
		if s == st {
			n++
		}
	}
	return n
}

func TestFiveFailuresThenTerminalError(t *testing.T) {
	rec := &statusRecorder{}
	c := New(Options{
		URL:       "ws://127.0.0.1:1/ws", // nothing listens here
		SessionID: "abc",
		ViewerID:  "v1",
		BaseDelay: time.Millisecond,
		MaxDelay:  4 * time.Millisecond,
		OnStatus:  rec.record,
	})
	c.Connect()

	require.Eventually(t, func() bool {
		return c.Status() == StatusError
	}, 5*time.Second, 10*time.Millisecond)

	// Initial attempt plus exactly five automatic retries, then terminal.
	assert.Equal(t, 6, rec.count(StatusConnecting))
	assert.Equal(t, 6, rec.count(StatusDisconnected))
	assert.Equal(t, 1, rec.count(StatusError))

	// No further automatic retries out of the error state.
	before := rec.count(StatusConnecting)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, rec.count(StatusConnecting))
}

func TestConnectAfterErrorRetriesAgain(t *testing.T) {
	c := New(Options{
		URL:       "ws://127.0.0.1:1/ws",
		SessionID: "abc",
		ViewerID:  "v1",
		BaseDelay: time.Millisecond,
		MaxDelay:  2 * time.Millisecond,
	})
	c.Connect()
	require.Eventually(t, func() bool { return c.Status() == StatusError }, 5*time.Second, 10*time.Millisecond)

	// A manual reconnect leaves the terminal state.
	c.Connect()
	require.Eventually(t, func() bool { return c.Status() == StatusError }, 5*time.Second, 10*time.Millisecond)
}

func TestDisconnectStopsRetrying(t *testing.T) {
	rec := &statusRecorder{}
	c := New(Options{
		URL:       "ws://127.0.0.1:1/ws",
		SessionID: "abc",
		ViewerID:  "v1",
		BaseDelay: time.Hour, // a scheduled retry would never fire in this test
		OnStatus:  rec.record,
	})
	c.Connect()
	c.Disconnect()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Zero(t, rec.count(StatusError))
	assert.Zero(t, rec.count(StatusConnected))
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sessionId") == "" || r.URL.Query().Get("viewerId") == "" {
			http.Error(w, "missing identifiers", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		currentTime := 7.5
		playing := true
		raw, _ := json.Marshal(protocol.Envelope{
			Type:      protocol.TypeSync,
			SessionID: r.URL.Query().Get("sessionId"),
			Data:      &protocol.MessageData{CurrentTime: &currentTime, IsPlaying: &playing},
		})
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConnectReceivesSnapshot(t *testing.T) {
	srv := newEchoServer(t)

	var mu sync.Mutex
	var got []protocol.Envelope
	c := New(Options{
		URL:       "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		SessionID: "abc",
		ViewerID:  "v1",
		OnMessage: func(env protocol.Envelope) {
			mu.Lock()
			got = append(got, env)
			mu.Unlock()
		},
	})
	c.Connect()
	defer c.Disconnect()

	require.Eventually(t, func() bool { return c.Status() == StatusConnected }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, protocol.TypeSync, got[0].Type)
	assert.Equal(t, "abc", got[0].SessionID)
	assert.Equal(t, 7.5, *got[0].Data.CurrentTime)
}

func TestServerCloseTriggersReconnect(t *testing.T) {
	srv := newEchoServer(t)
	rec := &statusRecorder{}
	c := New(Options{
		URL:       "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		SessionID: "abc",
		ViewerID:  "v1",
		BaseDelay: time.Millisecond,
		MaxDelay:  4 * time.Millisecond,
		OnStatus:  rec.record,
	})
	c.Connect()
	defer c.Disconnect()

	require.Eventually(t, func() bool { return c.Status() == StatusConnected }, 5*time.Second, 10*time.Millisecond)

	// Drop every connection; the client should come back on its own.
	srv.CloseClientConnections()
	require.Eventually(t, func() bool {
		return rec.count(StatusConnected) >= 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSendWhileDisconnectedIsDropped(t *testing.T) {
	c := New(Options{URL: "ws://127.0.0.1:1/ws", SessionID: "abc", ViewerID: "v1"})
	// Must not panic or block; resync happens via the next snapshot.
	c.Send(protocol.Envelope{Type: protocol.TypePlay, SessionID: "abc"})
	assert.Equal(t, StatusDisconnected, c.Status())
}
