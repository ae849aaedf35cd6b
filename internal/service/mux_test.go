package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMux() *Multiplexer {
	return NewMultiplexer(zap.NewNop())
}

func drain(c *Conn) [][]byte {
	var out [][]byte
	for {
		select {
		case raw := <-c.Outbox():
			out = append(out, raw)
		default:
			return out
		}
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	m := testMux()
	a := m.Register("c1", nil, "s", "va")
	b := m.Register("c2", nil, "s", "vb")
	c := m.Register("c3", nil, "s", "vc")

	m.Broadcast("s", []byte("hello"), "va")

	assert.Empty(t, drain(a))
	require.Len(t, drain(b), 1)
	require.Len(t, drain(c), 1)
}

func TestBroadcastScopedToSession(t *testing.T) {
	m := testMux()
	a := m.Register("c1", nil, "s1", "va")
	b := m.Register("c2", nil, "s2", "vb")

	m.Broadcast("s1", []byte("hello"), "")

	require.Len(t, drain(a), 1)
	assert.Empty(t, drain(b))
}

func TestBroadcastSkipsUnregistered(t *testing.T) {
	m := testMux()
	a := m.Register("c1", nil, "s", "va")
	b := m.Register("c2", nil, "s", "vb")
	m.Unregister("c2")

	m.Broadcast("s", []byte("hello"), "")

	require.Len(t, drain(a), 1)
	assert.Empty(t, drain(b))
	assert.False(t, b.Open())
}

func TestCountOpenCountsConnectionsNotViewers(t *testing.T) {
	m := testMux()
	m.Register("c1", nil, "s", "v1")
	m.Register("c2", nil, "s", "v1") // same viewer id, second connection
	m.Register("c3", nil, "s", "v2")
	m.Register("c4", nil, "other", "v9")

	assert.Equal(t, 3, m.CountOpen("s"))
	assert.Equal(t, 1, m.CountOpen("other"))
	assert.Equal(t, 0, m.CountOpen("unknown"))

	m.Unregister("c1")
	assert.Equal(t, 2, m.CountOpen("s"))
}

func TestUnregisterIdempotent(t *testing.T) {
	m := testMux()
	m.Register("c1", nil, "s", "v1")
	m.Unregister("c1")
	m.Unregister("c1")
	m.Unregister("never-existed")
	assert.Equal(t, 0, m.CountOpen("s"))
}

func TestRegisterDuplicateConnIDDisplaces(t *testing.T) {
	m := testMux()
	old := m.Register("c1", nil, "s", "v1")
	m.Register("c1", nil, "s", "v1")
	assert.False(t, old.Open())
	assert.Equal(t, 1, m.CountOpen("s"))
}

func TestSendToFullBufferDoesNotBlock(t *testing.T) {
	m := testMux()
	c := m.Register("c1", nil, "s", "v1")
	for i := 0; i < sendBufferSize+10; i++ {
		m.Broadcast("s", []byte("x"), "")
	}
	// Overflow is dropped, not queued or blocked on.
	assert.Len(t, drain(c), sendBufferSize)
}

func TestViewerIDsOpen(t *testing.T) {
	m := testMux()
	m.Register("c1", nil, "s", "v1")
	m.Register("c2", nil, "s", "v2")
	ids := m.ViewerIDsOpen("s")
	assert.ElementsMatch(t, []string{"v1", "v2"}, ids)
}
