package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotschmoe/voidlanes/internal/protocol"
)

func newTestSession(playerID string, backlog int) *session {
	return &session{
		playerID: playerID,
		out:      make(chan []byte, backlog),
		closed:   make(chan struct{}),
	}
}

func TestAttachDetach(t *testing.T) {
	h := NewHub()
	sess := newTestSession("alice", 4)

	h.attach(sess)
	assert.Equal(t, 1, h.Connected())

	h.detach(sess)
	assert.Zero(t, h.Connected())
	select {
	case <-sess.closed:
	default:
		t.Fatal("detach must shut the session down")
	}

	// Detaching twice is harmless.
	h.detach(sess)
}

func TestReconnectCutsPreviousSession(t *testing.T) {
	h := NewHub()
	old := newTestSession("alice", 4)
	h.attach(old)

	replacement := newTestSession("alice", 4)
	h.attach(replacement)

	assert.Equal(t, 1, h.Connected())
	select {
	case <-old.closed:
	default:
		t.Fatal("stale session must be cut on reconnect")
	}

	// Detaching the stale session must not evict the replacement.
	h.detach(old)
	assert.Equal(t, 1, h.Connected())
}

func TestBroadcastDeltasRouting(t *testing.T) {
	h := NewHub()
	alice := newTestSession("alice", 4)
	h.attach(alice)

	deltas := map[string]*protocol.DeltaMsg{
		"alice": {Type: protocol.TypeDelta, Tick: 9},
		"bob":   {Type: protocol.TypeDelta, Tick: 9}, // not connected
	}
	h.BroadcastDeltas(9, deltas)

	select {
	case frame := <-alice.out:
		var msg protocol.DeltaMsg
		require.NoError(t, json.Unmarshal(frame, &msg))
		assert.Equal(t, uint64(9), msg.Tick)
	default:
		t.Fatal("connected player received no delta")
	}
	assert.Empty(t, alice.out)
}

func TestSlowConsumerIsDropped(t *testing.T) {
	h := NewHub()
	slow := newTestSession("alice", 1)
	h.attach(slow)

	delta := map[string]*protocol.DeltaMsg{"alice": {Type: protocol.TypeDelta, Tick: 1}}
	h.BroadcastDeltas(1, delta)  // fills the buffer
	h.BroadcastDeltas(2, delta)  // overflows: session cut

	select {
	case <-slow.closed:
	default:
		t.Fatal("overflowing session must be cut, not blocked on")
	}
	assert.False(t, slow.send([]byte("x")), "a cut session accepts nothing")
}
