// Package ws carries the realtime wire: one websocket session per connected
// player, deltas out every tick, commands in between ticks.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/hotschmoe/voidlanes/internal/protocol"
)

// session is one live connection's outbound side. The writer goroutine owns
// the socket; everything else talks through out.
type session struct {
	playerID string
	out      chan []byte
	closed   chan struct{}
	once     sync.Once
}

// shutdown makes close idempotent between reader, writer, and hub.
func (sess *session) shutdown() {
	sess.once.Do(func() { close(sess.closed) })
}

// send queues a frame without ever blocking the caller. A full queue means
// the consumer has fallen a whole buffer behind; the session is cut and the
// client resyncs on reconnect.
func (sess *session) send(frame []byte) bool {
	select {
	case <-sess.closed:
		return false
	case sess.out <- frame:
		return true
	default:
		slog.Warn("slow consumer, dropping session", "player", sess.playerID)
		sess.shutdown()
		return false
	}
}

// Hub tracks live sessions and fans tick deltas out to them. It is the
// engine's Broadcaster.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session // player id → live session
}

// NewHub creates an empty session table.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*session)}
}

// attach registers a session, replacing (and cutting) any previous
// connection for the same player.
func (h *Hub) attach(sess *session) {
	h.mu.Lock()
	prev := h.sessions[sess.playerID]
	h.sessions[sess.playerID] = sess
	h.mu.Unlock()
	if prev != nil {
		prev.shutdown()
	}
}

// detach removes a session if it is still the registered one.
func (h *Hub) detach(sess *session) {
	h.mu.Lock()
	if h.sessions[sess.playerID] == sess {
		delete(h.sessions, sess.playerID)
	}
	h.mu.Unlock()
	sess.shutdown()
}

// Connected returns the number of live sessions.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// BroadcastDeltas delivers each player's delta to their session, if any.
// Runs on the tick goroutine and never blocks on a socket.
func (h *Hub) BroadcastDeltas(tick uint64, deltas map[string]*protocol.DeltaMsg) {
	if len(deltas) == 0 {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for playerID, delta := range deltas {
		sess, ok := h.sessions[playerID]
		if !ok {
			continue
		}
		frame, err := json.Marshal(delta)
		if err != nil {
			slog.Error("marshal delta", "player", playerID, "tick", tick, "err", err)
			continue
		}
		sess.send(frame)
	}
}
