package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hotschmoe/voidlanes/internal/engine"
	"github.com/hotschmoe/voidlanes/internal/protocol"
)

const (
	writeWait  = 5 * time.Second
	readWait   = 120 * time.Second
	helloWait  = 5 * time.Second
	outBacklog = 64
)

// Server upgrades connections and runs the session protocol: hello →
// welcome + snapshot, then commands in and deltas out.
type Server struct {
	sim *engine.Simulation
	hub *Hub

	tickInterval time.Duration
	upgrader     websocket.Upgrader
}

// NewServer wires the websocket front onto a simulation.
func NewServer(sim *engine.Simulation, hub *Hub, tickInterval time.Duration) *Server {
	return &Server{
		sim:          sim,
		hub:          hub,
		tickInterval: tickInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the upgrade endpoint.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		s.hub.attach(sess)
		defer s.hub.detach(sess)

		go s.writePump(conn, sess)
		s.readPump(conn, sess)
	}
}

// handshake expects a hello as the first frame, resolves the player, and
// answers with welcome plus a full snapshot.
func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(helloWait))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil || hello.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected hello")
		return nil
	}

	p, err := s.sim.ConnectPlayer(hello.PlayerID, hello.PlayerName)
	if err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, err.Error())
		return nil
	}

	welcome := protocol.WelcomeMsg{
		Type:         protocol.TypeWelcome,
		PlayerID:     p.ID,
		PlayerName:   p.Name,
		SessionID:    uuid.NewString(),
		Tick:         s.sim.Tick(),
		TickInterval: s.tickInterval.String(),
		Homeworld:    protocol.HexRef{Q: p.Homeworld.Q, R: p.Homeworld.R},
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil
	}
	if snap := s.sim.BuildSnapshot(p.ID); snap != nil {
		if err := writeJSON(conn, snap); err != nil {
			return nil
		}
	}

	slog.Info("session opened", "player", p.ID, "name", p.Name)
	return &session{
		playerID: p.ID,
		out:      make(chan []byte, outBacklog),
		closed:   make(chan struct{}),
	}
}

func (s *Server) writePump(conn *websocket.Conn, sess *session) {
	for {
		select {
		case <-sess.closed:
			_ = conn.Close()
			return
		case frame := <-sess.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				sess.shutdown()
				return
			}
		}
	}
}

func (s *Server) readPump(conn *websocket.Conn, sess *session) {
	defer sess.shutdown()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var base protocol.Base
		if err := json.Unmarshal(msg, &base); err != nil {
			s.reject(sess, 0, protocol.ErrBadRequest, "malformed JSON")
			continue
		}

		switch base.Type {
		case protocol.TypeCommand:
			var cmd protocol.CommandMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				s.reject(sess, 0, protocol.ErrBadRequest, "malformed command")
				continue
			}
			if !knownCommand(cmd.Name) {
				s.reject(sess, cmd.Seq, protocol.ErrUnknownCmd, "unknown command "+cmd.Name)
				continue
			}
			s.sim.Enqueue(engine.Command{PlayerID: sess.playerID, Msg: cmd})

		case protocol.TypeResync:
			if snap := s.sim.BuildSnapshot(sess.playerID); snap != nil {
				if frame, err := json.Marshal(snap); err == nil {
					sess.send(frame)
				}
			}

		case protocol.TypeHello:
			// Already past the handshake; ignore.

		default:
			s.reject(sess, 0, protocol.ErrBadRequest, "unknown message type "+base.Type)
		}
	}
}

func (s *Server) reject(sess *session, seq uint64, code, msg string) {
	frame, err := json.Marshal(protocol.RejectMsg{
		Type:    protocol.TypeReject,
		Seq:     seq,
		Code:    code,
		Message: msg,
	})
	if err != nil {
		return
	}
	sess.send(frame)
}

func knownCommand(name string) bool {
	switch name {
	case protocol.CmdMove, protocol.CmdHarvest, protocol.CmdAttack, protocol.CmdMerge,
		protocol.CmdRecall, protocol.CmdPolicyUpdate, protocol.CmdBuild,
		protocol.CmdBuildShip, protocol.CmdResearch, protocol.CmdCancelBuild:
		return true
	}
	return false
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
