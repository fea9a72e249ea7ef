// Command voidbot is a minimal machine agent: it connects, installs a
// harvest-and-run standing-orders table, and logs what the server streams
// back. Useful for soak-testing a server and as a protocol reference.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"github.com/hotschmoe/voidlanes/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/ws", "server websocket url")
		name     = flag.String("name", "voidbot", "player name for fresh registration")
		playerID = flag.String("player", "", "existing player id (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[voidbot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:       protocol.TypeHello,
		PlayerID:   *playerID,
		PlayerName: *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send hello: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		conn.Close()
	}()

	var seq uint64
	rulesInstalled := false

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("connection closed: %v", err)
			return
		}
		var base protocol.Base
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("welcome player=%s tick=%d homeworld=(%d,%d)",
				w.PlayerID, w.Tick, w.Homeworld.Q, w.Homeworld.R)

		case protocol.TypeSnapshot:
			var snap protocol.SnapshotMsg
			if err := json.Unmarshal(msg, &snap); err != nil {
				continue
			}
			logger.Printf("snapshot tick=%d fleets=%d sectors=%d",
				snap.Tick, len(snap.Fleets), len(snap.Sectors))

			// Put every fleet on autopilot: fight back when cornered, top
			// off cargo, haul it home, then wander.
			if !rulesInstalled {
				for _, f := range snap.Fleets {
					seq++
					cmd := protocol.CommandMsg{
						Type:    protocol.TypeCommand,
						Seq:     seq,
						Name:    protocol.CmdPolicyUpdate,
						FleetID: f.ID,
						Rules: []protocol.RuleSpec{
							{Condition: "in_combat && fleet_shield_pct < 0.3", Action: "recall"},
							{Condition: "hostile_in_sector && !in_combat", Action: "attack_nearest"},
							{Condition: "cargo_pct >= 0.9", Action: "return_home"},
							{Condition: "sector_has_resources && cargo_pct < 0.9 && is_idle", Action: "harvest"},
							{Condition: "is_idle && fuel_pct > 0.5", Action: "explore"},
						},
					}
					if err := conn.WriteJSON(cmd); err != nil {
						logger.Fatalf("send rules: %v", err)
					}
				}
				rulesInstalled = true
				logger.Printf("standing orders installed on %d fleets", len(snap.Fleets))
			}

		case protocol.TypeDelta:
			var delta protocol.DeltaMsg
			if err := json.Unmarshal(msg, &delta); err != nil {
				continue
			}
			for _, ev := range delta.Events {
				logger.Printf("tick=%d event=%s fleet=%d code=%s %s",
					delta.Tick, ev.Type, ev.FleetID, ev.Code, ev.Message)
			}

		case protocol.TypeReject:
			var rej protocol.RejectMsg
			if err := json.Unmarshal(msg, &rej); err != nil {
				continue
			}
			logger.Printf("rejected seq=%d code=%s %s", rej.Seq, rej.Code, rej.Message)
		}
	}
}
