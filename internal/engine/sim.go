// Package engine orchestrates the authoritative simulation: the fixed
// heartbeat, the ordered per-tick step, command intake, and the per-player
// delta computation handed to the broadcast layer.
package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hotschmoe/voidlanes/internal/combat"
	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/player"
	"github.com/hotschmoe/voidlanes/internal/protocol"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// Broadcaster receives the finished per-player deltas at the end of every
// step. Implementations must not block the tick path.
type Broadcaster interface {
	BroadcastDeltas(tick uint64, deltas map[string]*protocol.DeltaMsg)
}

// Persister receives dirty records for batched, asynchronous storage.
// Implementations must copy or serialize synchronously and write later.
type Persister interface {
	EnqueueBatch(tick uint64, players []*player.Player, fleets map[uint64]*fleet.Fleet, sectors []*universe.Sector)
}

// Command is one queued player command awaiting the next step boundary.
type Command struct {
	PlayerID string
	Msg      protocol.CommandMsg
}

// Simulation is the single owned simulation context. All world truth hangs
// off it, and it is mutated exclusively by the serialized tick step.
type Simulation struct {
	Store   *universe.Store
	Fleets  *fleet.Registry
	Players *player.Registry
	Combat  *combat.Manager

	rng *rand.Rand

	// StartingFleet composition granted on registration.
	StartingFleet []fleet.ShipClass

	// BuildTicks is the queue delay applied to homeworld jobs.
	BuildTicks uint64

	tick atomic.Uint64

	// mu serializes the step against out-of-band state reads such as
	// snapshot builds and registration.
	mu sync.Mutex

	// Command intake: network handlers stage commands here; the step drains
	// them at its first stage. This mutex is the only lock shared with the
	// outside.
	cmdMu   sync.Mutex
	pending []Command

	// Per-tick scratch state, reset at every step boundary.
	events         []targetedEvent
	commanded      map[uint64]bool // fleets that had an explicit command this tick
	changedFleets  map[uint64]bool
	removedFleets  map[string][]uint64 // owner → dissolved fleet ids
	changedSectors map[universe.HexCoord]bool
	changedPlayers map[string]bool

	broadcaster Broadcaster
	persister   Persister
}

// targetedEvent is an event addressed to one player's delta. Empty audience
// broadcasts to every connected player.
type targetedEvent struct {
	audience string
	ev       protocol.Event
}

// NewSimulation assembles a simulation context over its registries. The
// rand source seeds all stochastic resolution (combat, NPC patrol).
func NewSimulation(store *universe.Store, fleets *fleet.Registry, players *player.Registry, rng *rand.Rand) *Simulation {
	s := &Simulation{
		Store:   store,
		Fleets:  fleets,
		Players: players,
		Combat:  combat.NewManager(fleets, rng),
		rng:     rng,
		StartingFleet: []fleet.ShipClass{
			fleet.ClassScout, fleet.ClassFighter, fleet.ClassHarvester,
		},
		BuildTicks: 30,
	}
	// Registration and connects mark changes before the first step runs, so
	// the scratch maps must exist from the start.
	s.resetScratch()
	return s
}

// Tick returns the most recently completed tick number. Safe to call from
// any goroutine.
func (s *Simulation) Tick() uint64 {
	return s.tick.Load()
}

// SetTick restores the tick counter during boot.
func (s *Simulation) SetTick(t uint64) {
	s.tick.Store(t)
}

// SetBroadcaster wires the delta consumer. Call before the engine starts.
func (s *Simulation) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetPersister wires the dirty-record sink. Call before the engine starts.
func (s *Simulation) SetPersister(p Persister) {
	s.persister = p
}

// Enqueue stages a command for the next step boundary. Called from network
// goroutines; never blocks on the simulation.
func (s *Simulation) Enqueue(cmd Command) {
	s.cmdMu.Lock()
	s.pending = append(s.pending, cmd)
	s.cmdMu.Unlock()
}

// drainCommands takes the staged commands, applying last-one-wins per
// (player, fleet) key while preserving arrival order of the winners.
func (s *Simulation) drainCommands() []Command {
	s.cmdMu.Lock()
	staged := s.pending
	s.pending = nil
	s.cmdMu.Unlock()

	if len(staged) == 0 {
		return nil
	}

	type key struct {
		player string
		fleet  uint64
	}
	winner := make(map[key]int, len(staged))
	for i, cmd := range staged {
		winner[key{cmd.PlayerID, cmd.Msg.FleetID}] = i
	}
	out := staged[:0]
	for i, cmd := range staged {
		if winner[key{cmd.PlayerID, cmd.Msg.FleetID}] == i {
			out = append(out, cmd)
		}
	}
	return out
}

// ConnectPlayer resolves a session handshake: an existing player id, a
// returning name, or a fresh registration. Called from network goroutines.
func (s *Simulation) ConnectPlayer(playerID, name string) (*player.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playerID != "" {
		p := s.Players.Get(playerID)
		if p == nil {
			return nil, fmt.Errorf("unknown player id %q", playerID)
		}
		return p, nil
	}
	if name == "" {
		return nil, fmt.Errorf("hello carries neither player_id nor player_name")
	}
	if p := s.Players.GetByName(name); p != nil {
		return p, nil
	}
	return s.registerLocked(name), nil
}

// RegisterPlayer creates a player, places their homeworld, and grants the
// starting fleet. Homeworlds claim resource-free Inner Ring sectors,
// spiraling outward from the hub until a free one is found.
func (s *Simulation) RegisterPlayer(name string) *player.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerLocked(name)
}

func (s *Simulation) registerLocked(name string) *player.Player {
	coord := s.findHomeworld()
	p := s.Players.Create(name, coord)

	ships := make([]*fleet.Ship, 0, len(s.StartingFleet))
	for _, class := range s.StartingFleet {
		ships = append(ships, fleet.NewShip(s.Fleets.NextShipID(), class))
	}
	f := s.Fleets.Create(p.ID, coord, ships)

	sec := s.Store.Get(coord)
	s.Store.Discover(sec, p.ID)
	s.markFleetChanged(f)
	s.markPlayerChanged(p.ID)
	return p
}

// findHomeworld walks rings outward looking for an unclaimed, traversable,
// hostile-free sector.
func (s *Simulation) findHomeworld() universe.HexCoord {
	claimed := make(map[universe.HexCoord]bool)
	for _, p := range s.Players.All() {
		claimed[p.Homeworld] = true
	}

	for radius := 2; radius <= 8; radius++ {
		ring := ringCoords(radius)
		offset := s.rng.Intn(len(ring))
		for i := range ring {
			coord := ring[(offset+i)%len(ring)]
			if claimed[coord] {
				continue
			}
			sec := s.Store.Get(coord)
			if sec.NPCSpawn != nil || sec.NPCFleetID != 0 {
				continue
			}
			if sec.OpenEdgeCount() == 0 {
				continue
			}
			return coord
		}
	}
	// Dense universe fallback: stack on the hub ring.
	return universe.HexCoord{Q: 1, R: 0}
}

// ringCoords enumerates the hex ring at the given radius.
func ringCoords(radius int) []universe.HexCoord {
	if radius <= 0 {
		return []universe.HexCoord{universe.Hub}
	}
	out := make([]universe.HexCoord, 0, 6*radius)
	// Start at the "west" corner and walk the six ring sides.
	c := universe.HexCoord{Q: -radius, R: radius}
	for side := 0; side < 6; side++ {
		for step := 0; step < radius; step++ {
			out = append(out, c)
			c = c.Neighbor(universe.Direction(side))
		}
	}
	return out
}

// Stats is a point-in-time summary for status endpoints and logs.
type Stats struct {
	Tick          uint64 `json:"tick"`
	Players       int    `json:"players"`
	Fleets        int    `json:"fleets"`
	Engagements   int    `json:"engagements"`
	SectorsCached int    `json:"sectors_cached"`
}

// SimStats reads a consistent summary. Safe from any goroutine.
func (s *Simulation) SimStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Tick:          s.tick.Load(),
		Players:       s.Players.Count(),
		Fleets:        s.Fleets.Count(),
		Engagements:   len(s.Combat.Active()),
		SectorsCached: s.Store.CachedCount(),
	}
}

// ── Per-tick bookkeeping helpers ─────────────────────────────────────────

func (s *Simulation) resetScratch() {
	s.events = s.events[:0]
	s.commanded = make(map[uint64]bool)
	s.changedFleets = make(map[uint64]bool)
	s.removedFleets = make(map[string][]uint64)
	s.changedSectors = make(map[universe.HexCoord]bool)
	s.changedPlayers = make(map[string]bool)
}

func (s *Simulation) emit(audience string, ev protocol.Event) {
	ev.Tick = s.tick.Load()
	s.events = append(s.events, targetedEvent{audience: audience, ev: ev})
}

func (s *Simulation) emitError(playerID string, code, msg string, fleetID uint64) {
	s.emit(playerID, protocol.Event{
		Type:    protocol.EvError,
		FleetID: fleetID,
		Code:    code,
		Message: msg,
	})
}

func (s *Simulation) markFleetChanged(f *fleet.Fleet) {
	s.changedFleets[f.ID] = true
	s.Fleets.MarkDirty(f.ID)
}

func (s *Simulation) markFleetRemoved(owner string, id uint64) {
	s.removedFleets[owner] = append(s.removedFleets[owner], id)
	delete(s.changedFleets, id)
}

func (s *Simulation) markSectorChanged(coord universe.HexCoord) {
	s.changedSectors[coord] = true
}

func (s *Simulation) markPlayerChanged(id string) {
	s.changedPlayers[id] = true
	s.Players.MarkDirty(id)
}

func (s *Simulation) now() time.Time {
	return time.Now()
}
