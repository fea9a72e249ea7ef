package engine

import (
	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/player"
	"github.com/hotschmoe/voidlanes/internal/protocol"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// fleetView converts a fleet to its wire form.
func fleetView(f *fleet.Fleet) protocol.FleetView {
	v := protocol.FleetView{
		ID:       f.ID,
		Owner:    f.Owner,
		Location: protocol.HexRef{Q: f.Location.Q, R: f.Location.R},
		State:    f.State.String(),
		Fuel:     f.Fuel,
		FuelMax:  f.FuelMax,
		Cargo:    make(map[string]float64, universe.NumResources),
	}
	for res := 0; res < universe.NumResources; res++ {
		if f.Cargo[res] > 0 {
			v.Cargo[universe.Resource(res).String()] = f.Cargo[res]
		}
	}
	for _, s := range f.Ships {
		if !s.Alive() {
			continue
		}
		v.Ships = append(v.Ships, protocol.ShipView{
			ID:     s.ID,
			Class:  s.Class.String(),
			Hull:   s.Hull,
			Shield: s.Shield,
		})
	}
	for _, r := range f.Rules {
		v.Rules = append(v.Rules, protocol.RuleSpec{Condition: r.Condition, Action: r.Action})
	}
	return v
}

// sectorView converts a sector to the wire form one viewer is allowed to
// see.
func (s *Simulation) sectorView(sec *universe.Sector, viewer string) protocol.SectorView {
	v := protocol.SectorView{
		Coord:   protocol.HexRef{Q: sec.Coord.Q, R: sec.Coord.R},
		Terrain: universe.TerrainName(sec.Terrain),
		Zone:    sec.Coord.Zone().String(),
	}
	if sec.Terrain.BearsResources() {
		v.Densities = make(map[string]string, universe.NumResources)
		for res := 0; res < universe.NumResources; res++ {
			v.Densities[universe.Resource(res).String()] = sec.Densities[res].String()
		}
	}
	for i, open := range sec.OpenEdges {
		if open {
			v.OpenEdges = append(v.OpenEdges, universe.Direction(i).String())
		}
	}
	if sec.NPCFleetID != 0 {
		v.Hostiles = true
	} else {
		for _, f := range s.Fleets.At(sec.Coord) {
			if f.Owner != viewer && f.ShipCount() > 0 {
				v.Hostiles = true
				break
			}
		}
	}
	return v
}

func buildJobView(job player.BuildJob) protocol.BuildJobView {
	v := protocol.BuildJobView{
		ID:       job.ID,
		Kind:     job.Kind,
		DoneTick: job.DoneTick,
	}
	switch job.Kind {
	case player.BuildMine:
		v.Detail = universe.Resource(job.Resource).String()
	case player.BuildShip:
		v.Detail = job.Class
	}
	return v
}

func homeworldView(p *player.Player) protocol.HomeworldView {
	v := protocol.HomeworldView{
		Coord:         protocol.HexRef{Q: p.Homeworld.Q, R: p.Homeworld.R},
		Stocks:        make(map[string]float64, universe.NumResources),
		MineLevels:    make(map[string]int, universe.NumResources),
		ResearchLevel: p.ResearchLevel,
	}
	for res := 0; res < universe.NumResources; res++ {
		name := universe.Resource(res).String()
		v.Stocks[name] = p.Stocks[res]
		v.MineLevels[name] = p.MineLevels[res]
	}
	for _, job := range p.BuildQueue {
		v.BuildQueue = append(v.BuildQueue, buildJobView(job))
	}
	return v
}

// buildDeltas assembles the per-player changed-fields-only payloads for the
// tick that just ran.
func (s *Simulation) buildDeltas() map[string]*protocol.DeltaMsg {
	tick := s.tick.Load()
	deltas := make(map[string]*protocol.DeltaMsg)
	get := func(playerID string) *protocol.DeltaMsg {
		d, ok := deltas[playerID]
		if !ok {
			d = &protocol.DeltaMsg{Type: protocol.TypeDelta, Tick: tick}
			deltas[playerID] = d
		}
		return d
	}

	// Changed fleets go to their owners.
	for id := range s.changedFleets {
		f := s.Fleets.Get(id)
		if f == nil || f.IsNPC() {
			continue
		}
		get(f.Owner).Fleets = append(get(f.Owner).Fleets, fleetView(f))
	}
	for owner, ids := range s.removedFleets {
		get(owner).Removed = append(get(owner).Removed, ids...)
	}

	// Changed sectors go to every player that has discovered them.
	for coord := range s.changedSectors {
		sec := s.Store.Peek(coord)
		if sec == nil {
			continue
		}
		for playerID := range sec.DiscoveredBy {
			get(playerID).Sectors = append(get(playerID).Sectors, s.sectorView(sec, playerID))
		}
	}

	// Homeworld state for players whose records changed.
	for playerID := range s.changedPlayers {
		if p := s.Players.Get(playerID); p != nil {
			hv := homeworldView(p)
			get(playerID).Homeworld = &hv
		}
	}

	// Ordered events, fanned out by audience.
	for _, te := range s.events {
		if te.audience != "" {
			get(te.audience).Events = append(get(te.audience).Events, te.ev)
			continue
		}
		for _, p := range s.Players.All() {
			get(p.ID).Events = append(get(p.ID).Events, te.ev)
		}
	}

	return deltas
}

// BuildSnapshot assembles the full-state payload for one player, sent on
// connect and on explicit resync. Safe to call between steps.
func (s *Simulation) BuildSnapshot(playerID string) *protocol.SnapshotMsg {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.Players.Get(playerID)
	if p == nil {
		return nil
	}
	snap := &protocol.SnapshotMsg{
		Type:      protocol.TypeSnapshot,
		Tick:      s.tick.Load(),
		Homeworld: homeworldView(p),
	}
	for _, f := range s.Fleets.ByOwner(playerID) {
		snap.Fleets = append(snap.Fleets, fleetView(f))
	}
	for _, sec := range s.Store.ModifiedSectors() {
		if sec.Discovered(playerID) {
			snap.Sectors = append(snap.Sectors, s.sectorView(sec, playerID))
		}
	}
	return snap
}
