package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hotschmoe/voidlanes/internal/combat"
	"github.com/hotschmoe/voidlanes/internal/economy"
	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/player"
	"github.com/hotschmoe/voidlanes/internal/protocol"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// RunStep advances the world by exactly one tick. The stage order is a
// contract: commands before policy before movement before combat before
// harvesting before production, for every entity, every tick.
//
// Per-entity failures are isolated and logged; a returned error means
// global bookkeeping is corrupt and the engine must halt.
func (s *Simulation) RunStep() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tick := s.tick.Add(1)
	s.resetScratch()

	// 1. Drain and apply queued commands (last-one-wins per fleet).
	for _, cmd := range s.drainCommands() {
		s.commanded[cmd.Msg.FleetID] = true
		s.applyCommand(cmd)
	}

	// 2. Policy evaluation for fleets without an explicit command.
	s.policyStage()

	// 3. Movement resolution.
	s.movementStage()

	// 4. One combat round per active engagement.
	s.combatStage()

	// 5. Harvest extraction.
	s.harvestStage()

	// 6. NPC behavior: patrol, aggro, respawn.
	s.npcStage()

	// 7. Homeworld passive production and build completion.
	s.productionStage(tick)

	// 8+9. Delta computation and broadcast.
	if s.broadcaster != nil {
		s.broadcaster.BroadcastDeltas(tick, s.buildDeltas())
	}

	// 10. Hand dirty records to the persistence batcher.
	if s.persister != nil {
		s.persister.EnqueueBatch(tick, s.Players.TakeDirty(), s.Fleets.TakeDirty(), s.Store.TakeDirty())
	}

	return s.checkConsistency()
}

// sortedFleets returns all fleets ordered by id so every stage walks
// entities deterministically.
func (s *Simulation) sortedFleets() []*fleet.Fleet {
	fleets := s.Fleets.All()
	sort.Slice(fleets, func(i, j int) bool { return fleets[i].ID < fleets[j].ID })
	return fleets
}

// ── Stage 3: movement ────────────────────────────────────────────────────

func (s *Simulation) movementStage() {
	for _, f := range s.sortedFleets() {
		if f.State != fleet.StateMoving && f.State != fleet.StateReturning {
			continue
		}
		s.stepFleetMovement(f)
	}
}

func (s *Simulation) stepFleetMovement(f *fleet.Fleet) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("fleet movement panicked", "fleet", f.ID, "panic", r)
			f.State = fleet.StateIdle
		}
	}()

	if f.MoveCooldown > 0 {
		f.MoveCooldown--
		if f.MoveCooldown > 0 {
			return
		}
	}

	next, ok := s.nextHop(f.Location, f.Dest)
	if !ok {
		f.State = fleet.StateIdle
		s.emitError(f.Owner, protocol.ErrNoEdge,
			fmt.Sprintf("no traversable route toward %v", f.Dest), f.ID)
		s.markFleetChanged(f)
		return
	}

	cost := f.FuelCostPerHex()
	if f.Fuel < cost {
		f.State = fleet.StateIdle
		s.emitError(f.Owner, protocol.ErrNoFuel,
			fmt.Sprintf("needs %.0f fuel per hex, have %.0f", cost, f.Fuel), f.ID)
		s.markFleetChanged(f)
		return
	}
	f.Fuel -= cost

	from := f.Location
	s.Fleets.Relocate(f, next)
	s.markFleetChanged(f)
	if !f.IsNPC() {
		s.emit(f.Owner, protocol.Event{
			Type:    protocol.EvFleetDeparted,
			FleetID: f.ID,
			Sector:  hexRef(from),
		})
	}

	s.arrive(f, next)
}

// nextHop picks the neighbor along an open edge that gets closest to dest.
// Lateral (equal-distance) hops are allowed so fleets can slide around
// pruned edges; hops that increase distance are not.
func (s *Simulation) nextHop(from, dest universe.HexCoord) (universe.HexCoord, bool) {
	sec := s.Store.Get(from)
	bestDist := universe.Distance(from, dest)
	limit := bestDist
	var best universe.HexCoord
	found := false
	for i := 0; i < 6; i++ {
		if !sec.OpenEdges[i] {
			continue
		}
		n := from.Neighbor(universe.Direction(i))
		if d := universe.Distance(n, dest); d < bestDist || (!found && d == limit) {
			if d < bestDist {
				bestDist = d
			}
			best = n
			found = true
		}
	}
	return best, found
}

// arrive handles everything triggered by a hex transition: discovery,
// first-visit NPC materialization, hostile auto-aggro, delivery at home.
func (s *Simulation) arrive(f *fleet.Fleet, loc universe.HexCoord) {
	sec := s.Store.Get(loc)

	if !f.IsNPC() {
		if s.Store.Discover(sec, f.Owner) {
			s.markSectorChanged(loc)
		}
		s.materializeNPC(sec)
	}

	if loc != f.Dest {
		f.MoveCooldown = f.MoveTicksPerHex()
		return
	}

	f.State = fleet.StateIdle
	f.MoveCooldown = 0
	if !f.IsNPC() {
		s.emit(f.Owner, protocol.Event{
			Type:    protocol.EvFleetArrived,
			FleetID: f.ID,
			Sector:  hexRef(loc),
		})
		if p := s.Players.Get(f.Owner); p != nil && loc == p.Homeworld {
			s.deliverCargo(p, f)
			s.refuelAtHome(f)
		}
	}

	// Hostile auto-aggro: stopping in a sector shared with an enemy starts
	// (or joins) the engagement. Combat sees post-movement positions.
	hostiles := engageable(s.Fleets.HostilesAt(loc, f.Owner))
	if len(hostiles) > 0 && f.ShipCount() > 0 {
		all := append(hostiles, f)
		s.Combat.Engage(loc, all...)
		for _, hf := range all {
			s.markFleetChanged(hf)
		}
	}
}

// engageable filters a hostile list down to fleets co-location aggro may
// pin. Fleets in transit are passing through or waiting out a retreat
// cooldown; dragging them back in would make leaving a battle impossible.
func engageable(fleets []*fleet.Fleet) []*fleet.Fleet {
	var out []*fleet.Fleet
	for _, f := range fleets {
		if f.State == fleet.StateMoving || f.State == fleet.StateReturning {
			continue
		}
		out = append(out, f)
	}
	return out
}

// refuelAtHome tops up a fleet docked at its homeworld.
func (s *Simulation) refuelAtHome(f *fleet.Fleet) {
	if f.Fuel < f.FuelMax {
		f.Fuel = f.FuelMax
		s.markFleetChanged(f)
	}
}

// ── Stage 4: combat ──────────────────────────────────────────────────────

func (s *Simulation) combatStage() {
	engagements := s.Combat.Active()
	sort.Slice(engagements, func(i, j int) bool { return engagements[i].ID < engagements[j].ID })

	for _, e := range engagements {
		report := s.Combat.ResolveRound(e)
		s.recordRound(e, report)
	}

	// Delayed shield regeneration for fleets out of battle.
	for _, f := range s.sortedFleets() {
		if f.EngagementID != 0 {
			f.TicksSinceCombat = 0
			continue
		}
		f.TicksSinceCombat++
		if f.TicksSinceCombat == combat.ShieldRegenDelay {
			f.RestoreShields()
			s.markFleetChanged(f)
		}
	}
}

// recordRound emits the round's events and cleans up emptied fleets.
func (s *Simulation) recordRound(e *combat.Engagement, report combat.RoundReport) {
	owners := make(map[string]bool)
	var involved []*fleet.Fleet
	for _, id := range e.FleetIDs {
		if f := s.Fleets.Get(id); f != nil {
			involved = append(involved, f)
			if !f.IsNPC() {
				owners[f.Owner] = true
			}
			s.markFleetChanged(f)
		}
	}

	for owner := range owners {
		s.emit(owner, protocol.Event{
			Type:   protocol.EvCombatRound,
			Sector: hexRef(e.Sector),
			Detail: report,
		})
	}

	for _, f := range involved {
		if f.ShipCount() == 0 {
			s.dissolveFleet(f)
		}
	}
}

// dissolveFleet removes an emptied fleet. NPC fleets start their respawn
// clock; player fleets are reported to their owner.
func (s *Simulation) dissolveFleet(f *fleet.Fleet) {
	if f.EngagementID != 0 {
		if e := s.Combat.Get(f.EngagementID); e != nil {
			s.Combat.Drop(e, f.ID)
		}
	}

	if f.IsNPC() {
		sec := s.Store.Get(f.Location)
		if sec.NPCFleetID == f.ID {
			sec.NPCFleetID = 0
			sec.NPCRespawnAt = s.now().Add(npcRespawnWindow)
			s.Store.MarkModified(sec)
			s.markSectorChanged(sec.Coord)
		}
	} else {
		s.emit(f.Owner, protocol.Event{
			Type:    protocol.EvFleetDissolved,
			FleetID: f.ID,
			Sector:  hexRef(f.Location),
			Message: "all ships lost",
		})
		s.markFleetRemoved(f.Owner, f.ID)
	}
	s.Fleets.Dissolve(f.ID)
}

// ── Stage 5: harvesting ──────────────────────────────────────────────────

func (s *Simulation) harvestStage() {
	now := s.now()
	for _, f := range s.sortedFleets() {
		if f.State != fleet.StateHarvesting {
			continue
		}
		sec := s.Store.Get(f.Location)
		result := economy.HarvestTick(s.Store, sec, f, now)
		if result.Total() == 0 {
			continue
		}
		s.markFleetChanged(f)
		s.markSectorChanged(sec.Coord)

		detail := make(map[string]float64)
		for res := 0; res < universe.NumResources; res++ {
			if result.Extracted[res] > 0 {
				detail[universe.Resource(res).String()] = result.Extracted[res]
			}
		}
		s.emit(f.Owner, protocol.Event{
			Type:    protocol.EvResourceHarvested,
			FleetID: f.ID,
			Sector:  hexRef(sec.Coord),
			Detail:  detail,
		})
		for res := 0; res < universe.NumResources; res++ {
			if result.Downgraded[res] {
				s.emit(f.Owner, protocol.Event{
					Type:    protocol.EvDensityDowngrade,
					Sector:  hexRef(sec.Coord),
					Message: fmt.Sprintf("%s density dropped to %s",
						universe.Resource(res), sec.Densities[res]),
				})
			}
		}
	}
}

// ── Stage 7: production and build completion ─────────────────────────────

func (s *Simulation) productionStage(tick uint64) {
	for _, p := range s.Players.All() {
		economy.ApplyProduction(p)
		s.markPlayerChanged(p.ID)
		s.completeBuilds(p, tick)
	}
}

// completeBuilds applies every queued job whose timer elapsed: mines level
// up, finished ships join (or found) a fleet at the homeworld, research
// advances.
func (s *Simulation) completeBuilds(p *player.Player, tick uint64) {
	if len(p.BuildQueue) == 0 {
		return
	}
	remaining := p.BuildQueue[:0]
	for _, job := range p.BuildQueue {
		if job.DoneTick > tick {
			remaining = append(remaining, job)
			continue
		}
		switch job.Kind {
		case player.BuildMine:
			p.MineLevels[job.Resource]++
		case player.BuildShip:
			class, ok := fleet.ParseClass(job.Class)
			if !ok {
				slog.Error("build queue held unknown ship class", "player", p.ID, "class", job.Class)
				continue
			}
			s.commissionShip(p, class)
		case player.BuildResearch:
			p.ResearchLevel++
		}
		s.emit(p.ID, protocol.Event{
			Type:   protocol.EvBuildComplete,
			Detail: buildJobView(job),
		})
	}
	p.BuildQueue = remaining
}

// commissionShip adds a freshly built hull to an idle fleet docked at the
// homeworld, or founds a new fleet when none is available.
func (s *Simulation) commissionShip(p *player.Player, class fleet.ShipClass) {
	ship := fleet.NewShip(s.Fleets.NextShipID(), class)
	for _, f := range s.Fleets.ByOwner(p.ID) {
		if f.Location == p.Homeworld && f.State == fleet.StateIdle {
			f.Ships = append(f.Ships, ship)
			s.Fleets.RecalcFuelMax(f)
			s.refuelAtHome(f)
			s.markFleetChanged(f)
			return
		}
	}
	f := s.Fleets.Create(p.ID, p.Homeworld, []*fleet.Ship{ship})
	s.markFleetChanged(f)
}

// checkConsistency validates global invariants after a step. A violation
// here is fatal: world truth can no longer be trusted.
func (s *Simulation) checkConsistency() error {
	for _, f := range s.Fleets.All() {
		if f.Fuel < 0 {
			return fmt.Errorf("fleet %d has negative fuel %.2f", f.ID, f.Fuel)
		}
		for _, ship := range f.Ships {
			if ship.Hull < 0 || ship.Shield < 0 {
				return fmt.Errorf("ship %d has negative hull/shield", ship.ID)
			}
		}
	}
	return nil
}
