package engine

import (
	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/policy"
	"github.com/hotschmoe/voidlanes/internal/protocol"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// policyStage evaluates standing orders for every player fleet that got no
// explicit command this tick. A queued command always pre-empts policy.
func (s *Simulation) policyStage() {
	for _, f := range s.sortedFleets() {
		if f.IsNPC() || len(f.Rules) == 0 || s.commanded[f.ID] {
			continue
		}
		snap := s.snapshotFor(f)
		action, ok, errs := policy.Evaluate(f.Rules, snap)
		for _, re := range errs {
			s.emit(f.Owner, protocol.Event{
				Type:    protocol.EvPolicyError,
				FleetID: f.ID,
				Code:    protocol.ErrRule,
				Message: re.Error(),
			})
		}
		if !ok {
			continue // no rule matched: the fleet takes no action this tick
		}
		s.applyPolicyAction(f, action)
	}
}

// snapshotFor derives the read-only variable view a fleet's rules evaluate
// against. Booleans read as 1/0.
func (s *Simulation) snapshotFor(f *fleet.Fleet) policy.Snapshot {
	sec := s.Store.Get(f.Location)
	hostiles := s.Fleets.HostilesAt(f.Location, f.Owner)

	distHome := 0
	atHome := 0.0
	if p := s.Players.Get(f.Owner); p != nil {
		distHome = universe.Distance(f.Location, p.Homeworld)
		if distHome == 0 {
			atHome = 1
		}
	}

	snap := policy.Snapshot{
		"in_combat":            b2f(f.EngagementID != 0),
		"hostile_in_sector":    b2f(len(hostiles) > 0),
		"fleet_shield_pct":     f.ShieldPct(),
		"fleet_hull_pct":       f.HullPct(),
		"cargo_pct":            0,
		"fuel_pct":             f.FuelPct(),
		"sector_has_resources": b2f(sec.HasResources()),
		"distance_from_home":   float64(distHome),
		"at_home":              atHome,
		"ship_count":           float64(f.ShipCount()),
		"is_idle":              b2f(f.State == fleet.StateIdle),
		"is_moving":            b2f(f.State == fleet.StateMoving || f.State == fleet.StateReturning),
		"is_harvesting":        b2f(f.State == fleet.StateHarvesting),
	}
	if cap := f.CargoCapacity(); cap > 0 {
		snap["cargo_pct"] = f.CargoUsed() / cap
	}
	return snap
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// applyPolicyAction feeds a fired action token through the same paths an
// explicit command would take.
func (s *Simulation) applyPolicyAction(f *fleet.Fleet, action string) {
	switch action {
	case policy.ActionIdle:
		if f.State == fleet.StateHarvesting {
			f.State = fleet.StateIdle
			s.markFleetChanged(f)
		}

	case policy.ActionHarvest:
		if f.State == fleet.StateHarvesting || f.State == fleet.StateInCombat {
			return
		}
		s.cmdHarvest(f.Owner, protocol.CommandMsg{FleetID: f.ID})

	case policy.ActionRecall:
		s.cmdRecall(f.Owner, f.ID)

	case policy.ActionReturnHome:
		p := s.Players.Get(f.Owner)
		if p == nil || f.Location == p.Homeworld || f.State == fleet.StateReturning {
			return
		}
		s.beginMove(f, p.Homeworld, fleet.StateReturning)

	case policy.ActionAttackNearest:
		hostiles := engageable(s.Fleets.HostilesAt(f.Location, f.Owner))
		if len(hostiles) == 0 || f.EngagementID != 0 {
			return
		}
		all := append(hostiles, f)
		s.Combat.Engage(f.Location, all...)
		for _, hf := range all {
			s.markFleetChanged(hf)
		}

	case policy.ActionExplore:
		if f.State != fleet.StateIdle {
			return
		}
		if dest, ok := s.pickExploreTarget(f); ok {
			s.beginMove(f, dest, fleet.StateMoving)
		}
	}
}

// pickExploreTarget prefers an undiscovered open neighbor, falling back to
// any open edge.
func (s *Simulation) pickExploreTarget(f *fleet.Fleet) (universe.HexCoord, bool) {
	sec := s.Store.Get(f.Location)
	var open, unseen []universe.HexCoord
	for i := 0; i < 6; i++ {
		if !sec.OpenEdges[i] {
			continue
		}
		n := f.Location.Neighbor(universe.Direction(i))
		open = append(open, n)
		if ns := s.Store.Peek(n); ns == nil || !ns.Discovered(f.Owner) {
			unseen = append(unseen, n)
		}
	}
	if len(unseen) > 0 {
		return unseen[s.rng.Intn(len(unseen))], true
	}
	if len(open) > 0 {
		return open[s.rng.Intn(len(open))], true
	}
	return universe.HexCoord{}, false
}
