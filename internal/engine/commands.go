package engine

import (
	"fmt"
	"log/slog"

	"github.com/hotschmoe/voidlanes/internal/combat"
	"github.com/hotschmoe/voidlanes/internal/economy"
	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/player"
	"github.com/hotschmoe/voidlanes/internal/policy"
	"github.com/hotschmoe/voidlanes/internal/protocol"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// applyCommand validates and applies one queued command. Validation
// failures emit an error event to the issuing player and change nothing.
// A panic while applying is contained to this command.
func (s *Simulation) applyCommand(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("command application panicked",
				"player", cmd.PlayerID, "command", cmd.Msg.Name, "panic", r)
			s.emitError(cmd.PlayerID, protocol.ErrInternal, "internal error", cmd.Msg.FleetID)
		}
	}()

	p := s.Players.Get(cmd.PlayerID)
	if p == nil {
		return // session vanished; nothing to report to
	}

	switch cmd.Msg.Name {
	case protocol.CmdMove:
		s.cmdMove(p.ID, cmd.Msg)
	case protocol.CmdHarvest:
		s.cmdHarvest(p.ID, cmd.Msg)
	case protocol.CmdAttack:
		s.cmdAttack(p.ID, cmd.Msg)
	case protocol.CmdMerge:
		s.cmdMerge(p.ID, cmd.Msg)
	case protocol.CmdRecall:
		s.cmdRecall(p.ID, cmd.Msg.FleetID)
	case protocol.CmdPolicyUpdate:
		s.cmdPolicyUpdate(p.ID, cmd.Msg)
	case protocol.CmdBuild, protocol.CmdBuildShip, protocol.CmdResearch, protocol.CmdCancelBuild:
		s.cmdHomeworld(p, cmd.Msg)
	default:
		s.emitError(p.ID, protocol.ErrUnknownCmd, fmt.Sprintf("unknown command %q", cmd.Msg.Name), 0)
	}
}

// ownedFleet resolves a fleet id against the issuing player, emitting the
// appropriate validation error when it fails.
func (s *Simulation) ownedFleet(playerID string, fleetID uint64) *fleet.Fleet {
	f := s.Fleets.Get(fleetID)
	if f == nil {
		s.emitError(playerID, protocol.ErrUnknownFleet, fmt.Sprintf("no fleet %d", fleetID), fleetID)
		return nil
	}
	if f.Owner != playerID {
		s.emitError(playerID, protocol.ErrNotYours, fmt.Sprintf("fleet %d is not yours", fleetID), fleetID)
		return nil
	}
	return f
}

func (s *Simulation) cmdMove(playerID string, msg protocol.CommandMsg) {
	f := s.ownedFleet(playerID, msg.FleetID)
	if f == nil {
		return
	}

	var dest universe.HexCoord
	switch {
	case msg.Target != nil:
		dest = universe.HexCoord{Q: msg.Target.Q, R: msg.Target.R}
	case msg.Direction != "":
		dir, ok := universe.ParseDirection(msg.Direction)
		if !ok {
			s.emitError(playerID, protocol.ErrBadTarget, fmt.Sprintf("bad direction %q", msg.Direction), f.ID)
			return
		}
		dest = f.Location.Neighbor(dir)
	default:
		s.emitError(playerID, protocol.ErrBadTarget, "move needs a direction or target", f.ID)
		return
	}
	if dest == f.Location {
		s.emitError(playerID, protocol.ErrBadTarget, "already there", f.ID)
		return
	}
	s.beginMove(f, dest, fleet.StateMoving)
}

// beginMove points a fleet at a destination. Leaving an active engagement
// costs one unanswered enemy round before departure.
func (s *Simulation) beginMove(f *fleet.Fleet, dest universe.HexCoord, state fleet.State) {
	if f.EngagementID != 0 {
		if e := s.Combat.Get(f.EngagementID); e != nil {
			s.recordRound(e, s.Combat.ResolveRetreat(e, f))
			if f.ShipCount() == 0 {
				// The parting shots finished the fleet; movement moot.
				s.dissolveFleet(f)
				return
			}
			if live := s.Combat.Get(f.EngagementID); live != nil {
				s.Combat.Leave(live, f)
			}
		} else {
			f.EngagementID = 0
		}
	}

	f.Dest = dest
	f.State = state
	f.MoveCooldown = f.MoveTicksPerHex()
	s.markFleetChanged(f)
}

func (s *Simulation) cmdHarvest(playerID string, msg protocol.CommandMsg) {
	f := s.ownedFleet(playerID, msg.FleetID)
	if f == nil {
		return
	}
	if f.State == fleet.StateInCombat {
		s.emitError(playerID, protocol.ErrNotIdle, "fleet is in combat", f.ID)
		return
	}

	target := -1
	if msg.Resource != "" {
		res, ok := universe.ParseResource(msg.Resource)
		if !ok {
			s.emitError(playerID, protocol.ErrBadTarget, fmt.Sprintf("unknown resource %q", msg.Resource), f.ID)
			return
		}
		target = int(res)
	}

	sec := s.Store.Get(f.Location)
	if !sec.HasResources() {
		s.emitError(playerID, protocol.ErrNoResources, "nothing to harvest here", f.ID)
		return
	}
	if f.HarvestPower() <= 0 {
		s.emitError(playerID, protocol.ErrNoResources, "fleet has no harvest capability", f.ID)
		return
	}

	f.State = fleet.StateHarvesting
	f.HarvestTarget = target
	f.MoveCooldown = 0
	s.markFleetChanged(f)
}

func (s *Simulation) cmdAttack(playerID string, msg protocol.CommandMsg) {
	f := s.ownedFleet(playerID, msg.FleetID)
	if f == nil {
		return
	}
	target := s.Fleets.Get(msg.TargetFleet)
	if target == nil || target.ShipCount() == 0 {
		// Target vanished between queue and apply: consistency drop.
		s.emit(playerID, protocol.Event{
			Type:    protocol.EvInfo,
			FleetID: f.ID,
			Code:    protocol.ErrGone,
			Message: fmt.Sprintf("target fleet %d is gone", msg.TargetFleet),
		})
		return
	}
	if target.Owner == f.Owner {
		s.emitError(playerID, protocol.ErrBadTarget, "cannot attack your own fleet", f.ID)
		return
	}
	if target.Location != f.Location {
		s.emitError(playerID, protocol.ErrBadTarget, "target is not in this sector", f.ID)
		return
	}

	s.Combat.Engage(f.Location, f, target)
	s.markFleetChanged(f)
	s.markFleetChanged(target)
}

// cmdMerge folds one fleet into another sharing its sector, combining
// ships, cargo, and fuel under the surviving id.
func (s *Simulation) cmdMerge(playerID string, msg protocol.CommandMsg) {
	src := s.ownedFleet(playerID, msg.FleetID)
	if src == nil {
		return
	}
	dst := s.ownedFleet(playerID, msg.TargetFleet)
	if dst == nil {
		return
	}
	if src.ID == dst.ID {
		s.emitError(playerID, protocol.ErrBadTarget, "cannot merge a fleet into itself", src.ID)
		return
	}
	if src.EngagementID != 0 || dst.EngagementID != 0 {
		s.emitError(playerID, protocol.ErrNotIdle, "fleets cannot merge mid-battle", src.ID)
		return
	}

	srcID := src.ID
	if err := s.Fleets.Merge(src, dst); err != nil {
		s.emitError(playerID, protocol.ErrBadTarget, err.Error(), srcID)
		return
	}
	s.markFleetRemoved(playerID, srcID)
	s.markFleetChanged(dst)
	s.emit(playerID, protocol.Event{
		Type:    protocol.EvInfo,
		FleetID: dst.ID,
		Message: fmt.Sprintf("fleet %d absorbed into fleet %d", srcID, dst.ID),
	})
}

// cmdRecall performs the emergency jump home: instantaneous, bypassing the
// movement cooldown, at double fuel cost and per-ship transit damage. It
// resolves entirely within the issuing tick.
func (s *Simulation) cmdRecall(playerID string, fleetID uint64) {
	f := s.ownedFleet(playerID, fleetID)
	if f == nil {
		return
	}
	p := s.Players.Get(playerID)
	dist := universe.Distance(f.Location, p.Homeworld)
	if dist == 0 {
		s.emitError(playerID, protocol.ErrBadTarget, "fleet is already home", f.ID)
		return
	}

	cost := 2 * float64(dist) * f.FuelCostPerHex()
	if f.Fuel < cost {
		s.emitError(playerID, protocol.ErrNoFuel,
			fmt.Sprintf("recall needs %.0f fuel, have %.0f", cost, f.Fuel), f.ID)
		return
	}

	if f.EngagementID != 0 {
		if e := s.Combat.Get(f.EngagementID); e != nil {
			s.Combat.Leave(e, f)
		} else {
			f.EngagementID = 0
		}
	}

	f.Fuel -= cost
	destroyed := combat.RecallDamage(f, dist, s.rng)
	for _, shipID := range destroyed {
		s.emit(playerID, protocol.Event{
			Type:    protocol.EvShipDestroyed,
			FleetID: f.ID,
			Message: "lost in emergency jump",
			Detail:  map[string]uint64{"ship_id": shipID},
		})
	}
	if f.ShipCount() == 0 {
		s.dissolveFleet(f)
		return
	}
	s.Fleets.RecalcFuelMax(f)

	s.Fleets.Relocate(f, p.Homeworld)
	f.State = fleet.StateIdle
	f.Dest = p.Homeworld
	f.MoveCooldown = 0
	s.deliverCargo(p, f)
	s.emit(playerID, protocol.Event{
		Type:    protocol.EvRecall,
		FleetID: f.ID,
		Sector:  hexRef(p.Homeworld),
		Message: fmt.Sprintf("emergency recall from %d hexes out", dist),
	})
	s.markFleetChanged(f)
}

func (s *Simulation) cmdPolicyUpdate(playerID string, msg protocol.CommandMsg) {
	f := s.ownedFleet(playerID, msg.FleetID)
	if f == nil {
		return
	}

	rules := make([]policy.Rule, len(msg.Rules))
	for i, spec := range msg.Rules {
		rules[i] = policy.Rule{Condition: spec.Condition, Action: spec.Action}
	}
	compiled, errs := policy.CompileRules(rules)
	for _, re := range errs {
		s.emit(playerID, protocol.Event{
			Type:    protocol.EvPolicyError,
			FleetID: f.ID,
			Code:    protocol.ErrRule,
			Message: re.Error(),
		})
	}
	f.Rules = compiled
	s.markFleetChanged(f)
}

// cmdHomeworld handles the progression commands queued through the same
// per-tick channel: build, build_ship, research, cancel_build.
func (s *Simulation) cmdHomeworld(p *player.Player, msg protocol.CommandMsg) {
	done := s.Tick() + s.BuildTicks

	switch msg.Name {
	case protocol.CmdBuild:
		res, ok := universe.ParseResource(msg.Resource)
		if !ok {
			s.emitError(p.ID, protocol.ErrBadTarget, fmt.Sprintf("unknown mine %q", msg.Resource), 0)
			return
		}
		cost := economy.MineUpgradeCost(res, p.MineLevels[res])
		if !economy.CanAfford(p.Stocks, cost) {
			s.emitError(p.ID, protocol.ErrCantAfford, "insufficient stockpile for mine upgrade", 0)
			return
		}
		economy.Spend(&p.Stocks, cost)
		job := p.QueueJob(player.BuildMine, int(res), "", done)
		s.emitBuildQueued(p.ID, job)

	case protocol.CmdBuildShip:
		class, ok := fleet.ParseClass(msg.Class)
		if !ok {
			s.emitError(p.ID, protocol.ErrBadTarget, fmt.Sprintf("unknown ship class %q", msg.Class), 0)
			return
		}
		count := msg.Count
		if count <= 0 {
			count = 1
		}
		if count > 10 {
			count = 10
		}
		cost := economy.ShipCost(class)
		for i := range cost {
			cost[i] *= float64(count)
		}
		if !economy.CanAfford(p.Stocks, cost) {
			s.emitError(p.ID, protocol.ErrCantAfford, "insufficient stockpile for ship construction", 0)
			return
		}
		economy.Spend(&p.Stocks, cost)
		for i := 0; i < count; i++ {
			job := p.QueueJob(player.BuildShip, 0, class.String(), done)
			s.emitBuildQueued(p.ID, job)
		}

	case protocol.CmdResearch:
		cost := economy.ResearchCost(p.ResearchLevel)
		if !economy.CanAfford(p.Stocks, cost) {
			s.emitError(p.ID, protocol.ErrCantAfford, "insufficient stockpile for research", 0)
			return
		}
		economy.Spend(&p.Stocks, cost)
		job := p.QueueJob(player.BuildResearch, 0, "", done)
		s.emitBuildQueued(p.ID, job)

	case protocol.CmdCancelBuild:
		if !p.CancelJob(msg.JobID) {
			s.emitError(p.ID, protocol.ErrBadTarget, fmt.Sprintf("no build job %d", msg.JobID), 0)
			return
		}
		s.emit(p.ID, protocol.Event{
			Type:    protocol.EvInfo,
			Message: fmt.Sprintf("build job %d cancelled", msg.JobID),
		})
	}
	s.markPlayerChanged(p.ID)
}

func (s *Simulation) emitBuildQueued(playerID string, job player.BuildJob) {
	s.emit(playerID, protocol.Event{
		Type:   protocol.EvBuildQueued,
		Detail: buildJobView(job),
	})
}

func hexRef(c universe.HexCoord) *protocol.HexRef {
	return &protocol.HexRef{Q: c.Q, R: c.R}
}

// deliverCargo unloads a fleet at the homeworld.
func (s *Simulation) deliverCargo(p *player.Player, f *fleet.Fleet) {
	if f.CargoUsed() == 0 {
		return
	}
	delivered := economy.Deliver(p, f)
	detail := make(map[string]float64, universe.NumResources)
	for res := 0; res < universe.NumResources; res++ {
		if delivered[res] > 0 {
			detail[universe.Resource(res).String()] = delivered[res]
		}
	}
	s.emit(p.ID, protocol.Event{
		Type:    protocol.EvCargoDelivered,
		FleetID: f.ID,
		Detail:  detail,
	})
	s.markPlayerChanged(p.ID)
}
