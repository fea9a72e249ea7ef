package engine

import (
	"log/slog"
	"time"

	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/protocol"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// npcRespawnWindow is the real-time delay before a defeated sector garrison
// reforms.
const npcRespawnWindow = 30 * time.Minute

// npcPatrolChance is the per-tick probability an idle NPC fleet drifts to
// an adjacent sector.
const npcPatrolChance = 0.02

// materializeNPC turns a sector's rolled hostile presence into a live
// registry fleet. Called on first player visit and after respawn timers.
func (s *Simulation) materializeNPC(sec *universe.Sector) *fleet.Fleet {
	if sec.NPCSpawn == nil || sec.NPCFleetID != 0 {
		return nil
	}
	if !sec.NPCRespawnAt.IsZero() && s.now().Before(sec.NPCRespawnAt) {
		return nil
	}

	var ships []*fleet.Ship
	for className, count := range sec.NPCSpawn.ShipCounts {
		class, ok := fleet.ParseClass(className)
		if !ok {
			slog.Error("generated NPC spawn holds unknown class", "class", className, "sector", sec.Coord)
			continue
		}
		for i := 0; i < count; i++ {
			ships = append(ships, fleet.NewShip(s.Fleets.NextShipID(), class))
		}
	}
	if len(ships) == 0 {
		return nil
	}

	f := s.Fleets.Create(fleet.NPCOwner, sec.Coord, ships)
	sec.NPCFleetID = f.ID
	sec.NPCRespawnAt = time.Time{}
	s.Store.MarkModified(sec)
	s.markSectorChanged(sec.Coord)

	// Every player with eyes on the sector hears about the contact.
	for playerID := range sec.DiscoveredBy {
		s.emit(playerID, protocol.Event{
			Type:   protocol.EvNPCEncounter,
			Sector: hexRef(sec.Coord),
			Detail: sec.NPCSpawn,
		})
	}
	return f
}

// npcStage drives hostile behavior: aggro on co-located players, slow
// patrol drift, and respawn of defeated garrisons.
func (s *Simulation) npcStage() {
	for _, f := range s.sortedFleets() {
		if !f.IsNPC() || f.ShipCount() == 0 {
			continue
		}

		// Aggro check: hostiles never sit out a shared sector, but fleets
		// in transit (including retreaters on cooldown) are left to go.
		if f.EngagementID == 0 {
			targets := engageable(s.Fleets.HostilesAt(f.Location, f.Owner))
			if len(targets) > 0 {
				all := append(targets, f)
				s.Combat.Engage(f.Location, all...)
				for _, tf := range all {
					s.markFleetChanged(tf)
				}
				continue
			}
		}

		// Patrol drift between adjacent traversable sectors.
		if f.EngagementID == 0 && s.rng.Float64() < npcPatrolChance {
			s.npcPatrol(f)
		}
	}

	// Respawn: garrisons whose timers elapsed reform if anyone is around
	// to notice; otherwise they reform lazily on next visit.
	for _, sec := range s.Store.ModifiedSectors() {
		if sec.NPCSpawn == nil || sec.NPCFleetID != 0 || sec.NPCRespawnAt.IsZero() {
			continue
		}
		if s.now().Before(sec.NPCRespawnAt) {
			continue
		}
		if len(s.Fleets.At(sec.Coord)) > 0 || len(sec.DiscoveredBy) > 0 {
			s.materializeNPC(sec)
		}
	}
}

// npcPatrol drifts an NPC fleet through a random open edge, keeping the
// sector's garrison link up to date.
func (s *Simulation) npcPatrol(f *fleet.Fleet) {
	home := s.Store.Get(f.Location)
	var options []universe.HexCoord
	for i := 0; i < 6; i++ {
		if home.OpenEdges[i] {
			options = append(options, f.Location.Neighbor(universe.Direction(i)))
		}
	}
	if len(options) == 0 {
		return
	}
	dest := options[s.rng.Intn(len(options))]

	if home.NPCFleetID == f.ID {
		home.NPCFleetID = 0
		s.Store.MarkModified(home)
	}
	f.Dest = dest
	s.Fleets.Relocate(f, dest)
	there := s.Store.Get(dest)
	if there.NPCFleetID == 0 {
		there.NPCFleetID = f.ID
		s.Store.MarkModified(there)
	}
	s.arrive(f, dest)
}
