// Package combat resolves engagements: sector-scoped battles between two or
// more co-located fleets, advanced one stochastic round per tick. The
// resolver borrows ship state from the fleet registry by reference and
// never outlives a tick.
package combat

import (
	"math/rand"

	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// ShieldRegenDelay is the number of consecutive combat-free ticks before a
// fleet's shields regenerate to full.
const ShieldRegenDelay = 10

// Engagement groups the fleets fighting in one sector. It holds ids into
// the registry, never copies of ship state.
type Engagement struct {
	ID       uint64
	Sector   universe.HexCoord
	FleetIDs []uint64
}

// Shot is one attack within a round.
type Shot struct {
	AttackerFleet uint64  `json:"attacker_fleet"`
	AttackerShip  uint64  `json:"attacker_ship"`
	TargetFleet   uint64  `json:"target_fleet"`
	TargetShip    uint64  `json:"target_ship"`
	Damage        float64 `json:"damage"`
	ShieldAbsorb  float64 `json:"shield_absorb"`
	HullDamage    float64 `json:"hull_damage"`
	Destroyed     bool    `json:"destroyed"`
	RapidFire     bool    `json:"rapid_fire"` // true for chained follow-up shots
}

// RoundReport summarizes one resolved round.
type RoundReport struct {
	EngagementID uint64 `json:"engagement_id"`
	Sector       universe.HexCoord `json:"sector"`
	Shots        []Shot   `json:"shots"`
	DestroyedIDs []uint64 `json:"destroyed_ships,omitempty"`
	Over         bool     `json:"over"`
	VictorOwner  string   `json:"victor,omitempty"`
}

// Manager tracks active engagements and runs round resolution against the
// fleet registry.
type Manager struct {
	reg      *fleet.Registry
	rng      *rand.Rand
	byID     map[uint64]*Engagement
	bySector map[universe.HexCoord]uint64
	nextID   uint64
}

// NewManager creates a combat manager. The rand source is injected so tests
// and replays can run deterministically.
func NewManager(reg *fleet.Registry, rng *rand.Rand) *Manager {
	return &Manager{
		reg:      reg,
		rng:      rng,
		byID:     make(map[uint64]*Engagement),
		bySector: make(map[universe.HexCoord]uint64),
		nextID:   1,
	}
}

// Active returns all live engagements.
func (m *Manager) Active() []*Engagement {
	out := make([]*Engagement, 0, len(m.byID))
	for _, e := range m.byID {
		out = append(out, e)
	}
	return out
}

// Get returns an engagement by id, or nil.
func (m *Manager) Get(id uint64) *Engagement {
	return m.byID[id]
}

// AtSector returns the engagement running in a sector, or nil.
func (m *Manager) AtSector(loc universe.HexCoord) *Engagement {
	if id, ok := m.bySector[loc]; ok {
		return m.byID[id]
	}
	return nil
}

// Engage puts a set of fleets into battle in a sector. If an engagement is
// already running there, the fleets join it instead. Entering combat zeroes
// the shield-regen countdown.
func (m *Manager) Engage(loc universe.HexCoord, fleets ...*fleet.Fleet) *Engagement {
	e := m.AtSector(loc)
	if e == nil {
		e = &Engagement{ID: m.nextID, Sector: loc}
		m.nextID++
		m.byID[e.ID] = e
		m.bySector[loc] = e.ID
	}
	for _, f := range fleets {
		if f.EngagementID == e.ID {
			continue
		}
		e.FleetIDs = append(e.FleetIDs, f.ID)
		f.EngagementID = e.ID
		f.State = fleet.StateInCombat
		f.TicksSinceCombat = 0
		m.reg.MarkDirty(f.ID)
	}
	return e
}

// Leave detaches a fleet from its engagement without resolving anything,
// used after retreat or recall. Dissolves the engagement if one owner
// remains.
func (m *Manager) Leave(e *Engagement, f *fleet.Fleet) {
	for i, id := range e.FleetIDs {
		if id == f.ID {
			e.FleetIDs = append(e.FleetIDs[:i], e.FleetIDs[i+1:]...)
			break
		}
	}
	f.EngagementID = 0
	if f.State == fleet.StateInCombat {
		f.State = fleet.StateIdle
	}
	m.checkOver(e)
}

// Drop removes a dissolved fleet id from its engagement.
func (m *Manager) Drop(e *Engagement, fleetID uint64) {
	for i, id := range e.FleetIDs {
		if id == fleetID {
			e.FleetIDs = append(e.FleetIDs[:i], e.FleetIDs[i+1:]...)
			break
		}
	}
	m.checkOver(e)
}

// participant pairs a ship with its owning fleet for one resolution pass.
type participant struct {
	fleet *fleet.Fleet
	ship  *fleet.Ship
}

// ResolveRound runs one full combat round: every living ship fires once (plus
// rapid-fire chains), in an order randomized per round.
func (m *Manager) ResolveRound(e *Engagement) RoundReport {
	return m.resolve(e, 0)
}

// ResolveRetreat runs the unanswered round a fleet suffers when it leaves an
// engagement via a move command: enemies fire, the retreating fleet does not.
func (m *Manager) ResolveRetreat(e *Engagement, retreating *fleet.Fleet) RoundReport {
	return m.resolve(e, retreating.ID)
}

func (m *Manager) resolve(e *Engagement, mutedFleetID uint64) RoundReport {
	report := RoundReport{EngagementID: e.ID, Sector: e.Sector}

	roster := m.roster(e)
	if len(roster) == 0 {
		report.Over = true
		m.dissolve(e, &report)
		return report
	}

	// Firing order is randomized every round.
	order := make([]participant, len(roster))
	copy(order, roster)
	m.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	for _, p := range order {
		if !p.ship.Alive() {
			continue // destroyed earlier this round
		}
		if p.fleet.ID == mutedFleetID {
			continue
		}
		m.fire(e, p, &report, false)
	}

	// Purge destroyed hulls from every roster; destruction is permanent.
	for _, id := range e.FleetIDs {
		f := m.reg.Get(id)
		if f == nil {
			continue
		}
		for _, s := range f.Ships {
			if !s.Alive() {
				report.DestroyedIDs = append(report.DestroyedIDs, s.ID)
			}
		}
		if f.PurgeDestroyed() > 0 {
			m.reg.RecalcFuelMax(f)
			m.reg.MarkDirty(f.ID)
		}
	}

	m.checkOverInto(e, &report)
	return report
}

// fire resolves one ship's attack, chaining rapid-fire follow-ups.
func (m *Manager) fire(e *Engagement, p participant, report *RoundReport, chained bool) {
	target, ok := m.pickTarget(e, p.fleet)
	if !ok {
		return // no living enemies left
	}

	def := fleet.Def(p.ship.Class)
	damage := def.WeaponPower * (0.8 + m.rng.Float64()*0.4)

	// Shields absorb first; the remainder passes to hull.
	absorb := damage
	if absorb > target.ship.Shield {
		absorb = target.ship.Shield
	}
	target.ship.Shield -= absorb
	hullDamage := damage - absorb
	target.ship.Hull -= hullDamage

	shot := Shot{
		AttackerFleet: p.fleet.ID,
		AttackerShip:  p.ship.ID,
		TargetFleet:   target.fleet.ID,
		TargetShip:    target.ship.ID,
		Damage:        damage,
		ShieldAbsorb:  absorb,
		HullDamage:    hullDamage,
		RapidFire:     chained,
	}
	if target.ship.Hull <= 0 {
		target.ship.Hull = 0
		shot.Destroyed = true
	}
	report.Shots = append(report.Shots, shot)

	// Rapid-fire continuation: probability 1 - 1/m against the class just
	// hit; each follow-up picks a fresh target.
	if mult := fleet.RapidFireAgainst(p.ship.Class, target.ship.Class); mult > 1 {
		if m.rng.Float64() < 1-1/mult {
			m.fire(e, p, report, true)
		}
	}
}

// pickTarget selects a random living enemy ship, weighted by hull_max so
// larger ships draw more fire.
func (m *Manager) pickTarget(e *Engagement, attacker *fleet.Fleet) (participant, bool) {
	var candidates []participant
	totalWeight := 0.0
	for _, id := range e.FleetIDs {
		f := m.reg.Get(id)
		if f == nil || f.Owner == attacker.Owner {
			continue
		}
		for _, s := range f.Ships {
			if s.Alive() {
				candidates = append(candidates, participant{fleet: f, ship: s})
				totalWeight += fleet.Def(s.Class).HullMax
			}
		}
	}
	if len(candidates) == 0 {
		return participant{}, false
	}

	roll := m.rng.Float64() * totalWeight
	for _, c := range candidates {
		roll -= fleet.Def(c.ship.Class).HullMax
		if roll <= 0 {
			return c, true
		}
	}
	return candidates[len(candidates)-1], true
}

func (m *Manager) roster(e *Engagement) []participant {
	var out []participant
	for _, id := range e.FleetIDs {
		f := m.reg.Get(id)
		if f == nil {
			continue
		}
		for _, s := range f.Ships {
			if s.Alive() {
				out = append(out, participant{fleet: f, ship: s})
			}
		}
	}
	return out
}

// checkOver dissolves the engagement once at most one owner has living
// ships.
func (m *Manager) checkOver(e *Engagement) {
	var report RoundReport
	m.checkOverInto(e, &report)
}

func (m *Manager) checkOverInto(e *Engagement, report *RoundReport) {
	owners := make(map[string]bool)
	for _, id := range e.FleetIDs {
		f := m.reg.Get(id)
		if f != nil && f.ShipCount() > 0 {
			owners[f.Owner] = true
		}
	}
	if len(owners) > 1 {
		return
	}
	report.Over = true
	for owner := range owners {
		report.VictorOwner = owner
	}
	m.dissolve(e, report)
}

// dissolve ends an engagement: survivors revert to idle.
func (m *Manager) dissolve(e *Engagement, report *RoundReport) {
	for _, id := range e.FleetIDs {
		f := m.reg.Get(id)
		if f == nil {
			continue
		}
		f.EngagementID = 0
		if f.State == fleet.StateInCombat {
			f.State = fleet.StateIdle
		}
		m.reg.MarkDirty(f.ID)
	}
	delete(m.byID, e.ID)
	if m.bySector[e.Sector] == e.ID {
		delete(m.bySector, e.Sector)
	}
}

// RecallDamage applies emergency-recall transit damage to each ship
// independently: chance min(0.6, distance*0.02) of taking
// uniform(0.2, 0.8) × hull_max damage; hulls driven to zero are destroyed.
// Returns the ids of destroyed ships.
func RecallDamage(f *fleet.Fleet, distance int, rng *rand.Rand) []uint64 {
	chance := float64(distance) * 0.02
	if chance > 0.6 {
		chance = 0.6
	}
	var destroyed []uint64
	for _, s := range f.Ships {
		if !s.Alive() {
			continue
		}
		if rng.Float64() >= chance {
			continue
		}
		dmg := (0.2 + rng.Float64()*0.6) * fleet.Def(s.Class).HullMax
		s.Hull -= dmg
		if s.Hull <= 0 {
			s.Hull = 0
			destroyed = append(destroyed, s.ID)
		}
	}
	f.PurgeDestroyed()
	return destroyed
}
