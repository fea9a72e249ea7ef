package fleet

import (
	"github.com/hotschmoe/voidlanes/internal/policy"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// NPCOwner is the reserved owner id for hostile non-player fleets.
const NPCOwner = "npc"

// Ship is one hull inside a fleet. A ship belongs to exactly one fleet.
type Ship struct {
	ID     uint64    `json:"id"`
	Class  ShipClass `json:"class"`
	Hull   float64   `json:"hull"`
	Shield float64   `json:"shield"`
}

// Alive reports whether the ship is still in the fight.
func (s *Ship) Alive() bool {
	return s.Hull > 0
}

// State is the fleet state machine.
type State uint8

const (
	StateIdle State = iota
	StateMoving
	StateHarvesting
	StateInCombat
	StateReturning
)

var stateNames = [5]string{"idle", "moving", "harvesting", "in_combat", "returning"}

func (s State) String() string {
	if int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Fleet is an ordered group of ships under one owner.
// Invariants: fuel >= 0; a fleet with zero living ships is dissolved.
type Fleet struct {
	ID       uint64             `json:"id"`
	Owner    string             `json:"owner"` // player id, or NPCOwner
	Ships    []*Ship            `json:"ships"`
	Location universe.HexCoord  `json:"location"`
	Cargo    [universe.NumResources]float64 `json:"cargo"`
	Fuel     float64            `json:"fuel"`
	FuelMax  float64            `json:"fuel_max"`
	State    State              `json:"state"`

	// Movement bookkeeping. Dest is meaningful while State is StateMoving
	// or StateReturning; MoveCooldown counts down ticks until the next hex
	// transition.
	Dest         universe.HexCoord `json:"dest"`
	MoveCooldown int               `json:"move_cooldown"`

	// HarvestTarget selects a single resource when set (-1 = all three).
	HarvestTarget int `json:"harvest_target"`

	// EngagementID links the fleet to an active battle. Zero = none.
	EngagementID uint64 `json:"-"`

	// TicksSinceCombat drives delayed shield regeneration.
	TicksSinceCombat int `json:"ticks_since_combat"`

	// Rules is the ordered standing-orders table, evaluated when no
	// explicit command is queued for the tick.
	Rules []policy.Rule `json:"rules,omitempty"`
}

// IsNPC reports whether the fleet belongs to the hostile environment.
func (f *Fleet) IsNPC() bool {
	return f.Owner == NPCOwner
}

// LivingShips returns the ships that are still alive.
func (f *Fleet) LivingShips() []*Ship {
	out := make([]*Ship, 0, len(f.Ships))
	for _, s := range f.Ships {
		if s.Alive() {
			out = append(out, s)
		}
	}
	return out
}

// ShipCount returns the number of living ships.
func (f *Fleet) ShipCount() int {
	n := 0
	for _, s := range f.Ships {
		if s.Alive() {
			n++
		}
	}
	return n
}

// CargoCapacity sums the living ships' cargo holds.
func (f *Fleet) CargoCapacity() float64 {
	total := 0.0
	for _, s := range f.Ships {
		if s.Alive() {
			total += Def(s.Class).CargoCap
		}
	}
	return total
}

// CargoUsed returns the total carried across all three resources.
func (f *Fleet) CargoUsed() float64 {
	total := 0.0
	for _, amt := range f.Cargo {
		total += amt
	}
	return total
}

// CargoFree returns remaining cargo capacity, never negative.
func (f *Fleet) CargoFree() float64 {
	free := f.CargoCapacity() - f.CargoUsed()
	if free < 0 {
		return 0
	}
	return free
}

// HarvestPower sums the living ships' extraction contributions.
func (f *Fleet) HarvestPower() float64 {
	total := 0.0
	for _, s := range f.Ships {
		if s.Alive() {
			total += Def(s.Class).HarvestPower
		}
	}
	return total
}

// FuelCostPerHex sums the living ships' per-hex fuel draw.
func (f *Fleet) FuelCostPerHex() float64 {
	total := 0.0
	for _, s := range f.Ships {
		if s.Alive() {
			total += Def(s.Class).FuelPerHex
		}
	}
	return total
}

// MoveTicksPerHex is the fleet's hex-transition cooldown: the slowest
// living ship sets the pace.
func (f *Fleet) MoveTicksPerHex() int {
	slowest := 0
	for _, s := range f.Ships {
		if s.Alive() {
			if mt := Def(s.Class).MoveTicks; mt > slowest {
				slowest = mt
			}
		}
	}
	if slowest == 0 {
		slowest = 1
	}
	return slowest
}

// ShieldPct returns current shields as a fraction of the fleet maximum.
func (f *Fleet) ShieldPct() float64 {
	cur, max := 0.0, 0.0
	for _, s := range f.Ships {
		if s.Alive() {
			cur += s.Shield
			max += Def(s.Class).ShieldMax
		}
	}
	if max == 0 {
		return 0
	}
	return cur / max
}

// HullPct returns current hull as a fraction of the fleet maximum.
func (f *Fleet) HullPct() float64 {
	cur, max := 0.0, 0.0
	for _, s := range f.Ships {
		if s.Alive() {
			cur += s.Hull
			max += Def(s.Class).HullMax
		}
	}
	if max == 0 {
		return 0
	}
	return cur / max
}

// FuelPct returns current fuel as a fraction of capacity.
func (f *Fleet) FuelPct() float64 {
	if f.FuelMax == 0 {
		return 0
	}
	return f.Fuel / f.FuelMax
}

// RestoreShields refills every living ship to its class maximum.
func (f *Fleet) RestoreShields() {
	for _, s := range f.Ships {
		if s.Alive() {
			s.Shield = Def(s.Class).ShieldMax
		}
	}
}

// PurgeDestroyed removes dead hulls from the roster, preserving order.
// Returns the number removed. Removal is permanent.
func (f *Fleet) PurgeDestroyed() int {
	kept := f.Ships[:0]
	removed := 0
	for _, s := range f.Ships {
		if s.Alive() {
			kept = append(kept, s)
		} else {
			removed++
		}
	}
	f.Ships = kept
	return removed
}

// NewShip builds a ship of the given class at full hull and shield.
func NewShip(id uint64, class ShipClass) *Ship {
	def := Def(class)
	return &Ship{
		ID:     id,
		Class:  class,
		Hull:   def.HullMax,
		Shield: def.ShieldMax,
	}
}
