// Package economy implements the resource economy: passive homeworld mine
// production, active fleet harvesting with density-driven yield, and the
// depletion bookkeeping that degrades sectors under sustained extraction.
package economy

import (
	"math"
	"time"

	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/player"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// Base production rates per mine level, per tick.
var baseRates = [universe.NumResources]float64{
	universe.Metal:     10,
	universe.Crystal:   6,
	universe.Deuterium: 3,
}

// BaseRate returns the level-1 production rate for a resource.
func BaseRate(res universe.Resource) float64 {
	return baseRates[res]
}

// ProductionPerTick returns one mine's output for a level:
// base * level * 1.1^level. Level 0 produces nothing.
func ProductionPerTick(res universe.Resource, level int) float64 {
	if level <= 0 {
		return 0
	}
	return baseRates[res] * float64(level) * math.Pow(1.1, float64(level))
}

// ApplyProduction adds one tick of passive mine output to a player's
// homeworld stockpile. Independent of combat and movement.
func ApplyProduction(p *player.Player) {
	for res := 0; res < universe.NumResources; res++ {
		p.Stocks[res] += ProductionPerTick(universe.Resource(res), p.MineLevels[res])
	}
}

// HarvestResult reports one fleet-tick of extraction.
type HarvestResult struct {
	Extracted  [universe.NumResources]float64
	Downgraded [universe.NumResources]bool
}

// Total returns the summed extraction across resources.
func (h HarvestResult) Total() float64 {
	t := 0.0
	for _, v := range h.Extracted {
		t += v
	}
	return t
}

// HarvestTick applies one tick of extraction for a fleet in harvesting
// state. Each resource is handled independently:
//
//	extracted = min(remaining_cargo, harvest_power * density_multiplier)
//
// with the fleet's remaining cargo shrinking as earlier resources fill it.
// Extraction feeds the sector's harvest accumulator; crossing a downgrade
// threshold drops the density one level and resets the accumulator.
func HarvestTick(st *universe.Store, sec *universe.Sector, f *fleet.Fleet, now time.Time) HarvestResult {
	var result HarvestResult

	power := f.HarvestPower()
	if power <= 0 {
		return result
	}
	free := f.CargoFree()

	for res := 0; res < universe.NumResources; res++ {
		if f.HarvestTarget >= 0 && f.HarvestTarget != res {
			continue
		}
		if free <= 0 {
			break
		}
		mult := sec.Densities[res].Multiplier()
		if mult == 0 {
			continue
		}
		extracted := power * mult
		if extracted > free {
			extracted = free
		}

		f.Cargo[res] += extracted
		free -= extracted
		result.Extracted[res] = extracted
		result.Downgraded[res] = st.RecordHarvest(sec, universe.Resource(res), extracted, now)
	}

	return result
}

// Deliver unloads a fleet's cargo into its owner's homeworld stockpile.
func Deliver(p *player.Player, f *fleet.Fleet) [universe.NumResources]float64 {
	var delivered [universe.NumResources]float64
	for res := 0; res < universe.NumResources; res++ {
		delivered[res] = f.Cargo[res]
		p.Stocks[res] += f.Cargo[res]
		f.Cargo[res] = 0
	}
	return delivered
}

// Costs for homeworld construction, exercised by the build command path.

// MineUpgradeCost returns the stockpile cost to raise a mine to the next
// level.
func MineUpgradeCost(res universe.Resource, currentLevel int) [universe.NumResources]float64 {
	scale := math.Pow(1.5, float64(currentLevel))
	var cost [universe.NumResources]float64
	cost[universe.Metal] = 60 * scale
	cost[universe.Crystal] = 25 * scale
	if res == universe.Deuterium {
		cost[universe.Crystal] += 30 * scale
	}
	return cost
}

// ShipCost returns the stockpile cost to construct one ship of a class.
func ShipCost(class fleet.ShipClass) [universe.NumResources]float64 {
	def := fleet.Def(class)
	var cost [universe.NumResources]float64
	cost[universe.Metal] = def.HullMax * 2
	cost[universe.Crystal] = def.ShieldMax*2 + def.WeaponPower
	cost[universe.Deuterium] = def.FuelPerHex * 10
	return cost
}

// ResearchCost returns the stockpile cost for the next research level.
func ResearchCost(currentLevel int) [universe.NumResources]float64 {
	scale := math.Pow(2, float64(currentLevel))
	return [universe.NumResources]float64{200 * scale, 150 * scale, 100 * scale}
}

// CanAfford reports whether stocks cover a cost.
func CanAfford(stocks, cost [universe.NumResources]float64) bool {
	for i := range cost {
		if stocks[i] < cost[i] {
			return false
		}
	}
	return true
}

// Spend subtracts a cost from stocks. Caller must have checked CanAfford.
func Spend(stocks *[universe.NumResources]float64, cost [universe.NumResources]float64) {
	for i := range cost {
		stocks[i] -= cost[i]
	}
}
