package economy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/player"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

func harvestFleet(reg *fleet.Registry, classes ...fleet.ShipClass) *fleet.Fleet {
	ships := make([]*fleet.Ship, 0, len(classes))
	for _, c := range classes {
		ships = append(ships, fleet.NewShip(reg.NextShipID(), c))
	}
	f := reg.Create("alice", universe.HexCoord{Q: 3, R: 2}, ships)
	f.State = fleet.StateHarvesting
	return f
}

func minedSector(coord universe.HexCoord, levels [universe.NumResources]universe.Density) *universe.Sector {
	s := &universe.Sector{Coord: coord, Terrain: universe.TerrainAsteroidField}
	s.BaseDensities = levels
	s.Densities = levels
	return s
}

func TestProductionPerTick(t *testing.T) {
	assert.Zero(t, ProductionPerTick(universe.Metal, 0))
	assert.InDelta(t, 10*1*1.1, ProductionPerTick(universe.Metal, 1), 1e-9)
	assert.InDelta(t, 6*3*math.Pow(1.1, 3), ProductionPerTick(universe.Crystal, 3), 1e-9)
	assert.InDelta(t, 3*5*math.Pow(1.1, 5), ProductionPerTick(universe.Deuterium, 5), 1e-9)
}

func TestApplyProduction(t *testing.T) {
	p := &player.Player{MineLevels: [universe.NumResources]int{2, 1, 0}}
	ApplyProduction(p)
	assert.InDelta(t, 10*2*1.21, p.Stocks[universe.Metal], 1e-9)
	assert.InDelta(t, 6*1*1.1, p.Stocks[universe.Crystal], 1e-9)
	assert.Zero(t, p.Stocks[universe.Deuterium])
}

func TestHarvestYieldByDensity(t *testing.T) {
	reg := fleet.NewRegistry()
	st := universe.NewStore(universe.NewGenerator(7))
	// Two harvesters: power 5.0.
	f := harvestFleet(reg, fleet.ClassHarvester, fleet.ClassHarvester)
	sec := minedSector(f.Location, [universe.NumResources]universe.Density{
		universe.Metal:     universe.DensityRich,     // ×2.0 → 10
		universe.Crystal:   universe.DensitySparse,   // ×0.5 → 2.5
		universe.Deuterium: universe.DensityNone,     // nothing
	})
	st.Install(sec)

	result := HarvestTick(st, sec, f, time.Now())
	assert.Equal(t, 10.0, result.Extracted[universe.Metal])
	assert.Equal(t, 2.5, result.Extracted[universe.Crystal])
	assert.Zero(t, result.Extracted[universe.Deuterium])
	assert.Equal(t, 10.0, f.Cargo[universe.Metal])
	assert.Equal(t, 12.5, result.Total())
}

func TestHarvestRichMetalDowngradesAfterThreeTicks(t *testing.T) {
	reg := fleet.NewRegistry()
	st := universe.NewStore(universe.NewGenerator(7))
	f := harvestFleet(reg, fleet.ClassHarvester, fleet.ClassHarvester)
	sec := minedSector(f.Location, [universe.NumResources]universe.Density{
		universe.Metal: universe.DensityRich,
	})
	st.Install(sec)
	now := time.Now()

	// 10/tick against the rich threshold of 30.
	r1 := HarvestTick(st, sec, f, now)
	r2 := HarvestTick(st, sec, f, now)
	assert.False(t, r1.Downgraded[universe.Metal])
	assert.False(t, r2.Downgraded[universe.Metal])

	r3 := HarvestTick(st, sec, f, now)
	assert.True(t, r3.Downgraded[universe.Metal])
	assert.Equal(t, universe.DensityModerate, sec.Densities[universe.Metal])
	assert.Zero(t, sec.HarvestAccum[universe.Metal])

	// The next tick extracts at the moderate rate.
	r4 := HarvestTick(st, sec, f, now)
	assert.Equal(t, 5.0, r4.Extracted[universe.Metal])
}

func TestHarvestCappedByCargo(t *testing.T) {
	reg := fleet.NewRegistry()
	st := universe.NewStore(universe.NewGenerator(7))
	f := harvestFleet(reg, fleet.ClassHarvester)
	sec := minedSector(f.Location, [universe.NumResources]universe.Density{
		universe.Metal: universe.DensityPristine, // ×4.0 → 10/tick
	})
	st.Install(sec)
	now := time.Now()

	f.Cargo[universe.Metal] = 145 // 5 free out of 150

	result := HarvestTick(st, sec, f, now)
	assert.Equal(t, 5.0, result.Extracted[universe.Metal])
	assert.Equal(t, 150.0, f.Cargo[universe.Metal])
	assert.Equal(t, 5.0, sec.HarvestAccum[universe.Metal],
		"the accumulator counts what was extracted, not what was possible")

	// Full hold: nothing moves.
	again := HarvestTick(st, sec, f, now)
	assert.Zero(t, again.Total())
}

func TestHarvestSharedCargoAcrossResources(t *testing.T) {
	reg := fleet.NewRegistry()
	st := universe.NewStore(universe.NewGenerator(7))
	f := harvestFleet(reg, fleet.ClassHarvester)
	sec := minedSector(f.Location, [universe.NumResources]universe.Density{
		universe.Metal:   universe.DensityPristine,
		universe.Crystal: universe.DensityPristine,
	})
	st.Install(sec)

	f.Cargo[universe.Deuterium] = 138 // 12 free

	result := HarvestTick(st, sec, f, time.Now())
	assert.Equal(t, 10.0, result.Extracted[universe.Metal])
	assert.Equal(t, 2.0, result.Extracted[universe.Crystal],
		"earlier resources shrink the remaining hold")
	assert.Equal(t, f.CargoCapacity(), f.CargoUsed())
}

func TestHarvestTargetSelectsOneResource(t *testing.T) {
	reg := fleet.NewRegistry()
	st := universe.NewStore(universe.NewGenerator(7))
	f := harvestFleet(reg, fleet.ClassHarvester)
	f.HarvestTarget = int(universe.Crystal)
	sec := minedSector(f.Location, [universe.NumResources]universe.Density{
		universe.Metal:   universe.DensityPristine,
		universe.Crystal: universe.DensityModerate,
	})
	st.Install(sec)

	result := HarvestTick(st, sec, f, time.Now())
	assert.Zero(t, result.Extracted[universe.Metal])
	assert.Equal(t, 2.5, result.Extracted[universe.Crystal])
}

func TestHarvestNeedsPower(t *testing.T) {
	reg := fleet.NewRegistry()
	st := universe.NewStore(universe.NewGenerator(7))
	f := harvestFleet(reg, fleet.ClassFighter) // no harvest gear
	sec := minedSector(f.Location, [universe.NumResources]universe.Density{
		universe.Metal: universe.DensityPristine,
	})
	st.Install(sec)

	assert.Zero(t, HarvestTick(st, sec, f, time.Now()).Total())
}

func TestDeliver(t *testing.T) {
	reg := fleet.NewRegistry()
	p := &player.Player{}
	f := harvestFleet(reg, fleet.ClassFreighter)
	f.Cargo = [universe.NumResources]float64{100, 50, 25}

	delivered := Deliver(p, f)
	assert.Equal(t, [universe.NumResources]float64{100, 50, 25}, delivered)
	assert.Equal(t, [universe.NumResources]float64{100, 50, 25}, p.Stocks)
	assert.Zero(t, f.CargoUsed())
}

func TestCostsScaleWithLevel(t *testing.T) {
	l1 := MineUpgradeCost(universe.Metal, 1)
	l2 := MineUpgradeCost(universe.Metal, 2)
	for res := 0; res < universe.NumResources; res++ {
		assert.InDelta(t, l1[res]*1.5, l2[res], 1e-9)
	}

	deut := MineUpgradeCost(universe.Deuterium, 1)
	assert.Greater(t, deut[universe.Crystal], l1[universe.Crystal],
		"deuterium synthesizers need extra crystal")

	r0, r1 := ResearchCost(0), ResearchCost(1)
	for res := 0; res < universe.NumResources; res++ {
		assert.Equal(t, r0[res]*2, r1[res])
	}
}

func TestAffordability(t *testing.T) {
	stocks := [universe.NumResources]float64{100, 50, 10}
	cost := ShipCost(fleet.ClassScout) // 80 metal, 25 crystal, 20 deuterium

	assert.Equal(t, 80.0, cost[universe.Metal])
	assert.False(t, CanAfford(stocks, cost), "short on deuterium")

	stocks[universe.Deuterium] = 25
	require.True(t, CanAfford(stocks, cost))
	Spend(&stocks, cost)
	assert.Equal(t, [universe.NumResources]float64{20, 25, 5}, stocks)
}
