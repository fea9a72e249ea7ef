package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotschmoe/voidlanes/internal/universe"
)

func newShips(r *Registry, classes ...ShipClass) []*Ship {
	out := make([]*Ship, 0, len(classes))
	for _, c := range classes {
		out = append(out, NewShip(r.NextShipID(), c))
	}
	return out
}

func TestNewShipStartsAtFullStrength(t *testing.T) {
	s := NewShip(1, ClassCruiser)
	def := Def(ClassCruiser)
	assert.Equal(t, def.HullMax, s.Hull)
	assert.Equal(t, def.ShieldMax, s.Shield)
	assert.True(t, s.Alive())
}

func TestParseClass(t *testing.T) {
	for i := 0; i < NumClasses; i++ {
		class := ShipClass(i)
		got, ok := ParseClass(class.String())
		require.True(t, ok)
		assert.Equal(t, class, got)
	}
	_, ok := ParseClass("dreadnought")
	assert.False(t, ok)
}

func TestFuelCapacityGivesRange(t *testing.T) {
	r := NewRegistry()
	f := r.Create("alice", universe.Hub, newShips(r, ClassBattleship))

	// A battleship draws 20 fuel per hex and tanks 500: 25 hexes of range.
	assert.Equal(t, 20.0, f.FuelCostPerHex())
	assert.Equal(t, 500.0, f.FuelMax)
	assert.Equal(t, f.FuelMax, f.Fuel, "fleets start fueled")

	hexes := 0
	for f.Fuel >= f.FuelCostPerHex() {
		f.Fuel -= f.FuelCostPerHex()
		hexes++
	}
	assert.Equal(t, 25, hexes)
}

func TestFleetAggregates(t *testing.T) {
	r := NewRegistry()
	f := r.Create("alice", universe.Hub, newShips(r, ClassScout, ClassFighter, ClassHarvester))

	assert.Equal(t, 3, f.ShipCount())
	assert.Equal(t, 10.0+15.0+150.0, f.CargoCapacity())
	assert.Equal(t, 2.5, f.HarvestPower())
	assert.Equal(t, 2.0+4.0+6.0, f.FuelCostPerHex())
	assert.Equal(t, 3, f.MoveTicksPerHex(), "slowest hull sets the pace")
	assert.Equal(t, 1.0, f.ShieldPct())
	assert.Equal(t, 1.0, f.HullPct())
}

func TestDeadShipsDropOutOfAggregates(t *testing.T) {
	r := NewRegistry()
	f := r.Create("alice", universe.Hub, newShips(r, ClassScout, ClassHarvester))

	f.Ships[1].Hull = 0
	assert.Equal(t, 1, f.ShipCount())
	assert.Equal(t, 10.0, f.CargoCapacity())
	assert.Zero(t, f.HarvestPower())
	assert.Equal(t, 1, f.MoveTicksPerHex())

	removed := f.PurgeDestroyed()
	assert.Equal(t, 1, removed)
	assert.Len(t, f.Ships, 1)
}

func TestRestoreShields(t *testing.T) {
	r := NewRegistry()
	f := r.Create("alice", universe.Hub, newShips(r, ClassFighter, ClassCorvette))
	f.Ships[0].Shield = 0
	f.Ships[1].Shield = 5
	f.Ships[1].Hull = 0 // dead hulls stay down

	f.RestoreShields()
	assert.Equal(t, Def(ClassFighter).ShieldMax, f.Ships[0].Shield)
	assert.Equal(t, 5.0, f.Ships[1].Shield)
}

func TestRegistryIndexes(t *testing.T) {
	r := NewRegistry()
	home := universe.HexCoord{Q: 2, R: -1}
	away := universe.HexCoord{Q: 5, R: 0}

	a := r.Create("alice", home, newShips(r, ClassScout))
	b := r.Create("bob", home, newShips(r, ClassFighter))
	n := r.Create(NPCOwner, away, newShips(r, ClassCruiser))

	assert.Equal(t, 3, r.Count())
	assert.Len(t, r.ByOwner("alice"), 1)
	assert.Len(t, r.At(home), 2)

	hostiles := r.HostilesAt(home, "alice")
	require.Len(t, hostiles, 1)
	assert.Equal(t, b.ID, hostiles[0].ID)
	assert.Empty(t, r.HostilesAt(away, NPCOwner))

	r.Relocate(a, away)
	assert.Len(t, r.At(home), 1)
	assert.Len(t, r.At(away), 2)
	assert.Equal(t, away, a.Location)

	r.Dissolve(n.ID)
	assert.Nil(t, r.Get(n.ID))
	assert.Len(t, r.At(away), 1)
}

func TestRegistryInstallAdvancesCounters(t *testing.T) {
	r := NewRegistry()
	r.Install(&Fleet{ID: 41, Owner: "alice", Ships: []*Ship{{ID: 99, Class: ClassScout, Hull: 40}}})

	f := r.Create("bob", universe.Hub, []*Ship{NewShip(r.NextShipID(), ClassScout)})
	assert.Equal(t, uint64(42), f.ID)
	assert.Equal(t, uint64(100), f.Ships[0].ID)
}

func TestMerge(t *testing.T) {
	r := NewRegistry()
	loc := universe.HexCoord{Q: 1, R: 1}
	dst := r.Create("alice", loc, newShips(r, ClassHarvester))
	src := r.Create("alice", loc, newShips(r, ClassScout))
	src.Cargo[universe.Metal] = 30
	src.Fuel = 10

	require.NoError(t, r.Merge(src, dst))
	assert.Len(t, dst.Ships, 2)
	assert.Equal(t, 30.0, dst.Cargo[universe.Metal])
	assert.Equal(t, (6.0+2.0)*25, dst.FuelMax)
	assert.LessOrEqual(t, dst.Fuel, dst.FuelMax)
	assert.Nil(t, r.Get(src.ID))
}

func TestMergeRejectsMismatches(t *testing.T) {
	r := NewRegistry()
	a := r.Create("alice", universe.Hub, newShips(r, ClassScout))
	b := r.Create("bob", universe.Hub, newShips(r, ClassScout))
	c := r.Create("alice", universe.HexCoord{Q: 1, R: 0}, newShips(r, ClassScout))

	assert.Error(t, r.Merge(a, b))
	assert.Error(t, r.Merge(a, c))
}

func TestTakeDirtyReportsDissolved(t *testing.T) {
	r := NewRegistry()
	f := r.Create("alice", universe.Hub, newShips(r, ClassScout))
	r.TakeDirty() // clear creation dirt

	r.Dissolve(f.ID)
	dirty := r.TakeDirty()
	require.Contains(t, dirty, f.ID)
	assert.Nil(t, dirty[f.ID], "nil entry marks a deletion")
	assert.Nil(t, r.TakeDirty())
}
