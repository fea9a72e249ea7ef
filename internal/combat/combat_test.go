package combat

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

var battleground = universe.HexCoord{Q: 4, R: -2}

func newArena(seed int64) (*fleet.Registry, *Manager) {
	reg := fleet.NewRegistry()
	return reg, NewManager(reg, rand.New(rand.NewSource(seed)))
}

func spawn(reg *fleet.Registry, owner string, classes ...fleet.ShipClass) *fleet.Fleet {
	ships := make([]*fleet.Ship, 0, len(classes))
	for _, c := range classes {
		ships = append(ships, fleet.NewShip(reg.NextShipID(), c))
	}
	return reg.Create(owner, battleground, ships)
}

func TestEngageJoinsExistingBattle(t *testing.T) {
	reg, m := newArena(1)
	a := spawn(reg, "alice", fleet.ClassFighter)
	b := spawn(reg, "bob", fleet.ClassFighter)
	c := spawn(reg, "carol", fleet.ClassFighter)

	e1 := m.Engage(battleground, a, b)
	e2 := m.Engage(battleground, c)
	assert.Same(t, e1, e2)
	assert.Len(t, e1.FleetIDs, 3)
	assert.Equal(t, fleet.StateInCombat, a.State)
	assert.Equal(t, e1.ID, c.EngagementID)
	assert.Zero(t, a.TicksSinceCombat)

	// Re-engaging a member is a no-op.
	m.Engage(battleground, a)
	assert.Len(t, e1.FleetIDs, 3)
}

func TestRoundDamageBounds(t *testing.T) {
	reg, m := newArena(2)
	a := spawn(reg, "alice", fleet.ClassCruiser)
	b := spawn(reg, "bob", fleet.ClassCruiser)
	e := m.Engage(battleground, a, b)

	report := m.ResolveRound(e)
	require.NotEmpty(t, report.Shots)
	for _, shot := range report.Shots {
		def := fleet.Def(fleet.ClassCruiser)
		assert.GreaterOrEqual(t, shot.Damage, def.WeaponPower*0.8)
		assert.LessOrEqual(t, shot.Damage, def.WeaponPower*1.2)
		assert.InDelta(t, shot.Damage, shot.ShieldAbsorb+shot.HullDamage, 1e-9,
			"damage splits exactly between shield and hull")
	}
}

func TestShieldsAbsorbBeforeHull(t *testing.T) {
	reg, m := newArena(3)
	a := spawn(reg, "alice", fleet.ClassBattleship)
	b := spawn(reg, "bob", fleet.ClassBattleship)
	e := m.Engage(battleground, a, b)

	report := m.ResolveRound(e)
	first := report.Shots[0]
	assert.Equal(t, first.Damage, first.ShieldAbsorb,
		"a full battleship shield (350) swallows any single hit")
	assert.Zero(t, first.HullDamage)
}

func TestNoNegativeHullOrShield(t *testing.T) {
	reg, m := newArena(4)
	a := spawn(reg, "alice", fleet.ClassBattleship, fleet.ClassBattleship)
	b := spawn(reg, "bob", fleet.ClassScout, fleet.ClassScout, fleet.ClassScout)
	e := m.Engage(battleground, a, b)

	for i := 0; i < 50 && m.Get(e.ID) != nil; i++ {
		m.ResolveRound(e)
		for _, f := range []*fleet.Fleet{a, b} {
			for _, s := range f.Ships {
				assert.GreaterOrEqual(t, s.Hull, 0.0)
				assert.GreaterOrEqual(t, s.Shield, 0.0)
			}
		}
	}
}

func TestBattleRunsToVictory(t *testing.T) {
	reg, m := newArena(5)
	a := spawn(reg, "alice", fleet.ClassBattleship, fleet.ClassCruiser)
	b := spawn(reg, "bob", fleet.ClassFighter, fleet.ClassFighter)
	e := m.Engage(battleground, a, b)

	var last RoundReport
	for i := 0; i < 200; i++ {
		last = m.ResolveRound(e)
		if last.Over {
			break
		}
	}
	require.True(t, last.Over, "two fighters cannot outlast a battleship line")
	assert.Equal(t, "alice", last.VictorOwner)
	assert.Zero(t, b.ShipCount())
	assert.Zero(t, a.EngagementID)
	assert.Equal(t, fleet.StateIdle, a.State)
	assert.Nil(t, m.Get(e.ID))
	assert.Nil(t, m.AtSector(battleground))
}

func TestRetreatRoundIsUnanswered(t *testing.T) {
	reg, m := newArena(6)
	runner := spawn(reg, "alice", fleet.ClassCruiser)
	chaser := spawn(reg, "bob", fleet.ClassCruiser)
	e := m.Engage(battleground, runner, chaser)

	report := m.ResolveRetreat(e, runner)
	require.NotEmpty(t, report.Shots)
	for _, shot := range report.Shots {
		assert.Equal(t, chaser.ID, shot.AttackerFleet, "the retreating fleet never fires")
		assert.Equal(t, runner.ID, shot.TargetFleet)
	}
}

func TestLeaveDissolvesOneSidedBattle(t *testing.T) {
	reg, m := newArena(7)
	a := spawn(reg, "alice", fleet.ClassFighter)
	b := spawn(reg, "bob", fleet.ClassFighter)
	e := m.Engage(battleground, a, b)

	m.Leave(e, a)
	assert.Zero(t, a.EngagementID)
	assert.Zero(t, b.EngagementID, "lone survivor's engagement dissolves")
	assert.Nil(t, m.Get(e.ID))
}

// Rapid-fire continuation fires again with probability 1 - 1/m, so total
// shots per attack form a geometric chain with mean m.
func TestRapidFireExpectation(t *testing.T) {
	cases := []struct {
		attacker fleet.ShipClass
		target   fleet.ShipClass
		mult     float64
	}{
		{fleet.ClassCruiser, fleet.ClassCorvette, 1.5},
		{fleet.ClassCruiser, fleet.ClassFighter, 3},
	}

	for _, tc := range cases {
		rng := rand.New(rand.NewSource(int64(tc.mult * 1000)))
		p := 1 - 1/tc.mult
		const trials = 100_000

		total := 0
		for i := 0; i < trials; i++ {
			shots := 1
			for rng.Float64() < p {
				shots++
			}
			total += shots
		}
		mean := float64(total) / trials
		require.InDelta(t, tc.mult, mean, 0.02,
			"multiplier %.1f should converge to %.1f shots per attack", tc.mult, tc.mult)

		assert.Equal(t, tc.mult, fleet.RapidFireAgainst(tc.attacker, tc.target))
	}
	assert.Zero(t, fleet.RapidFireAgainst(fleet.ClassScout, fleet.ClassBattleship),
		"no bonus means no chain")
}

func TestRapidFireShotsAreFlagged(t *testing.T) {
	reg, m := newArena(8)
	// One cruiser against a wall of scouts: m=3 means chains happen fast.
	a := spawn(reg, "alice", fleet.ClassCruiser)
	b := spawn(reg, "bob", fleet.ClassScout, fleet.ClassScout, fleet.ClassScout,
		fleet.ClassScout, fleet.ClassScout, fleet.ClassScout)
	e := m.Engage(battleground, a, b)

	chained := 0
	for i := 0; i < 20 && m.Get(e.ID) != nil; i++ {
		report := m.ResolveRound(e)
		for _, shot := range report.Shots {
			if shot.RapidFire {
				chained++
				assert.Equal(t, a.ID, shot.AttackerFleet, "only the rapid-fire class chains")
			}
		}
	}
	assert.Greater(t, chained, 0, "a cruiser among scouts must chain at least once")
}

func TestRecallDamageChance(t *testing.T) {
	const trials = 20_000

	for _, tc := range []struct {
		distance int
		want     float64
	}{
		{5, 0.10},
		{20, 0.40},
		{30, 0.60}, // capped
		{50, 0.60},
	} {
		rng := rand.New(rand.NewSource(int64(tc.distance)))
		hit := 0
		for i := 0; i < trials; i++ {
			reg := fleet.NewRegistry()
			f := spawn(reg, "alice", fleet.ClassCorvette)
			before := f.Ships[0].Hull
			RecallDamage(f, tc.distance, rng)
			if len(f.Ships) == 0 || f.Ships[0].Hull < before {
				hit++
			}
		}
		got := float64(hit) / trials
		assert.InDelta(t, tc.want, got, 0.02, "distance %d", tc.distance)
	}
}

func TestRecallDamageMagnitude(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	hullMax := fleet.Def(fleet.ClassBattleship).HullMax

	for i := 0; i < 5000; i++ {
		reg := fleet.NewRegistry()
		f := spawn(reg, "alice", fleet.ClassBattleship)
		before := f.Ships[0].Hull
		RecallDamage(f, 30, rng)
		if len(f.Ships) == 0 {
			continue
		}
		if dmg := before - f.Ships[0].Hull; dmg > 0 {
			assert.GreaterOrEqual(t, dmg, 0.2*hullMax-1e-9)
			assert.LessOrEqual(t, dmg, 0.8*hullMax+1e-9)
		}
	}
}

func TestRecallDamageCanDestroy(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	destroyedTotal := 0
	for i := 0; i < 2000; i++ {
		reg := fleet.NewRegistry()
		f := spawn(reg, "alice", fleet.ClassScout, fleet.ClassScout)
		// Transit damage is at least 0.2×hull_max; a hull already below
		// that line is finished off by any hit.
		for _, s := range f.Ships {
			s.Hull = 5
		}
		destroyed := RecallDamage(f, 50, rng)
		destroyedTotal += len(destroyed)
		assert.Equal(t, 2-len(destroyed), len(f.Ships), "destroyed hulls are purged")
	}
	assert.Greater(t, destroyedTotal, 0)
}

func TestDamageConservation(t *testing.T) {
	// Cruiser vs cruiser: no rapid-fire chain, and a single round cannot
	// destroy (max hit 144 against 150 shield + 400 hull), so reported
	// damage must match integrity lost exactly.
	reg, m := newArena(11)
	a := spawn(reg, "alice", fleet.ClassCruiser)
	b := spawn(reg, "bob", fleet.ClassCruiser)
	e := m.Engage(battleground, a, b)

	totalBefore := fleetIntegrity(a) + fleetIntegrity(b)
	report := m.ResolveRound(e)
	totalAfter := fleetIntegrity(a) + fleetIntegrity(b)

	dealt := 0.0
	for _, shot := range report.Shots {
		dealt += shot.ShieldAbsorb + shot.HullDamage
	}
	require.Len(t, report.Shots, 2)
	assert.InDelta(t, dealt, totalBefore-totalAfter, 1e-6,
		"every point of damage lands somewhere")
	assert.False(t, math.IsNaN(totalAfter))
}

func fleetIntegrity(f *fleet.Fleet) float64 {
	total := 0.0
	for _, s := range f.Ships {
		total += s.Hull + s.Shield
	}
	return total
}
