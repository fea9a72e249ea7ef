package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = 20260831

// region enumerates a square patch of coordinates around the hub, big
// enough to cover all three zones.
func region(radius int) []HexCoord {
	var out []HexCoord
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			out = append(out, HexCoord{Q: q, R: r})
		}
	}
	return out
}

func TestGenerateDeterministic(t *testing.T) {
	a := NewGenerator(testSeed)
	b := NewGenerator(testSeed)

	for _, c := range region(12) {
		require.Equal(t, a.Generate(c), b.Generate(c), "sector %v must regenerate identically", c)
	}

	// Call order between sectors must not matter either.
	c1, c2 := HexCoord{Q: 7, R: -3}, HexCoord{Q: -9, R: 11}
	first := a.Generate(c1)
	a.Generate(c2)
	require.Equal(t, first, a.Generate(c1))
}

func TestGenerateSeedSensitivity(t *testing.T) {
	a := NewGenerator(testSeed)
	b := NewGenerator(testSeed + 1)

	diff := 0
	for _, c := range region(10) {
		if ca, cb := a.Generate(c), b.Generate(c); ca.Terrain != cb.Terrain || ca.Densities != cb.Densities {
			diff++
		}
	}
	assert.Greater(t, diff, 0, "different seeds must produce different universes")
}

func TestEdgeSymmetry(t *testing.T) {
	g := NewGenerator(testSeed)
	for _, c := range region(15) {
		for _, n := range c.Neighbors() {
			require.Equal(t, g.EdgeOpen(c, n), g.EdgeOpen(n, c),
				"edge %v-%v must read the same from both endpoints", c, n)
		}
	}
}

func TestNoOrphanSectors(t *testing.T) {
	g := NewGenerator(testSeed)
	for _, c := range region(25) {
		content := g.Generate(c)
		open := 0
		for _, e := range content.OpenEdges {
			if e {
				open++
			}
		}
		require.Greater(t, open, 0, "sector %v (zone %v) has no traversable edge", c, c.Zone())
	}
}

func TestHubAlwaysFullyConnected(t *testing.T) {
	g := NewGenerator(testSeed)
	content := g.Generate(Hub)
	for i, open := range content.OpenEdges {
		assert.True(t, open, "hub edge %s must be open", Direction(i))
	}
	// And the neighbors agree.
	for _, n := range Hub.Neighbors() {
		assert.True(t, g.EdgeOpen(n, Hub))
	}
}

func TestOpenEdgesMatchEdgeOpen(t *testing.T) {
	g := NewGenerator(testSeed)
	for _, c := range region(8) {
		content := g.Generate(c)
		for i := 0; i < 6; i++ {
			n := c.Neighbor(Direction(i))
			require.Equal(t, g.EdgeOpen(c, n), content.OpenEdges[i])
		}
	}
}

func TestSafeZoneHasNoHostiles(t *testing.T) {
	g := NewGenerator(testSeed)
	for _, c := range region(12) {
		if c.DistanceFromHub() > 2 {
			continue
		}
		assert.Nil(t, g.Generate(c).NPC, "sector %v is inside the safe radius", c)
	}
}

func TestResourcesOnlyOnBearingTerrain(t *testing.T) {
	g := NewGenerator(testSeed)
	for _, c := range region(20) {
		content := g.Generate(c)
		if content.Terrain.BearsResources() {
			continue
		}
		for res, d := range content.Densities {
			assert.Equal(t, DensityNone, d,
				"%v holds %s on barren terrain %s", c, Resource(res), TerrainName(content.Terrain))
		}
	}
}

func TestHostilesScaleWithDistance(t *testing.T) {
	g := NewGenerator(testSeed)

	count := func(coords []HexCoord, zone Zone) (sectors, withNPC int) {
		for _, c := range coords {
			if c.Zone() != zone {
				continue
			}
			sectors++
			if g.Generate(c).NPC != nil {
				withNPC++
			}
		}
		return
	}

	coords := region(35)
	innerTotal, innerNPC := count(coords, ZoneInner)
	wanderTotal, wanderNPC := count(coords, ZoneWandering)
	require.Greater(t, innerTotal, 0)
	require.Greater(t, wanderTotal, 0)

	innerRate := float64(innerNPC) / float64(innerTotal)
	wanderRate := float64(wanderNPC) / float64(wanderTotal)
	assert.Greater(t, wanderRate, innerRate,
		"hostile presence should climb toward the rim (inner %.3f, wandering %.3f)", innerRate, wanderRate)
}

func TestDensityMultipliers(t *testing.T) {
	assert.Equal(t, 0.0, DensityNone.Multiplier())
	assert.Equal(t, 0.5, DensitySparse.Multiplier())
	assert.Equal(t, 1.0, DensityModerate.Multiplier())
	assert.Equal(t, 2.0, DensityRich.Multiplier())
	assert.Equal(t, 4.0, DensityPristine.Multiplier())
}

func TestDowngradeThresholds(t *testing.T) {
	assert.Equal(t, 0.0, DensityNone.DowngradeThreshold())
	assert.Equal(t, 10.0, DensitySparse.DowngradeThreshold())
	assert.Equal(t, 20.0, DensityModerate.DowngradeThreshold())
	assert.Equal(t, 30.0, DensityRich.DowngradeThreshold())
	assert.Equal(t, 40.0, DensityPristine.DowngradeThreshold())
}
