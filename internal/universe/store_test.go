package universe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore(NewGenerator(testSeed))
}

// richMetalSector builds a synthetic sector the harvest tests can mutate
// without hunting the generated universe for the right deposit.
func richMetalSector(coord HexCoord) *Sector {
	s := &Sector{
		Coord:   coord,
		Terrain: TerrainAsteroidField,
	}
	s.BaseDensities[Metal] = DensityRich
	s.Densities[Metal] = DensityRich
	s.OpenEdges[DirEast] = true
	return s
}

func TestLazyMaterialization(t *testing.T) {
	st := newTestStore()
	coord := HexCoord{Q: 5, R: -2}

	assert.Nil(t, st.Peek(coord))
	sec := st.Get(coord)
	require.NotNil(t, sec)
	assert.Same(t, sec, st.Peek(coord))
	assert.Same(t, sec, st.Get(coord))
	assert.Equal(t, 1, st.CachedCount())

	// Content matches pure generation.
	content := st.Generator().Generate(coord)
	assert.Equal(t, content.Terrain, sec.Terrain)
	assert.Equal(t, content.Densities, sec.Densities)
	assert.Equal(t, content.OpenEdges, sec.OpenEdges)
}

func TestHarvestDowngradeAtThreshold(t *testing.T) {
	st := newTestStore()
	sec := richMetalSector(HexCoord{Q: 3, R: 2})
	st.Install(sec)
	now := time.Now()

	// Rich metal at multiplier 2.0 with harvest power 5 extracts 10/tick;
	// the rich threshold is 30, so the third tick triggers the downgrade.
	require.False(t, st.RecordHarvest(sec, Metal, 10, now))
	require.False(t, st.RecordHarvest(sec, Metal, 10, now))
	assert.Equal(t, 20.0, sec.HarvestAccum[Metal])

	require.True(t, st.RecordHarvest(sec, Metal, 10, now))
	assert.Equal(t, DensityModerate, sec.Densities[Metal])
	assert.Zero(t, sec.HarvestAccum[Metal], "accumulator resets on downgrade")
	assert.Equal(t, now, sec.LastDowngrade[Metal])
}

func TestHarvestOverflowNotCarried(t *testing.T) {
	st := newTestStore()
	sec := richMetalSector(HexCoord{Q: 1, R: 1})
	st.Install(sec)
	now := time.Now()

	st.RecordHarvest(sec, Metal, 29, now)
	require.True(t, st.RecordHarvest(sec, Metal, 15, now))
	assert.Equal(t, DensityModerate, sec.Densities[Metal])
	assert.Zero(t, sec.HarvestAccum[Metal], "overflow past the threshold is discarded")
}

func TestHarvestIgnoresDepletedResource(t *testing.T) {
	st := newTestStore()
	sec := richMetalSector(HexCoord{Q: 0, R: 3})
	sec.Densities[Crystal] = DensityNone
	st.Install(sec)

	assert.False(t, st.RecordHarvest(sec, Crystal, 10, time.Now()))
	assert.Zero(t, sec.HarvestAccum[Crystal])
}

func TestRegenerationAfterWindow(t *testing.T) {
	st := newTestStore()
	st.RegenWindow = time.Hour
	sec := richMetalSector(HexCoord{Q: 2, R: 0})
	sec.Densities[Metal] = DensityModerate
	sec.HarvestAccum[Metal] = 12
	sec.LastDowngrade[Metal] = time.Now().Add(-90 * time.Minute)
	st.Install(sec)

	got := st.Get(sec.Coord)
	assert.Equal(t, DensityRich, got.Densities[Metal], "one window elapsed → one level back")
	assert.Zero(t, got.HarvestAccum[Metal])
}

func TestRegenerationNeverExceedsBaseline(t *testing.T) {
	st := newTestStore()
	st.RegenWindow = time.Minute
	sec := richMetalSector(HexCoord{Q: 4, R: 4})
	sec.Densities[Metal] = DensitySparse
	sec.LastDowngrade[Metal] = time.Now().Add(-24 * time.Hour)
	st.Install(sec)

	got := st.Get(sec.Coord)
	assert.Equal(t, DensityRich, got.Densities[Metal], "regeneration stops at the generation baseline")
}

func TestRegenerationWaitsOutTheWindow(t *testing.T) {
	st := newTestStore()
	st.RegenWindow = time.Hour
	sec := richMetalSector(HexCoord{Q: 6, R: 1})
	sec.Densities[Metal] = DensityModerate
	sec.LastDowngrade[Metal] = time.Now().Add(-10 * time.Minute)
	st.Install(sec)

	got := st.Get(sec.Coord)
	assert.Equal(t, DensityModerate, got.Densities[Metal])
}

func TestDirtyTracking(t *testing.T) {
	st := newTestStore()
	sec := st.Get(HexCoord{Q: 1, R: -1})

	assert.Empty(t, st.TakeDirty())

	st.MarkModified(sec)
	dirty := st.TakeDirty()
	require.Len(t, dirty, 1)
	assert.Same(t, sec, dirty[0])
	assert.Empty(t, st.TakeDirty(), "queue clears after take")
}

func TestDiscoverIsSticky(t *testing.T) {
	st := newTestStore()
	sec := st.Get(HexCoord{Q: 2, R: 2})

	require.True(t, st.Discover(sec, "alice"))
	assert.False(t, st.Discover(sec, "alice"), "second discovery is a no-op")
	assert.True(t, sec.Discovered("alice"))
	assert.False(t, sec.Discovered("bob"))
	assert.True(t, sec.Modified, "discovery diverges the sector from baseline")
}

func TestEvictKeepsModified(t *testing.T) {
	st := newTestStore()
	kept := st.Get(HexCoord{Q: 0, R: 1})
	st.MarkModified(kept)
	st.Get(HexCoord{Q: 0, R: 2})
	st.Get(HexCoord{Q: 0, R: 3})

	evicted := st.Evict()
	assert.Equal(t, 2, evicted)
	assert.Same(t, kept, st.Peek(kept.Coord))
	assert.Nil(t, st.Peek(HexCoord{Q: 0, R: 2}))
}
