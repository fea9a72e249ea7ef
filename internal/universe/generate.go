// Deterministic sector generation. Every sector's content derives from a
// blake3 hash of (seed, q, r), so the infinite grid never needs to be stored:
// any coordinate can be rematerialized on demand, bit-identical.
package universe

import (
	"encoding/binary"
	"math"
	"math/bits"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
	"lukechampine.com/blake3"
)

// Generator produces sector content for an infinite hex universe.
// Safe for concurrent use: all methods are pure reads of immutable state.
type Generator struct {
	seed int64

	// Noise layers give terrain spatial coherence — asteroid belts and
	// nebulae form clumps instead of uncorrelated speckle.
	rockNoise opensimplex.Noise
	gasNoise  opensimplex.Noise
}

// NewGenerator creates a generator for the given world seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		seed:      seed,
		rockNoise: opensimplex.NewNormalized(seed),
		gasNoise:  opensimplex.NewNormalized(seed + 1),
	}
}

// Seed returns the world seed.
func (g *Generator) Seed() int64 {
	return g.seed
}

// sectorHash derives a stable 64-bit hash for one coordinate.
func (g *Generator) sectorHash(c HexCoord) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(g.seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(c.Q)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(c.R)))
	sum := blake3.Sum256(buf[:])
	return binary.LittleEndian.Uint64(sum[:8])
}

// stream returns the per-sector pseudo-random stream. The same stream is
// used for every roll belonging to that sector, in a fixed order, so results
// never depend on call order between sectors.
func (g *Generator) stream(c HexCoord) *rand.Rand {
	return rand.New(rand.NewSource(int64(g.sectorHash(c))))
}

// Generate produces the full content for one coordinate. Pure: identical
// (seed, q, r) always yields identical output.
func (g *Generator) Generate(c HexCoord) SectorContent {
	rng := g.stream(c)
	dist := c.DistanceFromHub()

	// Fixed roll order: terrain, densities, NPC presence.
	terrain := g.rollTerrain(c, rng, dist)

	var densities [NumResources]Density
	if terrain.BearsResources() {
		densities = rollDensities(rng, terrain, ZoneOf(dist))
	} else {
		// Burn the density rolls so NPC rolls stay aligned across terrains.
		for i := 0; i < NumResources; i++ {
			rng.Float64()
		}
	}

	npc := rollNPC(rng, dist)

	var edges [6]bool
	for i := range edges {
		edges[i] = g.EdgeOpen(c, c.Neighbor(Direction(i)))
	}

	return SectorContent{
		Terrain:   terrain,
		Densities: densities,
		OpenEdges: edges,
		NPC:       npc,
	}
}

// rollTerrain derives the terrain kind from the coherence fields plus one
// stream roll for the non-clumping kinds.
func (g *Generator) rollTerrain(c HexCoord, rng *rand.Rand, dist int) Terrain {
	// Hex axial → cartesian for noise sampling.
	x := float64(c.Q) + float64(c.R)*0.5
	y := float64(c.R) * math.Sqrt(3.0) / 2.0

	rock := octaveNoise(g.rockNoise, x, y, 4, 0.08, 0.5)
	gas := octaveNoise(g.gasNoise, x, y, 3, 0.06, 0.5)
	roll := rng.Float64()

	if rock > 0.62 {
		return TerrainAsteroidField
	}
	if gas > 0.64 {
		return TerrainNebula
	}

	// Storms and old battlefields get more common toward the rim.
	zone := ZoneOf(dist)
	debrisP, ionP, clusterP := 0.05, 0.02, 0.03
	switch zone {
	case ZoneOuter:
		debrisP, ionP = 0.08, 0.05
	case ZoneWandering:
		debrisP, ionP = 0.10, 0.09
	}

	switch {
	case roll < debrisP:
		return TerrainDebrisField
	case roll < debrisP+ionP:
		return TerrainIonStorm
	case roll < debrisP+ionP+clusterP:
		return TerrainStarCluster
	default:
		return TerrainDeepSpace
	}
}

// rollDensities picks a density level per resource, weighted by terrain
// affinity and zone. Rich deposits concentrate far from the hub.
func rollDensities(rng *rand.Rand, terrain Terrain, zone Zone) [NumResources]Density {
	var out [NumResources]Density
	for res := 0; res < NumResources; res++ {
		roll := rng.Float64()
		aff := terrainAffinity(terrain, Resource(res))
		if aff == 0 {
			continue
		}
		out[res] = densityFromRoll(roll*aff, zone)
	}
	return out
}

// terrainAffinity scales the density roll: 0 means the terrain never bears
// that resource at all.
func terrainAffinity(t Terrain, r Resource) float64 {
	switch t {
	case TerrainAsteroidField:
		switch r {
		case Metal:
			return 1.0
		case Crystal:
			return 0.8
		case Deuterium:
			return 0.2
		}
	case TerrainNebula:
		switch r {
		case Deuterium:
			return 1.0
		case Crystal:
			return 0.5
		case Metal:
			return 0.1
		}
	case TerrainDebrisField:
		switch r {
		case Metal:
			return 0.9
		case Crystal:
			return 0.3
		}
	}
	return 0
}

// densityFromRoll maps a weighted roll to an ordinal level. Outer zones
// shift the cut points down, making rich and pristine pockets more likely.
func densityFromRoll(v float64, zone Zone) Density {
	shift := 0.0
	switch zone {
	case ZoneOuter:
		shift = 0.08
	case ZoneWandering:
		shift = 0.16
	}
	switch {
	case v < 0.30-shift:
		return DensityNone
	case v < 0.55-shift:
		return DensitySparse
	case v < 0.78-shift:
		return DensityModerate
	case v < 0.93-shift:
		return DensityRich
	default:
		return DensityPristine
	}
}

// rollNPC decides hostile presence. Probability and strength scale with
// distance; the hub neighborhood stays safe.
func rollNPC(rng *rand.Rand, dist int) *NPCSpawn {
	if dist <= 2 {
		rng.Float64()
		return nil
	}

	p := 0.06 + 0.006*float64(dist)
	if p > 0.35 {
		p = 0.35
	}
	if rng.Float64() >= p {
		return nil
	}

	counts := make(map[string]int)
	switch ZoneOf(dist) {
	case ZoneInner:
		counts["fighter"] = 1 + rng.Intn(2)
	case ZoneOuter:
		counts["fighter"] = 2 + rng.Intn(3)
		if rng.Float64() < 0.4 {
			counts["cruiser"] = 1
		}
	default: // wandering
		counts["fighter"] = 3 + rng.Intn(3)
		counts["cruiser"] = 1 + rng.Intn(2)
		if rng.Float64() < 0.25 {
			counts["battleship"] = 1
		}
	}
	return &NPCSpawn{ShipCounts: counts}
}

// ── Edge connectivity ────────────────────────────────────────────────────

// edgeRoll produces the shared roll for the edge between a and b. The
// stream is seeded from min/max of the endpoint hashes, so both endpoints
// compute the same roll without coordination.
func (g *Generator) edgeRoll(a, b HexCoord) float64 {
	ha, hb := g.sectorHash(a), g.sectorHash(b)
	lo, hi := ha, hb
	if hb < ha {
		lo, hi = hb, ha
	}
	rng := rand.New(rand.NewSource(int64(lo ^ bits.RotateLeft64(hi, 17))))
	return rng.Float64()
}

// edgeSurvival returns the survival probability for an edge, driven by the
// zone of the farther endpoint.
func edgeSurvival(a, b HexCoord) float64 {
	d := a.DistanceFromHub()
	if bd := b.DistanceFromHub(); bd > d {
		d = bd
	}
	switch ZoneOf(d) {
	case ZoneHub:
		return 1.0
	case ZoneInner:
		return 0.95
	case ZoneOuter:
		return 0.80
	default:
		// 60% at the wandering boundary, thinning with distance to a 40% floor.
		p := 0.60 - 0.01*float64(d-21)
		if p < 0.40 {
			p = 0.40
		}
		return p
	}
}

// baseEdgeOpen is the raw pruning decision, before orphan forcing.
func (g *Generator) baseEdgeOpen(a, b HexCoord) bool {
	if a == Hub || b == Hub {
		return true
	}
	return g.edgeRoll(a, b) < edgeSurvival(a, b)
}

// forcedEdge returns the direction a sector forces open when every one of
// its six candidate edges was pruned: the edge with the highest roll, ties
// broken by direction index. Returns -1 when no forcing is needed.
func (g *Generator) forcedEdge(c HexCoord) Direction {
	if c == Hub {
		return -1
	}
	best := Direction(-1)
	bestRoll := -1.0
	for i := 0; i < 6; i++ {
		n := c.Neighbor(Direction(i))
		if g.baseEdgeOpen(c, n) {
			return -1
		}
		if roll := g.edgeRoll(c, n); roll > bestRoll {
			bestRoll = roll
			best = Direction(i)
		}
	}
	return best
}

// EdgeOpen reports whether the edge between adjacent sectors a and b is
// traversable. Symmetric by construction: an edge is open when it survived
// pruning, or when either endpoint had to force it open to avoid becoming
// an orphan.
func (g *Generator) EdgeOpen(a, b HexCoord) bool {
	if g.baseEdgeOpen(a, b) {
		return true
	}
	if dir, ok := a.DirectionTo(b); ok && g.forcedEdge(a) == dir {
		return true
	}
	if dir, ok := b.DirectionTo(a); ok && g.forcedEdge(b) == dir {
		return true
	}
	return false
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
