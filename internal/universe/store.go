package universe

import (
	"time"
)

// Store is the arena-style sector cache keyed by coordinate. On a miss it
// rematerializes the sector from the Generator; sectors that have diverged
// from the generation baseline (harvested, discovered, NPC state) stay
// resident and are the only ones ever persisted.
//
// The Store is not internally locked: the tick engine is the sole mutator,
// and steps are strictly serialized.
type Store struct {
	gen     *Generator
	sectors map[HexCoord]*Sector
	dirty   map[HexCoord]bool

	// RegenWindow is the real-time span after which a downgraded density
	// recovers one level. Independent of the tick clock.
	RegenWindow time.Duration
}

// NewStore creates a store backed by the given generator.
func NewStore(gen *Generator) *Store {
	return &Store{
		gen:         gen,
		sectors:     make(map[HexCoord]*Sector),
		dirty:       make(map[HexCoord]bool),
		RegenWindow: 6 * time.Hour,
	}
}

// Generator exposes the backing generator.
func (st *Store) Generator() *Generator {
	return st.gen
}

// Get returns the sector at coord, materializing it from the generator on
// first reference. Pending regeneration is applied lazily on access.
func (st *Store) Get(coord HexCoord) *Sector {
	if s, ok := st.sectors[coord]; ok {
		st.applyRegeneration(s, time.Now())
		return s
	}
	s := st.materialize(coord)
	st.sectors[coord] = s
	return s
}

// Peek returns the cached sector without materializing, or nil.
func (st *Store) Peek(coord HexCoord) *Sector {
	return st.sectors[coord]
}

// Install places a loaded (persisted) sector into the cache, used during
// boot reload of modified sectors.
func (st *Store) Install(s *Sector) {
	s.Modified = true
	st.sectors[s.Coord] = s
}

func (st *Store) materialize(coord HexCoord) *Sector {
	content := st.gen.Generate(coord)
	return &Sector{
		Coord:         coord,
		Terrain:       content.Terrain,
		BaseDensities: content.Densities,
		Densities:     content.Densities,
		OpenEdges:     content.OpenEdges,
		NPCSpawn:      content.NPC,
	}
}

// MarkModified flags a sector as diverged from its generation baseline and
// queues it for the next persistence batch.
func (st *Store) MarkModified(s *Sector) {
	s.Modified = true
	st.dirty[s.Coord] = true
}

// TakeDirty returns the sectors awaiting persistence and clears the queue.
func (st *Store) TakeDirty() []*Sector {
	if len(st.dirty) == 0 {
		return nil
	}
	out := make([]*Sector, 0, len(st.dirty))
	for coord := range st.dirty {
		if s, ok := st.sectors[coord]; ok {
			out = append(out, s)
		}
	}
	st.dirty = make(map[HexCoord]bool)
	return out
}

// Discover records that a player has seen a sector. Discovery persists, so
// it marks the sector modified.
func (st *Store) Discover(s *Sector, playerID string) bool {
	if s.DiscoveredBy[playerID] {
		return false
	}
	if s.DiscoveredBy == nil {
		s.DiscoveredBy = make(map[string]bool)
	}
	s.DiscoveredBy[playerID] = true
	st.MarkModified(s)
	return true
}

// RecordHarvest adds extracted amounts to a sector's accumulator and
// applies density downgrades when a threshold is crossed. Overflow past the
// threshold is not carried into the next level. Returns the resources whose
// density dropped this call.
func (st *Store) RecordHarvest(s *Sector, res Resource, amount float64, now time.Time) (downgraded bool) {
	if amount <= 0 || s.Densities[res] == DensityNone {
		return false
	}
	s.HarvestAccum[res] += amount
	threshold := s.Densities[res].DowngradeThreshold()
	if threshold > 0 && s.HarvestAccum[res] >= threshold {
		s.Densities[res]--
		s.HarvestAccum[res] = 0
		s.LastDowngrade[res] = now
		downgraded = true
	}
	st.MarkModified(s)
	return downgraded
}

// applyRegeneration upgrades densities that have rested long enough.
// Runs lazily on access so untouched sectors never need a timer.
func (st *Store) applyRegeneration(s *Sector, now time.Time) {
	if st.RegenWindow <= 0 {
		return
	}
	for res := 0; res < NumResources; res++ {
		for s.Densities[res] < s.BaseDensities[res] {
			last := s.LastDowngrade[res]
			if last.IsZero() || now.Sub(last) < st.RegenWindow {
				break
			}
			s.Densities[res]++
			s.HarvestAccum[res] = 0
			s.LastDowngrade[res] = last.Add(st.RegenWindow)
			st.MarkModified(s)
		}
	}
}

// CachedCount returns the number of resident sectors.
func (st *Store) CachedCount() int {
	return len(st.sectors)
}

// ModifiedSectors returns every resident sector that diverged from its
// generation baseline, for full saves.
func (st *Store) ModifiedSectors() []*Sector {
	var out []*Sector
	for _, s := range st.sectors {
		if s.Modified {
			out = append(out, s)
		}
	}
	return out
}

// Evict drops unmodified sectors from the cache; they can always be
// regenerated. Modified sectors stay resident.
func (st *Store) Evict() int {
	n := 0
	for coord, s := range st.sectors {
		if !s.Modified {
			delete(st.sectors, coord)
			n++
		}
	}
	return n
}
