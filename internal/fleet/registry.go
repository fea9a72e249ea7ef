package fleet

import (
	"fmt"

	"github.com/hotschmoe/voidlanes/internal/universe"
)

// Registry exclusively owns all live Fleet and Ship state. Everything else
// addresses ships through stable ids, never through copies. Not internally
// locked: the tick engine is the only mutator and steps are serialized.
type Registry struct {
	fleets   map[uint64]*Fleet
	byOwner  map[string]map[uint64]bool
	bySector map[universe.HexCoord]map[uint64]bool

	nextFleetID uint64
	nextShipID  uint64

	dirty map[uint64]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fleets:      make(map[uint64]*Fleet),
		byOwner:     make(map[string]map[uint64]bool),
		bySector:    make(map[universe.HexCoord]map[uint64]bool),
		nextFleetID: 1,
		nextShipID:  1,
	}
}

// NextShipID allocates a fresh ship id.
func (r *Registry) NextShipID() uint64 {
	id := r.nextShipID
	r.nextShipID++
	return id
}

// Create registers a new fleet with the given ships at a location.
// FuelMax derives from ship count; the fleet starts fueled.
func (r *Registry) Create(owner string, loc universe.HexCoord, ships []*Ship) *Fleet {
	f := &Fleet{
		ID:            r.nextFleetID,
		Owner:         owner,
		Ships:         ships,
		Location:      loc,
		State:         StateIdle,
		HarvestTarget: -1,
	}
	r.nextFleetID++
	f.FuelMax = fuelCapacity(ships)
	f.Fuel = f.FuelMax

	r.fleets[f.ID] = f
	r.index(f)
	r.MarkDirty(f.ID)
	return f
}

// Install places a loaded fleet into the registry during boot, keeping id
// counters ahead of everything on disk.
func (r *Registry) Install(f *Fleet) {
	r.fleets[f.ID] = f
	r.index(f)
	if f.ID >= r.nextFleetID {
		r.nextFleetID = f.ID + 1
	}
	for _, s := range f.Ships {
		if s.ID >= r.nextShipID {
			r.nextShipID = s.ID + 1
		}
	}
}

// fuelCapacity: each hull contributes 25× its per-hex draw, so any
// composition has a ~25 hex one-way range when topped up.
func fuelCapacity(ships []*Ship) float64 {
	total := 0.0
	for _, s := range ships {
		total += Def(s.Class).FuelPerHex * 25
	}
	return total
}

// RecalcFuelMax re-derives fuel capacity after roster changes, clamping
// current fuel to the new maximum.
func (r *Registry) RecalcFuelMax(f *Fleet) {
	f.FuelMax = fuelCapacity(f.LivingShips())
	if f.Fuel > f.FuelMax {
		f.Fuel = f.FuelMax
	}
}

// Get returns a fleet by id, or nil.
func (r *Registry) Get(id uint64) *Fleet {
	return r.fleets[id]
}

// All returns every registered fleet.
func (r *Registry) All() []*Fleet {
	out := make([]*Fleet, 0, len(r.fleets))
	for _, f := range r.fleets {
		out = append(out, f)
	}
	return out
}

// Count returns the number of registered fleets.
func (r *Registry) Count() int {
	return len(r.fleets)
}

// ByOwner returns the fleets a player owns.
func (r *Registry) ByOwner(owner string) []*Fleet {
	var out []*Fleet
	for id := range r.byOwner[owner] {
		out = append(out, r.fleets[id])
	}
	return out
}

// At returns the fleets currently in a sector.
func (r *Registry) At(loc universe.HexCoord) []*Fleet {
	var out []*Fleet
	for id := range r.bySector[loc] {
		out = append(out, r.fleets[id])
	}
	return out
}

// HostilesAt returns fleets in the sector with a different owner than the
// given player.
func (r *Registry) HostilesAt(loc universe.HexCoord, owner string) []*Fleet {
	var out []*Fleet
	for id := range r.bySector[loc] {
		f := r.fleets[id]
		if f.Owner != owner && f.ShipCount() > 0 {
			out = append(out, f)
		}
	}
	return out
}

// Relocate moves a fleet to a new sector, keeping the spatial index
// consistent.
func (r *Registry) Relocate(f *Fleet, to universe.HexCoord) {
	r.unindexSector(f)
	f.Location = to
	r.indexSector(f)
	r.MarkDirty(f.ID)
}

// Dissolve removes a fleet from the registry entirely.
func (r *Registry) Dissolve(id uint64) {
	f, ok := r.fleets[id]
	if !ok {
		return
	}
	r.unindexSector(f)
	if m := r.byOwner[f.Owner]; m != nil {
		delete(m, id)
	}
	delete(r.fleets, id)
	r.MarkDirty(id)
}

// Merge folds src's ships, cargo, and fuel into dst and dissolves src.
// Both fleets must share an owner and a location.
func (r *Registry) Merge(src, dst *Fleet) error {
	if src.Owner != dst.Owner {
		return fmt.Errorf("merge across owners %q and %q", src.Owner, dst.Owner)
	}
	if src.Location != dst.Location {
		return fmt.Errorf("merge across sectors %v and %v", src.Location, dst.Location)
	}
	dst.Ships = append(dst.Ships, src.LivingShips()...)
	for i := range src.Cargo {
		dst.Cargo[i] += src.Cargo[i]
	}
	r.RecalcFuelMax(dst)
	dst.Fuel += src.Fuel
	if dst.Fuel > dst.FuelMax {
		dst.Fuel = dst.FuelMax
	}
	src.Ships = nil
	r.Dissolve(src.ID)
	r.MarkDirty(dst.ID)
	return nil
}

// MarkDirty queues a fleet for the next persistence batch.
func (r *Registry) MarkDirty(id uint64) {
	if r.dirty == nil {
		r.dirty = make(map[uint64]bool)
	}
	r.dirty[id] = true
}

// TakeDirty returns fleets awaiting persistence (nil entries mean the fleet
// was dissolved and should be deleted from storage) and clears the queue.
func (r *Registry) TakeDirty() map[uint64]*Fleet {
	if len(r.dirty) == 0 {
		return nil
	}
	out := make(map[uint64]*Fleet, len(r.dirty))
	for id := range r.dirty {
		out[id] = r.fleets[id] // nil when dissolved
	}
	r.dirty = nil
	return out
}

func (r *Registry) index(f *Fleet) {
	if r.byOwner[f.Owner] == nil {
		r.byOwner[f.Owner] = make(map[uint64]bool)
	}
	r.byOwner[f.Owner][f.ID] = true
	r.indexSector(f)
}

func (r *Registry) indexSector(f *Fleet) {
	if r.bySector[f.Location] == nil {
		r.bySector[f.Location] = make(map[uint64]bool)
	}
	r.bySector[f.Location][f.ID] = true
}

func (r *Registry) unindexSector(f *Fleet) {
	if m := r.bySector[f.Location]; m != nil {
		delete(m, f.ID)
		if len(m) == 0 {
			delete(r.bySector, f.Location)
		}
	}
}
