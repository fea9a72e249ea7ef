package universe

import "time"

// Terrain types for sectors.
type Terrain uint8

const (
	TerrainDeepSpace     Terrain = iota // Empty vacuum — fast transit, nothing to mine
	TerrainAsteroidField                // Dense rock — metal and crystal
	TerrainNebula                       // Ionized gas — deuterium, sensor interference
	TerrainDebrisField                  // Wreckage of old battles — salvageable metal
	TerrainIonStorm                     // Charged plasma — hazardous, resource-barren
	TerrainStarCluster                  // Young stars — scenic, resource-barren
)

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainDeepSpace:
		return "Deep Space"
	case TerrainAsteroidField:
		return "Asteroid Field"
	case TerrainNebula:
		return "Nebula"
	case TerrainDebrisField:
		return "Debris Field"
	case TerrainIonStorm:
		return "Ion Storm"
	case TerrainStarCluster:
		return "Star Cluster"
	default:
		return "Unknown"
	}
}

// BearsResources reports whether the terrain kind can hold harvestable deposits.
func (t Terrain) BearsResources() bool {
	return t == TerrainAsteroidField || t == TerrainNebula || t == TerrainDebrisField
}

// Resource enumerates the three harvestable resources.
type Resource uint8

const (
	Metal Resource = iota
	Crystal
	Deuterium

	NumResources = 3
)

var resourceNames = [NumResources]string{"metal", "crystal", "deuterium"}

func (r Resource) String() string {
	if int(r) >= NumResources {
		return "unknown"
	}
	return resourceNames[r]
}

// ParseResource maps a resource name to its enum value.
func ParseResource(s string) (Resource, bool) {
	for i, name := range resourceNames {
		if s == name {
			return Resource(i), true
		}
	}
	return 0, false
}

// Density is the ordinal abundance level of one resource in one sector.
type Density uint8

const (
	DensityNone Density = iota
	DensitySparse
	DensityModerate
	DensityRich
	DensityPristine
)

var densityNames = [5]string{"none", "sparse", "moderate", "rich", "pristine"}

func (d Density) String() string {
	if int(d) >= len(densityNames) {
		return "unknown"
	}
	return densityNames[d]
}

// Multiplier returns the harvest-rate multiplier for a density level.
func (d Density) Multiplier() float64 {
	switch d {
	case DensitySparse:
		return 0.5
	case DensityModerate:
		return 1.0
	case DensityRich:
		return 2.0
	case DensityPristine:
		return 4.0
	default:
		return 0
	}
}

// DowngradeThreshold returns the harvest accumulation that drops the density
// one level. Zero means the level cannot degrade further.
func (d Density) DowngradeThreshold() float64 {
	switch d {
	case DensitySparse:
		return 10
	case DensityModerate:
		return 20
	case DensityRich:
		return 30
	case DensityPristine:
		return 40
	default:
		return 0
	}
}

// NPCSpawn describes the hostile presence rolled for a sector at generation.
type NPCSpawn struct {
	ShipCounts map[string]int `json:"ship_counts"` // class name → count
}

// SectorContent is the pure generation output for one coordinate.
// Identical (seed, q, r) inputs always yield identical content.
type SectorContent struct {
	Terrain   Terrain
	Densities [NumResources]Density
	OpenEdges [6]bool
	NPC       *NPCSpawn // nil when the sector spawns empty
}

// Sector is the live, possibly-modified state of one hex.
type Sector struct {
	Coord   HexCoord `json:"coord"`
	Terrain Terrain  `json:"terrain"`

	// BaseDensities is the generation baseline; Densities is current state,
	// decaying under harvesting and regenerating over real-time windows.
	BaseDensities [NumResources]Density `json:"base_densities"`
	Densities     [NumResources]Density `json:"densities"`

	// HarvestAccum tracks extraction toward the next downgrade threshold.
	// Reset to zero whenever the corresponding density drops a level.
	HarvestAccum [NumResources]float64 `json:"harvest_accum"`

	// LastDowngrade timestamps drive real-time regeneration.
	LastDowngrade [NumResources]time.Time `json:"last_downgrade"`

	// OpenEdges marks traversable neighbors, indexed by Direction.
	// Stable for the lifetime of the universe given a fixed seed.
	OpenEdges [6]bool `json:"open_edges"`

	// NPCFleetID references the registry fleet holding this sector's
	// hostiles, if materialized. Zero = none.
	NPCFleetID uint64 `json:"npc_fleet_id,omitempty"`

	// NPCSpawn holds the rolled hostile presence until first visit
	// materializes it, and again while a respawn timer runs.
	NPCSpawn     *NPCSpawn `json:"npc_spawn,omitempty"`
	NPCRespawnAt time.Time `json:"npc_respawn_at,omitempty"`

	// DiscoveredBy is the fog-of-war set: player IDs that have seen this
	// sector.
	DiscoveredBy map[string]bool `json:"discovered_by,omitempty"`

	// Modified marks divergence from the pure-generation baseline. Only
	// modified sectors are ever persisted.
	Modified bool `json:"-"`
}

// OpenEdgeCount returns the number of traversable edges.
func (s *Sector) OpenEdgeCount() int {
	n := 0
	for _, open := range s.OpenEdges {
		if open {
			n++
		}
	}
	return n
}

// HasResources reports whether any resource is currently present.
func (s *Sector) HasResources() bool {
	for _, d := range s.Densities {
		if d > DensityNone {
			return true
		}
	}
	return false
}

// Discovered reports whether the player has seen this sector.
func (s *Sector) Discovered(playerID string) bool {
	return s.DiscoveredBy[playerID]
}
