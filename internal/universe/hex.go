// Package universe provides the hex grid, sector generation, and the
// lazy sector store backing the simulation.
// Uses axial coordinates (q, r) for the hex grid.
package universe

import "fmt"

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// Hub is the center of the universe. Its six edges are always traversable.
var Hub = HexCoord{Q: 0, R: 0}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

func (h HexCoord) String() string {
	return fmt.Sprintf("(%d,%d)", h.Q, h.R)
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
// Index order matches Direction.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},  // east
	{Q: 1, R: -1}, // northeast
	{Q: 0, R: -1}, // northwest
	{Q: -1, R: 0}, // west
	{Q: -1, R: 1}, // southwest
	{Q: 0, R: 1},  // southeast
}

// Direction indexes into HexNeighborDirections.
type Direction int

const (
	DirEast Direction = iota
	DirNortheast
	DirNorthwest
	DirWest
	DirSouthwest
	DirSoutheast
)

var directionNames = [6]string{"east", "northeast", "northwest", "west", "southwest", "southeast"}

func (d Direction) String() string {
	if d < 0 || d > 5 {
		return "unknown"
	}
	return directionNames[d]
}

// ParseDirection maps a direction name (or compass shorthand) to a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "east", "e":
		return DirEast, true
	case "northeast", "ne":
		return DirNortheast, true
	case "northwest", "nw":
		return DirNorthwest, true
	case "west", "w":
		return DirWest, true
	case "southwest", "sw":
		return DirSouthwest, true
	case "southeast", "se":
		return DirSoutheast, true
	}
	return 0, false
}

// Neighbor returns the adjacent coordinate in the given direction.
func (h HexCoord) Neighbor(d Direction) HexCoord {
	off := HexNeighborDirections[d]
	return HexCoord{Q: h.Q + off.Q, R: h.R + off.R}
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// DirectionTo returns the direction from h to an adjacent coordinate.
func (h HexCoord) DirectionTo(n HexCoord) (Direction, bool) {
	for i, dir := range HexNeighborDirections {
		if h.Q+dir.Q == n.Q && h.R+dir.R == n.R {
			return Direction(i), true
		}
	}
	return 0, false
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	// Max of the three absolute differences in cube coordinates.
	max := dq
	if dr > max {
		max = dr
	}
	if ds > max {
		max = ds
	}
	return max
}

// DistanceFromHub returns the hex distance from the universe center.
func (h HexCoord) DistanceFromHub() int {
	return Distance(h, Hub)
}

// StepToward returns the neighbor of h that most reduces the distance to
// target. Returns h itself when already there.
func (h HexCoord) StepToward(target HexCoord) HexCoord {
	if h == target {
		return h
	}
	best := h
	bestDist := Distance(h, target)
	for _, n := range h.Neighbors() {
		if d := Distance(n, target); d < bestDist {
			best = n
			bestDist = d
		}
	}
	return best
}

// Zone classifies a hex by its distance from the hub.
type Zone uint8

const (
	ZoneHub       Zone = iota // distance 0
	ZoneInner                 // 1–8
	ZoneOuter                 // 9–20
	ZoneWandering             // 21+
)

func (z Zone) String() string {
	switch z {
	case ZoneHub:
		return "Hub"
	case ZoneInner:
		return "Inner Ring"
	case ZoneOuter:
		return "Outer Ring"
	case ZoneWandering:
		return "Wandering Reaches"
	default:
		return "Unknown"
	}
}

// ZoneOf returns the zone for a distance from the hub.
func ZoneOf(distance int) Zone {
	switch {
	case distance <= 0:
		return ZoneHub
	case distance <= 8:
		return ZoneInner
	case distance <= 20:
		return ZoneOuter
	default:
		return ZoneWandering
	}
}

// Zone returns the zone classification of the coordinate.
func (h HexCoord) Zone() Zone {
	return ZoneOf(h.DistanceFromHub())
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
