package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b HexCoord
		want int
	}{
		{HexCoord{0, 0}, HexCoord{0, 0}, 0},
		{HexCoord{0, 0}, HexCoord{1, 0}, 1},
		{HexCoord{0, 0}, HexCoord{1, -1}, 1},
		{HexCoord{0, 0}, HexCoord{3, -1}, 3},
		{HexCoord{0, 0}, HexCoord{2, 2}, 4},
		{HexCoord{-2, 1}, HexCoord{3, -1}, 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Distance(tc.a, tc.b), "%v → %v", tc.a, tc.b)
		assert.Equal(t, tc.want, Distance(tc.b, tc.a), "distance must be symmetric")
	}
}

func TestNeighborsAreAdjacent(t *testing.T) {
	c := HexCoord{Q: 4, R: -7}
	for i, n := range c.Neighbors() {
		assert.Equal(t, 1, Distance(c, n))

		dir, ok := c.DirectionTo(n)
		require.True(t, ok)
		assert.Equal(t, Direction(i), dir)

		// The reverse direction lands back on c.
		back, ok := n.DirectionTo(c)
		require.True(t, ok)
		assert.Equal(t, c, n.Neighbor(back))
	}
}

func TestParseDirection(t *testing.T) {
	for i, name := range directionNames {
		d, ok := ParseDirection(name)
		require.True(t, ok, name)
		assert.Equal(t, Direction(i), d)
	}
	_, ok := ParseDirection("up")
	assert.False(t, ok)
}

func TestStepTowardReducesDistance(t *testing.T) {
	from := HexCoord{Q: -6, R: 2}
	target := HexCoord{Q: 5, R: 3}
	cur := from
	for i := 0; i < 50 && cur != target; i++ {
		next := cur.StepToward(target)
		require.Equal(t, Distance(cur, target)-1, Distance(next, target))
		cur = next
	}
	assert.Equal(t, target, cur)
	assert.Equal(t, target, target.StepToward(target))
}

func TestZoneBoundaries(t *testing.T) {
	assert.Equal(t, ZoneHub, ZoneOf(0))
	assert.Equal(t, ZoneInner, ZoneOf(1))
	assert.Equal(t, ZoneInner, ZoneOf(8))
	assert.Equal(t, ZoneOuter, ZoneOf(9))
	assert.Equal(t, ZoneOuter, ZoneOf(20))
	assert.Equal(t, ZoneWandering, ZoneOf(21))
	assert.Equal(t, ZoneWandering, ZoneOf(100))

	assert.Equal(t, ZoneHub, Hub.Zone())
	assert.Equal(t, ZoneInner, HexCoord{Q: 3, R: -1}.Zone())
}

func TestCubeCoordinateInvariant(t *testing.T) {
	for q := -5; q <= 5; q++ {
		for r := -5; r <= 5; r++ {
			c := HexCoord{Q: q, R: r}
			assert.Zero(t, c.Q+c.R+c.S())
		}
	}
}
