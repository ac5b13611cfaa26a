package layout

import (
	"math"
	"math/rand"
	"testing"

	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(seed int64) *Engine {
	return NewEngineWithRand(rand.New(rand.NewSource(seed)))
}

func TestManualPositionStaysInCube(t *testing.T) {
	e := newTestEngine(7)
	for i := 0; i < 500; i++ {
		p := e.ManualPosition()
		assert.LessOrEqual(t, math.Abs(p.X()), ManualSpread)
		assert.LessOrEqual(t, math.Abs(p.Y()), ManualSpread)
		assert.LessOrEqual(t, math.Abs(p.Z()), ManualSpread)
	}
}

func TestDragClampsToBounds(t *testing.T) {
	e := newTestEngine(1)
	start, _ := valueobjects.NewPosition3D(14, 9, -14)

	tests := []struct {
		name       string
		dx, dy, dz float64
		want       [3]float64
	}{
		{name: "inside", dx: -1, dy: -1, dz: 1, want: [3]float64{13, 8, -13}},
		{name: "past every wall", dx: 100, dy: 100, dz: -100, want: [3]float64{15, 10, -15}},
		{name: "past the floor", dx: 0, dy: -50, dz: 0, want: [3]float64{14, -10, -14}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Drag(start, tt.dx, tt.dy, tt.dz)
			require.NoError(t, err)
			assert.Equal(t, tt.want, [3]float64{got.X(), got.Y(), got.Z()})
		})
	}

	_, err := e.Drag(start, math.Inf(1), 0, 0)
	assert.Error(t, err)
}

func TestDragResultAlwaysInsideBounds(t *testing.T) {
	e := newTestEngine(3)
	rng := rand.New(rand.NewSource(99))
	p := valueobjects.Origin

	for i := 0; i < 1000; i++ {
		var err error
		p, err = e.Drag(p, rng.NormFloat64()*20, rng.NormFloat64()*20, rng.NormFloat64()*20)
		require.NoError(t, err)
		require.True(t, e.Bounds().Contains(p), "position %v escaped", p)
	}
}

func TestRadialPlacement(t *testing.T) {
	e := newTestEngine(42)
	parent, _ := valueobjects.NewPosition3D(12, 3, -12)

	for _, count := range []int{1, 2, 3, 5} {
		placements := e.Radial(parent, count)
		require.Len(t, placements, count)

		for i, p := range placements {
			d := parent.DistanceXZ(p)
			assert.GreaterOrEqual(t, d, MinRadius-1e-9, "child %d", i)
			assert.LessOrEqual(t, d, MaxRadius+1e-9, "child %d", i)
			assert.LessOrEqual(t, math.Abs(p.Y()-parent.Y()), VerticalJitter+1e-9)

			angle := math.Atan2(p.Z()-parent.Z(), p.X()-parent.X())
			want := 2 * math.Pi * float64(i) / float64(count)
			diff := math.Mod(angle-want+4*math.Pi, 2*math.Pi)
			assert.True(t, diff < 1e-6 || 2*math.Pi-diff < 1e-6, "child %d at angle %f, want %f", i, angle, want)
		}
	}

	assert.Empty(t, e.Radial(parent, 0))
}

func TestRadialIsReproducible(t *testing.T) {
	a := newTestEngine(5).Radial(valueobjects.Origin, 4)
	b := newTestEngine(5).Radial(valueobjects.Origin, 4)
	assert.Equal(t, a, b)
}

func TestConnect(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		for _, count := range []int{1, 2, 3, 5} {
			links := newTestEngine(seed).Connect(count)

			parentLinks := 0
			seen := make(map[[2]int]bool)
			for _, l := range links {
				key := [2]int{l.From, l.To}
				assert.False(t, seen[key], "duplicate link %v", key)
				seen[key] = true

				switch {
				case l.From == aggregates.ParentIndex:
					parentLinks++
				case l.To == l.From+1:
				case l.From == 0 && l.To == count-1 && count > 2:
				default:
					t.Fatalf("unexpected link %v for count %d", l, count)
				}
			}
			assert.Equal(t, count, parentLinks, "every child is linked to the parent")
		}
	}
	assert.Empty(t, newTestEngine(1).Connect(0))
}

func TestConnectProbabilities(t *testing.T) {
	e := newTestEngine(11)
	const runs = 20000
	adjacent, ring := 0, 0
	for i := 0; i < runs; i++ {
		for _, l := range e.Connect(3) {
			switch {
			case l.From == 0 && l.To == 1:
				adjacent++
			case l.From == 0 && l.To == 2:
				ring++
			}
		}
	}
	assert.InDelta(t, AdjacentLinkProbability, float64(adjacent)/runs, 0.02)
	assert.InDelta(t, RingLinkProbability, float64(ring)/runs, 0.02)
}

func TestRandomColor(t *testing.T) {
	e := newTestEngine(9)
	for i := 0; i < 100; i++ {
		_, err := valueobjects.NewColor(e.RandomColor().String())
		require.NoError(t, err)
	}
}
