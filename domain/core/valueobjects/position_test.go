package valueobjects

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPosition3D(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z float64
		wantErr bool
	}{
		{name: "origin", x: 0, y: 0, z: 0},
		{name: "positive", x: 10.5, y: 2.75, z: 5.25},
		{name: "negative", x: -10.5, y: -2.75, z: -5.25},
		{name: "outside scene bounds", x: 1e10, y: -1e10, z: 1e10},
		{name: "NaN x", x: math.NaN(), wantErr: true},
		{name: "NaN y", y: math.NaN(), wantErr: true},
		{name: "NaN z", z: math.NaN(), wantErr: true},
		{name: "Infinity x", x: math.Inf(1), wantErr: true},
		{name: "Negative infinity y", y: math.Inf(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := NewPosition3D(tt.x, tt.y, tt.z)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid coordinates")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.x, pos.X())
			assert.Equal(t, tt.y, pos.Y())
			assert.Equal(t, tt.z, pos.Z())
		})
	}
}

func TestPositionDistance(t *testing.T) {
	a, _ := NewPosition3D(0, 0, 0)
	b, _ := NewPosition3D(3, 12, 4)

	assert.InDelta(t, 13.0, a.DistanceTo(b), 1e-9)
	assert.InDelta(t, 5.0, a.DistanceXZ(b), 1e-9)
}

func TestPositionTranslate(t *testing.T) {
	p, _ := NewPosition3D(1, 2, 3)

	moved, err := p.Translate(1, -1, 0.5)
	require.NoError(t, err)
	want, _ := NewPosition3D(2, 1, 3.5)
	assert.True(t, moved.Equals(want))

	_, err = p.Translate(math.NaN(), 0, 0)
	assert.Error(t, err)
}

func TestSceneBoundsClamp(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z float64
		want    [3]float64
	}{
		{name: "inside", x: 1, y: 2, z: 3, want: [3]float64{1, 2, 3}},
		{name: "beyond max", x: 20, y: 11, z: 16, want: [3]float64{15, 10, 15}},
		{name: "beyond min", x: -20, y: -11, z: -99, want: [3]float64{-15, -10, -15}},
		{name: "on the edge", x: 15, y: -10, z: 0, want: [3]float64{15, -10, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPosition3D(tt.x, tt.y, tt.z)
			require.NoError(t, err)

			got := SceneBounds.Clamp(p)
			assert.Equal(t, tt.want, [3]float64{got.X(), got.Y(), got.Z()})
			assert.True(t, SceneBounds.Contains(got))
		})
	}
}

func TestNewColor(t *testing.T) {
	for _, ok := range []string{"#667eea", "#ABCDEF", "#abc"} {
		_, err := NewColor(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "667eea", "#12345", "#gggggg", "blue"} {
		_, err := NewColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestRandomColorIsValid(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		_, err := NewColor(RandomColor(rng).String())
		require.NoError(t, err)
	}
}

func TestNodeIDs(t *testing.T) {
	id := NewNodeIDFromInt(42)
	n, ok := id.Numeric()
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = NodeID("node-a").Numeric()
	assert.False(t, ok)

	parsed, ok := ParseNodeID("  7 ")
	assert.True(t, ok)
	assert.Equal(t, NodeID("7"), parsed)

	_, ok = ParseNodeID("   ")
	assert.False(t, ok)

	assert.Equal(t, EdgeID("1-2"), DeriveEdgeID("1", "2"))
	assert.NotEqual(t, NewRandomEdgeID(), NewRandomEdgeID())
}
