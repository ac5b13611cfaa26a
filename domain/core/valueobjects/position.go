package valueobjects

import (
	"math"

	pkgerrors "mindmap-backend/pkg/errors"
)

// Position is a value object representing node coordinates in 3D space
type Position struct {
	x float64
	y float64
	z float64
}

// Origin is the centre of the scene
var Origin = Position{}

// NewPosition3D creates a 3D position with validation
func NewPosition3D(x, y, z float64) (Position, error) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) || !isValidCoordinate(z) {
		return Position{}, pkgerrors.NewValidationError("invalid coordinates: must be finite numbers")
	}
	return Position{x: x, y: y, z: z}, nil
}

// X returns the X coordinate
func (p Position) X() float64 {
	return p.x
}

// Y returns the Y coordinate
func (p Position) Y() float64 {
	return p.y
}

// Z returns the Z coordinate
func (p Position) Z() float64 {
	return p.z
}

// DistanceTo calculates the Euclidean distance to another position
func (p Position) DistanceTo(other Position) float64 {
	dx := p.x - other.x
	dy := p.y - other.y
	dz := p.z - other.z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// DistanceXZ is the distance projected on the ground plane
func (p Position) DistanceXZ(other Position) float64 {
	return math.Hypot(p.x-other.x, p.z-other.z)
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	const epsilon = 1e-9
	return math.Abs(p.x-other.x) < epsilon &&
		math.Abs(p.y-other.y) < epsilon &&
		math.Abs(p.z-other.z) < epsilon
}

// Translate moves the position by the given offsets
func (p Position) Translate(dx, dy, dz float64) (Position, error) {
	return NewPosition3D(p.x+dx, p.y+dy, p.z+dz)
}

// Bounds is an axis-aligned box
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// SceneBounds is the box nodes are kept in while dragging
var SceneBounds = Bounds{
	MinX: -15, MaxX: 15,
	MinY: -10, MaxY: 10,
	MinZ: -15, MaxZ: 15,
}

// Clamp limits each axis independently
func (b Bounds) Clamp(p Position) Position {
	return Position{
		x: clamp(p.x, b.MinX, b.MaxX),
		y: clamp(p.y, b.MinY, b.MaxY),
		z: clamp(p.z, b.MinZ, b.MaxZ),
	}
}

// Contains reports whether p lies inside the box, edges included
func (b Bounds) Contains(p Position) bool {
	return p.x >= b.MinX && p.x <= b.MaxX &&
		p.y >= b.MinY && p.y <= b.MaxY &&
		p.z >= b.MinZ && p.z <= b.MaxZ
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// isValidCoordinate checks if a coordinate is a valid finite number
func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
