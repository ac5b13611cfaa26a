// Package layout decides where nodes go in the 3D scene and how expansion
// children are wired together.
package layout

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"mindmap-backend/domain/core/aggregates"
	"mindmap-backend/domain/core/valueobjects"
)

const (
	// ManualSpread is the half-extent of the cube manual nodes land in
	ManualSpread = 5.0

	// MinRadius and MaxRadius bound the XZ distance of an expansion child
	MinRadius = 6.0
	MaxRadius = 8.0

	// VerticalJitter bounds the Y offset of an expansion child
	VerticalJitter = 2.0

	// AdjacentLinkProbability connects neighbouring children
	AdjacentLinkProbability = 0.3

	// RingLinkProbability connects the first and last child when count > 2
	RingLinkProbability = 0.2
)

// Engine holds the placement policy. The random source is injected so
// placements are reproducible in tests; it is guarded because sessions on
// different maps share one engine.
type Engine struct {
	mu     sync.Mutex
	rng    *rand.Rand
	bounds valueobjects.Bounds
}

// NewEngine creates an engine seeded from the clock
func NewEngine() *Engine {
	return NewEngineWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewEngineWithRand creates an engine drawing from rng
func NewEngineWithRand(rng *rand.Rand) *Engine {
	return &Engine{rng: rng, bounds: valueobjects.SceneBounds}
}

// Bounds returns the drag bounds
func (e *Engine) Bounds() valueobjects.Bounds {
	return e.bounds
}

// ManualPosition picks a spot for a manually added node
func (e *Engine) ManualPosition() valueobjects.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, _ := valueobjects.NewPosition3D(
		e.uniform(-ManualSpread, ManualSpread),
		e.uniform(-ManualSpread, ManualSpread),
		e.uniform(-ManualSpread, ManualSpread),
	)
	return p
}

// Drag moves current by delta and keeps the result inside the bounds
func (e *Engine) Drag(current valueobjects.Position, dx, dy, dz float64) (valueobjects.Position, error) {
	moved, err := current.Translate(dx, dy, dz)
	if err != nil {
		return valueobjects.Position{}, err
	}
	return e.bounds.Clamp(moved), nil
}

// Clamp keeps an absolute drag target inside the bounds
func (e *Engine) Clamp(p valueobjects.Position) valueobjects.Position {
	return e.bounds.Clamp(p)
}

// Radial spreads count children around parent on the XZ plane.
// Results are not clamped.
func (e *Engine) Radial(parent valueobjects.Position, count int) []valueobjects.Position {
	if count <= 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	step := 2 * math.Pi / float64(count)
	out := make([]valueobjects.Position, 0, count)
	for i := 0; i < count; i++ {
		angle := step * float64(i)
		radius := e.uniform(MinRadius, MaxRadius)
		p, _ := valueobjects.NewPosition3D(
			parent.X()+math.Cos(angle)*radius,
			parent.Y()+e.uniform(-VerticalJitter, VerticalJitter),
			parent.Z()+math.Sin(angle)*radius,
		)
		out = append(out, p)
	}
	return out
}

// Connect synthesizes the edges of an expansion batch: the parent to every
// child, some neighbouring children, and sometimes the first and last child.
func (e *Engine) Connect(count int) []aggregates.ExpansionLink {
	if count <= 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	links := make([]aggregates.ExpansionLink, 0, count*2)
	for i := 0; i < count; i++ {
		links = append(links, aggregates.ExpansionLink{From: aggregates.ParentIndex, To: i})
	}
	for i := 0; i+1 < count; i++ {
		if e.rng.Float64() < AdjacentLinkProbability {
			links = append(links, aggregates.ExpansionLink{From: i, To: i + 1})
		}
	}
	if count > 2 && e.rng.Float64() < RingLinkProbability {
		links = append(links, aggregates.ExpansionLink{From: 0, To: count - 1})
	}
	return links
}

// RandomColor picks a color for a new node
func (e *Engine) RandomColor() valueobjects.Color {
	e.mu.Lock()
	defer e.mu.Unlock()
	return valueobjects.RandomColor(e.rng)
}

func (e *Engine) uniform(lo, hi float64) float64 {
	return lo + e.rng.Float64()*(hi-lo)
}
