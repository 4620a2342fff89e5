package game

import (
	"tile-engine/internal/game/spatial"
)

// Body is the placed rectangle of an entity: its top-left position, its
// fixed size and the angle it faces, in radians.
type Body struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Angle float64 `json:"angle"`
}

// NewBody places a w x h body with its top-left corner at pos.
func NewBody(pos spatial.Vec2, w, h float64) *Body {
	return &Body{X: pos.X, Y: pos.Y, W: w, H: h}
}

// Bounds returns the bounding rectangle.
func (b *Body) Bounds() spatial.Rect {
	return spatial.Rect{X: b.X, Y: b.Y, W: b.W, H: b.H}
}

// Center returns the centre of the bounding rectangle.
func (b *Body) Center() spatial.Vec2 {
	return spatial.Vec2{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Position returns the top-left corner.
func (b *Body) Position() spatial.Vec2 {
	return spatial.Vec2{X: b.X, Y: b.Y}
}

// Size returns width and height as a vector.
func (b *Body) Size() spatial.Vec2 {
	return spatial.Vec2{X: b.W, Y: b.H}
}

func (b *Body) SetX(x float64) { b.X = x }
func (b *Body) SetY(y float64) { b.Y = y }

// ClampTo keeps the whole rectangle inside a width x height area anchored at
// the origin. A body larger than the area is pinned to the origin.
func (b *Body) ClampTo(width, height float64) {
	b.X = clampFloat(b.X, 0, width-b.W)
	b.Y = clampFloat(b.Y, 0, height-b.H)
}

func clampFloat(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
