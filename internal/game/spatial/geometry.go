// Package spatial provides the tile geometry used by the collision layer and
// the movement integrator: pixel/cell conversions, axis-aligned rectangles,
// signed intersection depth and angle interpolation.
//
// Tile size is carried by a Metrics value passed in at construction time.
// There is no package-level tile size.
package spatial

import "math"

// Vec2 is a point or displacement in pixel space.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// IsZero reports whether both components are exactly zero.
func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Normalize returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec2{v.X / l, v.Y / l}
}

// Point is an integer cell coordinate (column X, row Y).
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// IntX returns the column.
func (p Point) IntX() int { return p.X }

// IntY returns the row.
func (p Point) IntY() int { return p.Y }

// CellVector is the coordinate contract shared with path planners: anything
// that can name a grid cell by integer column and row.
type CellVector interface {
	IntX() int
	IntY() int
}

// ToPoint converts any CellVector into a Point.
func ToPoint(cv CellVector) Point {
	return Point{X: cv.IntX(), Y: cv.IntY()}
}

// Rect is an axis-aligned rectangle in pixel space with its origin at the top-left.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Left returns the x coordinate of the left edge.
func (r Rect) Left() float64 { return r.X }

// Top returns the y coordinate of the top edge.
func (r Rect) Top() float64 { return r.Y }

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the centre point of the rectangle.
func (r Rect) Center() Vec2 { return Vec2{r.X + r.W/2, r.Y + r.H/2} }

// Intersects reports whether r and o share interior area. Touching edges do
// not count as an intersection.
func (r Rect) Intersects(o Rect) bool {
	return r.Left() < o.Right() && o.Left() < r.Right() &&
		r.Top() < o.Bottom() && o.Top() < r.Bottom()
}

// Contains reports whether p lies inside r (right and bottom edges exclusive).
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Left() && p.X < r.Right() && p.Y >= r.Top() && p.Y < r.Bottom()
}

// Metrics holds the tile dimensions every conversion is relative to.
type Metrics struct {
	TileWidth  int `json:"tileWidth"`
	TileHeight int `json:"tileHeight"`
}

// DefaultMetrics is the 64x64 tile size the layouts are authored against.
func DefaultMetrics() Metrics {
	return Metrics{TileWidth: 64, TileHeight: 64}
}

// PixelToCell returns the cell containing the pixel position.
// Division truncates toward zero, so small negative coordinates map to cell 0.
func (m Metrics) PixelToCell(p Vec2) Point {
	return Point{
		X: int(p.X / float64(m.TileWidth)),
		Y: int(p.Y / float64(m.TileHeight)),
	}
}

// CellToPixel returns the top-left corner of the cell.
func (m Metrics) CellToPixel(c Point) Vec2 {
	return Vec2{X: float64(c.X * m.TileWidth), Y: float64(c.Y * m.TileHeight)}
}

// CellCenter returns the centre of the cell. A non-zero size further offsets
// the result by half of it, giving the top-left position that centres an
// object of that size inside the cell.
func (m Metrics) CellCenter(c Point, size Vec2) Vec2 {
	origin := m.CellToPixel(c)
	return Vec2{
		X: origin.X + float64(m.TileWidth)/2 - size.X/2,
		Y: origin.Y + float64(m.TileHeight)/2 - size.Y/2,
	}
}

// PointToCellCenter snaps an arbitrary pixel position to the centre of its cell.
func (m Metrics) PointToCellCenter(p Vec2, size Vec2) Vec2 {
	return m.CellCenter(m.PixelToCell(p), size)
}

// RectForCell returns the pixel rectangle covered by the cell.
func (m Metrics) RectForCell(c Point) Rect {
	return Rect{
		X: float64(c.X * m.TileWidth),
		Y: float64(c.Y * m.TileHeight),
		W: float64(m.TileWidth),
		H: float64(m.TileHeight),
	}
}

// IntersectionDepth returns the signed overlap of a and b on each axis.
//
// If the rectangles are separated on either axis the zero vector is returned.
// Otherwise each component is the distance a would have to travel along that
// axis to stop overlapping b; its sign follows the centre-to-centre distance
// (a relative to b), which tells callers which way to push.
func IntersectionDepth(a, b Rect) Vec2 {
	halfWA, halfHA := a.W/2, a.H/2
	halfWB, halfHB := b.W/2, b.H/2

	ca := Vec2{a.X + halfWA, a.Y + halfHA}
	cb := Vec2{b.X + halfWB, b.Y + halfHB}

	dx := ca.X - cb.X
	dy := ca.Y - cb.Y
	minX := halfWA + halfWB
	minY := halfHA + halfHB

	if math.Abs(dx) >= minX || math.Abs(dy) >= minY {
		return Vec2{}
	}

	return Vec2{
		X: signedDepth(dx, minX),
		Y: signedDepth(dy, minY),
	}
}

func signedDepth(distance, minDistance float64) float64 {
	if distance > 0 {
		return minDistance - distance
	}
	return -minDistance - distance
}
