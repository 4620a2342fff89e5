package collision

import (
	"strings"

	"tile-engine/internal/game/spatial"
)

// Body is the view of a moving entity the layer needs to push it out of walls.
type Body interface {
	Bounds() spatial.Rect
	Center() spatial.Vec2
	SetX(x float64)
	SetY(y float64)
	SetSpeed(speed float64)
}

// Contact is a set of neighbour directions that triggered a correction.
type Contact uint8

// Neighbour directions, in resolution order.
const (
	ContactN Contact = 1 << iota
	ContactS
	ContactW
	ContactE
	ContactNW
	ContactNE
	ContactSW
	ContactSE
)

var contactNames = []struct {
	c    Contact
	name string
}{
	{ContactN, "n"}, {ContactS, "s"}, {ContactW, "w"}, {ContactE, "e"},
	{ContactNW, "nw"}, {ContactNE, "ne"}, {ContactSW, "sw"}, {ContactSE, "se"},
}

// Has reports whether every direction in o is set in c.
func (c Contact) Has(o Contact) bool { return c&o == o }

// Count returns the number of directions set.
func (c Contact) Count() int {
	n := 0
	for v := c; v != 0; v &= v - 1 {
		n++
	}
	return n
}

func (c Contact) String() string {
	if c == 0 {
		return "none"
	}
	parts := make([]string, 0, 8)
	for _, cn := range contactNames {
		if c.Has(cn.c) {
			parts = append(parts, cn.name)
		}
	}
	return strings.Join(parts, "|")
}

// neighbour describes one of the eight cells around the body's centre cell:
// its offset and which way its penetration depth has to point to count.
// sx/sy are -1 (depth must be below -threshold), +1 (above +threshold) or
// 0 (axis not checked).
type neighbour struct {
	contact Contact
	dx, dy  int
	sx, sy  int
}

// Resolution order is fixed; a later neighbour overwrites the position an
// earlier one set in the same call.
var neighbours = [...]neighbour{
	{ContactN, 0, -1, 0, -1},
	{ContactS, 0, 1, 0, 1},
	{ContactW, -1, 0, -1, 0},
	{ContactE, 1, 0, 1, 0},
	{ContactNW, -1, -1, -1, -1},
	{ContactNE, 1, -1, 1, -1},
	{ContactSW, -1, 1, -1, 1},
	{ContactSE, 1, 1, 1, 1},
}

// ResolveBlocking pushes body out of blocking cells around its centre cell.
//
// Each existing neighbour that holds CodeBlocked and overlaps the body is
// tested in order N, S, W, E, NW, NE, SW, SE. A neighbour triggers when the
// body has sunk more than the threshold into it along the axis (or, for
// corners, both axes) facing that neighbour. A triggered neighbour clamps the
// body's position on those axes so that exactly threshold pixels of overlap
// remain, and zeroes its speed.
//
// The centre cell is computed once up front; bounds are re-read before every
// test so later neighbours see earlier corrections.
func (l *Layer) ResolveBlocking(body Body) Contact {
	m := l.cfg.Metrics
	td := l.cfg.Threshold
	cell := m.PixelToCell(body.Center())

	var hit Contact
	for _, n := range neighbours {
		nx, ny := cell.X+n.dx, cell.Y+n.dy
		if !l.InBounds(nx, ny) || l.cells[ny][nx] != CodeBlocked {
			continue
		}

		cellRect := m.RectForCell(spatial.Point{X: nx, Y: ny})
		bounds := body.Bounds()
		if !cellRect.Intersects(bounds) {
			continue
		}

		depth := spatial.IntersectionDepth(cellRect, bounds)
		if !exceeds(depth.X, n.sx, td) || !exceeds(depth.Y, n.sy, td) {
			continue
		}

		if n.sx < 0 {
			body.SetX(float64(cell.X*m.TileWidth) - td)
		} else if n.sx > 0 {
			body.SetX(float64((cell.X+1)*m.TileWidth) - bounds.W + td)
		}
		if n.sy < 0 {
			body.SetY(float64(cell.Y*m.TileHeight) - td)
		} else if n.sy > 0 {
			body.SetY(float64((cell.Y+1)*m.TileHeight) - bounds.H + td)
		}
		body.SetSpeed(0)
		hit |= n.contact
	}

	return hit
}

// exceeds reports whether depth is past the threshold in the direction sign
// asks for. A zero sign means the axis is not part of the test.
func exceeds(depth float64, sign int, threshold float64) bool {
	switch {
	case sign < 0:
		return depth < -threshold
	case sign > 0:
		return depth > threshold
	default:
		return true
	}
}
