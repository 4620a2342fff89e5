// Package collision implements the tile collision layer: a fixed grid of
// integer cell codes, the per-tick blocking resolution that pushes a body out
// of solid neighbour cells, and the terrain effects of special cells.
//
// Cell codes:
//
//	0     blocking (solid)
//	1     open
//	2..9  special terrain: movement modifiers and custom effect events
package collision

import (
	"fmt"

	"tile-engine/internal/game/spatial"
)

// Cell codes with fixed meaning.
const (
	CodeBlocked = 0
	CodeOpen    = 1
	CodeSlow    = 2
	CodeFast    = 3

	minSpecialCode = 2
	maxSpecialCode = 9
)

// DefaultThreshold is the penetration, in pixels, a body may sink into a
// blocking neighbour before it is pushed back.
const DefaultThreshold = 24.0

// Config carries the tile size and penetration threshold a layer works with.
type Config struct {
	Metrics   spatial.Metrics
	Threshold float64
}

// DefaultConfig returns 64x64 tiles with a 24px threshold.
func DefaultConfig() Config {
	return Config{
		Metrics:   spatial.DefaultMetrics(),
		Threshold: DefaultThreshold,
	}
}

// Layer is a rectangular grid of cell codes indexed [row][col].
// Its dimensions are fixed at construction.
//
// A Layer is not safe for concurrent mutation. Callers that read it from
// several goroutines must serialise Set calls against those reads.
type Layer struct {
	cells [][]int
	cfg   Config
}

// NewLayer creates a height x width layer with every cell set to CodeBlocked.
// Both dimensions must be positive.
func NewLayer(height, width int, cfg Config) *Layer {
	if height < 1 || width < 1 {
		panic(fmt.Sprintf("collision: invalid layer size %dx%d", width, height))
	}

	cells := make([][]int, height)
	backing := make([]int, height*width)
	for y := range cells {
		cells[y] = backing[y*width : (y+1)*width : (y+1)*width]
	}

	return &Layer{cells: cells, cfg: cfg}
}

// Width returns the number of columns.
func (l *Layer) Width() int { return len(l.cells[0]) }

// Height returns the number of rows.
func (l *Layer) Height() int { return len(l.cells) }

// WidthInPixels returns the layer width in pixels.
func (l *Layer) WidthInPixels() int { return l.Width() * l.cfg.Metrics.TileWidth }

// HeightInPixels returns the layer height in pixels.
func (l *Layer) HeightInPixels() int { return l.Height() * l.cfg.Metrics.TileHeight }

// Metrics returns the tile size of the layer.
func (l *Layer) Metrics() spatial.Metrics { return l.cfg.Metrics }

// Threshold returns the penetration threshold in pixels.
func (l *Layer) Threshold() float64 { return l.cfg.Threshold }

// InBounds reports whether (x, y) addresses a cell of the layer.
func (l *Layer) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < l.Width() && y < l.Height()
}

// Get returns the code at (x, y). Coordinates outside the layer are clamped
// to the nearest edge cell, so Get never fails.
func (l *Layer) Get(x, y int) int {
	x = clamp(x, 0, l.Width()-1)
	y = clamp(y, 0, l.Height()-1)
	return l.cells[y][x]
}

// GetCell is Get for a cell coordinate.
func (l *Layer) GetCell(c spatial.Point) int {
	return l.Get(c.X, c.Y)
}

// Set stores code at (x, y). Coordinates are not clamped: writing outside
// the layer is a caller bug and panics with an index out of range error.
func (l *Layer) Set(x, y, code int) {
	l.cells[y][x] = code
}

// Rows returns a copy of the grid.
func (l *Layer) Rows() [][]int {
	out := make([][]int, len(l.cells))
	for y, row := range l.cells {
		out[y] = append([]int(nil), row...)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
