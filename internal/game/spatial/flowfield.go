package spatial

import (
	"container/list"
	"math"
)

// PassableFunc reports whether the cell at column x, row y can be entered.
type PassableFunc func(x, y int) bool

// FlowField holds, for every cell of a grid, the next step on a cheapest
// route to one goal cell. A single field serves every entity heading for
// the same goal.
//
// Moves go to any of the 8 neighbours at cost 1 (orthogonal) or √2
// (diagonal). A diagonal move is only allowed when both orthogonal cells
// beside it are passable, so routes never cut a blocked corner.
//
// Origin: Treuille, Cooper, Popović. "Continuum Crowds." SIGGRAPH 2006.
type FlowField struct {
	cols, rows int
	goal       Point
	passable   []bool
	cost       []float32 // Cost to reach goal; MaxFloat32 when unreachable
	next       []int32   // Next cell index on the route; -1 at the goal or when unreachable
	queue      []int     // Reusable relaxation queue
}

var neighbourSteps = [8]struct {
	dx, dy int
	cost   float32
}{
	{-1, -1, math.Sqrt2}, {0, -1, 1}, {1, -1, math.Sqrt2},
	{-1, 0, 1}, {1, 0, 1},
	{-1, 1, math.Sqrt2}, {0, 1, 1}, {1, 1, math.Sqrt2},
}

// NewFlowField computes the field toward goal over a cols x rows grid.
// If goal is outside the grid or not passable every cell is unreachable.
//
// Time complexity: O(cols × rows)
func NewFlowField(cols, rows int, goal Point, passable PassableFunc) *FlowField {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	size := cols * rows
	f := &FlowField{
		cols:     cols,
		rows:     rows,
		goal:     goal,
		passable: make([]bool, size),
		cost:     make([]float32, size),
		next:     make([]int32, size),
		queue:    make([]int, 0, size),
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			f.passable[y*cols+x] = passable(x, y)
		}
	}
	f.generate()
	return f
}

func (f *FlowField) generate() {
	for i := range f.cost {
		f.cost[i] = math.MaxFloat32
		f.next[i] = -1
	}

	if !f.inBounds(f.goal.X, f.goal.Y) {
		return
	}
	goalIdx := f.goal.Y*f.cols + f.goal.X
	if !f.passable[goalIdx] {
		return
	}

	f.cost[goalIdx] = 0
	f.queue = append(f.queue[:0], goalIdx)

	// Label-correcting search: a cell re-enters the queue whenever a cheaper
	// route to it is found, so the result matches Dijkstra.
	for head := 0; head < len(f.queue); head++ {
		current := f.queue[head]
		col, row := current%f.cols, current/f.cols
		currentCost := f.cost[current]

		for _, s := range neighbourSteps {
			nc, nr := col+s.dx, row+s.dy
			if !f.canStep(col, row, nc, nr) {
				continue
			}

			nidx := nr*f.cols + nc
			if c := currentCost + s.cost; c < f.cost[nidx] {
				f.cost[nidx] = c
				f.next[nidx] = int32(current)
				f.queue = append(f.queue, nidx)
			}
		}
	}
}

// canStep reports whether a single move between two adjacent cells is legal.
func (f *FlowField) canStep(fromX, fromY, toX, toY int) bool {
	if !f.inBounds(toX, toY) || !f.passable[toY*f.cols+toX] {
		return false
	}
	if fromX != toX && fromY != toY {
		return f.passable[fromY*f.cols+toX] && f.passable[toY*f.cols+fromX]
	}
	return true
}

func (f *FlowField) inBounds(x, y int) bool {
	return x >= 0 && x < f.cols && y >= 0 && y < f.rows
}

// Goal returns the cell the field routes to.
func (f *FlowField) Goal() Point { return f.goal }

// Next returns the cell after from on the route to the goal. It returns
// false when from is the goal, is unreachable, or lies outside the grid.
//
// Time complexity: O(1)
func (f *FlowField) Next(from Point) (Point, bool) {
	if !f.inBounds(from.X, from.Y) {
		return Point{}, false
	}
	n := f.next[from.Y*f.cols+from.X]
	if n < 0 {
		return Point{}, false
	}
	return Point{X: int(n) % f.cols, Y: int(n) / f.cols}, true
}

// Cost returns the route cost from c to the goal, false if unreachable.
func (f *FlowField) Cost(c Point) (float64, bool) {
	if !f.inBounds(c.X, c.Y) {
		return 0, false
	}
	cost := f.cost[c.Y*f.cols+c.X]
	if cost == math.MaxFloat32 {
		return 0, false
	}
	return float64(cost), true
}

// Path returns the cells from start to the goal, both included, or nil if
// the goal cannot be reached.
func (f *FlowField) Path(from Point) []Point {
	if _, ok := f.Cost(from); !ok {
		return nil
	}

	path := []Point{from}
	for cur := from; cur != f.goal; {
		next, ok := f.Next(cur)
		if !ok {
			return nil
		}
		path = append(path, next)
		cur = next
	}
	return path
}

// Dimensions returns the grid dimensions.
func (f *FlowField) Dimensions() (cols, rows int) {
	return f.cols, f.rows
}

// FlowFieldCache keeps the most recently used FlowField for up to maxFields
// goal cells, evicting the least recently used one when full. Invalidate
// drops them all whenever passability changes.
// A FlowFieldCache is not safe for concurrent use.
type FlowFieldCache struct {
	cols, rows int
	maxFields  int
	passable   PassableFunc
	fields     map[Point]*list.Element // Value is *FlowField
	recent     *list.List              // Front is most recently used
}

// NewFlowFieldCache creates a cache over a cols x rows grid holding at most
// maxFields fields. maxFields below 1 is treated as 1.
func NewFlowFieldCache(cols, rows, maxFields int, passable PassableFunc) *FlowFieldCache {
	if maxFields < 1 {
		maxFields = 1
	}
	return &FlowFieldCache{
		cols:      cols,
		rows:      rows,
		maxFields: maxFields,
		passable:  passable,
		fields:    make(map[Point]*list.Element, maxFields),
		recent:    list.New(),
	}
}

// Get returns the field toward goal, building it if needed.
func (c *FlowFieldCache) Get(goal Point) *FlowField {
	if el, ok := c.fields[goal]; ok {
		c.recent.MoveToFront(el)
		return el.Value.(*FlowField)
	}

	if c.recent.Len() >= c.maxFields {
		oldest := c.recent.Back()
		c.recent.Remove(oldest)
		delete(c.fields, oldest.Value.(*FlowField).Goal())
	}

	field := NewFlowField(c.cols, c.rows, goal, c.passable)
	c.fields[goal] = c.recent.PushFront(field)
	return field
}

// Invalidate drops every cached field.
func (c *FlowFieldCache) Invalidate() {
	clear(c.fields)
	c.recent.Init()
}

// Len returns the number of cached fields.
func (c *FlowFieldCache) Len() int {
	return c.recent.Len()
}

// Cap returns the most fields the cache holds at once.
func (c *FlowFieldCache) Cap() int {
	return c.maxFields
}
