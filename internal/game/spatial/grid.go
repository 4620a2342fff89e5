package spatial

// Occupancy indexes entity slots by the tile their centre falls in.
// It is rebuilt from scratch every tick; cells keep their capacity between
// rebuilds so steady-state ticks do not allocate.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col]).
type Occupancy struct {
	metrics    Metrics
	cols, rows int
	cells      [][]uint32
}

// NewOccupancy creates an index covering cols x rows tiles.
// maxEntities is used to size each cell's initial capacity.
func NewOccupancy(m Metrics, cols, rows, maxEntities int) *Occupancy {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	avgPerCell := maxEntities / len(cells)
	if avgPerCell < 2 {
		avgPerCell = 2
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, avgPerCell)
	}

	return &Occupancy{
		metrics: m,
		cols:    cols,
		rows:    rows,
		cells:   cells,
	}
}

// Clear resets all cells without releasing their memory.
func (o *Occupancy) Clear() {
	for i := range o.cells {
		o.cells[i] = o.cells[i][:0]
	}
}

// Insert records slot at the cell containing the pixel position.
// Positions off the grid are clamped to the nearest edge cell.
func (o *Occupancy) Insert(slot uint32, pos Vec2) {
	idx := o.index(o.metrics.PixelToCell(pos))
	o.cells[idx] = append(o.cells[idx], slot)
}

// QueryCell returns the slots recorded in a cell. The slice is owned by the
// index and is only valid until the next Clear.
func (o *Occupancy) QueryCell(c Point) []uint32 {
	return o.cells[o.index(c)]
}

func (o *Occupancy) index(c Point) int {
	col, row := c.X, c.Y
	if col < 0 {
		col = 0
	}
	if col >= o.cols {
		col = o.cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= o.rows {
		row = o.rows - 1
	}
	return row*o.cols + col
}

// Stats returns occupancy statistics for debugging.
func (o *Occupancy) Stats() OccupancyStats {
	var total, maxInCell, nonEmpty int
	for _, cell := range o.cells {
		n := len(cell)
		total += n
		if n > maxInCell {
			maxInCell = n
		}
		if n > 0 {
			nonEmpty++
		}
	}
	return OccupancyStats{
		TotalCells:    len(o.cells),
		NonEmptyCells: nonEmpty,
		TotalEntities: total,
		MaxInCell:     maxInCell,
	}
}

// OccupancyStats summarises an Occupancy.
type OccupancyStats struct {
	TotalCells    int `json:"totalCells"`
	NonEmptyCells int `json:"nonEmptyCells"`
	TotalEntities int `json:"totalEntities"`
	MaxInCell     int `json:"maxInCell"`
}

// Dimensions returns the index dimensions in tiles.
func (o *Occupancy) Dimensions() (cols, rows int) {
	return o.cols, o.rows
}
