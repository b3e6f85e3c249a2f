// Package raster provides the in-memory elevation grid model used by the
// depression pipelines. Grids are planar (projected coordinates assumed)
// with square cells and a lower-left origin; row 0 is the northernmost row.
package raster

// Grid is a regular grid of scalar elevation samples. Data is row-major
// with row 0 at the top (maximum Y). Inputs are read-only by convention;
// pipeline stages allocate new grids rather than mutating their inputs.
type Grid struct {
	Rows, Cols int
	CellSize   float64
	XMin, YMin float64 // lower-left corner of the lower-left cell
	NoData     float64
	Data       []float64
}

// New allocates a grid of the given shape with every cell set to nodata.
func New(rows, cols int, cellSize, xmin, ymin, nodata float64) *Grid {
	g := &Grid{
		Rows:     rows,
		Cols:     cols,
		CellSize: cellSize,
		XMin:     xmin,
		YMin:     ymin,
		NoData:   nodata,
		Data:     make([]float64, rows*cols),
	}
	for i := range g.Data {
		g.Data[i] = nodata
	}
	return g
}

// Like allocates an all-nodata grid with the same shape and georeference.
func (g *Grid) Like() *Grid {
	return New(g.Rows, g.Cols, g.CellSize, g.XMin, g.YMin, g.NoData)
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	out := *g
	out.Data = make([]float64, len(g.Data))
	copy(out.Data, g.Data)
	return &out
}

// Value returns the sample at (row, col).
func (g *Grid) Value(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set writes the sample at (row, col).
func (g *Grid) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// InBounds reports whether (row, col) lies on the grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// Valid reports whether (row, col) lies on the grid and holds a real sample.
func (g *Grid) Valid(row, col int) bool {
	return g.InBounds(row, col) && g.Value(row, col) != g.NoData
}

// CellCenter returns the projected coordinates of the center of (row, col).
func (g *Grid) CellCenter(row, col int) (x, y float64) {
	x = g.XMin + (float64(col)+0.5)*g.CellSize
	y = g.YMin + (float64(g.Rows-row)-0.5)*g.CellSize
	return x, y
}

// CellAt returns the cell containing the projected point (x, y).
func (g *Grid) CellAt(x, y float64) (row, col int, ok bool) {
	col = int((x - g.XMin) / g.CellSize)
	row = g.Rows - 1 - int((y-g.YMin)/g.CellSize)
	return row, col, g.InBounds(row, col)
}

// MinMax scans the valid cells and returns their extremes. ok is false when
// the grid holds no valid cells.
func (g *Grid) MinMax() (min, max float64, ok bool) {
	for _, v := range g.Data {
		if v == g.NoData {
			continue
		}
		if !ok {
			min, max, ok = v, v, true
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, ok
}

// EachValid calls fn for every valid cell in row-major order.
func (g *Grid) EachValid(fn func(row, col int, v float64)) {
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if v := g.Value(r, c); v != g.NoData {
				fn(r, c, v)
			}
		}
	}
}
