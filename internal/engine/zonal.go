package engine

import (
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"

	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

// ZonalStatistics implements Engine. Each zone polygon is rasterized over
// the grid (cell centers inside the polygon) and the selected aggregate of
// the covered values is painted back over those cells. Overlapping zones
// are resolved last-writer-wins in zone order; the extraction pipeline
// never produces overlaps.
func (m *Memory) ZonalStatistics(zones []*geom.Polygon, g *raster.Grid, stat Stat) (*raster.Grid, error) {
	if g == nil {
		return nil, eris.New("engine: zonal statistics: nil raster")
	}
	if len(zones) == 0 {
		return nil, eris.New("engine: zonal statistics: no zones")
	}

	out := g.Like()
	for _, zone := range zones {
		cells := RasterizePolygon(g, zone)

		agg, ok := 0.0, false
		for _, idx := range cells {
			v := g.Data[idx]
			if v == g.NoData {
				continue
			}
			if !ok {
				agg, ok = v, true
				continue
			}
			if (stat == StatMin && v < agg) || (stat == StatMax && v > agg) {
				agg = v
			}
		}
		if !ok {
			continue
		}

		for _, idx := range cells {
			if g.Data[idx] != g.NoData {
				out.Data[idx] = agg
			}
		}
	}
	return out, nil
}

// RasterizePolygon returns the indices of cells whose centers lie inside p,
// in row-major order.
func RasterizePolygon(g *raster.Grid, p *geom.Polygon) []int {
	if p == nil || p.NumLinearRings() == 0 {
		return nil
	}

	b := p.Bounds()
	minRow, minCol, _ := g.CellAt(b.Min(0), b.Max(1))
	maxRow, maxCol, _ := g.CellAt(b.Max(0), b.Min(1))
	if minRow < 0 {
		minRow = 0
	}
	if minCol < 0 {
		minCol = 0
	}
	if maxRow >= g.Rows {
		maxRow = g.Rows - 1
	}
	if maxCol >= g.Cols {
		maxCol = g.Cols - 1
	}

	var cells []int
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			x, y := g.CellCenter(r, c)
			if PointInPolygon(p, x, y) {
				cells = append(cells, r*g.Cols+c)
			}
		}
	}
	return cells
}
