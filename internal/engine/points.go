package engine

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"

	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

// RasterToPoints implements Engine. Points are emitted at cell centers in
// row-major order.
func (m *Memory) RasterToPoints(g *raster.Grid) ([]ValuePoint, error) {
	if g == nil {
		return nil, eris.New("engine: raster to points: nil raster")
	}

	var points []ValuePoint
	g.EachValid(func(row, col int, v float64) {
		x, y := g.CellCenter(row, col)
		points = append(points, ValuePoint{X: x, Y: y, Value: v})
	})
	return points, nil
}

// FeatureToPoint implements Engine. The centroid is used when it falls
// inside the polygon; otherwise the midpoint of the widest interior span on
// the centroid's horizontal is taken, which always lies inside.
func (m *Memory) FeatureToPoint(p *geom.Polygon) (geom.Coord, error) {
	if p == nil || p.NumLinearRings() == 0 {
		return nil, eris.New("engine: feature to point: empty polygon")
	}

	cx, cy := polygonCentroid(p)
	if PointInPolygon(p, cx, cy) {
		return geom.Coord{cx, cy}, nil
	}

	// Intersect the horizontal through the centroid with every ring edge;
	// between consecutive crossings the line alternates inside/outside.
	var xs []float64
	for _, ring := range p.Coords() {
		n := len(ring)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			y1, y2 := ring[i][1], ring[j][1]
			if (y1 > cy) == (y2 > cy) {
				continue
			}
			t := (cy - y1) / (y2 - y1)
			xs = append(xs, ring[i][0]+t*(ring[j][0]-ring[i][0]))
		}
	}
	if len(xs) < 2 {
		return nil, eris.New("engine: feature to point: no interior span")
	}
	sort.Float64s(xs)

	best, bestWidth := geom.Coord(nil), -1.0
	for i := 0; i+1 < len(xs); i++ {
		mid := (xs[i] + xs[i+1]) / 2
		if !PointInPolygon(p, mid, cy) {
			continue
		}
		if w := xs[i+1] - xs[i]; w > bestWidth {
			bestWidth = w
			best = geom.Coord{mid, cy}
		}
	}
	if best == nil {
		return nil, eris.New("engine: feature to point: no interior span")
	}
	return best, nil
}

// polygonCentroid returns the area-weighted centroid, holes subtracted.
// Falls back to the vertex mean for zero-area slivers.
func polygonCentroid(p *geom.Polygon) (float64, float64) {
	var areaSum, cxSum, cySum float64
	for _, ring := range p.Coords() {
		n := len(ring)
		if n < 3 {
			continue
		}
		var a, cx, cy float64
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			cross := ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
			a += cross
			cx += (ring[i][0] + ring[j][0]) * cross
			cy += (ring[i][1] + ring[j][1]) * cross
		}
		// Signed contributions: the CCW outer ring adds, CW holes subtract.
		areaSum += a / 2
		cxSum += cx / 6
		cySum += cy / 6
	}

	if math.Abs(areaSum) < 1e-12 {
		var sx, sy float64
		var n int
		for _, ring := range p.Coords() {
			for _, c := range ring {
				sx += c[0]
				sy += c[1]
				n++
			}
		}
		if n == 0 {
			return 0, 0
		}
		return sx / float64(n), sy / float64(n)
	}
	return cxSum / areaSum, cySum / areaSum
}
