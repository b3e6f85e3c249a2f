package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// gridFrom builds a grid from rows of values (row 0 = north), cell size 1,
// origin (0,0), nodata -9999.
func gridFrom(t *testing.T, rows [][]float64) *raster.Grid {
	t.Helper()
	require.NotEmpty(t, rows)
	g := raster.New(len(rows), len(rows[0]), 1, 0, 0, -9999)
	for r, rowVals := range rows {
		require.Len(t, rowVals, g.Cols)
		for c, v := range rowVals {
			g.Set(r, c, v)
		}
	}
	return g
}

func TestMemoryCheckout(t *testing.T) {
	m := NewMemory()
	release, err := m.Checkout(context.Background())
	require.NoError(t, err)
	release()
	release() // double release is harmless
}

func TestMemoryCheckout_NoSeats(t *testing.T) {
	m := NewMemory(WithSeats(0))
	_, err := m.Checkout(context.Background())
	assert.Error(t, err)
}

func TestMemoryCheckout_SeatRoundTrip(t *testing.T) {
	m := NewMemory(WithSeats(1))

	release, err := m.Checkout(context.Background())
	require.NoError(t, err)

	_, err = m.Checkout(context.Background())
	assert.Error(t, err, "second checkout must fail while seat is held")

	release()
	release2, err := m.Checkout(context.Background())
	require.NoError(t, err)
	release2()
}

func TestFill_LevelsBasin(t *testing.T) {
	// 5x5 surface at -10 with a single -14 sink in the middle.
	g := gridFrom(t, [][]float64{
		{-10, -10, -10, -10, -10},
		{-10, -10, -10, -10, -10},
		{-10, -10, -14, -10, -10},
		{-10, -10, -10, -10, -10},
		{-10, -10, -10, -10, -10},
	})

	m := NewMemory()
	filled, err := m.Fill(g, 0)
	require.NoError(t, err)

	// The sink rises to its spill elevation; everything else is untouched.
	assert.Equal(t, -10.0, filled.Value(2, 2))
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			if r == 2 && c == 2 {
				continue
			}
			assert.Equal(t, -10.0, filled.Value(r, c))
		}
	}

	// Input is never mutated.
	assert.Equal(t, -14.0, g.Value(2, 2))
}

func TestFill_ZLimitSkipsDeepSink(t *testing.T) {
	g := gridFrom(t, [][]float64{
		{-10, -10, -10, -10, -10, -10},
		{-10, -12, -10, -10, -10, -10},
		{-10, -10, -10, -10, -30, -10},
		{-10, -10, -10, -10, -10, -10},
	})

	m := NewMemory()
	filled, err := m.Fill(g, 5)
	require.NoError(t, err)

	// 2m-deep sink is filled; 20m-deep sink exceeds the limit and is left.
	assert.Equal(t, -10.0, filled.Value(1, 1))
	assert.Equal(t, -30.0, filled.Value(2, 4))
}

func TestFill_NestedSpill(t *testing.T) {
	// A trench draining through a -11 saddle: interior must rise to the
	// spill elevation, not the surrounding plain.
	g := gridFrom(t, [][]float64{
		{-10, -10, -10, -10, -10},
		{-10, -13, -11, -13, -10},
		{-10, -10, -10, -10, -10},
	})

	m := NewMemory()
	filled, err := m.Fill(g, 0)
	require.NoError(t, err)

	assert.Equal(t, -10.0, filled.Value(1, 1))
	assert.Equal(t, -10.0, filled.Value(1, 2))
	assert.Equal(t, -10.0, filled.Value(1, 3))
}

func TestSubtract(t *testing.T) {
	a := gridFrom(t, [][]float64{{-14, -10}, {-9999, -10}})
	b := gridFrom(t, [][]float64{{-10, -10}, {-10, -9999}})

	m := NewMemory()
	out, err := m.Subtract(a, b)
	require.NoError(t, err)

	assert.Equal(t, -4.0, out.Value(0, 0))
	assert.Equal(t, 0.0, out.Value(0, 1))
	assert.Equal(t, out.NoData, out.Value(1, 0))
	assert.Equal(t, out.NoData, out.Value(1, 1))
}

func TestSubtract_ShapeMismatch(t *testing.T) {
	a := gridFrom(t, [][]float64{{-1, -1}})
	b := gridFrom(t, [][]float64{{-1}})

	m := NewMemory()
	_, err := m.Subtract(a, b)
	assert.Error(t, err)
}

func TestReclassify(t *testing.T) {
	g := gridFrom(t, [][]float64{{-4, -0.5}, {-1, 0}})

	m := NewMemory()
	out, err := m.Reclassify(g, []Remap{{Min: -4, Max: -1, Class: 1}})
	require.NoError(t, err)

	assert.Equal(t, 1.0, out.Value(0, 0))
	assert.Equal(t, out.NoData, out.Value(0, 1), "shallower than -1 drops out")
	assert.Equal(t, 1.0, out.Value(1, 0))
	assert.Equal(t, out.NoData, out.Value(1, 1))
}

func TestRasterToPolygons_SingleCell(t *testing.T) {
	g := raster.New(3, 3, 2, 100, 200, -9999)
	g.Set(1, 1, 1)

	m := NewMemory()
	polys, err := m.RasterToPolygons(g)
	require.NoError(t, err)
	require.Len(t, polys, 1)

	assert.InDelta(t, 4.0, PolygonArea(polys[0]), 1e-9) // one 2x2 cell
	assert.InDelta(t, 8.0, PolygonPerimeter(polys[0]), 1e-9)

	// Ring vertices sit on the cell lattice around cell (1,1).
	b := polys[0].Bounds()
	assert.InDelta(t, 102.0, b.Min(0), 1e-9)
	assert.InDelta(t, 104.0, b.Max(0), 1e-9)
	assert.InDelta(t, 202.0, b.Min(1), 1e-9)
	assert.InDelta(t, 204.0, b.Max(1), 1e-9)
}

func TestRasterToPolygons_TwoComponentsRowMajorOrder(t *testing.T) {
	g := raster.New(3, 5, 1, 0, 0, -9999)
	g.Set(0, 4, 1) // discovered first (row-major)
	g.Set(2, 0, 1)
	g.Set(2, 1, 1)

	m := NewMemory()
	polys, err := m.RasterToPolygons(g)
	require.NoError(t, err)
	require.Len(t, polys, 2)

	assert.InDelta(t, 1.0, PolygonArea(polys[0]), 1e-9)
	assert.InDelta(t, 2.0, PolygonArea(polys[1]), 1e-9)

	// First polygon is the one from the topmost row.
	assert.InDelta(t, 2.0, polys[0].Bounds().Min(1), 1e-9)
	assert.InDelta(t, 3.0, polys[0].Bounds().Max(1), 1e-9)
}

func TestRasterToPolygons_Hole(t *testing.T) {
	// 3x3 block of class 1 with a nodata hole in the center.
	g := raster.New(3, 3, 1, 0, 0, -9999)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if r == 1 && c == 1 {
				continue
			}
			g.Set(r, c, 1)
		}
	}

	m := NewMemory()
	polys, err := m.RasterToPolygons(g)
	require.NoError(t, err)
	require.Len(t, polys, 1)

	assert.Equal(t, 2, polys[0].NumLinearRings(), "outer ring plus hole")
	assert.InDelta(t, 8.0, PolygonArea(polys[0]), 1e-9)
	assert.True(t, PointInPolygon(polys[0], 0.5, 0.5))
	assert.False(t, PointInPolygon(polys[0], 1.5, 1.5), "hole center is outside")
}

func TestRasterToPoints(t *testing.T) {
	g := raster.New(2, 2, 10, 0, 0, -9999)
	g.Set(0, 1, -5)
	g.Set(1, 0, -7)

	m := NewMemory()
	points, err := m.RasterToPoints(g)
	require.NoError(t, err)
	require.Len(t, points, 2)

	// Row-major: north row first.
	assert.Equal(t, ValuePoint{X: 15, Y: 15, Value: -5}, points[0])
	assert.Equal(t, ValuePoint{X: 5, Y: 5, Value: -7}, points[1])
}

func TestZonalStatistics(t *testing.T) {
	g := gridFrom(t, [][]float64{
		{-10, -12, -9999},
		{-14, -11, -20},
	})

	// Zone covering the western 2x2 block.
	zone := mustPolygon(t, [][]geom.Coord{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}})

	m := NewMemory()
	minOut, err := m.ZonalStatistics([]*geom.Polygon{zone}, g, StatMin)
	require.NoError(t, err)
	maxOut, err := m.ZonalStatistics([]*geom.Polygon{zone}, g, StatMax)
	require.NoError(t, err)

	for _, rc := range [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
		assert.Equal(t, -14.0, minOut.Value(rc[0], rc[1]))
		assert.Equal(t, -10.0, maxOut.Value(rc[0], rc[1]))
	}
	// Outside the zone stays nodata.
	assert.Equal(t, minOut.NoData, minOut.Value(1, 2))
}

func TestMinimumBoundingRectangle_AxisAligned(t *testing.T) {
	p := mustPolygon(t, [][]geom.Coord{{{0, 0}, {4, 0}, {4, 2}, {0, 2}, {0, 0}}})

	m := NewMemory()
	corners, err := m.MinimumBoundingRectangle(p)
	require.NoError(t, err)

	d1 := dist(corners[0], corners[1])
	d2 := dist(corners[1], corners[2])
	assert.InDelta(t, 8.0, d1*d2, 1e-9)
	assert.InDelta(t, 4.0, max(d1, d2), 1e-9)
	assert.InDelta(t, 2.0, min(d1, d2), 1e-9)
}

func TestMinimumBoundingRectangle_Rotated(t *testing.T) {
	// A 45-degree oriented sliver: MBR must rotate with it, giving a much
	// smaller area than the axis-aligned bbox (16).
	p := mustPolygon(t, [][]geom.Coord{{{0, 0}, {1, 1}, {4, 4}, {3.5, 4.5}, {0.5, 1.5}, {0, 0}}})

	m := NewMemory()
	corners, err := m.MinimumBoundingRectangle(p)
	require.NoError(t, err)

	d1 := dist(corners[0], corners[1])
	d2 := dist(corners[1], corners[2])
	assert.Less(t, d1*d2, 8.0)
	assert.InDelta(t, 45.0, azimuthOfLongEdge(corners), 1.0)
}

func TestSmoothPolygons_RoundsCorners(t *testing.T) {
	// A stairstepped L-shape; smoothing must pull in the corner vertices
	// while keeping the polygon substantial.
	p := mustPolygon(t, [][]geom.Coord{{
		{0, 0}, {4, 0}, {4, 2}, {2, 2}, {2, 4}, {0, 4}, {0, 0},
	}})

	m := NewMemory()
	out, err := m.SmoothPolygons([]*geom.Polygon{p}, 1.5, 1.0)
	require.NoError(t, err)
	require.Len(t, out, 1)

	smoothedArea := PolygonArea(out[0])
	assert.Greater(t, smoothedArea, 6.0)
	assert.Less(t, smoothedArea, 12.5)

	// Ring stays closed.
	ring := out[0].Coords()[0]
	assert.Equal(t, ring[0], ring[len(ring)-1])
}

func TestSmoothPolygons_DropsSlivers(t *testing.T) {
	sliver := mustPolygon(t, [][]geom.Coord{{{0, 0}, {1, 0}, {1, 0.1}, {0, 0.1}, {0, 0}}})

	m := NewMemory()
	out, err := m.SmoothPolygons([]*geom.Polygon{sliver}, 1, 4.0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFeatureToPoint_Convex(t *testing.T) {
	p := mustPolygon(t, [][]geom.Coord{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}})

	m := NewMemory()
	pt, err := m.FeatureToPoint(p)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pt[0], 1e-9)
	assert.InDelta(t, 1.0, pt[1], 1e-9)
}

func TestFeatureToPoint_ConcaveInterior(t *testing.T) {
	// A "U" whose centroid falls inside the notch; the representative
	// point must still land inside the polygon.
	p := mustPolygon(t, [][]geom.Coord{{
		{0, 0}, {6, 0}, {6, 5}, {4, 5}, {4, 1}, {2, 1}, {2, 5}, {0, 5}, {0, 0},
	}})

	m := NewMemory()
	pt, err := m.FeatureToPoint(p)
	require.NoError(t, err)
	assert.True(t, PointInPolygon(p, pt[0], pt[1]))
}

// --- helpers ---

func mustPolygon(t *testing.T, rings [][]geom.Coord) *geom.Polygon {
	t.Helper()
	p := geom.NewPolygon(geom.XY)
	_, err := p.SetCoords(rings)
	require.NoError(t, err)
	return p
}

func dist(a, b geom.Coord) float64 {
	return math.Hypot(b[0]-a[0], b[1]-a[1])
}

func azimuthOfLongEdge(corners [4]geom.Coord) float64 {
	d1 := dist(corners[0], corners[1])
	d2 := dist(corners[1], corners[2])
	var a, b geom.Coord
	if d1 >= d2 {
		a, b = corners[0], corners[1]
	} else {
		a, b = corners[1], corners[2]
	}
	deg := math.Atan2(b[1]-a[1], b[0]-a[0]) * 180 / math.Pi
	if deg < 0 {
		deg += 180
	}
	if deg >= 180 {
		deg -= 180
	}
	return deg
}
