package depth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/engine"
	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func zonePolygon(t *testing.T, minX, minY, maxX, maxY float64) *geom.Polygon {
	t.Helper()
	p := geom.NewPolygon(geom.XY)
	_, err := p.SetCoords([][]geom.Coord{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}})
	require.NoError(t, err)
	return p
}

func TestLocate_SingleDeepestCell(t *testing.T) {
	g := raster.New(4, 4, 1, 0, 0, -9999)
	for i := range g.Data {
		g.Data[i] = -10
	}
	g.Set(1, 2, -16) // the deepest cell of the zone

	zone := zonePolygon(t, 0, 0, 4, 4)

	eng := engine.NewMemory()
	points, err := Locate(eng, g, []*geom.Polygon{zone})
	require.NoError(t, err)
	require.Len(t, points, 1)

	assert.InDelta(t, 2.5, points[0].X, 1e-9)
	assert.InDelta(t, 2.5, points[0].Y, 1e-9)
	assert.Equal(t, -16.0, points[0].DepthM, "raw sample, not a derived difference")
	assert.InDelta(t, 6.0, points[0].ReliefM, 1e-9)
}

func TestLocate_ToleranceAbsorbsFloatNoise(t *testing.T) {
	g := raster.New(3, 3, 1, 0, 0, -9999)
	for i := range g.Data {
		g.Data[i] = -10
	}
	g.Set(0, 0, -15)
	g.Set(2, 2, -15.0000001) // within epsilon of the zonal minimum

	zone := zonePolygon(t, 0, 0, 3, 3)

	eng := engine.NewMemory()
	points, err := Locate(eng, g, []*geom.Polygon{zone})
	require.NoError(t, err)

	// Both near-minimum cells qualify; dedup to one per depression is the
	// assembler's job.
	assert.Len(t, points, 2)
}

func TestLocate_TwoZones(t *testing.T) {
	g := raster.New(4, 8, 1, 0, 0, -9999)
	for i := range g.Data {
		g.Data[i] = -10
	}
	g.Set(1, 1, -14)
	g.Set(2, 6, -18)

	west := zonePolygon(t, 0, 0, 4, 4)
	east := zonePolygon(t, 4, 0, 8, 4)

	eng := engine.NewMemory()
	points, err := Locate(eng, g, []*geom.Polygon{west, east})
	require.NoError(t, err)
	require.Len(t, points, 2)

	depths := []float64{points[0].DepthM, points[1].DepthM}
	assert.Contains(t, depths, -14.0)
	assert.Contains(t, depths, -18.0)
}
