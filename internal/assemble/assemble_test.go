package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/engine"
	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func rectangle(t *testing.T, x0, y0, x1, y1 float64) *geom.Polygon {
	t.Helper()
	p := geom.NewPolygon(geom.XY)
	_, err := p.SetCoords([][]geom.Coord{{
		{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0},
	}})
	require.NoError(t, err)
	return p
}

func TestFeatures_JoinAndCentroids(t *testing.T) {
	eng := engine.NewMemory()
	polygons := []model.Depression{
		{DepID: 1, Geometry: rectangle(t, 0, 0, 10, 10), DepthM: -5},
		{DepID: 2, Geometry: rectangle(t, 20, 0, 24, 4), DepthM: -2},
	}
	located := []model.DeepestPoint{
		{X: 3.5, Y: 3.5, DepthM: -15, ReliefM: 5},
		{X: 22, Y: 2, DepthM: -12, ReliefM: 2},
	}

	fs, err := Features(eng, polygons, located)
	require.NoError(t, err)

	require.Len(t, fs.DeepestPoints, 2)
	assert.Equal(t, 1, fs.DeepestPoints[0].DepID)
	assert.InDelta(t, -15.0, fs.DeepestPoints[0].DepthM, 1e-9)
	assert.Equal(t, 2, fs.DeepestPoints[1].DepID)

	require.Len(t, fs.Centroids, 2)
	assert.Equal(t, 1, fs.Centroids[0].DepID)
	assert.InDelta(t, 5.0, fs.Centroids[0].X, 1e-9)
	assert.InDelta(t, 5.0, fs.Centroids[0].Y, 1e-9)
	assert.Equal(t, 2, fs.Centroids[1].DepID)
	assert.InDelta(t, 22.0, fs.Centroids[1].X, 1e-9)
}

func TestFeatures_DedupKeepsFirstPerDepression(t *testing.T) {
	eng := engine.NewMemory()
	polygons := []model.Depression{
		{DepID: 1, Geometry: rectangle(t, 0, 0, 10, 10)},
	}
	// Two equally deep cells inside the same depression.
	located := []model.DeepestPoint{
		{X: 2, Y: 2, DepthM: -15, ReliefM: 5},
		{X: 8, Y: 8, DepthM: -15, ReliefM: 5},
	}

	fs, err := Features(eng, polygons, located)
	require.NoError(t, err)

	require.Len(t, fs.DeepestPoints, 1)
	assert.Equal(t, 1, fs.DeepestPoints[0].DepID)
	assert.InDelta(t, 2.0, fs.DeepestPoints[0].X, 1e-9)
}

func TestFeatures_PointOutsideAllPolygonsDiscarded(t *testing.T) {
	eng := engine.NewMemory()
	polygons := []model.Depression{
		{DepID: 1, Geometry: rectangle(t, 0, 0, 10, 10)},
	}
	located := []model.DeepestPoint{
		{X: 50, Y: 50, DepthM: -3},
	}

	fs, err := Features(eng, polygons, located)
	require.NoError(t, err)

	assert.Empty(t, fs.DeepestPoints)
	require.Len(t, fs.Centroids, 1)
}

func TestFeatures_ConcaveCentroidFallsInside(t *testing.T) {
	eng := engine.NewMemory()
	// U shape whose vertex centroid lies in the notch.
	u := geom.NewPolygon(geom.XY)
	_, err := u.SetCoords([][]geom.Coord{{
		{0, 0}, {12, 0}, {12, 10}, {8, 10}, {8, 2}, {4, 2}, {4, 10}, {0, 10}, {0, 0},
	}})
	require.NoError(t, err)

	fs, err := Features(eng, []model.Depression{{DepID: 1, Geometry: u}}, nil)
	require.NoError(t, err)

	require.Len(t, fs.Centroids, 1)
	c := fs.Centroids[0]
	assert.True(t, engine.PointInPolygon(u, c.X, c.Y))
}
