package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testParams() model.RunParams {
	return model.RunParams{ZLimit: 2.5, MaxAreaM2: 50000, CellSize: 5}
}

func testFeatureSet(t *testing.T) *model.FeatureSet {
	t.Helper()
	poly := geom.NewPolygon(geom.XY)
	_, err := poly.SetCoords([][]geom.Coord{{
		{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0},
	}})
	require.NoError(t, err)

	return &model.FeatureSet{
		Polygons: []model.Depression{{
			DepID:              1,
			Geometry:           poly,
			AreaM2:             100,
			PerimeterM:         40,
			MajorAxisM:         10,
			MinorAxisM:         10,
			Eccentricity:       0,
			AzimuthDeg:         0,
			ThinnessRatio:      0.785,
			DepthM:             -5,
			DiameterDepthRatio: 2,
			Morphology:         model.MorphologyRegular,
		}},
		DeepestPoints: []model.DeepestPoint{{DepID: 1, X: 5, Y: 5, DepthM: -15, ReliefM: 5}},
		Centroids:     []model.CentroidPoint{{DepID: 1, X: 5, Y: 5}},
	}
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "identify", "bathy.asc", testParams())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusExtracting))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusExtracting, got.Status)
	assert.Equal(t, "identify", got.Kind)
	assert.Equal(t, "bathy.asc", got.Source)
	assert.InDelta(t, 2.5, got.Params.ZLimit, 1e-9)
	assert.Nil(t, got.Counts)

	require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunCounts{Polygons: 3, DeepestPoints: 3, Centroids: 3}))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Counts)
	assert.Equal(t, 3, got.Counts.Polygons)
}

func TestSQLiteStore_UpdateMissingRun(t *testing.T) {
	s := newTestSQLite(t)

	err := s.UpdateRunStatus(context.Background(), "no-such-run", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_ListRunsFilter(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	r1, err := s.CreateRun(ctx, "identify", "a.asc", testParams())
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "analyse", "b.shp", testParams())
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, r1.ID, model.RunStatusFailed))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, r1.ID, failed[0].ID)

	analyse, err := s.ListRuns(ctx, RunFilter{Kind: "analyse"})
	require.NoError(t, err)
	require.Len(t, analyse, 1)
	assert.Equal(t, "b.shp", analyse[0].Source)
}

func TestSQLiteStore_SaveLoadFeatures(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "run", "bathy.asc", testParams())
	require.NoError(t, err)

	fs := testFeatureSet(t)
	require.NoError(t, s.SaveFeatures(ctx, run.ID, fs))

	got, err := s.LoadFeatures(ctx, run.ID)
	require.NoError(t, err)

	require.Len(t, got.Polygons, 1)
	d := got.Polygons[0]
	assert.Equal(t, 1, d.DepID)
	assert.InDelta(t, 100.0, d.AreaM2, 1e-9)
	assert.InDelta(t, -5.0, d.DepthM, 1e-9)
	assert.Equal(t, model.MorphologyRegular, d.Morphology)
	require.NotNil(t, d.Geometry)
	assert.Equal(t, fs.Polygons[0].Geometry.FlatCoords(), d.Geometry.FlatCoords())

	require.Len(t, got.DeepestPoints, 1)
	assert.InDelta(t, -15.0, got.DeepestPoints[0].DepthM, 1e-9)

	require.Len(t, got.Centroids, 1)
	assert.InDelta(t, 5.0, got.Centroids[0].X, 1e-9)
}

func TestSQLiteStore_SaveFeaturesReplaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "run", "bathy.asc", testParams())
	require.NoError(t, err)

	require.NoError(t, s.SaveFeatures(ctx, run.ID, testFeatureSet(t)))
	require.NoError(t, s.SaveFeatures(ctx, run.ID, testFeatureSet(t)))

	got, err := s.LoadFeatures(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Polygons, 1)
	assert.Len(t, got.DeepestPoints, 1)
	assert.Len(t, got.Centroids, 1)
}

func TestSQLiteStore_LoadFeaturesEmptyRun(t *testing.T) {
	s := newTestSQLite(t)

	got, err := s.LoadFeatures(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, got.Polygons)
	assert.Empty(t, got.DeepestPoints)
	assert.Empty(t, got.Centroids)
}
