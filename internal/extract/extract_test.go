package extract

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/engine"
	"github.com/seabed-analytics/pockmark-cli/internal/model"
	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// testBathy builds a 12x12 plain at -10 m containing a 3x3 pockmark at
// -15 m (rows/cols 4-6) and a single-cell pit at -13 m (speckle).
func testBathy(t *testing.T) *raster.Grid {
	t.Helper()
	g := raster.New(12, 12, 1, 0, 0, -9999)
	for r := 0; r < 12; r++ {
		for c := 0; c < 12; c++ {
			g.Set(r, c, -10)
		}
	}
	for r := 4; r <= 6; r++ {
		for c := 4; c <= 6; c++ {
			g.Set(r, c, -15)
		}
	}
	g.Set(9, 9, -13)
	return g
}

func TestValidateNegative(t *testing.T) {
	g := testBathy(t)
	assert.NoError(t, ValidateNegative(g))

	g.Set(0, 0, 2.5)
	err := ValidateNegative(g)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotNegative))
}

func TestValidateNegative_EmptyGrid(t *testing.T) {
	g := raster.New(2, 2, 1, 0, 0, -9999)
	err := ValidateNegative(g)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotNegative))
}

func TestDepressions(t *testing.T) {
	eng := engine.NewMemory()
	candidates, err := Depressions(eng, testBathy(t), Params{ZLimit: 10, MaxArea: 1000})
	require.NoError(t, err)

	// The 3x3 pockmark survives; the single-cell pit is below the
	// (2*cellsize)^2 speckle floor.
	require.Len(t, candidates, 1)
	assert.InDelta(t, 9.0, candidates[0].AreaM2, 1e-9)
	assert.InDelta(t, -5.0, candidates[0].DepthM, 1e-9, "fill depth of the -15 m pit under a -10 m spill")
}

func TestDepressions_ZLimitExcludesDeepBasin(t *testing.T) {
	eng := engine.NewMemory()
	_, err := Depressions(eng, testBathy(t), Params{ZLimit: 3, MaxArea: 1000})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNoFeatures))
}

func TestDepressions_AreaFilterExcludesAll(t *testing.T) {
	eng := engine.NewMemory()
	_, err := Depressions(eng, testBathy(t), Params{ZLimit: 10, MaxArea: 5})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNoFeatures))
}

func TestDepressions_FlatSurface(t *testing.T) {
	g := raster.New(6, 6, 1, 0, 0, -9999)
	for i := range g.Data {
		g.Data[i] = -10
	}

	eng := engine.NewMemory()
	_, err := Depressions(eng, g, Params{ZLimit: 10, MaxArea: 1000})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNoFeatures))
}

func TestDepressions_Deterministic(t *testing.T) {
	eng := engine.NewMemory()
	a, err := Depressions(eng, testBathy(t), Params{ZLimit: 10, MaxArea: 1000})
	require.NoError(t, err)
	b, err := Depressions(eng, testBathy(t), Params{ZLimit: 10, MaxArea: 1000})
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].AreaM2, b[i].AreaM2)
		assert.Equal(t, a[i].DepthM, b[i].DepthM)
		assert.Equal(t, a[i].Geometry.FlatCoords(), b[i].Geometry.FlatCoords())
	}
}
