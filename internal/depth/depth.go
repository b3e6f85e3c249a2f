// Package depth locates the deepest raster cell within each depression.
package depth

import (
	"math"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/engine"
	"github.com/seabed-analytics/pockmark-cli/internal/model"
	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

// Epsilon absorbs 32-bit floating rounding when comparing a cell against
// the computed zonal minimum.
const Epsilon = 1e-3

// Locate finds, per zone polygon, the raster cells closest to the zonal
// minimum elevation and converts them to point features. Points carry the
// raw sampled elevation from the source raster (not a derived difference)
// and the local relief (zonal max minus zonal min). DepID assignment
// happens later, during assembly.
func Locate(eng engine.Engine, bathy *raster.Grid, zones []*geom.Polygon) ([]model.DeepestPoint, error) {
	zmin, err := eng.ZonalStatistics(zones, bathy, engine.StatMin)
	if err != nil {
		return nil, eris.Wrap(err, "depth: zonal minimum")
	}
	zmax, err := eng.ZonalStatistics(zones, bathy, engine.StatMax)
	if err != nil {
		return nil, eris.Wrap(err, "depth: zonal maximum")
	}

	// Cells within epsilon of the zonal minimum keep their raw sample;
	// everything else is dropped before vectorization.
	selected := bathy.Like()
	for i, v := range bathy.Data {
		if v == bathy.NoData || zmin.Data[i] == zmin.NoData || zmax.Data[i] == zmax.NoData {
			continue
		}
		if math.Abs(math.Abs(zmax.Data[i]-v)-math.Abs(zmax.Data[i]-zmin.Data[i])) < Epsilon {
			selected.Data[i] = v
		}
	}

	points, err := eng.RasterToPoints(selected)
	if err != nil {
		return nil, eris.Wrap(err, "depth: raster to points")
	}

	out := make([]model.DeepestPoint, 0, len(points))
	for _, pt := range points {
		relief := 0.0
		if r, c, ok := bathy.CellAt(pt.X, pt.Y); ok {
			idx := r*bathy.Cols + c
			if zmin.Data[idx] != zmin.NoData && zmax.Data[idx] != zmax.NoData {
				relief = math.Abs(zmax.Data[idx] - zmin.Data[idx])
			}
		}
		out = append(out, model.DeepestPoint{
			X:       pt.X,
			Y:       pt.Y,
			DepthM:  pt.Value,
			ReliefM: relief,
		})
	}

	zap.L().Debug("deepest points located",
		zap.String("component", "depth"),
		zap.Int("points", len(out)),
		zap.Int("zones", len(zones)),
	)
	return out, nil
}
