// Package extract implements depression extraction: a fill-and-difference
// sweep over the bathymetry followed by size filtering and a depth join.
package extract

import (
	"math"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/engine"
	"github.com/seabed-analytics/pockmark-cli/internal/model"
	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

// Params controls the extraction stage.
type Params struct {
	// ZLimit is the vertical fill limit in elevation units; depressions
	// deeper than this are not leveled and therefore not extracted.
	ZLimit float64
	// MaxArea is the upper area bound in square linear units. The lower
	// bound is fixed at (2*cellsize)^2 to suppress speckle.
	MaxArea float64
}

// Candidate is a depression shell: geometry, area, and the local fill depth
// joined from the difference raster. Morphometrics come later.
type Candidate struct {
	Geometry *geom.Polygon
	AreaM2   float64
	DepthM   float64 // zonal minimum of the fill difference, negative
}

// MinArea returns the speckle floor for a given cell size.
func MinArea(cellSize float64) float64 {
	return (2 * cellSize) * (2 * cellSize)
}

// ValidateNegative enforces the bathymetric convention that every evaluated
// sample lies at or below the reference datum.
func ValidateNegative(g *raster.Grid) error {
	_, max, ok := g.MinMax()
	if !ok {
		return eris.Wrap(model.ErrNotNegative, "extract: raster has no valid cells")
	}
	if max > 0 {
		return eris.Wrapf(model.ErrNotNegative, "extract: maximum elevation %g", max)
	}
	return nil
}

// Depressions runs the extraction pipeline over a validated bathymetry
// grid. The caller is responsible for ValidateNegative and for holding the
// engine capability.
func Depressions(eng engine.Engine, bathy *raster.Grid, p Params) ([]Candidate, error) {
	log := zap.L().With(zap.String("component", "extract"))

	filled, err := eng.Fill(bathy, p.ZLimit)
	if err != nil {
		return nil, eris.Wrap(err, "extract: fill")
	}
	log.Debug("fill raster created", zap.Float64("z_limit", p.ZLimit))

	diff, err := eng.Subtract(bathy, filled)
	if err != nil {
		return nil, eris.Wrap(err, "extract: subtract")
	}

	// Depression interiors are the strictly negative difference cells; the
	// remap keeps [minimum, -1] so sub-unit fill noise drops out with the
	// zero background.
	min, _, ok := diff.MinMax()
	if !ok || min >= -1 {
		return nil, eris.Wrap(model.ErrNoFeatures, "extract: no depressions deeper than 1 unit")
	}
	classed, err := eng.Reclassify(diff, []engine.Remap{{Min: min, Max: -1, Class: 1}})
	if err != nil {
		return nil, eris.Wrap(err, "extract: reclassify")
	}

	polys, err := eng.RasterToPolygons(classed)
	if err != nil {
		return nil, eris.Wrap(err, "extract: raster to polygons")
	}
	log.Debug("depression polygons created", zap.Int("count", len(polys)))

	minArea := MinArea(bathy.CellSize)
	kept := make([]Candidate, 0, len(polys))
	for _, poly := range polys {
		area := engine.PolygonArea(poly)
		if area < minArea || area > p.MaxArea {
			continue
		}
		kept = append(kept, Candidate{Geometry: poly, AreaM2: area})
	}
	log.Debug("polygons out of size range removed",
		zap.Int("remaining", len(kept)),
		zap.Float64("min_area", minArea),
		zap.Float64("max_area", p.MaxArea),
	)

	if len(kept) == 0 {
		return nil, eris.Wrapf(model.ErrNoFeatures, "extract: %d polygons before size filter", len(polys))
	}

	if err := joinFillDepth(eng, diff, kept); err != nil {
		return nil, err
	}
	log.Debug("depression depth calculated")

	return kept, nil
}

// joinFillDepth computes the zonal minimum of the difference raster per
// candidate, converts it to points, and spatially joins the minimum value
// onto each candidate as its fill depth.
func joinFillDepth(eng engine.Engine, diff *raster.Grid, candidates []Candidate) error {
	zones := make([]*geom.Polygon, len(candidates))
	for i := range candidates {
		zones[i] = candidates[i].Geometry
	}

	zonalMin, err := eng.ZonalStatistics(zones, diff, engine.StatMin)
	if err != nil {
		return eris.Wrap(err, "extract: zonal minimum")
	}
	points, err := eng.RasterToPoints(zonalMin)
	if err != nil {
		return eris.Wrap(err, "extract: zonal points")
	}

	for i := range candidates {
		depth := math.Inf(1)
		for _, pt := range points {
			if pt.Value < depth && engine.PointInPolygon(candidates[i].Geometry, pt.X, pt.Y) {
				depth = pt.Value
			}
		}
		if math.IsInf(depth, 1) {
			depth = 0
		}
		candidates[i].DepthM = depth
	}
	return nil
}
