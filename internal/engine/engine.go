// Package engine provides the raster-analysis and geometry operations the
// depression pipelines consume. The Engine interface mirrors the toolbox of
// a licensed GIS; Memory is a native in-process implementation so runs do
// not depend on an external engine being installed.
package engine

import (
	"context"

	geom "github.com/twpayne/go-geom"

	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

// Stat selects the aggregate computed by ZonalStatistics.
type Stat int

// Supported zonal statistics.
const (
	StatMin Stat = iota
	StatMax
)

func (s Stat) String() string {
	if s == StatMax {
		return "MAX"
	}
	return "MIN"
}

// Remap maps an inclusive value range onto a single class value.
type Remap struct {
	Min, Max float64
	Class    float64
}

// ValuePoint is a point feature carrying a sampled raster value.
type ValuePoint struct {
	X, Y  float64
	Value float64
}

// Engine is the geospatial toolbox consumed by the pipelines. Operations are
// pure with respect to their inputs: rasters and polygons passed in are
// never mutated.
type Engine interface {
	// Checkout acquires the raster-analysis capability for a run. The
	// release function must be called on every exit path.
	Checkout(ctx context.Context) (release func(), err error)

	// Fill levels every depression whose fill depth does not exceed zLimit
	// up to its spill elevation. zLimit <= 0 means no limit.
	Fill(g *raster.Grid, zLimit float64) (*raster.Grid, error)

	// Subtract computes a - b cellwise. No-data in either operand
	// propagates.
	Subtract(a, b *raster.Grid) (*raster.Grid, error)

	// Reclassify maps value ranges onto class values; unmatched cells
	// become no-data.
	Reclassify(g *raster.Grid, remaps []Remap) (*raster.Grid, error)

	// RasterToPolygons converts contiguous same-class regions into
	// polygons, one per 4-connected component, in row-major discovery
	// order.
	RasterToPolygons(g *raster.Grid) ([]*geom.Polygon, error)

	// RasterToPoints emits one value-carrying point per valid cell center,
	// in row-major order.
	RasterToPoints(g *raster.Grid) ([]ValuePoint, error)

	// ZonalStatistics paints the per-zone aggregate of g over each zone's
	// footprint. Cells outside every zone are no-data.
	ZonalStatistics(zones []*geom.Polygon, g *raster.Grid, stat Stat) (*raster.Grid, error)

	// SmoothPolygons applies PAEK-style corner rounding with the given
	// kernel tolerance, dropping polygons whose smoothed area falls below
	// minArea.
	SmoothPolygons(polys []*geom.Polygon, tolerance, minArea float64) ([]*geom.Polygon, error)

	// MinimumBoundingRectangle returns the four corners of the minimum
	// area enclosing rectangle in traversal order.
	MinimumBoundingRectangle(p *geom.Polygon) ([4]geom.Coord, error)

	// FeatureToPoint returns a representative point guaranteed to lie
	// inside the polygon.
	FeatureToPoint(p *geom.Polygon) (geom.Coord, error)
}
