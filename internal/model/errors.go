package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Sentinel error kinds for the fail-fast pipeline stages. Wrap with
// eris.Wrap at the point of failure; match with eris.Is at the CLI boundary.
var (
	// ErrNotNegative indicates the input raster contains a positive
	// elevation, violating the below-datum bathymetric convention.
	ErrNotNegative = eris.New("bathymetry raster must contain negative values only")

	// ErrLicenseUnavailable indicates the raster-analysis capability could
	// not be acquired from the engine.
	ErrLicenseUnavailable = eris.New("raster analysis capability unavailable")

	// ErrNoFeatures indicates the size filter removed every candidate
	// depression.
	ErrNoFeatures = eris.New("no depressions within the size range found")

	// ErrMissingDepth indicates an input polygon reached characterization
	// without a joined depth attribute.
	ErrMissingDepth = eris.New("input polygons missing depth attribute")
)

// DegenerateGeometryError reports a single polygon whose geometry or depth
// makes morphometric computation meaningless (zero perimeter, zero major
// axis, or zero depth). Bathymetric noise legitimately produces such
// slivers, so the polygon is skipped and reported rather than failing the
// run.
type DegenerateGeometryError struct {
	DepID  int
	Reason string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("depression %d: degenerate geometry: %s", e.DepID, e.Reason)
}
