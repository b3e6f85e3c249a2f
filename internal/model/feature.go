// Package model defines the feature records shared by the pockmark pipelines.
package model

import (
	geom "github.com/twpayne/go-geom"
)

// Morphology classifies a depression's shape with respect to a likely
// fluid-escape origin.
type Morphology string

// Morphology classes.
const (
	MorphologyIrregular   Morphology = "irregular"
	MorphologySemiRegular Morphology = "semi_regular"
	MorphologyRegular     Morphology = "regular"
)

// Description returns the analyst-facing field text for the class.
func (m Morphology) Description() string {
	switch m {
	case MorphologyIrregular:
		return "Irregular shape and/or low dia/dep ratio. Unlikely to be caused by fluid escape"
	case MorphologySemiRegular:
		return "Semi-regular shape. Depression needs further investigation"
	case MorphologyRegular:
		return "Regular shape. Potentially a geo-feature caused by fluid escape"
	default:
		return "Unclassified"
	}
}

// Depression is a closed depression polygon with its morphometric attributes.
// DepID is assigned densely starting at 1 in polygon iteration order and is
// shared by the polygon, its deepest point, and its centroid.
type Depression struct {
	DepID              int           `json:"dep_id"`
	Geometry           *geom.Polygon `json:"-"`
	AreaM2             float64       `json:"area_m2"`
	PerimeterM         float64       `json:"perimeter_m"`
	MajorAxisM         float64       `json:"major_axis_m"`
	MinorAxisM         float64       `json:"minor_axis_m"`
	Eccentricity       float64       `json:"eccentricity"`
	AzimuthDeg         float64       `json:"azimuth_deg"`
	ThinnessRatio      float64       `json:"thinness_ratio"`
	DepthM             float64       `json:"depth_m"` // negative, below local fill level
	DiameterDepthRatio float64       `json:"diameter_depth_ratio"`
	Morphology         Morphology    `json:"morphology"`
}

// HasDepth reports whether the depth attribute has been joined onto the
// polygon. A zero reading is geophysically degenerate and is treated as
// absent by the characterizer.
func (d *Depression) HasDepth() bool {
	return d.DepthM != 0
}

// DeepestPoint marks the raster cell of minimum elevation within a
// depression, carrying the raw sampled elevation from the source raster.
type DeepestPoint struct {
	DepID   int     `json:"dep_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	DepthM  float64 `json:"depth_m"`  // raw sample at the cell
	ReliefM float64 `json:"relief_m"` // zonal max minus zonal min
}

// CentroidPoint is a representative interior point of a depression,
// independent of depth.
type CentroidPoint struct {
	DepID int     `json:"dep_id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// FeatureSet holds the three correlated output layers of an analysis run.
// The DepID spaces of the layers are congruent.
type FeatureSet struct {
	Polygons      []Depression    `json:"polygons"`
	DeepestPoints []DeepestPoint  `json:"deepest_points"`
	Centroids     []CentroidPoint `json:"centroids"`
}

// PolygonByID returns the depression with the given DepID, or nil. DepIDs
// are dense starting at 1, so the lookup is positional with a guard against
// reordered slices.
func (fs *FeatureSet) PolygonByID(depID int) *Depression {
	if depID >= 1 && depID <= len(fs.Polygons) && fs.Polygons[depID-1].DepID == depID {
		return &fs.Polygons[depID-1]
	}
	for i := range fs.Polygons {
		if fs.Polygons[i].DepID == depID {
			return &fs.Polygons[i]
		}
	}
	return nil
}
