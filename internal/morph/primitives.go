// Package morph computes per-depression morphometric attributes and the
// fluid-escape shape classification.
package morph

import (
	"math"

	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

// Classification thresholds.
const (
	irregularThinness   = 0.5
	semiRegularThinness = 0.75
	irregularDDRatio    = 100.0
)

// Azimuth returns the undirected bearing of the line (x1,y1)-(x2,y2) in
// degrees, folded into [0, 180). The input is the major-axis edge of a
// bounding rectangle, so the result is a line orientation, not a directional
// bearing.
func Azimuth(x1, y1, x2, y2 float64) float64 {
	deg := math.Atan2(y2-y1, x2-x1) * 180 / math.Pi
	if deg < 0 {
		deg += 180
	}
	if deg >= 180 {
		deg -= 180
	}
	return deg
}

// Eccentricity returns the eccentricity of an ellipse with the given axes.
// Callers must guarantee major >= minor > 0.
func Eccentricity(major, minor float64) float64 {
	return math.Sqrt((major*major - minor*minor) / (major * major))
}

// ThinnessRatio compares a shape to a circle of equal perimeter: 1.0 for a
// perfect circle, lower for elongated or irregular shapes. Callers must
// guarantee perimeter > 0.
func ThinnessRatio(area, perimeter float64) float64 {
	return 4 * math.Pi * area / (perimeter * perimeter)
}

// DiameterDepthRatio returns |diameter / depth|. Callers must guarantee
// depth != 0; a zero-depth reading is geophysically degenerate and is
// rejected upstream.
func DiameterDepthRatio(diameter, depth float64) float64 {
	return math.Abs(diameter / depth)
}

// ShapeDescriptor classifies a depression from its thinness and
// diameter/depth ratios. The irregular condition is checked first and
// short-circuits: a highly circular but very elongated-ratio feature is
// still irregular.
func ShapeDescriptor(thinness, ddRatio float64) model.Morphology {
	if thinness < irregularThinness || ddRatio > irregularDDRatio {
		return model.MorphologyIrregular
	}
	if thinness < semiRegularThinness {
		return model.MorphologySemiRegular
	}
	return model.MorphologyRegular
}
