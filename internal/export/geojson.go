package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

// WriteGeoJSON writes the three feature layers as one FeatureCollection.
// Point layers are distinguished by a "layer" property.
func WriteGeoJSON(path string, fs *model.FeatureSet) error {
	fc := &geojson.FeatureCollection{}

	for _, d := range fs.Polygons {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: d.Geometry,
			Properties: map[string]any{
				"layer":          "depression",
				"dep_id":         d.DepID,
				"area_m2":        d.AreaM2,
				"perimeter_m":    d.PerimeterM,
				"major_axis_m":   d.MajorAxisM,
				"minor_axis_m":   d.MinorAxisM,
				"eccentricity":   d.Eccentricity,
				"azimuth_deg":    d.AzimuthDeg,
				"thinness_ratio": d.ThinnessRatio,
				"depth_m":        d.DepthM,
				"didp_ratio":     d.DiameterDepthRatio,
				"morphology":     string(d.Morphology),
			},
		})
	}

	for _, p := range fs.DeepestPoints {
		props := map[string]any{
			"layer":    "deepest_point",
			"dep_id":   p.DepID,
			"depth_m":  p.DepthM,
			"relief_m": p.ReliefM,
		}
		// Join the classification of the containing polygon, as the point
		// layer is often inspected on its own.
		if d := fs.PolygonByID(p.DepID); d != nil {
			props["morphology"] = string(d.Morphology)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   geom.NewPointFlat(geom.XY, []float64{p.X, p.Y}),
			Properties: props,
		})
	}

	for _, c := range fs.Centroids {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{c.X, c.Y}),
			Properties: map[string]any{
				"layer":  "centroid",
				"dep_id": c.DepID,
			},
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: marshal feature collection")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
