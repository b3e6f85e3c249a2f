// Package export writes run outputs to exchange formats and reads
// depression shells back in for analyse-only runs.
package export

import (
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/extract"
	"github.com/seabed-analytics/pockmark-cli/internal/model"
	"github.com/seabed-analytics/pockmark-cli/internal/morph"
)

func depressionFields() []shp.Field {
	return []shp.Field{
		shp.NumberField("DEP_ID", 10),
		shp.FloatField("AREA_M", 19, 11),
		shp.FloatField("PERIMETER", 19, 11),
		shp.FloatField("MAJ_AXIS", 19, 11),
		shp.FloatField("MIN_AXIS", 19, 11),
		shp.FloatField("ECC", 19, 11),
		shp.FloatField("AZIMUTH", 19, 11),
		shp.FloatField("THIN_RAT", 19, 11),
		shp.FloatField("DIDP_RAT", 19, 11),
		shp.FloatField("POCK_DEP", 19, 11),
		shp.StringField("MORP_CHAR", 16),
	}
}

// WriteDepressionShapefile writes the characterized polygon layer.
func WriteDepressionShapefile(path string, deps []model.Depression) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(depressionFields()); err != nil {
		return eris.Wrap(err, "export: set polygon fields")
	}

	for i, d := range deps {
		w.Write(polygonShape(d.Geometry))
		for j, v := range []any{
			d.DepID, d.AreaM2, d.PerimeterM, d.MajorAxisM, d.MinorAxisM,
			d.Eccentricity, d.AzimuthDeg, d.ThinnessRatio, d.DiameterDepthRatio,
			d.DepthM, string(d.Morphology),
		} {
			if err := w.WriteAttribute(i, j, v); err != nil {
				return eris.Wrapf(err, "export: write attribute for depression %d", d.DepID)
			}
		}
	}
	return nil
}

// WriteCandidateShapefile writes the identify-stage depression shells with
// their minimum fill depth.
func WriteCandidateShapefile(path string, cands []extract.Candidate) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	fields := []shp.Field{
		shp.FloatField("AREA_M", 19, 11),
		shp.FloatField("POCK_DEP", 19, 11),
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "export: set candidate fields")
	}

	for i, c := range cands {
		w.Write(polygonShape(c.Geometry))
		if err := w.WriteAttribute(i, 0, c.AreaM2); err != nil {
			return eris.Wrapf(err, "export: write candidate %d area", i)
		}
		if err := w.WriteAttribute(i, 1, c.DepthM); err != nil {
			return eris.Wrapf(err, "export: write candidate %d depth", i)
		}
	}
	return nil
}

// WriteDeepestPointShapefile writes the deepest-point layer.
func WriteDeepestPointShapefile(path string, pts []model.DeepestPoint) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	fields := []shp.Field{
		shp.NumberField("DEP_ID", 10),
		shp.FloatField("DEPTH_M", 19, 11),
		shp.FloatField("RELIEF_M", 19, 11),
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "export: set point fields")
	}

	for i, p := range pts {
		w.Write(&shp.Point{X: p.X, Y: p.Y})
		for j, v := range []any{p.DepID, p.DepthM, p.ReliefM} {
			if err := w.WriteAttribute(i, j, v); err != nil {
				return eris.Wrapf(err, "export: write attribute for deepest point %d", p.DepID)
			}
		}
	}
	return nil
}

// WriteCentroidShapefile writes the centroid layer.
func WriteCentroidShapefile(path string, cs []model.CentroidPoint) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields([]shp.Field{shp.NumberField("DEP_ID", 10)}); err != nil {
		return eris.Wrap(err, "export: set centroid fields")
	}

	for i, c := range cs {
		w.Write(&shp.Point{X: c.X, Y: c.Y})
		if err := w.WriteAttribute(i, 0, c.DepID); err != nil {
			return eris.Wrapf(err, "export: write attribute for centroid %d", c.DepID)
		}
	}
	return nil
}

// ReadDepressionShapefile reads depression shells for an analyse-only run.
// Each record needs a POCK_DEP attribute; a shapefile without that field
// cannot be analysed.
func ReadDepressionShapefile(path string) ([]morph.Input, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	depthIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, "POCK_DEP") {
			depthIdx = i
			break
		}
	}
	if depthIdx < 0 {
		return nil, eris.Wrapf(model.ErrMissingDepth, "export: %s has no POCK_DEP field", path)
	}

	var inputs []morph.Input
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		sp, ok := shape.(*shp.Polygon)
		if !ok || sp == nil {
			skipped++
			continue
		}
		poly := shapeToPolygon(sp)
		if poly == nil {
			skipped++
			continue
		}

		raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(depthIdx), "\x00"))
		depth, err := parseFloat(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "export: record %d: bad POCK_DEP %q", n, raw)
		}

		inputs = append(inputs, morph.Input{Geometry: poly, DepthM: depth})
	}

	if skipped > 0 {
		zap.L().Debug("export: skipped malformed shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return inputs, nil
}

// polygonShape converts a geom.Polygon to a shapefile polygon. Shapefile
// convention is clockwise outer rings and counterclockwise holes, the
// reverse of the in-memory orientation.
func polygonShape(p *geom.Polygon) *shp.Polygon {
	var parts [][]shp.Point
	for _, ring := range p.Coords() {
		pts := make([]shp.Point, 0, len(ring))
		for i := len(ring) - 1; i >= 0; i-- {
			pts = append(pts, shp.Point{X: ring[i][0], Y: ring[i][1]})
		}
		parts = append(parts, pts)
	}
	pl := shp.NewPolyLine(parts)
	poly := shp.Polygon(*pl)
	return &poly
}

// shapeToPolygon converts shapefile parts back to a geom.Polygon with the
// outer ring counterclockwise.
func shapeToPolygon(sp *shp.Polygon) *geom.Polygon {
	if sp.NumParts == 0 || len(sp.Points) == 0 {
		return nil
	}

	var rings [][]geom.Coord
	for i := int32(0); i < sp.NumParts; i++ {
		start := sp.Parts[i]
		end := int32(len(sp.Points))
		if i+1 < sp.NumParts {
			end = sp.Parts[i+1]
		}

		ring := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, geom.Coord{sp.Points[j].X, sp.Points[j].Y})
		}
		if len(ring) < 4 {
			continue
		}
		// First part is the outer ring and must be counterclockwise;
		// holes the other way around.
		wantCCW := len(rings) == 0
		if ringIsCCW(ring) != wantCCW {
			reverseCoords(ring)
		}
		rings = append(rings, ring)
	}
	if len(rings) == 0 {
		return nil
	}

	poly := geom.NewPolygon(geom.XY)
	if _, err := poly.SetCoords(rings); err != nil {
		return nil
	}
	return poly
}

func ringIsCCW(ring []geom.Coord) bool {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum > 0
}

func reverseCoords(ring []geom.Coord) {
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, eris.New("empty value")
	}
	return strconv.ParseFloat(s, 64)
}
