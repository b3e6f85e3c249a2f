package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

// WriteXLSX writes an attribute workbook with one sheet per layer.
func WriteXLSX(path string, fs *model.FeatureSet) error {
	f := xlsx.NewFile()

	polySheet, err := f.AddSheet("depressions")
	if err != nil {
		return eris.Wrap(err, "export: add depressions sheet")
	}
	header := polySheet.AddRow()
	for _, h := range []string{
		"DEP_ID", "AREA_M", "PERIMETER", "MAJ_AXIS", "MIN_AXIS",
		"ECC", "AZIMUTH", "THIN_RAT", "DIDP_RAT", "POCK_DEP", "MORP_CHAR",
	} {
		header.AddCell().SetString(h)
	}
	for _, d := range fs.Polygons {
		row := polySheet.AddRow()
		row.AddCell().SetInt(d.DepID)
		for _, v := range []float64{
			d.AreaM2, d.PerimeterM, d.MajorAxisM, d.MinorAxisM,
			d.Eccentricity, d.AzimuthDeg, d.ThinnessRatio, d.DiameterDepthRatio, d.DepthM,
		} {
			row.AddCell().SetFloat(v)
		}
		row.AddCell().SetString(string(d.Morphology))
	}

	ptSheet, err := f.AddSheet("deepest_points")
	if err != nil {
		return eris.Wrap(err, "export: add deepest points sheet")
	}
	header = ptSheet.AddRow()
	for _, h := range []string{"DEP_ID", "X", "Y", "DEPTH_M", "RELIEF_M"} {
		header.AddCell().SetString(h)
	}
	for _, p := range fs.DeepestPoints {
		row := ptSheet.AddRow()
		row.AddCell().SetInt(p.DepID)
		row.AddCell().SetFloat(p.X)
		row.AddCell().SetFloat(p.Y)
		row.AddCell().SetFloat(p.DepthM)
		row.AddCell().SetFloat(p.ReliefM)
	}

	cSheet, err := f.AddSheet("centroids")
	if err != nil {
		return eris.Wrap(err, "export: add centroids sheet")
	}
	header = cSheet.AddRow()
	for _, h := range []string{"DEP_ID", "X", "Y"} {
		header.AddCell().SetString(h)
	}
	for _, c := range fs.Centroids {
		row := cSheet.AddRow()
		row.AddCell().SetInt(c.DepID)
		row.AddCell().SetFloat(c.X)
		row.AddCell().SetFloat(c.Y)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
