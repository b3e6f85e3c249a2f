package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/export"
	"github.com/seabed-analytics/pockmark-cli/internal/extract"
	"github.com/seabed-analytics/pockmark-cli/internal/model"
	"github.com/seabed-analytics/pockmark-cli/internal/store"
)

// exportFeatures writes the configured output formats for a completed run
// and records a manifest alongside them.
func exportFeatures(ctx context.Context, st store.Store, run *model.Run, fs *model.FeatureSet) ([]string, error) {
	if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "create export directory")
	}

	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusExporting); err != nil {
		zap.L().Warn("run status not updated", zap.String("run_id", run.ID), zap.Error(err))
	}

	var files []string
	for _, format := range cfg.Export.Formats {
		switch format {
		case "shapefile":
			layers := []struct {
				name  string
				write func(string) error
			}{
				{"depressions.shp", func(p string) error { return export.WriteDepressionShapefile(p, fs.Polygons) }},
				{"deepest_points.shp", func(p string) error { return export.WriteDeepestPointShapefile(p, fs.DeepestPoints) }},
				{"centroids.shp", func(p string) error { return export.WriteCentroidShapefile(p, fs.Centroids) }},
			}
			for _, l := range layers {
				path := filepath.Join(cfg.Export.Dir, l.name)
				if err := l.write(path); err != nil {
					return files, eris.Wrapf(err, "write %s", l.name)
				}
				files = append(files, path)
			}
		case "geojson":
			path := filepath.Join(cfg.Export.Dir, "pockmarks.geojson")
			if err := export.WriteGeoJSON(path, fs); err != nil {
				return files, eris.Wrap(err, "write geojson")
			}
			files = append(files, path)
		case "xlsx":
			path := filepath.Join(cfg.Export.Dir, "pockmarks.xlsx")
			if err := export.WriteXLSX(path, fs); err != nil {
				return files, eris.Wrap(err, "write xlsx")
			}
			files = append(files, path)
		default:
			return files, eris.Errorf("unsupported export format: %s", format)
		}
	}

	if cfg.Export.Styles {
		export.WriteStyleSidecars(cfg.Export.Dir, files)
	}

	if err := writeManifest(run, files); err != nil {
		return files, err
	}

	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusComplete); err != nil {
		zap.L().Warn("run status not updated", zap.String("run_id", run.ID), zap.Error(err))
	}

	zap.L().Info("export complete",
		zap.String("run_id", run.ID),
		zap.String("dir", cfg.Export.Dir),
		zap.Int("files", len(files)),
	)
	return files, nil
}

// exportCandidates writes the raw depression shells produced by identify.
func exportCandidates(run *model.Run, cands []extract.Candidate) ([]string, error) {
	if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "create export directory")
	}

	path := filepath.Join(cfg.Export.Dir, "depression_shells.shp")
	if err := export.WriteCandidateShapefile(path, cands); err != nil {
		return nil, eris.Wrap(err, "write depression shells")
	}
	files := []string{path}

	if cfg.Export.Styles {
		export.WriteStyleSidecars(cfg.Export.Dir, files)
	}

	if err := writeManifest(run, files); err != nil {
		return files, err
	}
	return files, nil
}

func writeManifest(run *model.Run, files []string) error {
	path := filepath.Join(cfg.Export.Dir, "manifest.yaml")
	m := export.Manifest{
		RunID:  run.ID,
		Kind:   run.Kind,
		Source: run.Source,
		Params: run.Params,
		Files:  files,
	}
	if run.Counts != nil {
		m.Counts = *run.Counts
	}
	if err := export.WriteManifest(path, m); err != nil {
		return eris.Wrap(err, "write manifest")
	}
	return nil
}
