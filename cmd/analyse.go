package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/engine"
	"github.com/seabed-analytics/pockmark-cli/internal/export"
	"github.com/seabed-analytics/pockmark-cli/internal/pipeline"
	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

var (
	analyseShells string
	analyseBathy  string
)

var analyseCmd = &cobra.Command{
	Use:   "analyse",
	Short: "Characterize depression shells into pockmark layers",
	Long:  "Reads previously identified depression shells, computes per-feature morphometrics against the source bathymetry, and writes correlated polygon, deepest point, and centroid layers.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("analyse"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		inputs, err := export.ReadDepressionShapefile(analyseShells)
		if err != nil {
			return eris.Wrap(err, "read depression shells")
		}

		bathy, err := raster.ReadASCIIFile(analyseBathy)
		if err != nil {
			return eris.Wrap(err, "read bathymetry")
		}

		eng := engine.NewMemory(engine.WithSeats(cfg.Engine.Seats))
		p := pipeline.New(cfg, st, eng)

		result, err := p.Analyse(ctx, inputs, bathy, analyseShells)
		if err != nil {
			return eris.Wrap(err, "analyse")
		}

		if _, err := exportFeatures(ctx, st, result.Run, result.Features); err != nil {
			return err
		}

		zap.L().Info("analyse finished",
			zap.String("run_id", result.Run.ID),
			zap.Int("depressions", len(result.Features.Polygons)),
			zap.Int("skipped", len(result.Skipped)),
		)
		return nil
	},
}

func init() {
	analyseCmd.Flags().StringVar(&analyseShells, "shells", "", "depression shell shapefile with POCK_DEP attributes (required)")
	analyseCmd.Flags().StringVar(&analyseBathy, "bathy", "", "bathymetric grid in ESRI ASCII format (required)")
	_ = analyseCmd.MarkFlagRequired("shells")
	_ = analyseCmd.MarkFlagRequired("bathy")
	rootCmd.AddCommand(analyseCmd)
}
