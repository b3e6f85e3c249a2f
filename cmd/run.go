package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/engine"
	"github.com/seabed-analytics/pockmark-cli/internal/pipeline"
	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

var runInput string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Identify and analyse in a single pass",
	Long:  "Runs the full pipeline over a bathymetric grid, from depression extraction through morphometric characterization to the exported layers.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("run"); err != nil {
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

		bathy, err := raster.ReadASCIIFile(runInput)
		if err != nil {
			return eris.Wrap(err, "read bathymetry")
		}

		eng := engine.NewMemory(engine.WithSeats(cfg.Engine.Seats))
		p := pipeline.New(cfg, st, eng)

		result, err := p.Run(ctx, bathy, runInput)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		if _, err := exportFeatures(ctx, st, result.Run, result.Features); err != nil {
			return err
		}

		zap.L().Info("run finished",
			zap.String("run_id", result.Run.ID),
			zap.Int("shells", len(result.Candidates)),
			zap.Int("depressions", len(result.Features.Polygons)),
			zap.Int("skipped", len(result.Skipped)),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "bathymetric grid in ESRI ASCII format (required)")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
