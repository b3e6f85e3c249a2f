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

var identifyInput string

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Extract depression shells from a bathymetric grid",
	Long:  "Fills the bathymetric surface, subtracts it from the original, and vectorizes the residual depressions into candidate pockmark shells.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("identify"); err != nil {
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

		bathy, err := raster.ReadASCIIFile(identifyInput)
		if err != nil {
			return eris.Wrap(err, "read bathymetry")
		}

		eng := engine.NewMemory(engine.WithSeats(cfg.Engine.Seats))
		p := pipeline.New(cfg, st, eng)

		result, err := p.Identify(ctx, bathy, identifyInput)
		if err != nil {
			return eris.Wrap(err, "identify")
		}

		files, err := exportCandidates(result.Run, result.Candidates)
		if err != nil {
			return err
		}

		zap.L().Info("identify finished",
			zap.String("run_id", result.Run.ID),
			zap.Int("shells", len(result.Candidates)),
			zap.Strings("files", files),
		)
		return nil
	},
}

func init() {
	identifyCmd.Flags().StringVar(&identifyInput, "input", "", "bathymetric grid in ESRI ASCII format (required)")
	_ = identifyCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(identifyCmd)
}
