package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seabed-analytics/pockmark-cli/internal/stats"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats <run-id>",
	Short: "Summarize morphometrics for a run",
	Long:  "Loads the stored feature layers of a run and prints distribution summaries for depth, area, eccentricity, and thinness, plus morphology counts.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("stats"); err != nil {
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

		fs, err := st.LoadFeatures(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "load features")
		}

		summary := stats.Summarize(fs)

		switch statsFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close() //nolint:errcheck
			return enc.Encode(summary)
		default:
			return eris.Errorf("unsupported stats format: %s", statsFormat)
		}
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "json", "output format (json, yaml)")
	rootCmd.AddCommand(statsCmd)
}
