package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inmetrica/valuation-cli/internal/export"
	"github.com/inmetrica/valuation-cli/internal/pipeline"
)

var (
	buildRadius float64
	buildExport string
	buildFormat string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Assemble the feature table from the ingested relations",
	Long: "Runs the full feature build: spatial join of listings against boundaries and\n" +
		"amenities, crime aggregation per municipality, one output row per listing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		radius := cfg.Spatial.AmenityRadiusM
		if buildRadius > 0 {
			radius = buildRadius
		}

		b := pipeline.NewBuilder(st, radius, cfg.Pipeline.Workers)
		run, err := b.Run(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("build complete",
			zap.String("run_id", run.ID),
			zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
		)

		if buildExport == "" {
			return nil
		}

		format, err := export.ParseFormat(buildFormat)
		if err != nil {
			return err
		}
		rows, err := st.Features(ctx)
		if err != nil {
			return err
		}
		if err := export.WriteFile(buildExport, format, rows); err != nil {
			return err
		}
		zap.L().Info("features exported",
			zap.String("path", buildExport),
			zap.String("format", string(format)),
			zap.Int("rows", len(rows)),
		)
		return nil
	},
}

func init() {
	buildCmd.Flags().Float64Var(&buildRadius, "radius", 0, "amenity search radius in meters (default from config)")
	buildCmd.Flags().StringVar(&buildExport, "export", "", "write the built table to this path")
	buildCmd.Flags().StringVar(&buildFormat, "format", "csv", "export format: csv or jsonl")
	rootCmd.AddCommand(buildCmd)
}
