package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inmetrica/valuation-cli/internal/export"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export the already-built feature table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rows, err := st.Features(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return eris.New("export: feature table is empty; run build first")
		}

		if err := export.WriteFile(args[0], format, rows); err != nil {
			return err
		}
		zap.L().Info("features exported",
			zap.String("path", args[0]),
			zap.String("format", string(format)),
			zap.Int("rows", len(rows)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "export format: csv or jsonl")
	rootCmd.AddCommand(exportCmd)
}
