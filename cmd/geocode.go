package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inmetrica/valuation-cli/pkg/nominatim"
)

var geocodeLimit int

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode neighborhoods that have no coordinates yet",
	Long: "Queries Nominatim for every neighborhood without a centroid and merges the\n" +
		"results back. Delta only: already-resolved neighborhoods are never re-queried.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		hoods, err := st.Neighborhoods(ctx)
		if err != nil {
			return err
		}

		client := nominatim.NewClient(
			nominatim.WithBaseURL(cfg.Nominatim.BaseURL),
			nominatim.WithUserAgent(cfg.Nominatim.UserAgent),
			nominatim.WithRateLimit(cfg.Nominatim.RPS),
		)

		var pending, matched, unmatched int
		for _, h := range hoods {
			if h.HasPoint() {
				continue
			}
			if geocodeLimit > 0 && pending >= geocodeLimit {
				break
			}
			pending++

			res, err := client.Geocode(ctx, h.Name)
			if err != nil {
				return err
			}
			if !res.Matched {
				unmatched++
				zap.L().Info("no geocode match", zap.String("neighborhood", h.Name))
				continue
			}

			if err := st.UpdateNeighborhoodCoords(ctx, h.Name, res.Latitude, res.Longitude); err != nil {
				return err
			}
			matched++
			zap.L().Info("neighborhood geocoded",
				zap.String("neighborhood", h.Name),
				zap.Float64("lat", res.Latitude),
				zap.Float64("lon", res.Longitude),
			)
		}

		zap.L().Info("geocode pass complete",
			zap.Int("pending", pending),
			zap.Int("matched", matched),
			zap.Int("unmatched", unmatched),
		)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().IntVar(&geocodeLimit, "limit", 0, "max neighborhoods to geocode this pass (0 = all)")
	rootCmd.AddCommand(geocodeCmd)
}
