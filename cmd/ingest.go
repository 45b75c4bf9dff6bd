package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inmetrica/valuation-cli/internal/fetcher"
	"github.com/inmetrica/valuation-cli/internal/source"
)

var (
	ingestAll  bool
	ingestFile string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source]",
	Short: "Ingest one input source (or --all) into the warehouse",
	Long: "Parses an input file and overwrites its warehouse relation.\n" +
		"Sources: listings, amenities, crime, polygons, neighborhoods.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if ingestAll == (len(args) == 1) {
			return eris.New("ingest: pass exactly one source name or --all")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := os.MkdirAll(cfg.Data.TempDir, 0o755); err != nil {
			return eris.Wrap(err, "ingest: create temp dir")
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent: cfg.Nominatim.UserAgent,
			Timeout:   5 * time.Minute,
		})
		reg := source.NewRegistry()

		if !ingestAll {
			src, err := reg.Get(args[0])
			if err != nil {
				return err
			}
			path := ingestFile
			if path == "" {
				path = defaultInputPath(src.Name())
			}
			_, err = src.Ingest(ctx, st, f, path, cfg.Data.TempDir)
			return err
		}

		// All sources write disjoint relations, so they can run together.
		g, gCtx := errgroup.WithContext(ctx)
		for _, src := range reg.All() {
			g.Go(func() error {
				res, err := src.Ingest(gCtx, st, f, defaultInputPath(src.Name()), cfg.Data.TempDir)
				if err != nil {
					return eris.Wrapf(err, "ingest %s", src.Name())
				}
				zap.L().Info("source ingested",
					zap.String("source", src.Name()),
					zap.Int("rows_out", res.RowsOut),
				)
				return nil
			})
		}
		return g.Wait()
	},
}

// defaultInputPath maps a source name to its configured input file.
func defaultInputPath(name string) string {
	switch name {
	case "listings":
		return cfg.Data.Listings
	case "amenities":
		return cfg.Data.Amenities
	case "crime":
		return cfg.Data.Crime
	case "polygons":
		return cfg.Data.Polygons
	case "neighborhoods":
		return cfg.Data.Neighborhoods
	}
	return ""
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestAll, "all", false, "ingest every source using configured paths")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "input file or URL (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
