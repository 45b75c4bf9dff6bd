package source

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/inmetrica/valuation-cli/internal/fetcher"
	"github.com/inmetrica/valuation-cli/internal/model"
	"github.com/inmetrica/valuation-cli/internal/warehouse"
)

// Neighborhoods ingests the geocoded centroid CSV
// (location_name,latitude,longitude). Rows without coordinates are kept:
// they are the backlog the geocode command works through.
type Neighborhoods struct{}

func (s *Neighborhoods) Name() string  { return "neighborhoods" }
func (s *Neighborhoods) Table() string { return "neighborhoods" }

func (s *Neighborhoods) Ingest(ctx context.Context, store warehouse.Store, f fetcher.Fetcher, path, tempDir string) (*Result, error) {
	log := zap.L().With(zap.String("source", s.Name()))

	local, err := resolveInput(ctx, f, path, tempDir)
	if err != nil {
		return nil, err
	}
	header, rows, err := readCSV(local)
	if err != nil {
		return nil, err
	}

	cols := mapColumns(header)
	nameCol := cols.col("location_name", "name", "neighborhood", "colonia")
	latCol := cols.col("latitude", "lat")
	lonCol := cols.col("longitude", "lon", "lng")
	if nameCol < 0 {
		return nil, eris.Errorf("source: %s has no location name column", local)
	}

	var (
		out      []model.Neighborhood
		seen     = make(map[string]bool, len(rows))
		skipped  int
		ungeoded int
	)
	for _, row := range rows {
		name := field(row, nameCol)
		if name == "" || seen[name] {
			skipped++
			continue
		}
		seen[name] = true

		n := model.Neighborhood{
			Name:      name,
			Latitude:  parseFloatPtr(field(row, latCol)),
			Longitude: parseFloatPtr(field(row, lonCol)),
		}
		if !n.HasPoint() {
			ungeoded++
		}
		out = append(out, n)
	}

	if err := store.SaveNeighborhoods(ctx, out); err != nil {
		return nil, err
	}

	log.Info("neighborhoods ingested",
		zap.Int("rows_in", len(rows)),
		zap.Int("rows_out", len(out)),
		zap.Int("pending_geocode", ungeoded),
	)
	return &Result{
		RowsIn:  len(rows),
		RowsOut: len(out),
		Skipped: skipped,
		Metadata: map[string]any{
			"pending_geocode": ungeoded,
		},
	}, nil
}
