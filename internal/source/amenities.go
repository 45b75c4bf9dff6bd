package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/inmetrica/valuation-cli/internal/fetcher"
	"github.com/inmetrica/valuation-cli/internal/model"
	"github.com/inmetrica/valuation-cli/internal/warehouse"
)

// unnamedAmenity is the display name imputed for OSM points that carry
// coordinates but no name tag.
const unnamedAmenity = "(sin nombre)"

// Amenities ingests the OSM points-of-interest CSV (name,category,lat,lon).
type Amenities struct{}

func (s *Amenities) Name() string  { return "amenities" }
func (s *Amenities) Table() string { return "amenities" }

func (s *Amenities) Ingest(ctx context.Context, store warehouse.Store, f fetcher.Fetcher, path, tempDir string) (*Result, error) {
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
	nameCol := cols.col("name", "nombre")
	catCol := cols.col("category", "categoria")
	latCol := cols.col("latitude", "lat")
	lonCol := cols.col("longitude", "lon", "lng")

	var (
		out         []model.Amenity
		badCategory int
		badCoords   int
	)
	for _, row := range rows {
		cat, err := model.ParseCategory(field(row, catCol))
		if err != nil {
			badCategory++
			log.Warn("skipping amenity with unknown category",
				zap.String("category", field(row, catCol)),
				zap.String("name", field(row, nameCol)),
			)
			continue
		}

		lat := parseFloatPtr(field(row, latCol))
		lon := parseFloatPtr(field(row, lonCol))
		if lat == nil || lon == nil {
			badCoords++
			continue
		}

		name := field(row, nameCol)
		if name == "" {
			name = unnamedAmenity
		}

		out = append(out, model.Amenity{
			Name:      name,
			Category:  cat,
			Latitude:  *lat,
			Longitude: *lon,
		})
	}

	if err := store.SaveAmenities(ctx, out); err != nil {
		return nil, err
	}

	log.Info("amenities ingested",
		zap.Int("rows_in", len(rows)),
		zap.Int("rows_out", len(out)),
		zap.Int("unknown_category", badCategory),
		zap.Int("missing_coords", badCoords),
	)
	return &Result{
		RowsIn:  len(rows),
		RowsOut: len(out),
		Skipped: badCategory + badCoords,
		Metadata: map[string]any{
			"unknown_category": badCategory,
			"missing_coords":   badCoords,
		},
	}, nil
}
