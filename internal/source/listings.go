package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/inmetrica/valuation-cli/internal/enrich"
	"github.com/inmetrica/valuation-cli/internal/fetcher"
	"github.com/inmetrica/valuation-cli/internal/geometry"
	"github.com/inmetrica/valuation-cli/internal/model"
	"github.com/inmetrica/valuation-cli/internal/warehouse"
)

// Listings ingests the scraper CSV export. Each row becomes one listing
// keyed by the SHA-256 of its URL; repeated URLs keep the first occurrence.
type Listings struct{}

func (s *Listings) Name() string  { return "listings" }
func (s *Listings) Table() string { return "listings" }

func (s *Listings) Ingest(ctx context.Context, store warehouse.Store, f fetcher.Fetcher, path, tempDir string) (*Result, error) {
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
	urlCol := cols.col("url")
	titleCol := cols.col("title")
	priceCol := cols.col("price_numeric", "price")
	bedCol := cols.col("bedrooms")
	bathCol := cols.col("bathrooms")
	parkCol := cols.col("parking_spots", "parking")
	m2cCol := cols.col("m2_constructed")
	m2tCol := cols.col("m2_terrain")
	latCol := cols.col("latitude", "lat")
	lonCol := cols.col("longitude", "lon", "lng")
	locCol := cols.col("location_text", "location")
	descCol := cols.col("description")
	dateCol := cols.col("extraction_date")
	pageCol := cols.col("source_page", "page")

	var (
		out         []model.Listing
		seen        = make(map[string]bool, len(rows))
		skipped     int
		coordsReset int
	)
	for _, row := range rows {
		url := field(row, urlCol)
		if url == "" {
			skipped++
			continue
		}
		id := model.ListingID(url)
		if seen[id] {
			skipped++
			continue
		}
		seen[id] = true

		l := model.Listing{
			ID:             id,
			URL:            url,
			Title:          field(row, titleCol),
			Price:          parseFloatPtr(field(row, priceCol)),
			Bedrooms:       parseIntPtr(field(row, bedCol)),
			Bathrooms:      parseFloatPtr(field(row, bathCol)),
			ParkingSpots:   parseIntPtr(field(row, parkCol)),
			M2Constructed:  parseFloatPtr(field(row, m2cCol)),
			M2Terrain:      parseFloatPtr(field(row, m2tCol)),
			Latitude:       parseFloatPtr(field(row, latCol)),
			Longitude:      parseFloatPtr(field(row, lonCol)),
			LocationText:   field(row, locCol),
			ExtractionDate: field(row, dateCol),
			SourcePage:     parseIntOr(field(row, pageCol), 0),
		}
		if l.LocationText == "" {
			l.LocationText = l.Title
		}

		// Coordinates outside the metro bounding box are scraper noise, not
		// real positions: clear them so assembly falls back to the
		// neighborhood centroid.
		if l.HasPoint() && !geometry.InQueretaroBBox(*l.Latitude, *l.Longitude) {
			l.Latitude, l.Longitude = nil, nil
			coordsReset++
		}

		description := field(row, descCol)
		if description == "" {
			description = l.Title
		}
		enrich.Apply(&l, description)

		out = append(out, l)
	}

	if err := store.SaveListings(ctx, out); err != nil {
		return nil, err
	}

	log.Info("listings ingested",
		zap.Int("rows_in", len(rows)),
		zap.Int("rows_out", len(out)),
		zap.Int("skipped", skipped),
		zap.Int("coords_out_of_bbox", coordsReset),
	)
	return &Result{
		RowsIn:  len(rows),
		RowsOut: len(out),
		Skipped: skipped,
		Metadata: map[string]any{
			"coords_out_of_bbox": coordsReset,
		},
	}, nil
}
