// Package warehouse persists the pipeline's relations. Every Save is a
// wholesale overwrite (delete + insert in one transaction): re-running the
// pipeline on unchanged inputs reproduces the stored tables exactly, with no
// incremental state hiding anywhere.
package warehouse

import (
	"context"

	"github.com/inmetrica/valuation-cli/internal/geometry"
	"github.com/inmetrica/valuation-cli/internal/model"
)

// Store is the storage collaborator interface. One implementation per
// driver: SQLite (default, single file) and Postgres.
type Store interface {
	// Input relations, one Save/Load pair each. Saves overwrite wholesale.
	SaveListings(ctx context.Context, listings []model.Listing) error
	Listings(ctx context.Context) ([]model.Listing, error)

	SaveAmenities(ctx context.Context, amenities []model.Amenity) error
	Amenities(ctx context.Context) ([]model.Amenity, error)

	SaveCrimeRecords(ctx context.Context, records []model.CrimeRecord) error
	CrimeRecords(ctx context.Context) ([]model.CrimeRecord, error)

	SaveBoundaries(ctx context.Context, boundaries []geometry.Boundary) error
	Boundaries(ctx context.Context) ([]geometry.Boundary, error)

	SaveNeighborhoods(ctx context.Context, hoods []model.Neighborhood) error
	Neighborhoods(ctx context.Context) ([]model.Neighborhood, error)

	// UpdateNeighborhoodCoords fills in coordinates for one geocoded
	// locality. The delta-geocode command is the only append-ish writer in
	// the system; the OBT build itself never calls this.
	UpdateNeighborhoodCoords(ctx context.Context, name string, lat, lon float64) error

	// The assembled OBT.
	SaveFeatures(ctx context.Context, rows []model.FeatureRow) error
	Features(ctx context.Context) ([]model.FeatureRow, error)

	// Run bookkeeping.
	RecordRun(ctx context.Context, run model.Run) error
	Runs(ctx context.Context, limit int) ([]model.Run, error)

	// Counts reports row counts per relation, for the status command.
	Counts(ctx context.Context) (map[string]int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// tableNames lists the relations reported by Counts, in display order.
var tableNames = []string{
	"listings",
	"amenities",
	"crime_records",
	"boundaries",
	"neighborhoods",
	"features",
	"runs",
}
