package pipeline

import (
	"context"

	"github.com/inmetrica/valuation-cli/internal/geometry"
	"github.com/inmetrica/valuation-cli/internal/model"
)

// mockStore is an in-memory warehouse.Store for builder tests.
type mockStore struct {
	listings      []model.Listing
	boundaries    []geometry.Boundary
	amenities     []model.Amenity
	crimeRecords  []model.CrimeRecord
	neighborhoods []model.Neighborhood

	savedFeatures []model.FeatureRow
	runs          map[string]model.Run
}

func newMockStore() *mockStore {
	return &mockStore{runs: make(map[string]model.Run)}
}

func (s *mockStore) SaveListings(_ context.Context, v []model.Listing) error { s.listings = v; return nil }
func (s *mockStore) Listings(context.Context) ([]model.Listing, error)       { return s.listings, nil }
func (s *mockStore) SaveAmenities(_ context.Context, v []model.Amenity) error {
	s.amenities = v
	return nil
}
func (s *mockStore) Amenities(context.Context) ([]model.Amenity, error) { return s.amenities, nil }
func (s *mockStore) SaveCrimeRecords(_ context.Context, v []model.CrimeRecord) error {
	s.crimeRecords = v
	return nil
}
func (s *mockStore) CrimeRecords(context.Context) ([]model.CrimeRecord, error) {
	return s.crimeRecords, nil
}
func (s *mockStore) SaveBoundaries(_ context.Context, v []geometry.Boundary) error {
	s.boundaries = v
	return nil
}
func (s *mockStore) Boundaries(context.Context) ([]geometry.Boundary, error) {
	return s.boundaries, nil
}
func (s *mockStore) SaveNeighborhoods(_ context.Context, v []model.Neighborhood) error {
	s.neighborhoods = v
	return nil
}
func (s *mockStore) Neighborhoods(context.Context) ([]model.Neighborhood, error) {
	return s.neighborhoods, nil
}
func (s *mockStore) UpdateNeighborhoodCoords(context.Context, string, float64, float64) error {
	return nil
}
func (s *mockStore) SaveFeatures(_ context.Context, v []model.FeatureRow) error {
	s.savedFeatures = v
	return nil
}
func (s *mockStore) Features(context.Context) ([]model.FeatureRow, error) {
	return s.savedFeatures, nil
}
func (s *mockStore) RecordRun(_ context.Context, r model.Run) error {
	s.runs[r.ID] = r
	return nil
}
func (s *mockStore) Runs(context.Context, int) ([]model.Run, error) {
	out := make([]model.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	return out, nil
}
func (s *mockStore) Counts(context.Context) (map[string]int, error) { return nil, nil }
func (s *mockStore) Migrate(context.Context) error                  { return nil }
func (s *mockStore) Close() error                                   { return nil }
