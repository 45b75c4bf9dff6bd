package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inmetrica/valuation-cli/internal/geometry"
	"github.com/inmetrica/valuation-cli/internal/model"
)

// stubStore is a canned-data warehouse for handler tests.
type stubStore struct {
	features []model.FeatureRow
	runs     []model.Run
	counts   map[string]int
}

func (s *stubStore) SaveListings(context.Context, []model.Listing) error    { return nil }
func (s *stubStore) Listings(context.Context) ([]model.Listing, error)      { return nil, nil }
func (s *stubStore) SaveAmenities(context.Context, []model.Amenity) error   { return nil }
func (s *stubStore) Amenities(context.Context) ([]model.Amenity, error)     { return nil, nil }
func (s *stubStore) SaveCrimeRecords(context.Context, []model.CrimeRecord) error {
	return nil
}
func (s *stubStore) CrimeRecords(context.Context) ([]model.CrimeRecord, error) { return nil, nil }
func (s *stubStore) SaveBoundaries(context.Context, []geometry.Boundary) error { return nil }
func (s *stubStore) Boundaries(context.Context) ([]geometry.Boundary, error)   { return nil, nil }
func (s *stubStore) SaveNeighborhoods(context.Context, []model.Neighborhood) error {
	return nil
}
func (s *stubStore) Neighborhoods(context.Context) ([]model.Neighborhood, error) {
	return nil, nil
}
func (s *stubStore) UpdateNeighborhoodCoords(context.Context, string, float64, float64) error {
	return nil
}
func (s *stubStore) SaveFeatures(context.Context, []model.FeatureRow) error { return nil }
func (s *stubStore) Features(context.Context) ([]model.FeatureRow, error) {
	return s.features, nil
}
func (s *stubStore) RecordRun(context.Context, model.Run) error { return nil }
func (s *stubStore) Runs(context.Context, int) ([]model.Run, error) {
	return s.runs, nil
}
func (s *stubStore) Counts(context.Context) (map[string]int, error) { return s.counts, nil }
func (s *stubStore) Migrate(context.Context) error                  { return nil }
func (s *stubStore) Close() error                                   { return nil }

func TestAPIHealthz(t *testing.T) {
	srv := httptest.NewServer(apiRouter(&stubStore{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestAPIFeatureByID(t *testing.T) {
	row := model.FeatureRow{ListingID: "abc123", Price: f64(1500000)}
	srv := httptest.NewServer(apiRouter(&stubStore{features: []model.FeatureRow{row}}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/features/abc123")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.FeatureRow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "abc123", got.ListingID)
	require.NotNil(t, got.Price)
	assert.Equal(t, 1500000.0, *got.Price)
}

func TestAPIFeatureNotFound(t *testing.T) {
	srv := httptest.NewServer(apiRouter(&stubStore{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/features/nope")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIRunsAndSummary(t *testing.T) {
	st := &stubStore{
		runs:   []model.Run{{ID: "run-1", Status: model.RunStatusComplete, StartedAt: time.Now()}},
		counts: map[string]int{"listings": 42, "features": 40},
	}
	srv := httptest.NewServer(apiRouter(st))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/runs")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)

	resp, err = http.Get(srv.URL + "/api/v1/summary")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var counts map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&counts))
	assert.Equal(t, 42, counts["listings"])
}

func f64(v float64) *float64 { return &v }
