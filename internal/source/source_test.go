package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inmetrica/valuation-cli/internal/geometry"
	"github.com/inmetrica/valuation-cli/internal/model"
)

// fakeStore is an in-memory Store capturing what each source saved.
type fakeStore struct {
	listings      []model.Listing
	amenities     []model.Amenity
	crimeRecords  []model.CrimeRecord
	boundaries    []geometry.Boundary
	neighborhoods []model.Neighborhood
	features      []model.FeatureRow
	runs          []model.Run
}

func (s *fakeStore) SaveListings(_ context.Context, v []model.Listing) error { s.listings = v; return nil }
func (s *fakeStore) Listings(context.Context) ([]model.Listing, error)       { return s.listings, nil }
func (s *fakeStore) SaveAmenities(_ context.Context, v []model.Amenity) error {
	s.amenities = v
	return nil
}
func (s *fakeStore) Amenities(context.Context) ([]model.Amenity, error) { return s.amenities, nil }
func (s *fakeStore) SaveCrimeRecords(_ context.Context, v []model.CrimeRecord) error {
	s.crimeRecords = v
	return nil
}
func (s *fakeStore) CrimeRecords(context.Context) ([]model.CrimeRecord, error) {
	return s.crimeRecords, nil
}
func (s *fakeStore) SaveBoundaries(_ context.Context, v []geometry.Boundary) error {
	s.boundaries = v
	return nil
}
func (s *fakeStore) Boundaries(context.Context) ([]geometry.Boundary, error) {
	return s.boundaries, nil
}
func (s *fakeStore) SaveNeighborhoods(_ context.Context, v []model.Neighborhood) error {
	s.neighborhoods = v
	return nil
}
func (s *fakeStore) Neighborhoods(context.Context) ([]model.Neighborhood, error) {
	return s.neighborhoods, nil
}
func (s *fakeStore) UpdateNeighborhoodCoords(_ context.Context, name string, lat, lon float64) error {
	for i := range s.neighborhoods {
		if s.neighborhoods[i].Name == name {
			s.neighborhoods[i].Latitude = &lat
			s.neighborhoods[i].Longitude = &lon
		}
	}
	return nil
}
func (s *fakeStore) SaveFeatures(_ context.Context, v []model.FeatureRow) error {
	s.features = v
	return nil
}
func (s *fakeStore) Features(context.Context) ([]model.FeatureRow, error) { return s.features, nil }
func (s *fakeStore) RecordRun(_ context.Context, r model.Run) error {
	s.runs = append(s.runs, r)
	return nil
}
func (s *fakeStore) Runs(context.Context, int) ([]model.Run, error) { return s.runs, nil }
func (s *fakeStore) Counts(context.Context) (map[string]int, error) {
	return map[string]int{
		"listings":      len(s.listings),
		"amenities":     len(s.amenities),
		"crime_records": len(s.crimeRecords),
		"boundaries":    len(s.boundaries),
		"neighborhoods": len(s.neighborhoods),
		"features":      len(s.features),
		"runs":          len(s.runs),
	}, nil
}
func (s *fakeStore) Migrate(context.Context) error { return nil }
func (s *fakeStore) Close() error                  { return nil }

// fakeFetcher serves a fixed body with a fixed entity tag and records the
// conditional headers it was asked to send.
type fakeFetcher struct {
	body      string
	etag      string
	calls     int
	sentETags []string
}

func (f *fakeFetcher) Fetch(_ context.Context, _, path, etag string) (string, bool, error) {
	f.calls++
	f.sentETags = append(f.sentETags, etag)
	if etag != "" && etag == f.etag {
		return f.etag, false, nil
	}
	if err := os.WriteFile(path, []byte(f.body), 0o644); err != nil {
		return "", false, err
	}
	return f.etag, true, nil
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistry_GetAndOrder(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"listings", "amenities", "crime", "polygons", "neighborhoods"}, r.Names())

	src, err := r.Get("crime")
	require.NoError(t, err)
	assert.Equal(t, "crime_records", src.Table())

	_, err = r.Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}

func TestResolveInput_MissingFileIsHardError(t *testing.T) {
	_, err := resolveInput(context.Background(), nil, "/does/not/exist.csv", t.TempDir())
	require.Error(t, err)
}

func TestResolveInput_ReusesUnchangedDownload(t *testing.T) {
	tempDir := t.TempDir()
	f := &fakeFetcher{body: "id,price\nL-1,100\n", etag: `"v1"`}
	url := "https://example.com/listings.csv"

	local, err := resolveInput(context.Background(), f, url, tempDir)
	require.NoError(t, err)
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, f.body, string(data))
	assert.Equal(t, []string{""}, f.sentETags)

	// Second run in the same tempDir sends the recorded tag and keeps the
	// cached copy when the upstream reports it unchanged.
	again, err := resolveInput(context.Background(), f, url, tempDir)
	require.NoError(t, err)
	assert.Equal(t, local, again)
	assert.Equal(t, 2, f.calls)
	assert.Equal(t, `"v1"`, f.sentETags[1])

	data, err = os.ReadFile(again)
	require.NoError(t, err)
	assert.Equal(t, f.body, string(data))
}

func TestMapColumns_AliasesAndDrift(t *testing.T) {
	cols := mapColumns([]string{" URL ", "Price_Numeric", "extra_junk", "latitude"})

	assert.Equal(t, 0, cols.col("url"))
	assert.Equal(t, 1, cols.col("price_numeric", "price"))
	assert.Equal(t, 3, cols.col("latitude", "lat"))
	assert.Equal(t, -1, cols.col("bedrooms"))
}

func TestParseFloatPtr(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"", nil},
		{"nan", nil},
		{"-", nil},
		{"abc", nil},
		{"2,500,000", f64(2500000)},
		{"3.5", f64(3.5)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseFloatPtr(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.InDelta(t, *tt.want, *got, 1e-9)
			}
		})
	}
}

func TestParseIntPtr_AcceptsFloatFormattedInts(t *testing.T) {
	got := parseIntPtr("3.0")
	require.NotNil(t, got)
	assert.Equal(t, 3, *got)
}

func f64(v float64) *float64 { return &v }
