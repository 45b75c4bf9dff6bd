package spatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inmetrica/valuation-cli/internal/model"
)

const testRadius = 5000.0

// amenityAt places an amenity cat meters north of the origin point.
func amenityAt(origin orb.Point, meters float64, cat model.AmenityCategory) model.Amenity {
	return model.Amenity{
		Name:      "test",
		Category:  cat,
		Latitude:  origin[1] + meters/metersPerDegreeLat,
		Longitude: origin[0],
	}
}

func TestNearestWithinFindsMinimum(t *testing.T) {
	origin := orb.Point{-100.4, 20.6}
	x := NewIndex(testRadius)
	x.AddAmenity(amenityAt(origin, 4800, model.CategoryEducationSchool))
	x.AddAmenity(amenityAt(origin, 1200, model.CategoryEducationSchool))
	x.AddAmenity(amenityAt(origin, 3000, model.CategoryEducationSchool))

	d, found := x.NearestWithin(origin, model.CategoryEducationSchool)
	require.True(t, found)
	assert.InDelta(t, 1200, d, 15, "haversine vs flat-earth placement tolerance")
}

func TestNearestWithinImputesRadiusWhenEmpty(t *testing.T) {
	origin := orb.Point{-100.4, 20.6}
	x := NewIndex(testRadius)

	// No amenities of the category at all.
	d, found := x.NearestWithin(origin, model.CategoryHealthHospital)
	assert.False(t, found)
	assert.Equal(t, testRadius, d)

	// An amenity exists but outside the radius: same imputation.
	x.AddAmenity(amenityAt(origin, 8000, model.CategoryHealthHospital))
	d, found = x.NearestWithin(origin, model.CategoryHealthHospital)
	assert.False(t, found)
	assert.Equal(t, testRadius, d)
}

func TestNearestWithinNeverExceedsRadius(t *testing.T) {
	origin := orb.Point{-100.4, 20.6}
	x := NewIndex(testRadius)
	for _, m := range []float64{4999, 5050, 9000} {
		x.AddAmenity(amenityAt(origin, m, model.CategoryShopSupermarket))
	}

	d, _ := x.NearestWithin(origin, model.CategoryShopSupermarket)
	assert.LessOrEqual(t, d, testRadius)
}

func TestNearestWithinMatchesUnboundedSearch(t *testing.T) {
	// The envelope pre-filter must not change the answer versus brute force
	// post-filtered to the radius.
	origin := orb.Point{-100.4, 20.6}
	x := NewIndex(testRadius)

	offsets := []struct{ dLon, dLat float64 }{
		{0.01, 0.01}, {-0.02, 0.03}, {0.04, -0.01}, {-0.03, -0.03},
		{0.001, -0.002}, {0.08, 0.0}, {0.0, 0.05},
	}
	var points []orb.Point
	for _, o := range offsets {
		p := orb.Point{origin[0] + o.dLon, origin[1] + o.dLat}
		points = append(points, p)
		x.AddAmenity(model.Amenity{
			Category:  model.CategoryNaturePark,
			Latitude:  p[1],
			Longitude: p[0],
		})
	}

	brute := testRadius
	for _, p := range points {
		if d := geo.DistanceHaversine(origin, p); d <= testRadius && d < brute {
			brute = d
		}
	}

	got, _ := x.NearestWithin(origin, model.CategoryNaturePark)
	assert.InDelta(t, brute, got, 1e-9)
}

func TestDistancesCoversFullCategorySet(t *testing.T) {
	origin := orb.Point{-100.4, 20.6}
	x := NewIndex(testRadius)
	x.AddAmenity(amenityAt(origin, 2000, model.CategoryEducationSchool))

	dists := x.Distances(origin)
	require.Len(t, dists, len(model.Categories()))
	assert.Less(t, dists[model.CategoryEducationSchool], testRadius)
	assert.Equal(t, testRadius, dists[model.CategoryHealthHospital])
}

func TestDefaultDistances(t *testing.T) {
	dists := DefaultDistances(testRadius)
	require.Len(t, dists, len(model.Categories()))
	for cat, d := range dists {
		assert.Equalf(t, testRadius, d, "category %s", cat)
	}
}
