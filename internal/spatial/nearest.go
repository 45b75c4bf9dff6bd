package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/inmetrica/valuation-cli/internal/model"
)

// metersPerDegreeLat is the conservative meters-per-degree figure used to
// size the envelope pre-filter. Slightly under the true minimum so the
// derived degree padding always covers at least the search radius.
const metersPerDegreeLat = 110574.0

// NearestWithin returns the haversine distance in meters from pt to the
// nearest amenity of the category, searching only within the configured
// radius. When nothing of that category lies within the radius it returns
// (radius, false): "nothing found nearby" is imputed as exactly the search
// boundary so the feature stays numeric and bounded.
//
// The envelope pre-filter only prunes candidates that cannot be within the
// radius; it never changes the result versus an unbounded search restricted
// to the same radius afterwards.
func (x *Index) NearestWithin(pt orb.Point, cat model.AmenityCategory) (float64, bool) {
	tr, ok := x.amenities[cat]
	if !ok || tr.Len() == 0 {
		return x.radiusM, false
	}

	latPad := x.radiusM / metersPerDegreeLat
	lonPad := lonPadding(pt[1], x.radiusM)

	min := [2]float64{pt[0] - lonPad, pt[1] - latPad}
	max := [2]float64{pt[0] + lonPad, pt[1] + latPad}

	best := math.Inf(1)
	tr.Search(min, max, func(_, _ [2]float64, candidate orb.Point) bool {
		if d := geo.DistanceHaversine(pt, candidate); d < best {
			best = d
		}
		return true
	})

	if best > x.radiusM {
		return x.radiusM, false
	}
	return best, true
}

// Distances computes the per-category nearest-distance feature map for one
// point, always covering the full closed category set.
func (x *Index) Distances(pt orb.Point) map[model.AmenityCategory]float64 {
	out := make(map[model.AmenityCategory]float64, len(model.Categories()))
	for _, cat := range model.Categories() {
		d, _ := x.NearestWithin(pt, cat)
		out[cat] = d
	}
	return out
}

// DefaultDistances returns the imputed feature map for listings with no
// resolvable geometry: every category at the radius bound.
func DefaultDistances(radiusM float64) map[model.AmenityCategory]float64 {
	out := make(map[model.AmenityCategory]float64, len(model.Categories()))
	for _, cat := range model.Categories() {
		out[cat] = radiusM
	}
	return out
}

// lonPadding converts the radius to degrees of longitude at the given
// latitude. Near the poles the shrinking cosine would blow the padding up;
// the whole longitude range is used past 85° rather than risking overflow.
func lonPadding(lat, radiusM float64) float64 {
	cos := math.Cos(lat * math.Pi / 180)
	if math.Abs(lat) > 85 || cos <= 0 {
		return 180
	}
	return radiusM / (metersPerDegreeLat * cos)
}
