package pipeline

import (
	"github.com/inmetrica/valuation-cli/internal/crime"
	"github.com/inmetrica/valuation-cli/internal/dedupe"
	"github.com/inmetrica/valuation-cli/internal/geometry"
	"github.com/inmetrica/valuation-cli/internal/model"
	"github.com/inmetrica/valuation-cli/internal/normalize"
	"github.com/inmetrica/valuation-cli/internal/spatial"
)

// Env bundles the prepared lookup structures one assembly pass works
// against. It is built once per run and read concurrently, so nothing in it
// may be mutated during assembly.
type Env struct {
	Index *spatial.Index
	Hoods map[string]dedupe.Canonical // keyed by normalize.Key
	Crime crime.Totals
}

// AssembleRow turns one listing into its feature row. Pure: no I/O, no
// mutation of the inputs, deterministic for a given Env.
//
// Point resolution order: the listing's own coordinates, else the geocoded
// centroid of its cleaned address. A listing with neither still produces a
// row — distances impute the search radius, crime features come through the
// municipality only when a point resolved one, and HasGeometry marks the row
// for downstream filtering.
func AssembleRow(env *Env, l model.Listing) model.FeatureRow {
	row := model.FeatureRow{
		ListingID:     l.ID,
		Price:         l.Price,
		M2Constructed: l.M2Constructed,
		M2Terrain:     l.M2Terrain,
		Bedrooms:      l.Bedrooms,
		Bathrooms:     l.Bathrooms,
		ParkingSpots:  l.ParkingSpots,
		IsNew:         l.IsNew,
		HasSecurity:   l.HasSecurity,
		HasGarden:     l.HasGarden,
		HasPool:       l.HasPool,
		HasTerrace:    l.HasTerrace,
		HasGym:        l.HasGym,
		HasKitchen:    l.HasKitchen,
		Neighborhood:  l.CleanAddress,
	}

	hoodKey := normalize.Key(l.CleanAddress)
	row.NeighborhoodKey = hoodKey

	pt := geometry.BuildPoint(l.Latitude, l.Longitude)
	if pt == nil && hoodKey != "" {
		if hood, ok := env.Hoods[hoodKey]; ok {
			pt = geometry.BuildPoint(&hood.Latitude, &hood.Longitude)
			row.Neighborhood = hood.DisplayName
		}
	}

	if pt == nil {
		row.Distances = spatial.DefaultDistances(env.Index.RadiusM())
		return row
	}

	row.HasGeometry = true
	row.Distances = env.Index.Distances(*pt)

	if b := env.Index.ResolveBoundary(*pt); b != nil {
		row.Municipality = b.Name
		row.MunicipalityKey = normalize.Key(b.Name)
		if stats, ok := env.Crime.Lookup(row.MunicipalityKey); ok {
			for _, cat := range crime.Categories() {
				row.SetCrime(cat.Code, stats.Sum(cat.Code))
			}
		}
	}

	return row
}
