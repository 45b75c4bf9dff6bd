package model

// FeatureRow is one row of the assembled feature table: one listing with its
// structural attributes, location labels, distance features, and crime
// features. Distances always carry a value for every category (the search
// radius when nothing was found); crime columns default to zero.
type FeatureRow struct {
	ListingID     string   `json:"listing_id"`
	Price         *float64 `json:"price,omitempty"`
	M2Constructed *float64 `json:"m2_constructed,omitempty"`
	M2Terrain     *float64 `json:"m2_terrain,omitempty"`
	Bedrooms      *int     `json:"bedrooms,omitempty"`
	Bathrooms     *float64 `json:"bathrooms,omitempty"`
	ParkingSpots  *int     `json:"parking_spots,omitempty"`
	IsNew         bool     `json:"is_new"`
	HasSecurity   bool     `json:"has_security"`
	HasGarden     bool     `json:"has_garden"`
	HasPool       bool     `json:"has_pool"`
	HasTerrace    bool     `json:"has_terrace"`
	HasGym        bool     `json:"has_gym"`
	HasKitchen    bool     `json:"has_kitchen"`

	Municipality    string `json:"municipality,omitempty"`
	MunicipalityKey string `json:"municipality_key,omitempty"`
	Neighborhood    string `json:"neighborhood,omitempty"`
	NeighborhoodKey string `json:"neighborhood_key,omitempty"`
	HasGeometry     bool   `json:"has_geometry"`

	// Distances holds meters to the nearest amenity per category. Keys are
	// always the full closed category set.
	Distances map[AmenityCategory]float64 `json:"distances"`

	CrimeBurglary      float64 `json:"crime_burglary"`
	CrimeVehicleTheft  float64 `json:"crime_vehicle_theft"`
	CrimeStreetRobbery float64 `json:"crime_street_robbery"`
	CrimeHomicide      float64 `json:"crime_homicide"`
	CrimeAssault       float64 `json:"crime_assault"`
	CrimeDrugDealing   float64 `json:"crime_drug_dealing"`
	CrimeViolent       float64 `json:"crime_violent"`
}

// SetCrime assigns the aggregate for one crime category code (1..7).
// Unknown codes are ignored.
func (r *FeatureRow) SetCrime(code int, v float64) {
	switch code {
	case 1:
		r.CrimeBurglary = v
	case 2:
		r.CrimeVehicleTheft = v
	case 3:
		r.CrimeStreetRobbery = v
	case 4:
		r.CrimeHomicide = v
	case 5:
		r.CrimeAssault = v
	case 6:
		r.CrimeDrugDealing = v
	case 7:
		r.CrimeViolent = v
	}
}

// Crime returns the aggregate for one crime category code (1..7).
func (r *FeatureRow) Crime(code int) float64 {
	switch code {
	case 1:
		return r.CrimeBurglary
	case 2:
		return r.CrimeVehicleTheft
	case 3:
		return r.CrimeStreetRobbery
	case 4:
		return r.CrimeHomicide
	case 5:
		return r.CrimeAssault
	case 6:
		return r.CrimeDrugDealing
	case 7:
		return r.CrimeViolent
	}
	return 0
}

// DistanceColumn is the output column name for one category's distance
// feature.
func DistanceColumn(c AmenityCategory) string {
	return "dist_" + string(c)
}

// CrimeColumns returns the crime aggregate column names in category-code
// order (code 1 first).
func CrimeColumns() []string {
	out := make([]string, len(crimeColumns))
	copy(out, crimeColumns)
	return out
}

// crimeColumns lists the crime aggregate columns in category-code order.
var crimeColumns = []string{
	"crime_burglary",
	"crime_vehicle_theft",
	"crime_street_robbery",
	"crime_homicide",
	"crime_assault",
	"crime_drug_dealing",
	"crime_violent",
}

// FeatureColumns returns the full OBT column list in its fixed order. Every
// persistence and export surface derives its schema from this one list.
func FeatureColumns() []string {
	cols := []string{
		"listing_id",
		"price",
		"m2_constructed",
		"m2_terrain",
		"bedrooms",
		"bathrooms",
		"parking_spots",
		"is_new",
		"has_security",
		"has_garden",
		"has_pool",
		"has_terrace",
		"has_gym",
		"has_kitchen",
		"municipality",
		"municipality_key",
		"neighborhood",
		"neighborhood_key",
		"has_geometry",
	}
	for _, c := range Categories() {
		cols = append(cols, DistanceColumn(c))
	}
	cols = append(cols, crimeColumns...)
	return cols
}

// Values returns the row's values matching FeatureColumns order, for database
// parameter binding. Nil pointers map to SQL NULL.
func (r *FeatureRow) Values() []any {
	vals := []any{
		r.ListingID,
		floatOrNil(r.Price),
		floatOrNil(r.M2Constructed),
		floatOrNil(r.M2Terrain),
		intOrNil(r.Bedrooms),
		floatOrNil(r.Bathrooms),
		intOrNil(r.ParkingSpots),
		r.IsNew,
		r.HasSecurity,
		r.HasGarden,
		r.HasPool,
		r.HasTerrace,
		r.HasGym,
		r.HasKitchen,
		r.Municipality,
		r.MunicipalityKey,
		r.Neighborhood,
		r.NeighborhoodKey,
		r.HasGeometry,
	}
	for _, c := range Categories() {
		vals = append(vals, r.Distances[c])
	}
	for code := 1; code <= len(crimeColumns); code++ {
		vals = append(vals, r.Crime(code))
	}
	return vals
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
