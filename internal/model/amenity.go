package model

import "github.com/rotisserie/eris"

// AmenityCategory identifies one class of urban amenity. The set is closed:
// every distance feature column in the output table corresponds to exactly
// one category, so adding a category is a schema change.
type AmenityCategory string

const (
	CategoryHubIndustrial       AmenityCategory = "hub_industrial"
	CategoryHubTourism          AmenityCategory = "hub_tourism"
	CategoryHubCommercial       AmenityCategory = "hub_commercial"
	CategoryMunicipalCenter     AmenityCategory = "municipal_center"
	CategoryNaturePark          AmenityCategory = "nature_park"
	CategoryNatureGreenArea     AmenityCategory = "nature_green_area"
	CategoryShopSupermarket     AmenityCategory = "shop_supermarket"
	CategoryShopConvenience     AmenityCategory = "shop_convenience"
	CategoryEducationSchool     AmenityCategory = "education_school"
	CategoryEducationUniversity AmenityCategory = "education_university"
	CategoryHealthHospital      AmenityCategory = "health_hospital"
	CategoryHealthLocal         AmenityCategory = "health_local"
	CategoryTransportStation    AmenityCategory = "transport_station"
	CategoryWorshipTemple       AmenityCategory = "worship_temple"
)

// categories lists every category in output column order.
var categories = []AmenityCategory{
	CategoryHubIndustrial,
	CategoryHubTourism,
	CategoryHubCommercial,
	CategoryMunicipalCenter,
	CategoryNaturePark,
	CategoryNatureGreenArea,
	CategoryShopSupermarket,
	CategoryShopConvenience,
	CategoryEducationSchool,
	CategoryEducationUniversity,
	CategoryHealthHospital,
	CategoryHealthLocal,
	CategoryTransportStation,
	CategoryWorshipTemple,
}

// Categories returns all amenity categories in fixed output order.
func Categories() []AmenityCategory {
	out := make([]AmenityCategory, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory validates a raw category string against the closed set.
func ParseCategory(s string) (AmenityCategory, error) {
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", eris.Errorf("model: unknown amenity category %q", s)
}

// Amenity is one point of interest used for distance features. Name is
// display-only; unnamed points get a placeholder rather than being dropped,
// because the distance computation only needs the coordinates.
type Amenity struct {
	Name      string          `json:"name"`
	Category  AmenityCategory `json:"category"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
}
