// Package model holds the shared records passed between pipeline stages.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Listing is one scraped property advertisement after source parsing.
// Numeric fields are pointers because the scraper emits blanks for
// anything the portal page did not publish.
type Listing struct {
	ID             string   `json:"id"`
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Price          *float64 `json:"price,omitempty"`
	M2Constructed  *float64 `json:"m2_constructed,omitempty"`
	M2Terrain      *float64 `json:"m2_terrain,omitempty"`
	Bedrooms       *int     `json:"bedrooms,omitempty"`
	Bathrooms      *float64 `json:"bathrooms,omitempty"`
	ParkingSpots   *int     `json:"parking_spots,omitempty"`
	IsNew          bool     `json:"is_new"`
	HasSecurity    bool     `json:"has_security"`
	HasGarden      bool     `json:"has_garden"`
	HasPool        bool     `json:"has_pool"`
	HasTerrace     bool     `json:"has_terrace"`
	HasGym         bool     `json:"has_gym"`
	HasKitchen     bool     `json:"has_kitchen"`
	LocationText   string   `json:"location_text"`
	CleanAddress   string   `json:"clean_address"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	ExtractionDate string   `json:"extraction_date"`
	SourcePage     int      `json:"source_page"`
}

// HasPoint reports whether the listing carries its own coordinates.
func (l *Listing) HasPoint() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// ListingID derives the stable listing identifier from the source URL.
// The same URL always hashes to the same ID across runs.
func ListingID(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}
