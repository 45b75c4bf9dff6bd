package model

// Neighborhood is one geocoded locality centroid as ingested, before
// deduplication. Coordinates are pointers: the geocoder leaves unresolved
// localities blank and the delta-geocode command fills them in later.
type Neighborhood struct {
	Name      string   `json:"location_name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasPoint reports whether the centroid has been resolved.
func (n *Neighborhood) HasPoint() bool {
	return n.Latitude != nil && n.Longitude != nil
}
