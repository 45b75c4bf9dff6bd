package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// Querétaro sanity bounding box. Coordinates outside it are treated as
// geocoding noise and dropped at ingestion.
const (
	QroMinLat = 19.0
	QroMaxLat = 22.0
	QroMinLon = -101.5
	QroMaxLon = -99.0
)

// BuildPoint converts a nullable lat/lon pair into an orb point. Returns nil
// (not an error) when either coordinate is absent or non-finite: the row is
// simply excluded from spatial joins downstream.
func BuildPoint(lat, lon *float64) *orb.Point {
	if lat == nil || lon == nil {
		return nil
	}
	if !isFinite(*lat) || !isFinite(*lon) {
		return nil
	}
	pt := orb.Point{*lon, *lat}
	return &pt
}

// InQueretaroBBox reports whether the coordinate pair falls inside the state
// sanity box.
func InQueretaroBBox(lat, lon float64) bool {
	return lat > QroMinLat && lat < QroMaxLat && lon > QroMinLon && lon < QroMaxLon
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
