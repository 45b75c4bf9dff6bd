// Package geometry parses raw boundary and point payloads into canonical
// orb geometries, repairing minor topological defects before any containment
// test runs against them.
package geometry

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Boundary is one administrative polygon used for point-in-polygon joins.
// Geom has always been through Repair before it is stored here.
type Boundary struct {
	ID        string
	Name      string
	Generated bool // true when the source carried no identifier
	Geom      orb.MultiPolygon
	Bound     orb.Bound
}

// idProperties lists feature property keys tried, in order, for the boundary
// identifier. CVEGEO is the INEGI geostatistical key.
var idProperties = []string{"CVEGEO", "cvegeo", "id", "ID"}

// nameProperties lists feature property keys tried, in order, for the
// display name.
var nameProperties = []string{"NOMGEO", "NOM_MUN", "nomgeo", "name", "NAME"}

// ParseFeatureCollection parses a GeoJSON FeatureCollection into repaired
// Boundary records. Features with no usable polygon after repair are skipped
// and counted, never fatal. Features with no identifier property get a
// generated uuid, stable within this run only.
func ParseFeatureCollection(data []byte) ([]Boundary, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: unmarshal feature collection")
	}

	var out []Boundary
	var skipped, generated int

	for _, f := range fc.Features {
		mp := toMultiPolygon(f.Geometry)
		if mp == nil {
			skipped++
			continue
		}
		mp = Repair(mp)
		if len(mp) == 0 {
			skipped++
			continue
		}

		b := Boundary{
			ID:    propString(f.Properties, idProperties),
			Name:  propString(f.Properties, nameProperties),
			Geom:  mp,
			Bound: mp.Bound(),
		}
		if b.ID == "" {
			b.ID = uuid.New().String()
			b.Generated = true
			generated++
		}
		out = append(out, b)
	}

	if skipped > 0 || generated > 0 {
		zap.L().Debug("geometry: parsed feature collection",
			zap.Int("boundaries", len(out)),
			zap.Int("skipped", skipped),
			zap.Int("generated_ids", generated),
		)
	}

	return out, nil
}

// toMultiPolygon normalizes a feature geometry to a MultiPolygon. Non-areal
// geometries yield nil.
func toMultiPolygon(g orb.Geometry) orb.MultiPolygon {
	switch geom := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{geom}
	case orb.MultiPolygon:
		return geom
	default:
		return nil
	}
}

// propString returns the first present, non-empty property among keys,
// stringified. Numeric identifiers are formatted without an exponent.
func propString(props geojson.Properties, keys []string) string {
	for _, k := range keys {
		v, ok := props[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return fmt.Sprintf("%.0f", t)
		case int:
			return fmt.Sprintf("%d", t)
		}
	}
	return ""
}
