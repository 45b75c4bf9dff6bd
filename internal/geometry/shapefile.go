package geometry

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ParseShapefile reads an INEGI marco geoestadístico shapefile and returns
// repaired Boundary records. Identifier comes from the CVEGEO attribute and
// the name from NOMGEO/NOM_MUN; records with no usable polygon are skipped
// and counted.
func ParseShapefile(shpPath string) ([]Boundary, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geometry: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map. DBF attribute names are NUL-padded.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(names ...string) string {
		for _, n := range names {
			idx, ok := fieldIdx[strings.ToLower(n)]
			if !ok {
				continue
			}
			v := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
			if v != "" {
				return v
			}
		}
		return ""
	}

	var out []Boundary
	var skipped, generated int

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		mp := Repair(shpPolygonToMultiPolygon(poly))
		if len(mp) == 0 {
			skipped++
			continue
		}

		b := Boundary{
			ID:    attr("CVEGEO", "CVE_GEO"),
			Name:  attr("NOMGEO", "NOM_MUN", "NOMBRE"),
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
		zap.L().Debug("geometry: parsed shapefile",
			zap.String("path", shpPath),
			zap.Int("boundaries", len(out)),
			zap.Int("skipped", skipped),
			zap.Int("generated_ids", generated),
		)
	}

	return out, nil
}

// shpPolygonToMultiPolygon converts a shapefile polygon's flat part list into
// an orb MultiPolygon, one polygon per part. Hole assignment is left to
// Repair's orientation pass; INEGI municipal boundaries carry no holes.
func shpPolygonToMultiPolygon(p *shp.Polygon) orb.MultiPolygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var mp orb.MultiPolygon
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		ring := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{p.Points[j].X, p.Points[j].Y})
		}
		mp = append(mp, orb.Polygon{ring})
	}
	return mp
}
