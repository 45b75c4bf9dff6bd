package geometry

import (
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

const srid = 4326

// EncodeEWKB serializes a repaired multipolygon as EWKB with SRID 4326 for
// Postgres geometry columns.
func EncodeEWKB(mp orb.MultiPolygon) ([]byte, error) {
	g := geom.NewMultiPolygon(geom.XY).SetSRID(srid)

	for _, poly := range mp {
		gp := geom.NewPolygon(geom.XY)
		for _, ring := range poly {
			flat := make([]float64, 0, len(ring)*2)
			for _, pt := range ring {
				flat = append(flat, pt[0], pt[1])
			}
			if err := gp.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
				return nil, eris.Wrap(err, "geometry: push ring")
			}
		}
		if err := g.Push(gp); err != nil {
			return nil, eris.Wrap(err, "geometry: push polygon")
		}
	}

	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: encode EWKB")
	}
	return data, nil
}

// EncodePointEWKB serializes a lon/lat point as EWKB with SRID 4326.
func EncodePointEWKB(pt orb.Point) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{pt[0], pt[1]}).SetSRID(srid)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: encode point EWKB")
	}
	return data, nil
}

// DecodeEWKB parses an EWKB multipolygon back into orb form, for reading
// boundary rows out of Postgres.
func DecodeEWKB(data []byte) (orb.MultiPolygon, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: decode EWKB")
	}

	gmp, ok := g.(*geom.MultiPolygon)
	if !ok {
		return nil, eris.Errorf("geometry: expected multipolygon EWKB, got %T", g)
	}

	var mp orb.MultiPolygon
	for i := 0; i < gmp.NumPolygons(); i++ {
		gp := gmp.Polygon(i)
		var poly orb.Polygon
		for j := 0; j < gp.NumLinearRings(); j++ {
			coords := gp.LinearRing(j).Coords()
			ring := make(orb.Ring, 0, len(coords))
			for _, c := range coords {
				ring = append(ring, orb.Point{c[0], c[1]})
			}
			poly = append(poly, ring)
		}
		mp = append(mp, poly)
	}
	return mp, nil
}
