package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// Repair returns a topologically usable copy of mp. Containment tests on
// unrepaired rings give false negatives or flip between runs, so every
// boundary goes through here before indexing:
//
//   - consecutive duplicate vertices removed
//   - rings closed (first point appended when missing)
//   - rings with fewer than 4 points after closing dropped
//   - zero-area rings dropped (self-touching rings that collapse)
//   - exterior rings oriented CCW, holes CW
//
// Polygons whose exterior ring is dropped are removed entirely.
func Repair(mp orb.MultiPolygon) orb.MultiPolygon {
	var out orb.MultiPolygon

	for _, poly := range mp {
		var repaired orb.Polygon
		for i, ring := range poly {
			r := repairRing(ring)
			if r == nil {
				if i == 0 {
					repaired = nil
					break
				}
				continue // dropped hole
			}
			exterior := len(repaired) == 0
			if exterior && ringArea(r) < 0 {
				r.Reverse()
			}
			if !exterior && ringArea(r) > 0 {
				r.Reverse()
			}
			repaired = append(repaired, r)
		}
		if len(repaired) > 0 {
			out = append(out, repaired)
		}
	}

	return out
}

// repairRing dedupes, closes, and validates one ring. Returns nil for
// degenerate rings.
func repairRing(ring orb.Ring) orb.Ring {
	if len(ring) == 0 {
		return nil
	}

	out := make(orb.Ring, 0, len(ring)+1)
	for _, pt := range ring {
		if len(out) > 0 && out[len(out)-1] == pt {
			continue
		}
		out = append(out, pt)
	}

	// An unclosed input leaves first != last after dedup; close it. A closed
	// input whose duplicate endpoint was consumed above is reclosed the same
	// way.
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	if len(out) < 3 {
		return nil
	}
	out = append(out, out[0])

	if math.Abs(ringArea(out)) == 0 {
		return nil
	}
	return out
}

// ringArea computes the signed shoelace area of a ring in coordinate units.
// Positive means counter-clockwise winding.
func ringArea(ring orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		a, b := ring[i], ring[i+1]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return sum / 2
}
