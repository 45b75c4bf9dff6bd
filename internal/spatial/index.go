// Package spatial performs the in-memory spatial joins: point-in-polygon
// boundary resolution and bounded nearest-neighbor amenity search. Both run
// against R-tree indexes so the exact geometric test only sees bounding-box
// candidates.
package spatial

import (
	"sort"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"

	"github.com/inmetrica/valuation-cli/internal/geometry"
	"github.com/inmetrica/valuation-cli/internal/model"
)

// Index holds the immutable spatial indexes for one build run. Build it
// fully (AddBoundary/AddAmenity) before querying; after that, queries are
// safe to run concurrently — the only mutation is the atomic counters.
type Index struct {
	radiusM    float64
	boundaries rtree.RTreeG[*geometry.Boundary]
	amenities  map[model.AmenityCategory]*rtree.RTreeG[orb.Point]

	resolved      atomic.Int64 // points with at least one containing boundary
	multiHits     atomic.Int64 // points contained by more than one boundary
	generatedHits atomic.Int64 // winning boundaries that carry a generated id
}

// NewIndex creates an empty index with the given nearest-neighbor search
// radius in meters.
func NewIndex(radiusM float64) *Index {
	return &Index{
		radiusM:   radiusM,
		amenities: make(map[model.AmenityCategory]*rtree.RTreeG[orb.Point]),
	}
}

// RadiusM returns the configured search radius, which is also the imputed
// distance when no amenity of a category is found.
func (x *Index) RadiusM() float64 { return x.radiusM }

// AddBoundary indexes one repaired boundary by its bounding box.
func (x *Index) AddBoundary(b *geometry.Boundary) {
	min := [2]float64{b.Bound.Min[0], b.Bound.Min[1]}
	max := [2]float64{b.Bound.Max[0], b.Bound.Max[1]}
	x.boundaries.Insert(min, max, b)
}

// AddAmenity indexes one amenity point under its category.
func (x *Index) AddAmenity(a model.Amenity) {
	tr, ok := x.amenities[a.Category]
	if !ok {
		tr = new(rtree.RTreeG[orb.Point])
		x.amenities[a.Category] = tr
	}
	pt := orb.Point{a.Longitude, a.Latitude}
	p := [2]float64{pt[0], pt[1]}
	tr.Insert(p, p, pt)
}

// Boundaries returns how many boundaries are indexed.
func (x *Index) Boundaries() int { return x.boundaries.Len() }

// ResolveBoundary returns the boundary containing pt, or nil when none does.
// When several boundaries contain the point (shared borders, overlapping
// cells) the one with the lowest identifier wins — a fixed policy, not an
// artifact of insertion order.
func (x *Index) ResolveBoundary(pt orb.Point) *geometry.Boundary {
	p := [2]float64{pt[0], pt[1]}

	var matches []*geometry.Boundary
	x.boundaries.Search(p, p, func(_, _ [2]float64, b *geometry.Boundary) bool {
		if planar.MultiPolygonContains(b.Geom, pt) {
			matches = append(matches, b)
		}
		return true
	})

	if len(matches) == 0 {
		return nil
	}

	x.resolved.Add(1)
	if len(matches) > 1 {
		x.multiHits.Add(1)
		sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	}
	if matches[0].Generated {
		x.generatedHits.Add(1)
	}
	return matches[0]
}

// OverlapRate returns the share of resolved points that were contained by
// more than one boundary. High values mean the polygon source truly overlaps
// rather than merely sharing borders, and the caller should flag it.
func (x *Index) OverlapRate() float64 {
	resolved := x.resolved.Load()
	if resolved == 0 {
		return 0
	}
	return float64(x.multiHits.Load()) / float64(resolved)
}

// GeneratedIDHits returns how many containment wins went to a boundary whose
// identifier was generated at parse time. Those ids are not stable across
// runs, so any nonzero count weakens re-run comparability.
func (x *Index) GeneratedIDHits() int64 {
	return x.generatedHits.Load()
}
