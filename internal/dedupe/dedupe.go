// Package dedupe collapses near-duplicate place-name observations into one
// canonical record per normalized join key.
package dedupe

import (
	"strings"

	"go.uber.org/zap"

	"github.com/inmetrica/valuation-cli/internal/normalize"
)

// Observation is one raw (text, centroid) pair from the geocoded
// neighborhoods relation.
type Observation struct {
	RawText   string
	Latitude  float64
	Longitude float64
}

// Canonical is the single surviving record for one normalized key. The
// representative display name and centroid come from the first observation in
// input order; within-group centroids are assumed near-identical and are not
// averaged.
type Canonical struct {
	Key         string
	DisplayName string
	Latitude    float64
	Longitude   float64
}

// Collapse groups observations by normalized key and keeps the first one per
// group. Observations whose raw text normalizes to the empty string are
// excluded entirely. The output preserves first-seen order, so the result is
// deterministic for a given input order and never larger than the input.
func Collapse(obs []Observation) []Canonical {
	seen := make(map[string]struct{}, len(obs))
	var out []Canonical
	var dropped, empty int

	for _, o := range obs {
		key := normalize.Key(o.RawText)
		if key == "" {
			empty++
			continue
		}
		if _, ok := seen[key]; ok {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Canonical{
			Key:         key,
			DisplayName: strings.TrimSpace(o.RawText),
			Latitude:    o.Latitude,
			Longitude:   o.Longitude,
		})
	}

	if dropped > 0 || empty > 0 {
		zap.L().Debug("dedupe: collapsed observations",
			zap.Int("in", len(obs)),
			zap.Int("out", len(out)),
			zap.Int("duplicates", dropped),
			zap.Int("empty_keys", empty),
		)
	}

	return out
}

// ByKey indexes canonical records for join-time lookup.
func ByKey(canon []Canonical) map[string]Canonical {
	m := make(map[string]Canonical, len(canon))
	for _, c := range canon {
		m[c.Key] = c
	}
	return m
}
