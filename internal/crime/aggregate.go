package crime

import (
	"go.uber.org/zap"

	"github.com/inmetrica/valuation-cli/internal/model"
	"github.com/inmetrica/valuation-cli/internal/normalize"
)

// Stats holds the summed rate per category code for one municipality.
type Stats struct {
	Sums map[int]float64
}

// Sum returns the aggregate for one category code, zero when the
// municipality recorded nothing in that category.
func (s Stats) Sum(code int) float64 {
	return s.Sums[code]
}

// Totals maps normalized municipality keys to their aggregated stats.
// Municipalities absent from the input simply have no entry; the assembler's
// Lookup makes the present/absent distinction explicit at the join boundary.
type Totals map[string]Stats

// Lookup returns the stats for a normalized municipality key. The second
// return value distinguishes a municipality with all-zero sums from one that
// never appeared in the crime source; both ultimately yield zero features,
// by the stated default policy, but the caller can tell them apart.
func (t Totals) Lookup(key string) (Stats, bool) {
	s, ok := t[key]
	return s, ok
}

// Aggregate groups crime records by normalized municipality and sums the
// rate per category code. Records with an empty municipality or an
// unrecognized type code are skipped and counted, never fatal. The result is
// total over every municipality present in the input.
func Aggregate(records []model.CrimeRecord) Totals {
	totals := make(Totals)
	var skipped int

	for _, r := range records {
		key := normalize.Key(r.Municipality)
		if key == "" {
			skipped++
			continue
		}
		if _, ok := byCode[r.Type]; !ok {
			skipped++
			continue
		}

		s, ok := totals[key]
		if !ok {
			s = Stats{Sums: make(map[int]float64, len(categories))}
			totals[key] = s
		}
		s.Sums[r.Type] += r.Rate
	}

	if skipped > 0 {
		zap.L().Warn("crime: skipped records during aggregation",
			zap.Int("skipped", skipped),
			zap.Int("kept_municipalities", len(totals)),
		)
	}

	return totals
}
