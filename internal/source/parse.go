package source

import (
	"strconv"
	"strings"
)

// columnMap resolves header names to positions. Headers are matched
// case-insensitively after trimming, so minor drift in the scraper output
// does not break ingestion. Unknown columns are ignored; a missing column
// simply resolves to -1.
type columnMap map[string]int

func mapColumns(header []string) columnMap {
	m := make(columnMap, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		if key == "" {
			continue
		}
		if _, dup := m[key]; !dup {
			m[key] = i
		}
	}
	return m
}

// col returns the position of the first matching alias, or -1.
func (m columnMap) col(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := m[a]; ok {
			return i
		}
	}
	return -1
}

// field returns the trimmed cell at idx, tolerating short rows.
func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseFloatPtr parses permissively: empty, unparseable, or placeholder
// values become nil rather than failing the row. Thousands separators from
// the scraper output are stripped first.
func parseFloatPtr(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseIntPtr parses an integer-valued cell; float-formatted integers
// ("3.0") from pandas exports are accepted.
func parseIntPtr(s string) *int {
	f := parseFloatPtr(s)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// parseFloatOr parses a float with a fallback default.
func parseFloatOr(s string, def float64) float64 {
	if f := parseFloatPtr(s); f != nil {
		return *f
	}
	return def
}

// parseIntOr parses an int with a fallback default.
func parseIntOr(s string, def int) int {
	if n := parseIntPtr(s); n != nil {
		return *n
	}
	return def
}
