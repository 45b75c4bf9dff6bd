package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// noisePatterns strips marketing copy and portal boilerplate from scraped
// location strings. Applied in order against the lowercased input; longer
// phrases come before their substrings so "preventa" is not left as "pre".
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`venta de casa en`),
	regexp.MustCompile(`casa en venta`),
	regexp.MustCompile(`en venta`),
	regexp.MustCompile(`preventa`),
	regexp.MustCompile(`venta`),
	regexp.MustCompile(`remate`),
	regexp.MustCompile(`oportunidad`),
	regexp.MustCompile(`fraccionamiento`),
	regexp.MustCompile(`residencial`),
	regexp.MustCompile(`condominio`),
	regexp.MustCompile(`lotes?`),
	regexp.MustCompile(`terrenos?`),
	regexp.MustCompile(`departamentos?`),
	regexp.MustCompile(`casas?`),
	regexp.MustCompile(`\bnueva\b`),
	regexp.MustCompile(`\bnuevo\b`),
	regexp.MustCompile(`fraccionamient[o0]`), // common portal typo
}

var (
	// macroLocations prunes city/state names so geocoding queries do not
	// recurse into "Juriquilla Queretaro Queretaro".
	macroLocations = regexp.MustCompile(`\b(quer[ée]taro|m[ée]xico|qro)\b`)

	// orphanPreposition removes only leading "en"/"de" left behind by noise
	// stripping. Articles (el, la, los, las) stay: they open proper names
	// like "El Refugio" and "La Vista".
	orphanPreposition = regexp.MustCompile(`^\s*(?:en|de)\b\s*`)

	// addressCruft drops everything except lowercase alphanumerics, commas,
	// whitespace, and Spanish accented letters.
	addressCruft = regexp.MustCompile(`[^a-z0-9\s,áéíóúñ]`)
)

// CleanAddress reduces a scraped location string to the bare neighborhood or
// locality phrase, lowercased. Inputs shorter than three runes yield "".
func CleanAddress(raw string) string {
	if utf8.RuneCountInString(raw) < 3 {
		return ""
	}

	s := strings.ToLower(raw)

	for _, p := range noisePatterns {
		s = p.ReplaceAllString(s, "")
	}
	s = macroLocations.ReplaceAllString(s, "")
	s = dedupeSegments(s)
	s = orphanPreposition.ReplaceAllString(s, "")
	s = addressCruft.ReplaceAllString(s, "")
	s = collapseSpaces(s)
	s = strings.TrimSpace(strings.Trim(s, ","))

	return s
}

// dedupeSegments collapses immediate repetitions of the same phrase, either
// comma-separated ("loma dorada, loma dorada") or doubled inline
// ("loma dorada loma dorada"). Go regexp has no backreferences, so repeats
// are detected structurally instead of by pattern.
func dedupeSegments(s string) string {
	var kept []string
	for _, part := range strings.Split(s, ",") {
		t := strings.TrimSpace(part)
		if t == "" {
			continue
		}
		t = halveDoubled(t)
		if len(kept) > 0 && kept[len(kept)-1] == t {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, ", ")
}

// halveDoubled returns the first half of a phrase whose token sequence is
// repeated verbatim, and the phrase unchanged otherwise.
func halveDoubled(s string) string {
	words := strings.Fields(s)
	n := len(words)
	if n < 2 || n%2 != 0 {
		return s
	}
	for i := 0; i < n/2; i++ {
		if words[i] != words[n/2+i] {
			return s
		}
	}
	return strings.Join(words[:n/2], " ")
}
