// Package normalize turns free-text place names into the canonical join keys
// shared by every data source, and cleans scraped Mexican address strings.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// vowelFold strips the acute accents found in Mexican place names. Ñ is kept
// as-is: it marks a distinct letter, not an accent variant.
var vowelFold = strings.NewReplacer(
	"Á", "A",
	"É", "E",
	"Í", "I",
	"Ó", "O",
	"Ú", "U",
)

// Key converts free text into the canonical join key: NFC precompose, trim,
// uppercase, fold accented vowels to plain ones, collapse whitespace runs.
// Idempotent: Key(Key(s)) == Key(s) for any input.
func Key(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToUpper(strings.TrimSpace(s))
	s = vowelFold.Replace(s)
	return collapseSpaces(s)
}

// collapseSpaces reduces every run of whitespace to a single space.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}

	return strings.TrimSpace(b.String())
}
