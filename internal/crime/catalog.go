// Package crime reconciles heterogeneous crime-type representations to one
// numeric code catalog and aggregates incidence records per municipality.
package crime

import (
	_ "embed"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/inmetrica/valuation-cli/internal/normalize"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Category is one crime category in the closed enumeration.
type Category struct {
	Code   int      `yaml:"code"`
	Column string   `yaml:"column"`
	Name   string   `yaml:"name"`
	Labels []string `yaml:"labels"`
}

var (
	categories  []Category
	byCode      map[int]Category
	codeByLabel map[string]int
)

func init() {
	var doc struct {
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(catalogYAML, &doc); err != nil {
		panic(eris.Wrap(err, "crime: parse embedded catalog").Error())
	}

	categories = doc.Categories
	sort.Slice(categories, func(i, j int) bool { return categories[i].Code < categories[j].Code })

	byCode = make(map[int]Category, len(categories))
	codeByLabel = make(map[string]int)
	for _, c := range categories {
		byCode[c.Code] = c
		for _, l := range c.Labels {
			codeByLabel[normalize.Key(l)] = c.Code
		}
	}
}

// Categories returns the closed category set in code order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Reconcile folds either crime-type representation — a numeric category code
// or a Spanish label — to the canonical code. Labels go through join-key
// normalization first, so accent and case variants of the same label match.
func Reconcile(raw string) (int, error) {
	trimmed := normalize.Key(raw)
	if trimmed == "" {
		return 0, eris.New("crime: empty crime type")
	}

	// Numeric codes arrive as "4" or, from spreadsheet exports, "4.0"; both
	// parse the same permissive way the rest of ingestion does.
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		code := int(v)
		if float64(code) != v {
			return 0, eris.Errorf("crime: non-integral category code %q", raw)
		}
		if _, ok := byCode[code]; !ok {
			return 0, eris.Errorf("crime: unknown category code %d", code)
		}
		return code, nil
	}

	if code, ok := codeByLabel[trimmed]; ok {
		return code, nil
	}
	return 0, eris.Errorf("crime: unknown crime type %q", raw)
}
