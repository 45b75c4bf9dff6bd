// Package enrich derives amenity flags and the clean-address join key from a
// listing's free-text fields. The patterns target Spanish portal copy as
// scraped from Querétaro listings.
package enrich

import (
	"regexp"
	"strings"

	"github.com/inmetrica/valuation-cli/internal/model"
	"github.com/inmetrica/valuation-cli/internal/normalize"
)

// Amenity pattern groups, compiled once. Matching is against the lowercased
// description.
var (
	securityRe = regexp.MustCompile(`vigilancia|seguridad|cctv|control de acceso|port[oó]n el[eé]ctrico|caseta|guardia|circuito cerrado|privada`)
	gardenRe   = regexp.MustCompile(`jard[ií]n|patio trasero|amplio patio|[aá]reas? verdes?|huerto|paisajismo`)
	poolRe     = regexp.MustCompile(`alberca|piscina|carril de nado|jacuzzi|chapoteadero`)
	terraceRe  = regexp.MustCompile(`terraza|roof garden|balc[oó]n|asador|palapa|solarium`)
	gymRe      = regexp.MustCompile(`gimnasio|gym|ejercitadores`)
	newRe      = regexp.MustCompile(`preventa|entrega inmediata|estrenar|acabados de lujo`)
	kitchenRe  = regexp.MustCompile(`cocina integral|cocina equipada|granito`)

	// servicePatioRe catches laundry/service patios that trip the garden
	// patterns; strongGardenRe is the cue that a real garden is also present.
	servicePatioRe = regexp.MustCompile(`patio de (servicio|lavado|tendido)`)
	strongGardenRe = regexp.MustCompile(`jard[ií]n|[aá]reas? verdes?`)
)

// Flags holds the boolean amenity features extracted from one description.
type Flags struct {
	HasSecurity bool
	HasGarden   bool
	HasPool     bool
	HasTerrace  bool
	HasGym      bool
	HasKitchen  bool
	IsNew       bool
}

// ExtractFlags runs the amenity patterns over a description. A mention of a
// service patio without a real garden cue clears the garden flag; "patio" on
// its own is too weak a signal.
func ExtractFlags(description string) Flags {
	s := strings.ToLower(description)

	f := Flags{
		HasSecurity: securityRe.MatchString(s),
		HasGarden:   gardenRe.MatchString(s),
		HasPool:     poolRe.MatchString(s),
		HasTerrace:  terraceRe.MatchString(s),
		HasGym:      gymRe.MatchString(s),
		HasKitchen:  kitchenRe.MatchString(s),
		IsNew:       newRe.MatchString(s),
	}

	if f.HasGarden && servicePatioRe.MatchString(s) && !strongGardenRe.MatchString(s) {
		f.HasGarden = false
	}

	return f
}

// Apply writes the extracted flags and the clean-address join key onto a
// listing. The clean address derives from the location text, not the
// description.
func Apply(l *model.Listing, description string) {
	f := ExtractFlags(description)
	l.HasSecurity = f.HasSecurity
	l.HasGarden = f.HasGarden
	l.HasPool = f.HasPool
	l.HasTerrace = f.HasTerrace
	l.HasGym = f.HasGym
	l.HasKitchen = f.HasKitchen
	l.IsNew = f.IsNew
	l.CleanAddress = normalize.CleanAddress(l.LocationText)
}
