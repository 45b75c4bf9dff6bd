package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inmetrica/valuation-cli/internal/model"
)

func TestExtractFlags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Flags
	}{
		{
			name: "security and pool",
			text: "Casa en privada con VIGILANCIA 24h y alberca techada",
			want: Flags{HasSecurity: true, HasPool: true},
		},
		{
			name: "garden with accent",
			text: "Amplio jardín trasero con asador",
			want: Flags{HasGarden: true, HasTerrace: true},
		},
		{
			name: "new property presale",
			text: "PREVENTA exclusiva, cocina integral de granito",
			want: Flags{IsNew: true, HasKitchen: true},
		},
		{
			name: "gym and terrace",
			text: "cuenta con gimnasio equipado y roof garden",
			want: Flags{HasGym: true, HasTerrace: true},
		},
		{
			name: "no amenities",
			text: "casa de dos plantas en esquina",
			want: Flags{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFlags(tt.text))
		})
	}
}

func TestExtractFlagsServicePatioCorrection(t *testing.T) {
	// A laundry patio triggers the garden patterns via "amplio patio" but is
	// not a garden.
	f := ExtractFlags("amplio patio de servicio con lavadero")
	assert.False(t, f.HasGarden)

	// A real garden alongside a service patio keeps the flag.
	f = ExtractFlags("jardín al frente y patio de servicio atrás")
	assert.True(t, f.HasGarden)
}

func TestApply(t *testing.T) {
	l := model.Listing{LocationText: "Casa en venta en Juriquilla, Querétaro"}
	Apply(&l, "preventa con alberca y vigilancia")

	assert.True(t, l.IsNew)
	assert.True(t, l.HasPool)
	assert.True(t, l.HasSecurity)
	assert.False(t, l.HasGym)
	assert.Equal(t, "juriquilla", l.CleanAddress)
}
