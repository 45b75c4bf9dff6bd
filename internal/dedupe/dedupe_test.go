package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollapseMergesWhitespaceVariants(t *testing.T) {
	obs := []Observation{
		{RawText: " Jurica", Latitude: 20.70, Longitude: -100.45},
		{RawText: "Jurica", Latitude: 20.71, Longitude: -100.46},
	}

	out := Collapse(obs)
	require.Len(t, out, 1)
	assert.Equal(t, "JURICA", out[0].Key)
	assert.Equal(t, "Jurica", out[0].DisplayName)
	// First observation wins, including its centroid.
	assert.Equal(t, 20.70, out[0].Latitude)
	assert.Equal(t, -100.45, out[0].Longitude)
}

func TestCollapseMergesAccentVariants(t *testing.T) {
	obs := []Observation{
		{RawText: "Querétaro"},
		{RawText: "QUERETARO "},
		{RawText: " queretaro"},
	}

	out := Collapse(obs)
	require.Len(t, out, 1)
	assert.Equal(t, "QUERETARO", out[0].Key)
	assert.Equal(t, "Querétaro", out[0].DisplayName)
}

func TestCollapseExcludesEmptyText(t *testing.T) {
	obs := []Observation{
		{RawText: ""},
		{RawText: "   "},
		{RawText: "El Refugio", Latitude: 20.66, Longitude: -100.40},
	}

	out := Collapse(obs)
	require.Len(t, out, 1)
	assert.Equal(t, "EL REFUGIO", out[0].Key)
}

func TestCollapseNeverIncreasesCount(t *testing.T) {
	obs := []Observation{
		{RawText: "Milenio III"},
		{RawText: "Juriquilla"},
		{RawText: "milenio iii"},
		{RawText: "Zibatá"},
	}

	out := Collapse(obs)
	assert.LessOrEqual(t, len(out), len(obs))
	assert.Len(t, out, 3)
}

func TestCollapseDeterministicOrder(t *testing.T) {
	obs := []Observation{
		{RawText: "B"},
		{RawText: "A"},
		{RawText: "C"},
		{RawText: "a"},
	}

	first := Collapse(obs)
	second := Collapse(obs)
	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, "B", first[0].Key)
}

func TestByKey(t *testing.T) {
	canon := Collapse([]Observation{{RawText: "Jurica", Latitude: 20.7, Longitude: -100.45}})
	m := ByKey(canon)
	require.Contains(t, m, "JURICA")
	assert.Equal(t, "Jurica", m["JURICA"].DisplayName)
}
