package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const municipioFC = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"properties": {"CVEGEO": "22014", "NOMGEO": "Querétaro"},
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[-100.5,20.5],[-100.3,20.5],[-100.3,20.7],[-100.5,20.7],[-100.5,20.5]]]
			}
		},
		{
			"type": "Feature",
			"properties": {"NOMGEO": "Sin Clave"},
			"geometry": {
				"type": "MultiPolygon",
				"coordinates": [[[[-100.2,20.5],[-100.0,20.5],[-100.0,20.7],[-100.2,20.7],[-100.2,20.5]]]]
			}
		},
		{
			"type": "Feature",
			"properties": {"CVEGEO": "22099"},
			"geometry": {"type": "Point", "coordinates": [-100.1, 20.6]}
		}
	]
}`

func TestParseFeatureCollection(t *testing.T) {
	boundaries, err := ParseFeatureCollection([]byte(municipioFC))
	require.NoError(t, err)
	require.Len(t, boundaries, 2, "point feature must be skipped")

	assert.Equal(t, "22014", boundaries[0].ID)
	assert.Equal(t, "Querétaro", boundaries[0].Name)
	assert.False(t, boundaries[0].Generated)
	assert.Len(t, boundaries[0].Geom, 1)
	assert.False(t, boundaries[0].Bound.IsEmpty())

	// No identifier property: a uuid is generated for this run.
	assert.NotEmpty(t, boundaries[1].ID)
	assert.True(t, boundaries[1].Generated)
	assert.Equal(t, "Sin Clave", boundaries[1].Name)
}

func TestParseFeatureCollectionNumericID(t *testing.T) {
	fc := `{"type":"FeatureCollection","features":[{"type":"Feature",
		"properties":{"id": 17, "name": "Celda 17"},
		"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]}`

	boundaries, err := ParseFeatureCollection([]byte(fc))
	require.NoError(t, err)
	require.Len(t, boundaries, 1)
	assert.Equal(t, "17", boundaries[0].ID)
	assert.Equal(t, "Celda 17", boundaries[0].Name)
}

func TestParseFeatureCollectionInvalidPayload(t *testing.T) {
	_, err := ParseFeatureCollection([]byte(`{"type": "not geojson`))
	assert.Error(t, err)
}

func TestParseFeatureCollectionRepairsBeforeReturning(t *testing.T) {
	// Unclosed exterior ring with a duplicate vertex: parse must return it
	// repaired, not raw.
	fc := `{"type":"FeatureCollection","features":[{"type":"Feature",
		"properties":{"CVEGEO":"22004"},
		"geometry":{"type":"Polygon","coordinates":[[[0,0],[0,0],[2,0],[2,2],[0,2]]]}}]}`

	boundaries, err := ParseFeatureCollection([]byte(fc))
	require.NoError(t, err)
	require.Len(t, boundaries, 1)

	ring := boundaries[0].Geom[0][0]
	assert.Equal(t, ring[0], ring[len(ring)-1])
	assert.Len(t, ring, 5)
}
