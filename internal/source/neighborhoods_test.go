package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const neighborhoodsCSV = `location_name,latitude,longitude
Juriquilla,20.70,-100.45
El Refugio,,
Juriquilla,20.70,-100.45
Milenio III,20.61,-100.36
`

func TestNeighborhoods_Ingest(t *testing.T) {
	st := &fakeStore{}
	path := writeTempFile(t, "hoods.csv", neighborhoodsCSV)

	res, err := (&Neighborhoods{}).Ingest(context.Background(), st, nil, path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 4, res.RowsIn)
	assert.Equal(t, 3, res.RowsOut)
	assert.Equal(t, 1, res.Skipped) // duplicate name
	assert.Equal(t, 1, res.Metadata["pending_geocode"])

	require.Len(t, st.neighborhoods, 3)
	assert.Equal(t, "Juriquilla", st.neighborhoods[0].Name)
	require.NotNil(t, st.neighborhoods[0].Latitude)
	assert.Nil(t, st.neighborhoods[1].Latitude)
}

func TestNeighborhoods_MissingNameColumnIsHardError(t *testing.T) {
	st := &fakeStore{}
	path := writeTempFile(t, "hoods.csv", "lat,lon\n20.7,-100.4\n")

	_, err := (&Neighborhoods{}).Ingest(context.Background(), st, nil, path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no location name column")
}
