package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inmetrica/valuation-cli/internal/model"
)

const listingsCSV = `url,title,price_numeric,bedrooms,bathrooms,parking_spots,m2_constructed,m2_terrain,latitude,longitude,location_text,description,extraction_date
https://portal.mx/casa-1,Casa en Juriquilla,2500000,3,2.5,2,180,200,20.65,-100.45,"Juriquilla, Querétaro","Hermosa casa con alberca y jardín en privada con vigilancia",2026-08-01
https://portal.mx/casa-2,Departamento Centro,,2,,,80,,,,Centro,"Departamento a estrenar",2026-08-01
https://portal.mx/casa-1,Duplicada,9999999,,,,,,,,"Juriquilla","",2026-08-01
https://portal.mx/casa-3,Casa lejos,1000000,,,,,,40.0,-3.7,"Madrid","",2026-08-01
,Sin URL,1,,,,,,,,x,"",2026-08-01
`

func TestListings_Ingest(t *testing.T) {
	st := &fakeStore{}
	path := writeTempFile(t, "listings.csv", listingsCSV)

	res, err := (&Listings{}).Ingest(context.Background(), st, nil, path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 5, res.RowsIn)
	assert.Equal(t, 3, res.RowsOut)
	assert.Equal(t, 2, res.Skipped) // duplicate URL + missing URL
	require.Len(t, st.listings, 3)

	byURL := map[string]model.Listing{}
	for _, l := range st.listings {
		byURL[l.URL] = l
	}

	casa1 := byURL["https://portal.mx/casa-1"]
	assert.Equal(t, model.ListingID("https://portal.mx/casa-1"), casa1.ID)
	assert.Equal(t, 2500000.0, *casa1.Price) // first occurrence wins over the duplicate
	assert.Equal(t, 3, *casa1.Bedrooms)
	assert.InDelta(t, 20.65, *casa1.Latitude, 1e-9)
	assert.True(t, casa1.HasPool)
	assert.True(t, casa1.HasGarden)
	assert.True(t, casa1.HasSecurity)
	assert.Equal(t, "juriquilla", casa1.CleanAddress)

	casa2 := byURL["https://portal.mx/casa-2"]
	assert.Nil(t, casa2.Price)
	assert.Nil(t, casa2.Latitude)
	assert.True(t, casa2.IsNew)

	// Coordinates outside the metro bbox are cleared, not dropped.
	casa3 := byURL["https://portal.mx/casa-3"]
	assert.Nil(t, casa3.Latitude)
	assert.Nil(t, casa3.Longitude)
	assert.Equal(t, 1, res.Metadata["coords_out_of_bbox"])
}

func TestListings_LocationFallsBackToTitle(t *testing.T) {
	st := &fakeStore{}
	path := writeTempFile(t, "listings.csv",
		"url,title\nhttps://portal.mx/x,Casa en venta en El Refugio\n")

	_, err := (&Listings{}).Ingest(context.Background(), st, nil, path, t.TempDir())
	require.NoError(t, err)
	require.Len(t, st.listings, 1)
	assert.Equal(t, "Casa en venta en El Refugio", st.listings[0].LocationText)
	assert.Equal(t, "el refugio", st.listings[0].CleanAddress)
}
