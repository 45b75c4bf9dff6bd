package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSVListingExport(t *testing.T) {
	// Shaped like the scraper export: BOM on the header, a quoted address
	// with an embedded comma, and a ragged row missing trailing fields.
	input := "\uFEFFid,price,lat,lon,address\n" +
		"L-1001,2450000,20.5888,-100.3899,\"Av. Constituyentes 12, Centro\"\n" +
		"L-1002,1800000,20.6510\n"

	header, rows, err := ReadCSV(strings.NewReader(input), CSVOptions{LazyQuotes: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "price", "lat", "lon", "address"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, "Av. Constituyentes 12, Centro", rows[0][4])
	assert.Len(t, rows[1], 3)
}

func TestReadCSVSemicolonDelimiter(t *testing.T) {
	input := "colonia;municipio\nJurica;Querétaro\n"

	header, rows, err := ReadCSV(strings.NewReader(input), CSVOptions{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"colonia", "municipio"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, "Querétaro", rows[0][1])
}

func TestReadCSVHeaderOnly(t *testing.T) {
	header, rows, err := ReadCSV(strings.NewReader("id,price\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "price"}, header)
	assert.Empty(t, rows)
}

func TestReadCSVEmptyInput(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: empty input")
}
