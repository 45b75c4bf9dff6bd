package source

import (
	"os"

	"github.com/rotisserie/eris"

	"github.com/inmetrica/valuation-cli/internal/fetcher"
)

// readCSV loads a headered CSV file into memory. The inputs here are small
// (tens of thousands of rows at most) so buffering is fine.
func readCSV(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "source: open %s", path)
	}
	defer file.Close() //nolint:errcheck

	header, rows, err := fetcher.ReadCSV(file, fetcher.CSVOptions{LazyQuotes: true})
	if err != nil {
		return nil, nil, eris.Wrapf(err, "source: read %s", path)
	}
	return header, rows, nil
}
