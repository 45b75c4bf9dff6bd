package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	Delimiter  rune // default ','
	LazyQuotes bool // tolerate stray quotes, as the scraper export contains
}

// ReadCSV decodes a headered CSV stream into the header and its data rows.
// Rows may be ragged (the sources tolerate short rows) and a UTF-8 BOM on
// the first header cell is stripped. An input with no header row is an
// error; a header with no data rows is not.
func ReadCSV(r io.Reader, opts CSVOptions) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, eris.New("csv: empty input")
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "csv: read header")
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, record)
	}
	return header, rows, nil
}
