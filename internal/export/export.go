// Package export writes the assembled feature table for model training.
// Both formats emit rows in the order given (the builder persists by listing
// ID) with a fixed column set, so exports of the same table are
// byte-identical.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/inmetrica/valuation-cli/internal/model"
)

// Format identifies an export encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSONL:
		return FormatJSONL, nil
	default:
		return "", eris.Errorf("export: unknown format %q (valid: csv, jsonl)", s)
	}
}

// WriteFile exports rows to path in the given format.
func WriteFile(path string, format Format, rows []model.FeatureRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}

	switch format {
	case FormatJSONL:
		err = WriteJSONL(f, rows)
	default:
		err = WriteCSV(f, rows)
	}
	if err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// WriteCSV writes the feature table as headered CSV.
func WriteCSV(w io.Writer, rows []model.FeatureRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(model.FeatureColumns()); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for i := range rows {
		record := make([]string, 0, len(model.FeatureColumns()))
		for _, v := range rows[i].Values() {
			record = append(record, formatValue(v))
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", rows[i].ListingID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteJSONL writes one JSON object per line. encoding/json sorts map keys,
// so the distance object is stable too.
func WriteJSONL(w io.Writer, rows []model.FeatureRow) error {
	enc := json.NewEncoder(w)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			return eris.Wrapf(err, "export: write jsonl row %s", rows[i].ListingID)
		}
	}
	return nil
}

// formatValue renders one OBT cell. SQL NULL becomes the empty string;
// floats keep the shortest round-trip representation.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
