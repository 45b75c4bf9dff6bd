package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions selects the worksheet to read. The zero value reads the first
// sheet, which is where SESNSP publishes the municipal crime table.
type XLSXOptions struct {
	Sheet string // sheet name; empty = first sheet
}

// ReadXLSX loads one worksheet into string rows, header row included.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}

	var sheet *xlsx.Sheet
	if opts.Sheet != "" {
		var ok bool
		sheet, ok = f.Sheet[opts.Sheet]
		if !ok {
			return nil, eris.Errorf("xlsx: no sheet %q in %s", opts.Sheet, path)
		}
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.Errorf("xlsx: %s has no sheets", path)
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
