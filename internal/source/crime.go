package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/inmetrica/valuation-cli/internal/crime"
	"github.com/inmetrica/valuation-cli/internal/fetcher"
	"github.com/inmetrica/valuation-cli/internal/model"
	"github.com/inmetrica/valuation-cli/internal/warehouse"
)

// Crime ingests the SESNSP municipal incidence table. The official
// distribution is an XLSX workbook; a CSV with the same columns is accepted
// as well. Category labels are reconciled against the embedded catalog, so
// both numeric codes and Spanish labels work.
type Crime struct{}

func (s *Crime) Name() string  { return "crime" }
func (s *Crime) Table() string { return "crime_records" }

func (s *Crime) Ingest(ctx context.Context, store warehouse.Store, f fetcher.Fetcher, path, tempDir string) (*Result, error) {
	log := zap.L().With(zap.String("source", s.Name()))

	local, err := resolveInput(ctx, f, path, tempDir)
	if err != nil {
		return nil, err
	}

	var header []string
	var rows [][]string
	if strings.EqualFold(filepath.Ext(local), ".xlsx") {
		all, err := fetcher.ReadXLSX(local, fetcher.XLSXOptions{})
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, eris.Errorf("source: workbook %s has no rows", local)
		}
		header, rows = all[0], all[1:]
	} else {
		header, rows, err = readCSV(local)
		if err != nil {
			return nil, err
		}
	}

	cols := mapColumns(header)
	muniCol := cols.col("municipality", "municipio")
	typeCol := cols.col("type", "tipo", "delito", "tipo_de_delito")
	rateCol := cols.col("rate", "tasa", "valor")
	periodCol := cols.col("period", "periodo", "anio", "año")

	var (
		out        []model.CrimeRecord
		unresolved int
		skipped    int
	)
	for _, row := range rows {
		muni := field(row, muniCol)
		rawType := field(row, typeCol)
		if muni == "" || rawType == "" {
			skipped++
			continue
		}

		code, err := crime.Reconcile(rawType)
		if err != nil {
			unresolved++
			log.Warn("skipping crime row with unknown category",
				zap.String("municipality", muni),
				zap.String("type", rawType),
			)
			continue
		}

		out = append(out, model.CrimeRecord{
			Municipality: muni,
			Type:         code,
			RawType:      rawType,
			Rate:         parseFloatOr(field(row, rateCol), 0),
			Period:       field(row, periodCol),
		})
	}

	if err := store.SaveCrimeRecords(ctx, out); err != nil {
		return nil, err
	}

	log.Info("crime records ingested",
		zap.Int("rows_in", len(rows)),
		zap.Int("rows_out", len(out)),
		zap.Int("unresolved_category", unresolved),
	)
	return &Result{
		RowsIn:  len(rows),
		RowsOut: len(out),
		Skipped: unresolved + skipped,
		Metadata: map[string]any{
			"unresolved_category": unresolved,
		},
	}, nil
}
