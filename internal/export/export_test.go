package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inmetrica/valuation-cli/internal/model"
)

func f64(v float64) *float64 { return &v }

func sampleRows() []model.FeatureRow {
	r1 := model.FeatureRow{
		ListingID:       "aaa",
		Price:           f64(2500000),
		Municipality:    "Querétaro",
		MunicipalityKey: "QUERETARO",
		HasGeometry:     true,
		Distances:       map[model.AmenityCategory]float64{},
	}
	for _, c := range model.Categories() {
		r1.Distances[c] = 5000
	}
	r1.Distances[model.CategoryEducationSchool] = 1208.5
	r1.SetCrime(1, 3.4)

	r2 := model.FeatureRow{ListingID: "bbb", Distances: map[model.AmenityCategory]float64{}}
	for _, c := range model.Categories() {
		r2.Distances[c] = 5000
	}
	return []model.FeatureRow{r1, r2}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 rows

	header := records[0]
	assert.Equal(t, model.FeatureColumns(), header)

	byCol := func(rec []string, col string) string {
		for i, h := range header {
			if h == col {
				return rec[i]
			}
		}
		t.Fatalf("column %s not found", col)
		return ""
	}

	assert.Equal(t, "aaa", byCol(records[1], "listing_id"))
	assert.Equal(t, "2500000", byCol(records[1], "price"))
	assert.Equal(t, "1208.5", byCol(records[1], "dist_education_school"))
	assert.Equal(t, "3.4", byCol(records[1], "crime_burglary"))
	assert.Equal(t, "true", byCol(records[1], "has_geometry"))

	// Nulls export as empty cells, not "0".
	assert.Equal(t, "", byCol(records[2], "price"))
	assert.Equal(t, "false", byCol(records[2], "has_geometry"))
}

func TestWriteCSV_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, WriteCSV(&a, sampleRows()))
	require.NoError(t, WriteCSV(&b, sampleRows()))
	assert.Equal(t, a.String(), b.String())
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sampleRows()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &obj))
	assert.Equal(t, "aaa", obj["listing_id"])
	assert.Equal(t, 2500000.0, obj["price"])

	dists, ok := obj["distances"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1208.5, dists["education_school"])

	// Second row has no price key at all (omitempty).
	obj = map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &obj))
	_, hasPrice := obj["price"]
	assert.False(t, hasPrice)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obt.csv")
	require.NoError(t, WriteFile(path, FormatCSV, sampleRows()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "listing_id,"))
}

func TestWriteFileCreateError(t *testing.T) {
	// Parent directory does not exist; the error must surface, not panic on
	// a second close of a dead handle.
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "obt.csv"), FormatCSV, sampleRows())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: create")
}

func TestParseFormat(t *testing.T) {
	got, err := ParseFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, FormatJSONL, got)

	_, err = ParseFormat("parquet")
	require.Error(t, err)
}
