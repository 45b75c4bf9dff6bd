package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/inmetrica/valuation-cli/internal/fetcher"
	"github.com/inmetrica/valuation-cli/internal/geometry"
	"github.com/inmetrica/valuation-cli/internal/warehouse"
)

// Polygons ingests municipal boundary geometries. Accepted formats:
// GeoJSON FeatureCollection (.geojson/.json), INEGI shapefile (.shp), or a
// zip archive containing a shapefile (the Marco Geoestadístico download
// layout).
type Polygons struct{}

func (s *Polygons) Name() string  { return "polygons" }
func (s *Polygons) Table() string { return "boundaries" }

func (s *Polygons) Ingest(ctx context.Context, store warehouse.Store, f fetcher.Fetcher, path, tempDir string) (*Result, error) {
	log := zap.L().With(zap.String("source", s.Name()))

	local, err := resolveInput(ctx, f, path, tempDir)
	if err != nil {
		return nil, err
	}

	var boundaries []geometry.Boundary
	switch strings.ToLower(filepath.Ext(local)) {
	case ".geojson", ".json":
		data, err := os.ReadFile(local)
		if err != nil {
			return nil, eris.Wrapf(err, "source: read %s", local)
		}
		boundaries, err = geometry.ParseFeatureCollection(data)
		if err != nil {
			return nil, err
		}
	case ".shp":
		boundaries, err = geometry.ParseShapefile(local)
		if err != nil {
			return nil, err
		}
	case ".zip":
		shpPath, err := extractShapefile(local, tempDir)
		if err != nil {
			return nil, err
		}
		boundaries, err = geometry.ParseShapefile(shpPath)
		if err != nil {
			return nil, err
		}
	default:
		return nil, eris.Errorf("source: unsupported polygon format %q (want .geojson, .json, .shp, or .zip)", filepath.Ext(local))
	}

	if err := store.SaveBoundaries(ctx, boundaries); err != nil {
		return nil, err
	}

	generated := 0
	for _, b := range boundaries {
		if b.Generated {
			generated++
		}
	}

	log.Info("boundaries ingested",
		zap.Int("count", len(boundaries)),
		zap.Int("generated_ids", generated),
	)
	return &Result{
		RowsIn:  len(boundaries),
		RowsOut: len(boundaries),
		Metadata: map[string]any{
			"generated_ids": generated,
		},
	}, nil
}

// extractShapefile unpacks a zip archive and returns the path of the first
// .shp member.
func extractShapefile(zipPath, tempDir string) (string, error) {
	files, err := fetcher.ExtractZIP(zipPath, tempDir)
	if err != nil {
		return "", err
	}
	for _, file := range files {
		if strings.EqualFold(filepath.Ext(file), ".shp") {
			return file, nil
		}
	}
	return "", eris.Errorf("source: no .shp member in %s", zipPath)
}
