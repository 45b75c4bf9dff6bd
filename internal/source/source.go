// Package source ingests the raw input files into the warehouse: scraped
// listings, OSM amenities, SESNSP crime tables, INEGI polygons, and geocoded
// neighborhood centroids. Each source sits behind the same interface so the
// ingest command can run one or all of them by name.
package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/inmetrica/valuation-cli/internal/fetcher"
	"github.com/inmetrica/valuation-cli/internal/warehouse"
)

// Result holds the outcome of one source ingest.
type Result struct {
	RowsIn   int            `json:"rows_in"`
	RowsOut  int            `json:"rows_out"`
	Skipped  int            `json:"skipped"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Source defines the interface each input source implements.
type Source interface {
	// Name returns the unique identifier for this source (e.g. "listings").
	Name() string

	// Table returns the warehouse relation this source fills.
	Table() string

	// Ingest parses the input at path (a local file or an http(s) URL) and
	// overwrites the target relation. tempDir is a working directory for
	// downloads and archive extraction.
	Ingest(ctx context.Context, store warehouse.Store, f fetcher.Fetcher, path, tempDir string) (*Result, error)
}

// Registry maps source names to their implementations.
type Registry struct {
	sources map[string]Source
	order   []string
}

// NewRegistry creates a registry populated with all five sources.
func NewRegistry() *Registry {
	r := &Registry{sources: make(map[string]Source)}
	r.Register(&Listings{})
	r.Register(&Amenities{})
	r.Register(&Crime{})
	r.Register(&Polygons{})
	r.Register(&Neighborhoods{})
	return r
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	name := s.Name()
	r.sources[name] = s
	r.order = append(r.order, name)
}

// Get returns a source by name.
func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, eris.Errorf("source: unknown source %q (valid: %s)", name, strings.Join(r.order, ", "))
	}
	return s, nil
}

// All returns every source in registration order.
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sources[name])
	}
	return out
}

// Names returns the registered source names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// resolveInput makes path available as a local file. Remote URLs are
// downloaded into tempDir; local paths must exist. A missing input file is a
// hard error, per-row problems are not.
//
// Downloads are conditional: the entity tag of the last download sits in a
// sidecar next to the file, and when the server reports the entity unchanged
// the cached copy from a previous run of the same tempDir is reused.
func resolveInput(ctx context.Context, f fetcher.Fetcher, path, tempDir string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		if f == nil {
			return "", eris.Errorf("source: remote input %s requires a fetcher", path)
		}
		local := filepath.Join(tempDir, filepath.Base(path))
		sidecar := local + ".etag"

		var etag string
		if _, err := os.Stat(local); err == nil {
			if b, err := os.ReadFile(sidecar); err == nil {
				etag = strings.TrimSpace(string(b))
			}
		}

		newTag, fetched, err := f.Fetch(ctx, path, local, etag)
		if err != nil {
			return "", eris.Wrapf(err, "source: download %s", path)
		}
		if !fetched {
			zap.L().Info("input unchanged upstream, using cached copy",
				zap.String("url", path),
				zap.String("path", local),
			)
			return local, nil
		}

		if newTag == "" {
			os.Remove(sidecar) //nolint:errcheck
		} else if err := os.WriteFile(sidecar, []byte(newTag), 0o644); err != nil {
			zap.L().Warn("could not record entity tag", zap.String("path", sidecar), zap.Error(err))
		}
		return local, nil
	}

	if _, err := os.Stat(path); err != nil {
		return "", eris.Wrapf(err, "source: input file %s", path)
	}
	return path, nil
}
