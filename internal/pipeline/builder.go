package pipeline

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inmetrica/valuation-cli/internal/crime"
	"github.com/inmetrica/valuation-cli/internal/dedupe"
	"github.com/inmetrica/valuation-cli/internal/geometry"
	"github.com/inmetrica/valuation-cli/internal/model"
	"github.com/inmetrica/valuation-cli/internal/spatial"
	"github.com/inmetrica/valuation-cli/internal/warehouse"
)

// overlapWarnRate is the boundary-overlap share above which the run logs a
// data-quality warning: more than 1% of resolved points landing in multiple
// polygons means the input geometries are suspect.
const overlapWarnRate = 0.01

// Builder runs the full feature build: load relations, prepare lookup
// structures, assemble one row per listing, persist the table.
type Builder struct {
	store   warehouse.Store
	radiusM float64
	workers int
}

// NewBuilder creates a Builder. radiusM is the amenity search radius in
// meters; workers caps assembly concurrency (0 = NumCPU).
func NewBuilder(store warehouse.Store, radiusM float64, workers int) *Builder {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Builder{store: store, radiusM: radiusM, workers: workers}
}

// relations holds everything loaded from the warehouse for one run.
type relations struct {
	listings      []model.Listing
	boundaries    []geometry.Boundary
	amenities     []model.Amenity
	crimeRecords  []model.CrimeRecord
	neighborhoods []model.Neighborhood
}

// Run executes the build and records it. The returned run carries per-stage
// metrics whether it completed or failed.
func (b *Builder) Run(ctx context.Context) (*model.Run, error) {
	log := zap.L().With(zap.String("component", "builder"))

	run := &model.Run{
		ID:        uuid.NewString(),
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := b.store.RecordRun(ctx, *run); err != nil {
		return nil, eris.Wrap(err, "pipeline: record run start")
	}

	trackStage := func(name string, fn func() (*model.StageResult, error)) error {
		start := time.Now()
		sr, err := fn()
		if sr == nil {
			sr = &model.StageResult{}
		}
		sr.Name = name
		sr.Duration = time.Since(start).Milliseconds()
		sr.Status = model.StageStatusComplete
		if err != nil {
			sr.Status = model.StageStatusFailed
			sr.Error = err.Error()
			log.Error("stage failed", zap.String("stage", name), zap.Error(err))
		} else {
			log.Info("stage complete",
				zap.String("stage", name),
				zap.Int("rows_in", sr.RowsIn),
				zap.Int("rows_out", sr.RowsOut),
				zap.Int64("duration_ms", sr.Duration),
			)
		}
		run.Stages = append(run.Stages, *sr)
		return err
	}

	finish := func(buildErr error) (*model.Run, error) {
		run.FinishedAt = time.Now().UTC()
		if buildErr != nil {
			run.Status = model.RunStatusFailed
			run.Error = buildErr.Error()
		} else {
			run.Status = model.RunStatusComplete
		}
		if err := b.store.RecordRun(ctx, *run); err != nil {
			log.Warn("failed to record run result", zap.Error(err))
		}
		return run, buildErr
	}

	var rel relations
	if err := trackStage("load", func() (*model.StageResult, error) {
		return b.load(ctx, &rel)
	}); err != nil {
		return finish(err)
	}

	var env *Env
	if err := trackStage("prepare", func() (*model.StageResult, error) {
		var err error
		env, err = b.prepare(&rel)
		return &model.StageResult{
			RowsIn:  len(rel.boundaries) + len(rel.amenities) + len(rel.crimeRecords) + len(rel.neighborhoods),
			RowsOut: env.Index.Boundaries(),
		}, err
	}); err != nil {
		return finish(err)
	}

	var rows []model.FeatureRow
	if err := trackStage("assemble", func() (*model.StageResult, error) {
		var err error
		rows, err = b.assemble(ctx, env, rel.listings)
		sr := &model.StageResult{RowsIn: len(rel.listings), RowsOut: len(rows)}
		if rate := env.Index.OverlapRate(); rate > overlapWarnRate {
			sr.Metadata = map[string]any{"boundary_overlap_rate": rate}
			log.Warn("boundary overlap rate above threshold", zap.Float64("rate", rate))
		}
		if hits := env.Index.GeneratedIDHits(); hits > 0 {
			log.Warn("listings resolved to boundaries with generated ids; municipality assignment is not stable across runs",
				zap.Int64("hits", hits))
		}
		return sr, err
	}); err != nil {
		return finish(err)
	}

	if err := trackStage("persist", func() (*model.StageResult, error) {
		if err := b.store.SaveFeatures(ctx, rows); err != nil {
			return nil, err
		}
		return &model.StageResult{RowsIn: len(rows), RowsOut: len(rows)}, nil
	}); err != nil {
		return finish(err)
	}

	return finish(nil)
}

// load reads every relation in parallel and hard-fails when a required one
// is empty. A pipeline fed nothing must say so, not emit an empty table.
func (b *Builder) load(ctx context.Context, rel *relations) (*model.StageResult, error) {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		rel.listings, err = b.store.Listings(gCtx)
		return err
	})
	g.Go(func() (err error) {
		rel.boundaries, err = b.store.Boundaries(gCtx)
		return err
	})
	g.Go(func() (err error) {
		rel.amenities, err = b.store.Amenities(gCtx)
		return err
	})
	g.Go(func() (err error) {
		rel.crimeRecords, err = b.store.CrimeRecords(gCtx)
		return err
	})
	g.Go(func() (err error) {
		rel.neighborhoods, err = b.store.Neighborhoods(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	required := []struct {
		name  string
		count int
	}{
		{"listings", len(rel.listings)},
		{"boundaries", len(rel.boundaries)},
		{"amenities", len(rel.amenities)},
		{"crime_records", len(rel.crimeRecords)},
	}
	for _, r := range required {
		if r.count == 0 {
			return nil, eris.Errorf("pipeline: required relation %s is empty; run ingest first", r.name)
		}
	}
	if len(rel.neighborhoods) == 0 {
		zap.L().Warn("neighborhoods relation is empty; listings without coordinates will carry imputed distances only")
	}

	total := len(rel.listings) + len(rel.boundaries) + len(rel.amenities) +
		len(rel.crimeRecords) + len(rel.neighborhoods)
	return &model.StageResult{RowsIn: total, RowsOut: total}, nil
}

// prepare builds the read-only assembly environment: spatial index over
// boundaries and amenities, deduplicated neighborhood centroids, and crime
// aggregates keyed by normalized municipality.
func (b *Builder) prepare(rel *relations) (*Env, error) {
	idx := spatial.NewIndex(b.radiusM)
	for i := range rel.boundaries {
		idx.AddBoundary(&rel.boundaries[i])
	}
	for _, a := range rel.amenities {
		idx.AddAmenity(a)
	}

	var obs []dedupe.Observation
	for _, n := range rel.neighborhoods {
		if !n.HasPoint() {
			continue
		}
		obs = append(obs, dedupe.Observation{
			RawText:   n.Name,
			Latitude:  *n.Latitude,
			Longitude: *n.Longitude,
		})
	}

	return &Env{
		Index: idx,
		Hoods: dedupe.ByKey(dedupe.Collapse(obs)),
		Crime: crime.Aggregate(rel.crimeRecords),
	}, nil
}

// assemble fans the listings out over a bounded worker group. Each worker
// writes to its own slot, then the result is ordered by listing ID so the
// persisted table is identical run to run.
func (b *Builder) assemble(ctx context.Context, env *Env, listings []model.Listing) ([]model.FeatureRow, error) {
	rows := make([]model.FeatureRow, len(listings))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range listings {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			rows[i] = AssembleRow(env, listings[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Order by listing ID; among duplicate IDs the row with the lowest
	// municipality key (then neighborhood key) sorts first and survives the
	// collapse below, so which duplicate wins is a fixed policy rather than
	// sort luck.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ListingID != rows[j].ListingID {
			return rows[i].ListingID < rows[j].ListingID
		}
		if rows[i].MunicipalityKey != rows[j].MunicipalityKey {
			return rows[i].MunicipalityKey < rows[j].MunicipalityKey
		}
		return rows[i].NeighborhoodKey < rows[j].NeighborhoodKey
	})

	// Ingestion already dedupes by URL hash, but one row per listing ID is a
	// hard guarantee of the output table, so enforce it here too.
	out := rows[:0]
	for i, r := range rows {
		if i > 0 && r.ListingID == rows[i-1].ListingID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
