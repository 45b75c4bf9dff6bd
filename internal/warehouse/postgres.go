package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/inmetrica/valuation-cli/internal/db"
	"github.com/inmetrica/valuation-cli/internal/geometry"
	"github.com/inmetrica/valuation-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. Boundary geometries are
// stored as EWKB (SRID 4326) so a PostGIS-enabled database can query them
// directly.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id              TEXT PRIMARY KEY,
	url             TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	price           DOUBLE PRECISION,
	m2_constructed  DOUBLE PRECISION,
	m2_terrain      DOUBLE PRECISION,
	bedrooms        INTEGER,
	bathrooms       DOUBLE PRECISION,
	parking_spots   INTEGER,
	is_new          BOOLEAN NOT NULL DEFAULT FALSE,
	has_security    BOOLEAN NOT NULL DEFAULT FALSE,
	has_garden      BOOLEAN NOT NULL DEFAULT FALSE,
	has_pool        BOOLEAN NOT NULL DEFAULT FALSE,
	has_terrace     BOOLEAN NOT NULL DEFAULT FALSE,
	has_gym         BOOLEAN NOT NULL DEFAULT FALSE,
	has_kitchen     BOOLEAN NOT NULL DEFAULT FALSE,
	location_text   TEXT NOT NULL DEFAULT '',
	clean_address   TEXT NOT NULL DEFAULT '',
	latitude        DOUBLE PRECISION,
	longitude       DOUBLE PRECISION,
	extraction_date TEXT NOT NULL DEFAULT '',
	source_page     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS amenities (
	name      TEXT NOT NULL,
	category  TEXT NOT NULL,
	latitude  DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS crime_records (
	municipality TEXT NOT NULL,
	type         INTEGER NOT NULL,
	raw_type     TEXT NOT NULL DEFAULT '',
	rate         DOUBLE PRECISION NOT NULL,
	period       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS boundaries (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	generated BOOLEAN NOT NULL DEFAULT FALSE,
	geom      BYTEA NOT NULL
);

CREATE TABLE IF NOT EXISTS neighborhoods (
	name      TEXT PRIMARY KEY,
	latitude  DOUBLE PRECISION,
	longitude DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	stages      JSONB,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_amenities_category ON amenities(category);
CREATE INDEX IF NOT EXISTS idx_crime_municipality ON crime_records(municipality);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// postgresFeaturesDDL mirrors featuresDDL with Postgres types.
func postgresFeaturesDDL() string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS features (
	listing_id       TEXT PRIMARY KEY,
	price            DOUBLE PRECISION,
	m2_constructed   DOUBLE PRECISION,
	m2_terrain       DOUBLE PRECISION,
	bedrooms         INTEGER,
	bathrooms        DOUBLE PRECISION,
	parking_spots    INTEGER,
	is_new           BOOLEAN NOT NULL,
	has_security     BOOLEAN NOT NULL,
	has_garden       BOOLEAN NOT NULL,
	has_pool         BOOLEAN NOT NULL,
	has_terrace      BOOLEAN NOT NULL,
	has_gym          BOOLEAN NOT NULL,
	has_kitchen      BOOLEAN NOT NULL,
	municipality     TEXT NOT NULL,
	municipality_key TEXT NOT NULL,
	neighborhood     TEXT NOT NULL,
	neighborhood_key TEXT NOT NULL,
	has_geometry     BOOLEAN NOT NULL`)
	for _, c := range model.Categories() {
		fmt.Fprintf(&b, ",\n\t%s DOUBLE PRECISION NOT NULL", model.DistanceColumn(c))
	}
	for _, c := range model.CrimeColumns() {
		fmt.Fprintf(&b, ",\n\t%s DOUBLE PRECISION NOT NULL", c)
	}
	b.WriteString("\n)")
	return b.String()
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	if _, err := s.pool.Exec(ctx, postgresFeaturesDDL()); err != nil {
		return eris.Wrap(err, "postgres: migrate features")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

// overwriteCopy clears a table and bulk-loads rows via COPY in one
// transaction.
func (s *PostgresStore) overwriteCopy(ctx context.Context, table string, columns []string, rows [][]any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "postgres: begin overwrite %s", table)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return eris.Wrapf(err, "postgres: clear %s", table)
	}
	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows)); err != nil {
			return eris.Wrapf(err, "postgres: COPY INTO %s", table)
		}
	}
	return eris.Wrapf(tx.Commit(ctx), "postgres: commit overwrite %s", table)
}

var listingColumns = []string{
	"id", "url", "title", "price", "m2_constructed", "m2_terrain", "bedrooms",
	"bathrooms", "parking_spots", "is_new", "has_security", "has_garden",
	"has_pool", "has_terrace", "has_gym", "has_kitchen", "location_text",
	"clean_address", "latitude", "longitude", "extraction_date", "source_page",
}

func (s *PostgresStore) SaveListings(ctx context.Context, listings []model.Listing) error {
	rows := make([][]any, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []any{
			l.ID, l.URL, l.Title, fptr(l.Price), fptr(l.M2Constructed), fptr(l.M2Terrain),
			iptr(l.Bedrooms), fptr(l.Bathrooms), iptr(l.ParkingSpots),
			l.IsNew, l.HasSecurity, l.HasGarden, l.HasPool, l.HasTerrace,
			l.HasGym, l.HasKitchen, l.LocationText, l.CleanAddress,
			fptr(l.Latitude), fptr(l.Longitude), l.ExtractionDate, l.SourcePage,
		})
	}
	return s.overwriteCopy(ctx, "listings", listingColumns, rows)
}

func (s *PostgresStore) Listings(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM listings ORDER BY id", strings.Join(listingColumns, ", ")))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query listings")
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(
			&l.ID, &l.URL, &l.Title, &l.Price, &l.M2Constructed, &l.M2Terrain,
			&l.Bedrooms, &l.Bathrooms, &l.ParkingSpots, &l.IsNew, &l.HasSecurity,
			&l.HasGarden, &l.HasPool, &l.HasTerrace, &l.HasGym, &l.HasKitchen,
			&l.LocationText, &l.CleanAddress, &l.Latitude, &l.Longitude,
			&l.ExtractionDate, &l.SourcePage,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate listings")
}

func (s *PostgresStore) SaveAmenities(ctx context.Context, amenities []model.Amenity) error {
	rows := make([][]any, 0, len(amenities))
	for _, a := range amenities {
		rows = append(rows, []any{a.Name, string(a.Category), a.Latitude, a.Longitude})
	}
	return s.overwriteCopy(ctx, "amenities", []string{"name", "category", "latitude", "longitude"}, rows)
}

func (s *PostgresStore) Amenities(ctx context.Context) ([]model.Amenity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, category, latitude, longitude FROM amenities ORDER BY category, name, latitude`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query amenities")
	}
	defer rows.Close()

	var out []model.Amenity
	for rows.Next() {
		var a model.Amenity
		var cat string
		if err := rows.Scan(&a.Name, &cat, &a.Latitude, &a.Longitude); err != nil {
			return nil, eris.Wrap(err, "postgres: scan amenity")
		}
		a.Category = model.AmenityCategory(cat)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate amenities")
}

func (s *PostgresStore) SaveCrimeRecords(ctx context.Context, records []model.CrimeRecord) error {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{r.Municipality, r.Type, r.RawType, r.Rate, r.Period})
	}
	return s.overwriteCopy(ctx, "crime_records",
		[]string{"municipality", "type", "raw_type", "rate", "period"}, rows)
}

func (s *PostgresStore) CrimeRecords(ctx context.Context) ([]model.CrimeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT municipality, type, raw_type, rate, period FROM crime_records ORDER BY municipality, type, period`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query crime records")
	}
	defer rows.Close()

	var out []model.CrimeRecord
	for rows.Next() {
		var r model.CrimeRecord
		if err := rows.Scan(&r.Municipality, &r.Type, &r.RawType, &r.Rate, &r.Period); err != nil {
			return nil, eris.Wrap(err, "postgres: scan crime record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate crime records")
}

func (s *PostgresStore) SaveBoundaries(ctx context.Context, boundaries []geometry.Boundary) error {
	rows := make([][]any, 0, len(boundaries))
	for _, b := range boundaries {
		ewkb, err := geometry.EncodeEWKB(b.Geom)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode boundary %s", b.ID)
		}
		rows = append(rows, []any{b.ID, b.Name, b.Generated, ewkb})
	}
	return s.overwriteCopy(ctx, "boundaries", []string{"id", "name", "generated", "geom"}, rows)
}

func (s *PostgresStore) Boundaries(ctx context.Context) ([]geometry.Boundary, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, generated, geom FROM boundaries ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query boundaries")
	}
	defer rows.Close()

	var out []geometry.Boundary
	for rows.Next() {
		var b geometry.Boundary
		var ewkb []byte
		if err := rows.Scan(&b.ID, &b.Name, &b.Generated, &ewkb); err != nil {
			return nil, eris.Wrap(err, "postgres: scan boundary")
		}
		mp, err := geometry.DecodeEWKB(ewkb)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: decode boundary %s", b.ID)
		}
		b.Geom = mp
		b.Bound = mp.Bound()
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate boundaries")
}

func (s *PostgresStore) SaveNeighborhoods(ctx context.Context, hoods []model.Neighborhood) error {
	rows := make([][]any, 0, len(hoods))
	for _, n := range hoods {
		rows = append(rows, []any{n.Name, fptr(n.Latitude), fptr(n.Longitude)})
	}
	return s.overwriteCopy(ctx, "neighborhoods", []string{"name", "latitude", "longitude"}, rows)
}

func (s *PostgresStore) Neighborhoods(ctx context.Context) ([]model.Neighborhood, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, latitude, longitude FROM neighborhoods ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query neighborhoods")
	}
	defer rows.Close()

	var out []model.Neighborhood
	for rows.Next() {
		var n model.Neighborhood
		if err := rows.Scan(&n.Name, &n.Latitude, &n.Longitude); err != nil {
			return nil, eris.Wrap(err, "postgres: scan neighborhood")
		}
		out = append(out, n)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate neighborhoods")
}

func (s *PostgresStore) UpdateNeighborhoodCoords(ctx context.Context, name string, lat, lon float64) error {
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "neighborhoods",
		Columns:      []string{"name", "latitude", "longitude"},
		ConflictKeys: []string{"name"},
	}, [][]any{{name, lat, lon}})
	return eris.Wrapf(err, "postgres: update neighborhood %s", name)
}

func (s *PostgresStore) SaveFeatures(ctx context.Context, featureRows []model.FeatureRow) error {
	rows := make([][]any, 0, len(featureRows))
	for _, r := range featureRows {
		rows = append(rows, r.Values())
	}
	return s.overwriteCopy(ctx, "features", model.FeatureColumns(), rows)
}

func (s *PostgresStore) Features(ctx context.Context) ([]model.FeatureRow, error) {
	cols := model.FeatureColumns()
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM features ORDER BY listing_id", strings.Join(cols, ", ")))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query features")
	}
	defer rows.Close()

	cats := model.Categories()
	var out []model.FeatureRow
	for rows.Next() {
		var r model.FeatureRow
		dists := make([]float64, len(cats))
		crimes := make([]float64, len(model.CrimeColumns()))

		dest := []any{
			&r.ListingID, &r.Price, &r.M2Constructed, &r.M2Terrain, &r.Bedrooms,
			&r.Bathrooms, &r.ParkingSpots, &r.IsNew, &r.HasSecurity, &r.HasGarden,
			&r.HasPool, &r.HasTerrace, &r.HasGym, &r.HasKitchen, &r.Municipality,
			&r.MunicipalityKey, &r.Neighborhood, &r.NeighborhoodKey, &r.HasGeometry,
		}
		for i := range dists {
			dest = append(dest, &dists[i])
		}
		for i := range crimes {
			dest = append(dest, &crimes[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feature row")
		}

		r.Distances = make(map[model.AmenityCategory]float64, len(cats))
		for i, c := range cats {
			r.Distances[c] = dists[i]
		}
		for i := range crimes {
			r.SetCrime(i+1, crimes[i])
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate features")
}

func (s *PostgresStore) RecordRun(ctx context.Context, run model.Run) error {
	stagesJSON, err := json.Marshal(run.Stages)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run stages")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, stages, error, started_at, finished_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, stages = EXCLUDED.stages,
		 error = EXCLUDED.error, finished_at = EXCLUDED.finished_at`,
		run.ID, string(run.Status), stagesJSON, run.Error, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrapf(err, "postgres: record run %s", run.ID)
}

func (s *PostgresStore) Runs(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, stages, error, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query runs")
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		var r model.Run
		var status string
		var stagesJSON []byte
		if err := rows.Scan(&r.ID, &status, &stagesJSON, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		if len(stagesJSON) > 0 {
			if err := json.Unmarshal(stagesJSON, &r.Stages); err != nil {
				return nil, eris.Wrapf(err, "postgres: unmarshal stages for run %s", r.ID)
			}
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(tableNames))
	for _, table := range tableNames {
		var n int
		if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, eris.Wrapf(err, "postgres: count %s", table)
		}
		out[table] = n
	}
	return out, nil
}
