package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/inmetrica/valuation-cli/internal/geometry"
	"github.com/inmetrica/valuation-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Boundary geometries
// are stored as GeoJSON text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id              TEXT PRIMARY KEY,
	url             TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	price           REAL,
	m2_constructed  REAL,
	m2_terrain      REAL,
	bedrooms        INTEGER,
	bathrooms       REAL,
	parking_spots   INTEGER,
	is_new          INTEGER NOT NULL DEFAULT 0,
	has_security    INTEGER NOT NULL DEFAULT 0,
	has_garden      INTEGER NOT NULL DEFAULT 0,
	has_pool        INTEGER NOT NULL DEFAULT 0,
	has_terrace     INTEGER NOT NULL DEFAULT 0,
	has_gym         INTEGER NOT NULL DEFAULT 0,
	has_kitchen     INTEGER NOT NULL DEFAULT 0,
	location_text   TEXT NOT NULL DEFAULT '',
	clean_address   TEXT NOT NULL DEFAULT '',
	latitude        REAL,
	longitude       REAL,
	extraction_date TEXT NOT NULL DEFAULT '',
	source_page     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS amenities (
	name      TEXT NOT NULL,
	category  TEXT NOT NULL,
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS crime_records (
	municipality TEXT NOT NULL,
	type         INTEGER NOT NULL,
	raw_type     TEXT NOT NULL DEFAULT '',
	rate         REAL NOT NULL,
	period       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS boundaries (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	generated INTEGER NOT NULL DEFAULT 0,
	geom      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS neighborhoods (
	name      TEXT PRIMARY KEY,
	latitude  REAL,
	longitude REAL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	stages      TEXT,
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_amenities_category ON amenities(category);
CREATE INDEX IF NOT EXISTS idx_crime_municipality ON crime_records(municipality);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// featuresDDL builds the OBT table definition from the canonical column
// list, so the schema can never drift from model.FeatureColumns.
func featuresDDL() string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS features (
	listing_id       TEXT PRIMARY KEY,
	price            REAL,
	m2_constructed   REAL,
	m2_terrain       REAL,
	bedrooms         INTEGER,
	bathrooms        REAL,
	parking_spots    INTEGER,
	is_new           INTEGER NOT NULL,
	has_security     INTEGER NOT NULL,
	has_garden       INTEGER NOT NULL,
	has_pool         INTEGER NOT NULL,
	has_terrace      INTEGER NOT NULL,
	has_gym          INTEGER NOT NULL,
	has_kitchen      INTEGER NOT NULL,
	municipality     TEXT NOT NULL,
	municipality_key TEXT NOT NULL,
	neighborhood     TEXT NOT NULL,
	neighborhood_key TEXT NOT NULL,
	has_geometry     INTEGER NOT NULL`)
	for _, c := range model.Categories() {
		fmt.Fprintf(&b, ",\n\t%s REAL NOT NULL", model.DistanceColumn(c))
	}
	for _, c := range model.CrimeColumns() {
		fmt.Fprintf(&b, ",\n\t%s REAL NOT NULL", c)
	}
	b.WriteString("\n)")
	return b.String()
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	if _, err := s.db.ExecContext(ctx, featuresDDL()); err != nil {
		return eris.Wrap(err, "sqlite: migrate features")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// overwrite runs fn inside a transaction that first clears the table.
func (s *SQLiteStore) overwrite(ctx context.Context, table string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: begin overwrite %s", table)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return eris.Wrapf(err, "sqlite: clear %s", table)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrapf(tx.Commit(), "sqlite: commit overwrite %s", table)
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

func (s *SQLiteStore) SaveListings(ctx context.Context, listings []model.Listing) error {
	return s.overwrite(ctx, "listings", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO listings (
			id, url, title, price, m2_constructed, m2_terrain, bedrooms, bathrooms,
			parking_spots, is_new, has_security, has_garden, has_pool, has_terrace,
			has_gym, has_kitchen, location_text, clean_address, latitude, longitude,
			extraction_date, source_page
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare insert listing")
		}
		defer stmt.Close()

		for _, l := range listings {
			_, err := stmt.ExecContext(ctx,
				l.ID, l.URL, l.Title, fptr(l.Price), fptr(l.M2Constructed), fptr(l.M2Terrain),
				iptr(l.Bedrooms), fptr(l.Bathrooms), iptr(l.ParkingSpots),
				l.IsNew, l.HasSecurity, l.HasGarden, l.HasPool, l.HasTerrace,
				l.HasGym, l.HasKitchen, l.LocationText, l.CleanAddress,
				fptr(l.Latitude), fptr(l.Longitude), l.ExtractionDate, l.SourcePage,
			)
			if err != nil {
				return eris.Wrapf(err, "sqlite: insert listing %s", l.ID)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Listings(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, url, title, price, m2_constructed, m2_terrain, bedrooms, bathrooms,
		parking_spots, is_new, has_security, has_garden, has_pool, has_terrace,
		has_gym, has_kitchen, location_text, clean_address, latitude, longitude,
		extraction_date, source_page
	FROM listings ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query listings")
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		var l model.Listing
		var price, m2c, m2t, baths, lat, lon sql.NullFloat64
		var beds, parking sql.NullInt64
		if err := rows.Scan(
			&l.ID, &l.URL, &l.Title, &price, &m2c, &m2t, &beds, &baths,
			&parking, &l.IsNew, &l.HasSecurity, &l.HasGarden, &l.HasPool,
			&l.HasTerrace, &l.HasGym, &l.HasKitchen, &l.LocationText,
			&l.CleanAddress, &lat, &lon, &l.ExtractionDate, &l.SourcePage,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing")
		}
		l.Price = nf(price)
		l.M2Constructed = nf(m2c)
		l.M2Terrain = nf(m2t)
		l.Bathrooms = nf(baths)
		l.Bedrooms = ni(beds)
		l.ParkingSpots = ni(parking)
		l.Latitude = nf(lat)
		l.Longitude = nf(lon)
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate listings")
}

// ---------------------------------------------------------------------------
// Amenities
// ---------------------------------------------------------------------------

func (s *SQLiteStore) SaveAmenities(ctx context.Context, amenities []model.Amenity) error {
	return s.overwrite(ctx, "amenities", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO amenities (name, category, latitude, longitude) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare insert amenity")
		}
		defer stmt.Close()

		for _, a := range amenities {
			if _, err := stmt.ExecContext(ctx, a.Name, string(a.Category), a.Latitude, a.Longitude); err != nil {
				return eris.Wrap(err, "sqlite: insert amenity")
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Amenities(ctx context.Context) ([]model.Amenity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, category, latitude, longitude FROM amenities ORDER BY category, name, latitude`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query amenities")
	}
	defer rows.Close()

	var out []model.Amenity
	for rows.Next() {
		var a model.Amenity
		var cat string
		if err := rows.Scan(&a.Name, &cat, &a.Latitude, &a.Longitude); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan amenity")
		}
		a.Category = model.AmenityCategory(cat)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate amenities")
}

// ---------------------------------------------------------------------------
// Crime records
// ---------------------------------------------------------------------------

func (s *SQLiteStore) SaveCrimeRecords(ctx context.Context, records []model.CrimeRecord) error {
	return s.overwrite(ctx, "crime_records", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO crime_records (municipality, type, raw_type, rate, period) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare insert crime record")
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.Municipality, r.Type, r.RawType, r.Rate, r.Period); err != nil {
				return eris.Wrap(err, "sqlite: insert crime record")
			}
		}
		return nil
	})
}

func (s *SQLiteStore) CrimeRecords(ctx context.Context) ([]model.CrimeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT municipality, type, raw_type, rate, period FROM crime_records ORDER BY municipality, type, period`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query crime records")
	}
	defer rows.Close()

	var out []model.CrimeRecord
	for rows.Next() {
		var r model.CrimeRecord
		if err := rows.Scan(&r.Municipality, &r.Type, &r.RawType, &r.Rate, &r.Period); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan crime record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate crime records")
}

// ---------------------------------------------------------------------------
// Boundaries
// ---------------------------------------------------------------------------

func (s *SQLiteStore) SaveBoundaries(ctx context.Context, boundaries []geometry.Boundary) error {
	return s.overwrite(ctx, "boundaries", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO boundaries (id, name, generated, geom) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare insert boundary")
		}
		defer stmt.Close()

		for _, b := range boundaries {
			geomJSON, err := json.Marshal(geojson.NewGeometry(b.Geom))
			if err != nil {
				return eris.Wrapf(err, "sqlite: marshal boundary geom %s", b.ID)
			}
			if _, err := stmt.ExecContext(ctx, b.ID, b.Name, b.Generated, string(geomJSON)); err != nil {
				return eris.Wrapf(err, "sqlite: insert boundary %s", b.ID)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Boundaries(ctx context.Context) ([]geometry.Boundary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, generated, geom FROM boundaries ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query boundaries")
	}
	defer rows.Close()

	var out []geometry.Boundary
	for rows.Next() {
		var b geometry.Boundary
		var geomJSON string
		if err := rows.Scan(&b.ID, &b.Name, &b.Generated, &geomJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan boundary")
		}
		g, err := geojson.UnmarshalGeometry([]byte(geomJSON))
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal boundary geom %s", b.ID)
		}
		mp, ok := g.Geometry().(orb.MultiPolygon)
		if !ok {
			return nil, eris.Errorf("sqlite: boundary %s is not a multipolygon", b.ID)
		}
		b.Geom = mp
		b.Bound = mp.Bound()
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate boundaries")
}

// ---------------------------------------------------------------------------
// Neighborhoods
// ---------------------------------------------------------------------------

func (s *SQLiteStore) SaveNeighborhoods(ctx context.Context, hoods []model.Neighborhood) error {
	return s.overwrite(ctx, "neighborhoods", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO neighborhoods (name, latitude, longitude) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare insert neighborhood")
		}
		defer stmt.Close()

		for _, n := range hoods {
			if _, err := stmt.ExecContext(ctx, n.Name, fptr(n.Latitude), fptr(n.Longitude)); err != nil {
				return eris.Wrapf(err, "sqlite: insert neighborhood %s", n.Name)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Neighborhoods(ctx context.Context) ([]model.Neighborhood, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, latitude, longitude FROM neighborhoods ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query neighborhoods")
	}
	defer rows.Close()

	var out []model.Neighborhood
	for rows.Next() {
		var n model.Neighborhood
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&n.Name, &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan neighborhood")
		}
		n.Latitude = nf(lat)
		n.Longitude = nf(lon)
		out = append(out, n)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate neighborhoods")
}

func (s *SQLiteStore) UpdateNeighborhoodCoords(ctx context.Context, name string, lat, lon float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO neighborhoods (name, latitude, longitude) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude`,
		name, lat, lon,
	)
	return eris.Wrapf(err, "sqlite: update neighborhood %s", name)
}

// ---------------------------------------------------------------------------
// Features (OBT)
// ---------------------------------------------------------------------------

func (s *SQLiteStore) SaveFeatures(ctx context.Context, featureRows []model.FeatureRow) error {
	cols := model.FeatureColumns()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insertSQL := fmt.Sprintf("INSERT INTO features (%s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders)

	return s.overwrite(ctx, "features", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare insert feature row")
		}
		defer stmt.Close()

		for _, r := range featureRows {
			if _, err := stmt.ExecContext(ctx, r.Values()...); err != nil {
				return eris.Wrapf(err, "sqlite: insert feature row %s", r.ListingID)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Features(ctx context.Context) ([]model.FeatureRow, error) {
	cols := model.FeatureColumns()
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM features ORDER BY listing_id", strings.Join(cols, ", ")))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query features")
	}
	defer rows.Close()

	cats := model.Categories()
	var out []model.FeatureRow
	for rows.Next() {
		var r model.FeatureRow
		var price, m2c, m2t, baths sql.NullFloat64
		var beds, parking sql.NullInt64
		dists := make([]float64, len(cats))
		crimes := make([]float64, len(model.CrimeColumns()))

		dest := []any{
			&r.ListingID, &price, &m2c, &m2t, &beds, &baths, &parking,
			&r.IsNew, &r.HasSecurity, &r.HasGarden, &r.HasPool, &r.HasTerrace,
			&r.HasGym, &r.HasKitchen, &r.Municipality, &r.MunicipalityKey,
			&r.Neighborhood, &r.NeighborhoodKey, &r.HasGeometry,
		}
		for i := range dists {
			dest = append(dest, &dists[i])
		}
		for i := range crimes {
			dest = append(dest, &crimes[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feature row")
		}

		r.Price = nf(price)
		r.M2Constructed = nf(m2c)
		r.M2Terrain = nf(m2t)
		r.Bathrooms = nf(baths)
		r.Bedrooms = ni(beds)
		r.ParkingSpots = ni(parking)
		r.Distances = make(map[model.AmenityCategory]float64, len(cats))
		for i, c := range cats {
			r.Distances[c] = dists[i]
		}
		for i := range crimes {
			r.SetCrime(i+1, crimes[i])
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate features")
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

func (s *SQLiteStore) RecordRun(ctx context.Context, run model.Run) error {
	stagesJSON, err := json.Marshal(run.Stages)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run stages")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, stages, error, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, stages = excluded.stages,
		 error = excluded.error, finished_at = excluded.finished_at`,
		run.ID, string(run.Status), string(stagesJSON), run.Error, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrapf(err, "sqlite: record run %s", run.ID)
}

func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, stages, error, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query runs")
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		var r model.Run
		var status, stagesJSON string
		if err := rows.Scan(&r.ID, &status, &stagesJSON, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = model.RunStatus(status)
		if stagesJSON != "" {
			if err := json.Unmarshal([]byte(stagesJSON), &r.Stages); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal stages for run %s", r.ID)
			}
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

func (s *SQLiteStore) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(tableNames))
	for _, table := range tableNames {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, eris.Wrapf(err, "sqlite: count %s", table)
		}
		out[table] = n
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Nullable helpers
// ---------------------------------------------------------------------------

func fptr(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func iptr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nf(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func ni(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
