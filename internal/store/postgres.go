package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/directory-cli/internal/db"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// Names of statements prepared on each new connection. Reads pass the name
// in place of the SQL text.
const (
	stmtGetState     = "get_state"
	stmtListCities   = "list_cities"
	stmtListListings = "list_listings"
)

var preparedStatements = map[string]string{
	stmtGetState:     `SELECT id, code, name FROM states WHERE id = $1`,
	stmtListCities:   `SELECT id, state_id, name FROM cities WHERE state_id = $1 ORDER BY name`,
	stmtListListings: `SELECT ` + strings.Join(listingColumns, ", ") + ` FROM listings WHERE city_id = $1 ORDER BY business`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("postgres ping")
	if err := resilience.Do(ctx, retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS states (
	id   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cities (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	state_id   TEXT NOT NULL REFERENCES states(id),
	name       TEXT NOT NULL,
	name_key   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (state_id, name_key)
);

CREATE TABLE IF NOT EXISTS listings (
	id         TEXT PRIMARY KEY,
	city_id    TEXT NOT NULL REFERENCES cities(id),
	business   TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT 'Business',
	rating     DOUBLE PRECISION NOT NULL DEFAULT 0,
	reviews    INTEGER NOT NULL DEFAULT 0,
	address    TEXT NOT NULL DEFAULT '',
	website    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	featured   BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (btrim(phone) <> '' OR btrim(website) <> '')
);

CREATE INDEX IF NOT EXISTS idx_cities_state_id ON cities(state_id);
CREATE INDEX IF NOT EXISTS idx_listings_city_id ON listings(city_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// GetState returns nil, nil when no state has the given id.
func (s *PostgresStore) GetState(ctx context.Context, id string) (*model.State, error) {
	var st model.State
	err := s.pool.QueryRow(ctx, stmtGetState, id).
		Scan(&st.ID, &st.Code, &st.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get state %s", id)
	}
	return &st, nil
}

func (s *PostgresStore) ListStates(ctx context.Context) ([]model.State, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, name FROM states ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list states")
	}
	defer rows.Close()

	var states []model.State
	for rows.Next() {
		var st model.State
		if err := rows.Scan(&st.ID, &st.Code, &st.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan state")
		}
		states = append(states, st)
	}
	return states, eris.Wrap(rows.Err(), "postgres: iterate states")
}

// SeedStates inserts states that are not present yet, keyed by code.
func (s *PostgresStore) SeedStates(ctx context.Context, states []model.State) (int64, error) {
	rows := make([][]any, len(states))
	for i, st := range states {
		id := st.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows[i] = []any{id, st.Code, st.Name}
	}
	n, err := db.InsertMissing(ctx, s.pool, db.MergeSpec{
		Table:        "states",
		Columns:      []string{"id", "code", "name"},
		ConflictKeys: []string{"code"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: seed states")
	}
	return n, nil
}

func (s *PostgresStore) ListCities(ctx context.Context, stateID string) ([]model.City, error) {
	rows, err := s.pool.Query(ctx, stmtListCities, stateID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list cities for state %s", stateID)
	}
	defer rows.Close()

	var cities []model.City
	for rows.Next() {
		var c model.City
		if err := rows.Scan(&c.ID, &c.StateID, &c.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan city")
		}
		cities = append(cities, c)
	}
	return cities, eris.Wrap(rows.Err(), "postgres: iterate cities")
}

func (s *PostgresStore) ListListings(ctx context.Context, cityID string) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, stmtListListings, cityID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list listings for city %s", cityID)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "postgres: iterate listings")
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(w Writer) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&pgWriter{q: tx}); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit tx")
}

// pgWriter runs writes on an open transaction.
type pgWriter struct {
	q db.Querier
}

const upsertCitiesSQL = `INSERT INTO cities (id, state_id, name, name_key)
SELECT u.id, $1, u.name, u.name_key
FROM unnest($2::text[], $3::text[], $4::text[]) AS u(id, name, name_key)
ON CONFLICT (state_id, name_key) DO UPDATE SET name = cities.name
RETURNING id, state_id, name`

func (w *pgWriter) UpsertCities(ctx context.Context, stateID string, names []string) ([]model.City, error) {
	names = dedupeNames(names)
	if len(names) == 0 {
		return nil, nil
	}

	ids := make([]string, len(names))
	keys := make([]string, len(names))
	for i, n := range names {
		ids[i] = uuid.New().String()
		keys[i] = model.NameKey(n)
	}

	rows, err := w.q.Query(ctx, upsertCitiesSQL, stateID, ids, names, keys)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert %d cities", len(names))
	}
	defer rows.Close()

	cities := make([]model.City, 0, len(names))
	for rows.Next() {
		var c model.City
		if err := rows.Scan(&c.ID, &c.StateID, &c.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan upserted city")
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: upsert cities")
	}
	return cities, nil
}

func (w *pgWriter) InsertListings(ctx context.Context, listings []model.Listing) (int64, error) {
	rows := make([][]any, len(listings))
	for i, l := range listings {
		rows[i] = listingValues(l)
	}
	n, err := db.CopyFrom(ctx, w.q, "listings", listingColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert listings")
	}
	return n, nil
}
