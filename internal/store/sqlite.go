package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/directory-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection keeps pragmas and the write lock on a single handle.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS states (
	id   TEXT PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cities (
	id         TEXT PRIMARY KEY,
	state_id   TEXT NOT NULL REFERENCES states(id),
	name       TEXT NOT NULL,
	name_key   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (state_id, name_key)
);

CREATE TABLE IF NOT EXISTS listings (
	id         TEXT PRIMARY KEY,
	city_id    TEXT NOT NULL REFERENCES cities(id),
	business   TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT 'Business',
	rating     REAL NOT NULL DEFAULT 0,
	reviews    INTEGER NOT NULL DEFAULT 0,
	address    TEXT NOT NULL DEFAULT '',
	website    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	featured   BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	CHECK (trim(phone) <> '' OR trim(website) <> '')
);

CREATE INDEX IF NOT EXISTS idx_cities_state_id ON cities(state_id);
CREATE INDEX IF NOT EXISTS idx_listings_city_id ON listings(city_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetState(ctx context.Context, id string) (*model.State, error) {
	var st model.State
	err := s.db.QueryRowContext(ctx, `SELECT id, code, name FROM states WHERE id = ?`, id).
		Scan(&st.ID, &st.Code, &st.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get state %s", id)
	}
	return &st, nil
}

func (s *SQLiteStore) ListStates(ctx context.Context) ([]model.State, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name FROM states ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list states")
	}
	defer rows.Close() //nolint:errcheck

	var states []model.State
	for rows.Next() {
		var st model.State
		if err := rows.Scan(&st.ID, &st.Code, &st.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan state")
		}
		states = append(states, st)
	}
	return states, eris.Wrap(rows.Err(), "sqlite: iterate states")
}

func (s *SQLiteStore) SeedStates(ctx context.Context, states []model.State) (int64, error) {
	var inserted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO states (id, code, name) VALUES (?, ?, ?) ON CONFLICT (code) DO NOTHING`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare seed states")
		}
		defer stmt.Close() //nolint:errcheck

		for _, st := range states {
			id := st.ID
			if id == "" {
				id = uuid.New().String()
			}
			res, err := stmt.ExecContext(ctx, id, st.Code, st.Name)
			if err != nil {
				return eris.Wrapf(err, "sqlite: seed state %s", st.Code)
			}
			n, _ := res.RowsAffected()
			inserted += n
		}
		return nil
	})
	return inserted, err
}

func (s *SQLiteStore) ListCities(ctx context.Context, stateID string) ([]model.City, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, state_id, name FROM cities WHERE state_id = ? ORDER BY name`, stateID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list cities for state %s", stateID)
	}
	defer rows.Close() //nolint:errcheck

	var cities []model.City
	for rows.Next() {
		var c model.City
		if err := rows.Scan(&c.ID, &c.StateID, &c.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan city")
		}
		cities = append(cities, c)
	}
	return cities, eris.Wrap(rows.Err(), "sqlite: iterate cities")
}

func (s *SQLiteStore) ListListings(ctx context.Context, cityID string) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(listingColumns, ", ")+` FROM listings WHERE city_id = ? ORDER BY business`, cityID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list listings for city %s", cityID)
	}
	defer rows.Close() //nolint:errcheck

	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing")
		}
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "sqlite: iterate listings")
}

func (s *SQLiteStore) InTx(ctx context.Context, fn func(w Writer) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&sqliteWriter{tx: tx})
	})
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

type sqliteWriter struct {
	tx *sql.Tx
}

func (w *sqliteWriter) UpsertCities(ctx context.Context, stateID string, names []string) ([]model.City, error) {
	names = dedupeNames(names)
	if len(names) == 0 {
		return nil, nil
	}

	stmt, err := w.tx.PrepareContext(ctx,
		`INSERT INTO cities (id, state_id, name, name_key) VALUES (?, ?, ?, ?)
		ON CONFLICT (state_id, name_key) DO UPDATE SET name = cities.name
		RETURNING id, state_id, name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare upsert cities")
	}
	defer stmt.Close() //nolint:errcheck

	cities := make([]model.City, 0, len(names))
	for _, n := range names {
		var c model.City
		err := stmt.QueryRowContext(ctx, uuid.New().String(), stateID, n, model.NameKey(n)).
			Scan(&c.ID, &c.StateID, &c.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: upsert city %q", n)
		}
		cities = append(cities, c)
	}
	return cities, nil
}

func (w *sqliteWriter) InsertListings(ctx context.Context, listings []model.Listing) (int64, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(listingColumns)), ", ")
	stmt, err := w.tx.PrepareContext(ctx,
		`INSERT INTO listings (`+strings.Join(listingColumns, ", ")+`) VALUES (`+placeholders+`)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert listings")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, l := range listings {
		if _, err := stmt.ExecContext(ctx, listingValues(l)...); err != nil {
			return n, eris.Wrapf(err, "sqlite: insert listing %s", l.ID)
		}
		n++
	}
	return n, nil
}
