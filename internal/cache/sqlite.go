// Package cache persists geocode results in a local SQLite database so that
// re-submitted batches (for example a corrected failure CSV) do not re-query
// the provider for addresses it has already answered. Non-matches are cached
// too.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mappoint/geocsv/pkg/nominatim"
)

// Store is a SQLite-backed geocode result cache.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	matched      INTEGER NOT NULL,
	latitude     REAL,
	longitude    REAL,
	display_name TEXT,
	address      TEXT,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(migration)
	return eris.Wrap(err, "cache: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key returns the SHA-256 hex of the normalized address.
func Key(address string) string {
	normalized := strings.ToLower(strings.TrimSpace(address))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// Get looks up a cached result. found=true with a nil result is a cached
// non-match.
func (s *Store) Get(ctx context.Context, address string) (result *nominatim.Result, found bool, err error) {
	var matched bool
	var lat, lon sql.NullFloat64
	var displayName, addressJSON sql.NullString

	row := s.db.QueryRowContext(ctx,
		`SELECT matched, latitude, longitude, display_name, address FROM geocode_cache WHERE address_hash = ?`,
		Key(address),
	)
	if err := row.Scan(&matched, &lat, &lon, &displayName, &addressJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "cache: get")
	}

	if !matched {
		return nil, true, nil
	}

	r := &nominatim.Result{
		Latitude:    lat.Float64,
		Longitude:   lon.Float64,
		DisplayName: displayName.String,
	}
	if addressJSON.Valid && addressJSON.String != "" {
		if err := json.Unmarshal([]byte(addressJSON.String), &r.Address); err != nil {
			return nil, false, eris.Wrap(err, "cache: unmarshal address")
		}
	}
	return r, true, nil
}

// Put stores a result for an address; a nil result records a non-match.
func (s *Store) Put(ctx context.Context, address string, result *nominatim.Result) error {
	now := time.Now().UTC()

	if result == nil {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO geocode_cache (address_hash, matched, cached_at)
			VALUES (?, 0, ?)
			ON CONFLICT (address_hash) DO UPDATE SET
				matched = 0, latitude = NULL, longitude = NULL,
				display_name = NULL, address = NULL, cached_at = excluded.cached_at`,
			Key(address), now,
		)
		return eris.Wrap(err, "cache: put non-match")
	}

	addressJSON, err := json.Marshal(result.Address)
	if err != nil {
		return eris.Wrap(err, "cache: marshal address")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, matched, latitude, longitude, display_name, address, cached_at)
		VALUES (?, 1, ?, ?, ?, ?, ?)
		ON CONFLICT (address_hash) DO UPDATE SET
			matched = 1,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			display_name = excluded.display_name,
			address = excluded.address,
			cached_at = excluded.cached_at`,
		Key(address), result.Latitude, result.Longitude, result.DisplayName, string(addressJSON), now,
	)
	return eris.Wrap(err, "cache: put")
}
