package geocode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS locations (
	key       TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	region    TEXT NOT NULL DEFAULT '',
	found     INTEGER NOT NULL,
	stored_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_locations_stored_at ON locations(stored_at);
`

// SQLiteCache persists lookups in a local database. Entries older than the
// TTL are treated as absent.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteCache opens (creating if needed) the cache database at path.
func NewSQLiteCache(path string, ttl time.Duration) (*SQLiteCache, error) {
	if path == "" {
		return nil, errors.New("sqlite cache path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}
	return &SQLiteCache{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteCache) Get(ctx context.Context, key string) (CacheEntry, bool, error) {
	var (
		e       CacheEntry
		found   int
		storedU int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, name, region, found, stored_at FROM locations WHERE key = ?`, key,
	).Scan(&e.Key, &e.Name, &e.Region, &found, &storedU)
	if errors.Is(err, sql.ErrNoRows) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, fmt.Errorf("query location: %w", err)
	}
	e.Found = found == 1
	e.StoredAt = time.Unix(storedU, 0).UTC()
	if s.expired(e) {
		return CacheEntry{}, false, nil
	}
	return e, true, nil
}

func (s *SQLiteCache) Set(ctx context.Context, e CacheEntry) error {
	found := 0
	if e.Found {
		found = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (key, name, region, found, stored_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name, region = excluded.region,
			found = excluded.found, stored_at = excluded.stored_at`,
		e.Key, e.Name, e.Region, found, e.StoredAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}
	return nil
}

// List returns every unexpired entry ordered by key.
func (s *SQLiteCache) List(ctx context.Context) ([]CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, name, region, found, stored_at FROM locations ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	var out []CacheEntry
	for rows.Next() {
		var (
			e       CacheEntry
			found   int
			storedU int64
		)
		if err := rows.Scan(&e.Key, &e.Name, &e.Region, &found, &storedU); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		e.Found = found == 1
		e.StoredAt = time.Unix(storedU, 0).UTC()
		if !s.expired(e) {
			out = append(out, e)
		}
	}
	return out, rows.Err()
}

// Clear deletes every entry and reports how many were removed.
func (s *SQLiteCache) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM locations`)
	if err != nil {
		return 0, fmt.Errorf("clear locations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close closes the database connection.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

func (s *SQLiteCache) expired(e CacheEntry) bool {
	return s.ttl > 0 && s.now().Sub(e.StoredAt) > s.ttl
}
