// Package sqlite stores the observation history in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/JakeFAU/availmon/internal/monitor"
)

const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS observations (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    count     INTEGER NOT NULL CHECK (count >= 0),
    timestamp TEXT    NOT NULL,
    url       TEXT    NOT NULL
);`

// Store is a SQLite-backed monitor.HistoryStore.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}
	// One writer; SQLite serialises anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadLast returns the most recently appended observation.
func (s *Store) LoadLast(ctx context.Context) (monitor.Observation, bool, error) {
	var obs monitor.Observation
	err := s.db.QueryRowContext(ctx,
		`SELECT count, timestamp, url FROM observations ORDER BY id DESC LIMIT 1`,
	).Scan(&obs.Count, &obs.Timestamp, &obs.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return monitor.Observation{}, false, nil
	}
	if err != nil {
		return monitor.Observation{}, false, fmt.Errorf("%w: %v", monitor.ErrHistoryRead, err)
	}
	return obs, true, nil
}

// Append inserts one observation.
func (s *Store) Append(ctx context.Context, obs monitor.Observation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observations (count, timestamp, url) VALUES (?, ?, ?)`,
		obs.Count, obs.Timestamp, obs.URL,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", monitor.ErrHistoryWrite, err)
	}
	return nil
}

// List returns all observations in insertion order.
func (s *Store) List(ctx context.Context) ([]monitor.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT count, timestamp, url FROM observations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", monitor.ErrHistoryRead, err)
	}
	defer rows.Close()

	var out []monitor.Observation
	for rows.Next() {
		var obs monitor.Observation
		if err := rows.Scan(&obs.Count, &obs.Timestamp, &obs.URL); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", monitor.ErrHistoryRead, err)
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", monitor.ErrHistoryRead, err)
	}
	return out, nil
}
