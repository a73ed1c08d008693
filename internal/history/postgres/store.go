// Package postgres stores the observation history in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/availmon/internal/monitor"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "observations"

// Config controls the Postgres connection pool used for history rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store is a Postgres-backed monitor.HistoryStore.
type Store struct {
	pool  querier
	table string
}

// New connects to Postgres and ensures the history table exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("history.postgres_dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool querier, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// EnsureSchema creates the history table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	count INTEGER NOT NULL CHECK (count >= 0),
	observed_at TEXT NOT NULL,
	url TEXT NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure %s table: %w", s.table, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// LoadLast returns the newest row.
func (s *Store) LoadLast(ctx context.Context) (monitor.Observation, bool, error) {
	query := fmt.Sprintf(`SELECT count, observed_at, url FROM %s ORDER BY id DESC LIMIT 1`, s.table)
	var obs monitor.Observation
	err := s.pool.QueryRow(ctx, query).Scan(&obs.Count, &obs.Timestamp, &obs.URL)
	if errors.Is(err, pgx.ErrNoRows) {
		return monitor.Observation{}, false, nil
	}
	if err != nil {
		return monitor.Observation{}, false, fmt.Errorf("%w: %v", monitor.ErrHistoryRead, err)
	}
	return obs, true, nil
}

// Append inserts one row.
func (s *Store) Append(ctx context.Context, obs monitor.Observation) error {
	query := fmt.Sprintf(`INSERT INTO %s (count, observed_at, url) VALUES ($1, $2, $3)`, s.table)
	if _, err := s.pool.Exec(ctx, query, obs.Count, obs.Timestamp, obs.URL); err != nil {
		return fmt.Errorf("%w: %v", monitor.ErrHistoryWrite, err)
	}
	return nil
}

// List returns all rows in insertion order.
func (s *Store) List(ctx context.Context) ([]monitor.Observation, error) {
	query := fmt.Sprintf(`SELECT count, observed_at, url FROM %s ORDER BY id`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", monitor.ErrHistoryRead, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (monitor.Observation, error) {
		var obs monitor.Observation
		err := row.Scan(&obs.Count, &obs.Timestamp, &obs.URL)
		return obs, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", monitor.ErrHistoryRead, err)
	}
	return out, nil
}
