// Package postgres provides the Postgres-backed screener configuration store.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradecrawl/screenerd/internal/screener"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultQueryTimeout = 10 * time.Second

// ControlsStoreConfig controls the Postgres connection pool used for
// screener control rows.
type ControlsStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// QueryTimeout bounds each control-row query so a wedged database
	// cannot stall config refreshes. Zero means the default.
	QueryTimeout time.Duration
}

type queryCloser interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// ControlsStore reads enabled screener control rows from Postgres.
type ControlsStore struct {
	pool         queryCloser
	table        string
	queryTimeout time.Duration
}

// NewControlsStore creates a Postgres-backed ControlsStore using the provided config.
func NewControlsStore(ctx context.Context, cfg ControlsStoreConfig) (*ControlsStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "controls"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &ControlsStore{
		pool:         pool,
		table:        table,
		queryTimeout: timeout,
	}, nil
}

// NewControlsStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewControlsStoreWithPool(pool queryCloser, table string) (*ControlsStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "controls"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ControlsStore{pool: pool, table: table, queryTimeout: defaultQueryTimeout}, nil
}

// Close releases the underlying pool resources.
func (s *ControlsStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// FetchEnabled returns every control row whose on_off switch is ON. NULL
// columns come back as empty strings; the cache layer fills defaults.
func (s *ControlsStore) FetchEnabled(ctx context.Context) ([]screener.ControlRow, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("%w: controls store is not configured", screener.ErrStoreUnavailable)
	}
	query := fmt.Sprintf(`
SELECT strategy, url, description, holding_period, tradetype, instrument_type, max_positions
FROM %s
WHERE on_off = 'ON'`, s.table)

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", screener.ErrStoreUnavailable, s.table, err)
	}
	defer rows.Close()

	var out []screener.ControlRow
	for rows.Next() {
		var (
			strategy       *string
			url            *string
			description    *string
			holding        *string
			tradeType      *string
			instrumentType *string
			maxPositions   *int
		)
		if err := rows.Scan(&strategy, &url, &description, &holding, &tradeType, &instrumentType, &maxPositions); err != nil {
			return nil, fmt.Errorf("%w: scan control row: %v", screener.ErrStoreUnavailable, err)
		}
		out = append(out, screener.ControlRow{
			Strategy:       deref(strategy),
			URL:            deref(url),
			Description:    deref(description),
			HoldingPeriod:  deref(holding),
			TradeType:      deref(tradeType),
			InstrumentType: deref(instrumentType),
			MaxPositions:   maxPositions,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate control rows: %v", screener.ErrStoreUnavailable, err)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
