// Package postgres provides the Postgres-backed run ledger.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
)

const defaultTable = "archive_entries"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// LedgerConfig controls the Postgres connection pool used for ledger rows.
type LedgerConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Ledger writes archive entries into Postgres.
type Ledger struct {
	pool  pool
	table string
}

// NewLedger creates a Postgres-backed Ledger using the provided config.
func NewLedger(ctx context.Context, cfg LedgerConfig) (*Ledger, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
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
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Ledger{pool: p, table: table}, nil
}

// NewLedgerWithPool constructs a ledger from an existing pool (primarily for testing).
func NewLedgerWithPool(p pool, table string) (*Ledger, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Ledger{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (l *Ledger) Close() {
	if l == nil || l.pool == nil {
		return
	}
	l.pool.Close()
}

// EnsureSchema creates the ledger table when it does not exist.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	industry TEXT NOT NULL,
	company TEXT NOT NULL,
	document_url TEXT NOT NULL,
	folder_id TEXT NOT NULL,
	file_id TEXT NOT NULL,
	sha256 TEXT NOT NULL,
	emails TEXT[] NOT NULL DEFAULT '{}',
	phones TEXT[] NOT NULL DEFAULT '{}',
	archived_at TIMESTAMPTZ NOT NULL
)`, l.table)
	if _, err := l.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	return nil
}

// Record inserts a ledger row.
func (l *Ledger) Record(ctx context.Context, entry harvest.ArchiveEntry) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("ledger is not configured")
	}
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	industry,
	company,
	document_url,
	folder_id,
	file_id,
	sha256,
	emails,
	phones,
	archived_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`, l.table)

	args := []any{
		entry.RunID,
		entry.Industry,
		entry.Company,
		entry.DocumentURL,
		entry.FolderID,
		entry.FileID,
		entry.SHA256,
		nonNil(entry.Emails),
		nonNil(entry.Phones),
		entry.ArchivedAt,
	}
	if _, err := l.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert archive entry: %w", err)
	}
	return nil
}

// ListRun returns the entries recorded for runID in insertion order.
func (l *Ledger) ListRun(ctx context.Context, runID string) ([]harvest.ArchiveEntry, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("ledger is not configured")
	}
	query := fmt.Sprintf(`
		SELECT run_id, industry, company, document_url, folder_id, file_id, sha256, emails, phones, archived_at
		FROM %s
		WHERE run_id = $1
		ORDER BY id ASC;
	`, l.table)
	rows, err := l.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive entries: %w", err)
	}
	defer rows.Close()

	entries := []harvest.ArchiveEntry{}
	for rows.Next() {
		var e harvest.ArchiveEntry
		err := rows.Scan(
			&e.RunID,
			&e.Industry,
			&e.Company,
			&e.DocumentURL,
			&e.FolderID,
			&e.FileID,
			&e.SHA256,
			&e.Emails,
			&e.Phones,
			&e.ArchivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archive entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive entries: %w", err)
	}
	return entries, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
