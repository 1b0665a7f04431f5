// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver registration

	"github.com/tomtom215/plantingsites/internal/logging"
	"github.com/tomtom215/plantingsites/internal/metrics"
)

// ErrTxConflict is returned when DuckDB aborts a commit because a concurrent
// transaction wrote the same rows.
var ErrTxConflict = errors.New("store: transaction conflict")

// DuckDBConfig configures a DuckDB-backed store.
type DuckDBConfig struct {
	Path      string // File path, or ":memory:"
	MaxMemory string // e.g. "1GB"
	Threads   int    // 0 uses runtime.NumCPU()
}

// DuckDBStore implements Store on DuckDB through database/sql.
type DuckDBStore struct {
	conn *sql.DB
}

// OpenDuckDB opens (creating if needed) the database at cfg.Path and applies
// pending migrations.
func OpenDuckDB(ctx context.Context, cfg DuckDBConfig) (*DuckDBStore, error) {
	conn, err := sql.Open("duckdb", connectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	s := NewDuckDBStore(conn)
	if _, err := s.Migrate(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logging.Info().Str("path", cfg.Path).Msg("DuckDB store opened")
	return s, nil
}

// NewDuckDBStore wraps an existing connection. The caller is responsible for
// calling Migrate.
func NewDuckDBStore(conn *sql.DB) *DuckDBStore {
	return &DuckDBStore{conn: conn}
}

func connectionString(cfg DuckDBConfig) string {
	if cfg.Path == "" || cfg.Path == ":memory:" {
		return ""
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	params := []string{"access_mode=read_write", fmt.Sprintf("threads=%d", threads)}
	if cfg.MaxMemory != "" {
		params = append(params, "max_memory="+cfg.MaxMemory)
	}
	return cfg.Path + "?" + strings.Join(params, "&")
}

// Conn returns the underlying connection.
func (s *DuckDBStore) Conn() *sql.DB {
	return s.conn
}

// Begin starts a database transaction.
func (s *DuckDBStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &duckdbTx{tx: tx}, nil
}

// Close checkpoints and closes the database.
func (s *DuckDBStore) Close() error {
	if s.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := s.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()
	return s.conn.Close()
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "cannot update a table that has been altered")
}

type duckdbTx struct {
	tx *sql.Tx
}

func (t *duckdbTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		if isTransactionConflict(err) {
			metrics.DBTransactionConflicts.Inc()
			return fmt.Errorf("%w: %v", ErrTxConflict, err)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *duckdbTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxDone
		}
		return err
	}
	return nil
}

// exec runs a statement and wraps its error with what.
func (t *duckdbTx) exec(ctx context.Context, what, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := t.tx.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery(what, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	return res, nil
}

// execOne runs an update that must touch exactly one row; notFound is
// returned when it touches none.
func (t *duckdbTx) execOne(ctx context.Context, what string, notFound error, query string, args ...any) error {
	res, err := t.exec(ctx, what, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// insertReturningID runs an INSERT ... RETURNING id statement.
func (t *duckdbTx) insertReturningID(ctx context.Context, what, query string, args ...any) (int64, error) {
	var id int64
	start := time.Now()
	err := t.tx.QueryRowContext(ctx, query, args...).Scan(&id)
	metrics.RecordDBQuery(what, time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", what, err)
	}
	return id, nil
}
