// Package sqldb adapts a database/sql handle to the benchmark sink interface.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bulkbench/bench"
	"bulkbench/orm"
)

// BulkFunc performs a native bulk load on a dedicated connection. It must apply the
// rows atomically.
type BulkFunc func(ctx context.Context, conn *sql.Conn, table bench.Table, rows bench.Rows, opts bench.BulkOptions) (int64, error)

// Sink is a bench.Sink over *sql.DB. Tracking and bulk loading are enabled with the
// matching options.
type Sink struct {
	name    string
	db      *sql.DB
	dialect bench.Dialect
	tracker *orm.Tracker
	bulk    BulkFunc
}

type Option func(*Sink)

// WithTracker enables the tracked-save capability.
func WithTracker(t *orm.Tracker) Option { return func(s *Sink) { s.tracker = t } }

// WithBulk enables the native bulk-load capability.
func WithBulk(f BulkFunc) Option { return func(s *Sink) { s.bulk = f } }

func New(name string, db *sql.DB, dialect bench.Dialect, opts ...Option) *Sink {
	s := &Sink{name: name, db: db, dialect: dialect}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Sink) Name() string           { return s.name }
func (s *Sink) Dialect() bench.Dialect { return s.dialect }
func (s *Sink) DB() *sql.DB            { return s.db }

func (s *Sink) Capabilities() bench.Capability {
	var c bench.Capability
	if s.tracker != nil {
		c |= bench.CapTrack
	}
	if s.bulk != nil {
		c |= bench.CapBulkLoad
	}
	return c
}

// Open pins one pooled connection for the session.
func (s *Sink) Open(ctx context.Context) (bench.Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &session{conn: conn}, nil
}

func (s *Sink) Track(ctx context.Context, table bench.Table, data bench.Dataset) (int64, error) {
	if s.tracker == nil {
		return 0, fmt.Errorf("%w: %s sink has no tracker", bench.ErrStrategyUnavailable, s.name)
	}
	return s.tracker.Track(ctx, table, data)
}

func (s *Sink) BulkLoad(ctx context.Context, table bench.Table, rows bench.Rows, opts bench.BulkOptions) (int64, error) {
	if s.bulk == nil {
		return 0, fmt.Errorf("%w: %s sink has no bulk loader", bench.ErrStrategyUnavailable, s.name)
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return s.bulk(ctx, conn, table, rows, opts)
}

func (s *Sink) Count(ctx context.Context, table bench.Table) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, s.dialect.CountSQL(table)).Scan(&n)
	return n, err
}

func (s *Sink) Close() error {
	return s.db.Close()
}

type session struct {
	conn *sql.Conn
}

func (ss *session) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := ss.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (ss *session) Close() error {
	err := ss.conn.Close()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}

// InTx runs fn in a transaction on conn, committing on success and rolling back
// otherwise.
func InTx(ctx context.Context, conn *sql.Conn, fn func(tx *sql.Tx) (int64, error)) (int64, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	n, err := fn(tx)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
