package pg

import (
	"context"
	"fmt"

	"bulkbench/bench"
	"bulkbench/orm"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
)

// Sink runs every strategy against PostgreSQL through a pgx pool.
type Sink struct {
	pool    *pgxpool.Pool
	tracker *orm.Tracker
}

// NewSink wraps pool. The tracked path runs gorm over the same pool.
func NewSink(pool *pgxpool.Pool, trackBatch int, log zerolog.Logger) (*Sink, error) {
	tracker, err := orm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), trackBatch, log)
	if err != nil {
		return nil, err
	}
	return &Sink{pool: pool, tracker: tracker}, nil
}

func (s *Sink) Name() string                   { return "postgres" }
func (s *Sink) Dialect() bench.Dialect         { return bench.Postgres }
func (s *Sink) Capabilities() bench.Capability { return bench.CapTrack | bench.CapBulkLoad }

func (s *Sink) Open(ctx context.Context) (bench.Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &session{conn: conn}, nil
}

func (s *Sink) Track(ctx context.Context, table bench.Table, data bench.Dataset) (int64, error) {
	return s.tracker.Track(ctx, table, data)
}

// BulkLoad streams rows with COPY FROM, one COPY per opts.BatchSize rows, all inside a
// single transaction.
func (s *Sink) BulkLoad(ctx context.Context, table bench.Table, rows bench.Rows, opts bench.BulkOptions) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	for _, chunk := range bench.ChunkRows(rows, opts.BatchSize) {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{table.Name}, table.Columns, pgx.CopyFromRows(chunk))
		if err != nil {
			return 0, fmt.Errorf("copy into %s: %w", table.Name, err)
		}
		total += n
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

func (s *Sink) Count(ctx context.Context, table bench.Table) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, bench.Postgres.CountSQL(table)).Scan(&n)
	return n, err
}

func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}

type session struct {
	conn *pgxpool.Conn
}

func (ss *session) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := ss.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (ss *session) Close() error {
	ss.conn.Release()
	return nil
}
