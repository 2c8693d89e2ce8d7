package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bulkbench/bench"
	"bulkbench/orm"
	"bulkbench/sqldb"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
)

// NewPQSink wraps a lib/pq handle. Native bulk loading goes through pq.CopyIn.
func NewPQSink(db *sql.DB, trackBatch int, log zerolog.Logger) (*sqldb.Sink, error) {
	tracker, err := orm.Open(postgres.New(postgres.Config{Conn: db}), trackBatch, log)
	if err != nil {
		return nil, err
	}
	return sqldb.New("pq", db, bench.Postgres, sqldb.WithTracker(tracker), sqldb.WithBulk(copyIn)), nil
}

func copyIn(ctx context.Context, conn *sql.Conn, table bench.Table, rows bench.Rows, opts bench.BulkOptions) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return sqldb.InTx(ctx, conn, func(tx *sql.Tx) (int64, error) {
		var total int64
		for _, chunk := range bench.ChunkRows(rows, opts.BatchSize) {
			if err := copyChunk(ctx, tx, table, chunk); err != nil {
				return 0, err
			}
			total += int64(len(chunk))
		}
		return total, nil
	})
}

func copyChunk(ctx context.Context, tx *sql.Tx, table bench.Table, chunk bench.Rows) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table.Name, table.Columns...))
	if err != nil {
		return fmt.Errorf("prepare copy into %s: %w", table.Name, err)
	}
	defer stmt.Close()

	for _, row := range chunk {
		if _, err := stmt.ExecContext(ctx, copyValues(row)...); err != nil {
			return fmt.Errorf("copy row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flush copy into %s: %w", table.Name, err)
	}
	return nil
}

// copyValues renders dates as plain YYYY-MM-DD so the server never applies a time zone
// shift to a DATE column.
func copyValues(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if t, ok := v.(time.Time); ok {
			out[i] = t.Format(time.DateOnly)
		} else {
			out[i] = v
		}
	}
	return out
}
