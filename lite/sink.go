// Package lite provides an embedded SQLite sink. SQLite has no native bulk-copy
// facility, so the sink offers tracked saves and batched inserts only.
package lite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"bulkbench/bench"
	"bulkbench/orm"
	"bulkbench/sqldb"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
)

// DSN builds a go-sqlite3 DSN for the database file in c.Path. An explicit c.DSN wins.
func DSN(c bench.ConnConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	q := url.Values{}
	q.Set("_busy_timeout", "5000")
	q.Set("_journal_mode", "WAL")
	return "file:" + c.Path + "?" + q.Encode()
}

func Connect(ctx context.Context, c bench.ConnConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", DSN(c))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bench.ErrConfiguration, err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func NewSink(db *sql.DB, trackBatch int, log zerolog.Logger) (*sqldb.Sink, error) {
	tracker, err := orm.Open(&sqlite.Dialector{Conn: db}, trackBatch, log)
	if err != nil {
		return nil, err
	}
	return sqldb.New("sqlite", db, bench.SQLite, sqldb.WithTracker(tracker)), nil
}
