// Package pg provides the PostgreSQL sinks: one over a pgx pool with COPY FROM, one
// over lib/pq with CopyIn.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"bulkbench/bench"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

// DSN builds a postgres URL from c. An explicit c.DSN wins.
func DSN(c bench.ConnConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	return u.String()
}

func Connect(ctx context.Context, c bench.ConnConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(DSN(c))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bench.ErrConfiguration, err)
	}
	config.MaxConns = 10
	config.MinConns = 2

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// ConnectPQ opens the same database through lib/pq.
func ConnectPQ(ctx context.Context, c bench.ConnConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", DSN(c))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bench.ErrConfiguration, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
