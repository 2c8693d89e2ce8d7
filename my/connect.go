// Package my provides the MySQL sink. Native bulk loading streams TSV through
// LOAD DATA LOCAL INFILE.
package my

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bulkbench/bench"

	"github.com/go-sql-driver/mysql"
)

// DSN builds a go-sql-driver DSN from c. An explicit c.DSN wins.
func DSN(c bench.ConnConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	cfg.AllowCleartextPasswords = true
	cfg.Timeout = 30 * time.Second
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

func Connect(ctx context.Context, c bench.ConnConfig) (*sql.DB, error) {
	if _, err := mysql.ParseDSN(DSN(c)); err != nil {
		return nil, fmt.Errorf("%w: %v", bench.ErrConfiguration, err)
	}
	db, err := sql.Open("mysql", DSN(c))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
