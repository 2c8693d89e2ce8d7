// Package orm implements the change-tracked insert path on top of gorm.
package orm

import (
	"context"
	"fmt"
	"time"

	"bulkbench/bench"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// forecast is the gorm model of one benchmark row.
type forecast struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Date         time.Time `gorm:"column:date;type:date"`
	TemperatureC int       `gorm:"column:temperature_c"`
	Summary      *string   `gorm:"column:summary;size:100"`
}

// Tracker saves whole datasets through gorm: every record is added to one tracked
// slice and written in a single transaction.
type Tracker struct {
	db        *gorm.DB
	batchSize int
}

// Open wraps a gorm dialector. batchSize caps the rows per INSERT gorm emits inside the
// save; 0 lets gorm write the whole slice in one statement.
func Open(dialector gorm.Dialector, batchSize int, log zerolog.Logger) (*Tracker, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(zerologWriter{log}, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return &Tracker{db: db, batchSize: batchSize}, nil
}

// Track inserts data into table and returns the number of rows saved. Either every row
// is committed or none is.
func (t *Tracker) Track(ctx context.Context, table bench.Table, data bench.Dataset) (int64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	rows := make([]forecast, len(data))
	for i, r := range data {
		rows[i] = forecast{Date: r.Date, TemperatureC: r.TemperatureC, Summary: r.Summary}
	}

	// gorm wraps the save in one transaction, splitting it into CreateBatchSize
	// statements when the slice is larger.
	res := t.db.WithContext(ctx).
		Session(&gorm.Session{CreateBatchSize: t.batchSize}).
		Table(table.Name).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

type zerologWriter struct {
	log zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...any) {
	w.log.Warn().Str("component", "gorm").Msgf(format, args...)
}
