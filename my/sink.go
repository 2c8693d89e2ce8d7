package my

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bulkbench/bench"
	"bulkbench/orm"
	"bulkbench/sqldb"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gormmysql "gorm.io/driver/mysql"
)

// NewSink wraps a MySQL handle opened with Connect.
func NewSink(db *sql.DB, trackBatch int, log zerolog.Logger) (*sqldb.Sink, error) {
	tracker, err := orm.Open(gormmysql.New(gormmysql.Config{Conn: db, SkipInitializeWithVersion: true}), trackBatch, log)
	if err != nil {
		return nil, err
	}
	return sqldb.New("mysql", db, bench.MySQL, sqldb.WithTracker(tracker), sqldb.WithBulk(loadData)), nil
}

// loadData issues one LOAD DATA LOCAL INFILE per opts.BatchSize rows inside a single
// transaction. Each chunk is served to the driver through a uniquely named reader
// handler.
func loadData(ctx context.Context, conn *sql.Conn, table bench.Table, rows bench.Rows, opts bench.BulkOptions) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return sqldb.InTx(ctx, conn, func(tx *sql.Tx) (int64, error) {
		var total int64
		for _, chunk := range bench.ChunkRows(rows, opts.BatchSize) {
			n, err := loadChunk(ctx, tx, table, chunk)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	})
}

func loadChunk(ctx context.Context, tx *sql.Tx, table bench.Table, chunk bench.Rows) (int64, error) {
	payload := EncodeTSV(chunk)
	name := "bulk-" + uuid.NewString()
	mysql.RegisterReaderHandler(name, func() io.Reader { return bytes.NewReader(payload) })
	defer mysql.DeregisterReaderHandler(name)

	res, err := tx.ExecContext(ctx, LoadDataSQL(table, name))
	if err != nil {
		return 0, fmt.Errorf("load data into %s: %w", table.Name, err)
	}
	return res.RowsAffected()
}

// LoadDataSQL is the statement reading handler name into table.
func LoadDataSQL(table bench.Table, handler string) string {
	cols := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		cols[i] = bench.MySQL.Quote(c)
	}
	return fmt.Sprintf("LOAD DATA LOCAL INFILE 'Reader::%s' INTO TABLE %s "+
		"FIELDS TERMINATED BY '\\t' ESCAPED BY '\\\\' LINES TERMINATED BY '\\n' (%s)",
		handler, bench.MySQL.Quote(table.Name), strings.Join(cols, ", "))
}

// EncodeTSV renders rows in the LOAD DATA default text format: tab separated fields,
// one row per line, \N for NULL.
func EncodeTSV(rows bench.Rows) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				buf.WriteByte('\t')
			}
			writeField(&buf, v)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func writeField(buf *bytes.Buffer, v any) {
	switch x := v.(type) {
	case nil:
		buf.WriteString(`\N`)
	case time.Time:
		buf.WriteString(x.Format(time.DateOnly))
	case int:
		buf.WriteString(strconv.Itoa(x))
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case string:
		escapeTo(buf, x)
	case *string:
		if x == nil {
			buf.WriteString(`\N`)
		} else {
			escapeTo(buf, *x)
		}
	default:
		escapeTo(buf, fmt.Sprint(x))
	}
}

func escapeTo(buf *bytes.Buffer, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			buf.WriteString(`\\`)
		case '\t':
			buf.WriteString(`\t`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case 0:
			buf.WriteString(`\0`)
		default:
			buf.WriteByte(c)
		}
	}
}
