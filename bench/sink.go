package bench

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Capability is an optional feature a sink may expose.
type Capability uint8

const (
	// CapTrack: the sink can add records to a tracked set and commit them in one save.
	CapTrack Capability = 1 << iota
	// CapBulkLoad: the sink has a native bulk-copy entry point.
	CapBulkLoad
)

func (c Capability) String() string {
	var parts []string
	if c&CapTrack != 0 {
		parts = append(parts, "track")
	}
	if c&CapBulkLoad != 0 {
		parts = append(parts, "bulk-load")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Sink is the data store a strategy writes into.
type Sink interface {
	Name() string
	Dialect() Dialect
	Capabilities() Capability
	// Open acquires a session pinned to one connection. Callers must Close it.
	Open(ctx context.Context) (Session, error)
	Close() error
}

// Session executes statements on a single connection.
type Session interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Close() error
}

// Tracker is implemented by sinks with CapTrack.
type Tracker interface {
	Track(ctx context.Context, table Table, data Dataset) (int64, error)
}

// BulkLoader is implemented by sinks with CapBulkLoad. The load is applied as a whole
// or not at all.
type BulkLoader interface {
	BulkLoad(ctx context.Context, table Table, rows Rows, opts BulkOptions) (int64, error)
}

// Counter is implemented by sinks that can report a table's row count.
type Counter interface {
	Count(ctx context.Context, table Table) (int64, error)
}

// Supports reports whether s advertises every capability in c and implements the
// matching interface.
func Supports(s Sink, c Capability) bool {
	if s.Capabilities()&c != c {
		return false
	}
	if c&CapTrack != 0 {
		if _, ok := s.(Tracker); !ok {
			return false
		}
	}
	if c&CapBulkLoad != 0 {
		if _, ok := s.(BulkLoader); !ok {
			return false
		}
	}
	return true
}

// ChunkRows splits staged rows into chunks of at most size rows. size <= 0 returns a
// single chunk.
func ChunkRows(rows Rows, size int) []Rows {
	if len(rows) == 0 {
		return nil
	}
	if size <= 0 || size >= len(rows) {
		return []Rows{rows}
	}
	chunks := make([]Rows, 0, (len(rows)+size-1)/size)
	for i := 0; i < len(rows); i += size {
		end := i + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[i:end:end])
	}
	return chunks
}

// Dialect captures the SQL differences between engines.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2) instead of '?'.
	Numbered bool
	// QuoteChar wraps identifiers.
	QuoteChar byte
	// MaxParams is the largest number of bind parameters in one statement.
	MaxParams int
	// IDColumn is the DDL of the auto-incrementing key column.
	IDColumn string
}

var (
	Postgres = Dialect{Name: "postgres", Numbered: true, QuoteChar: '"', MaxParams: 65535, IDColumn: "id BIGSERIAL PRIMARY KEY"}
	MySQL    = Dialect{Name: "mysql", QuoteChar: '`', MaxParams: 65535, IDColumn: "id BIGINT AUTO_INCREMENT PRIMARY KEY"}
	SQLite   = Dialect{Name: "sqlite", QuoteChar: '"', MaxParams: 32766, IDColumn: "id INTEGER PRIMARY KEY AUTOINCREMENT"}
)

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d.Numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Quote quotes an identifier, doubling any embedded quote character.
func (d Dialect) Quote(ident string) string {
	q := string(d.QuoteChar)
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

func (d Dialect) quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, c := range idents {
		quoted[i] = d.Quote(c)
	}
	return strings.Join(quoted, ", ")
}

// CreateTableSQL returns the DDL for a benchmark table.
func (d Dialect) CreateTableSQL(t Table) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s, %s DATE NOT NULL, %s INTEGER NOT NULL, %s VARCHAR(%d) NULL)",
		d.Quote(t.Name), d.IDColumn, d.Quote("date"), d.Quote("temperature_c"), d.Quote("summary"), SummaryMaxLen)
}

// DeleteSQL clears a table.
func (d Dialect) DeleteSQL(t Table) string {
	return "DELETE FROM " + d.Quote(t.Name)
}

// CountSQL counts a table's rows.
func (d Dialect) CountSQL(t Table) string {
	return "SELECT COUNT(*) FROM " + d.Quote(t.Name)
}

// InsertSQL builds one multi-row INSERT for batch. It returns the statement and its
// len(t.Columns) * len(batch) arguments.
func (d Dialect) InsertSQL(t Table, batch Dataset) (string, []any) {
	cols := len(t.Columns)
	args := make([]any, 0, cols*len(batch))

	var sb strings.Builder
	sb.Grow(32 + len(t.Name) + len(batch)*cols*8)
	sb.WriteString("INSERT INTO ")
	sb.WriteString(d.Quote(t.Name))
	sb.WriteString(" (")
	sb.WriteString(d.quoteAll(t.Columns))
	sb.WriteString(") VALUES ")

	n := 0
	for i, r := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		vals := r.Values()
		for j := 0; j < cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			n++
			sb.WriteString(d.Placeholder(n))
			args = append(args, vals[j])
		}
		sb.WriteByte(')')
	}
	return sb.String(), args
}
