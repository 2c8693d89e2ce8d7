package bench

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var errInjected = errors.New("injected failure")

// memSink is an in-memory Sink that understands the statements the harness issues.
type memSink struct {
	mu      sync.Mutex
	dialect Dialect
	caps    Capability
	tables  map[string][]Record

	inserts    int // INSERT statements executed
	failInsert int // 1-based INSERT that fails, 0 = never
	failReset  bool
	failTrack  bool
	miscount   int64 // added to Count results
	opened     int
	closed     int
	sizes      []int // records per INSERT or bulk chunk
}

func newMemSink() *memSink {
	return &memSink{dialect: Postgres, caps: CapTrack | CapBulkLoad, tables: map[string][]Record{}}
}

func (s *memSink) Name() string             { return "mem" }
func (s *memSink) Dialect() Dialect         { return s.dialect }
func (s *memSink) Capabilities() Capability { return s.caps }
func (s *memSink) Close() error             { return nil }

func (s *memSink) Open(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	return &memSession{s: s}, nil
}

func (s *memSink) rows(table string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.tables[table]...)
}

func (s *memSink) Track(ctx context.Context, table Table, data Dataset) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTrack {
		return 0, errInjected
	}
	s.tables[table.Name] = append(s.tables[table.Name], data...)
	return int64(len(data)), nil
}

func (s *memSink) BulkLoad(ctx context.Context, table Table, rows Rows, opts BulkOptions) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := make([]Record, 0, len(rows))
	for _, chunk := range ChunkRows(rows, opts.BatchSize) {
		s.sizes = append(s.sizes, len(chunk))
		for _, row := range chunk {
			staged = append(staged, recordFrom(row))
		}
	}
	s.tables[table.Name] = append(s.tables[table.Name], staged...)
	return int64(len(staged)), nil
}

func (s *memSink) Count(ctx context.Context, table Table) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.tables[table.Name])) + s.miscount, nil
}

type memSession struct {
	s      *memSink
	closed bool
}

func (ss *memSession) Close() error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if !ss.closed {
		ss.closed = true
		ss.s.closed++
	}
	return nil
}

func (ss *memSession) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.HasPrefix(query, "CREATE TABLE"):
		return 0, nil
	case strings.HasPrefix(query, "DELETE FROM "):
		if s.failReset {
			return 0, errInjected
		}
		name := tableName(strings.TrimPrefix(query, "DELETE FROM "))
		n := len(s.tables[name])
		delete(s.tables, name)
		return int64(n), nil
	case strings.HasPrefix(query, "INSERT INTO "):
		s.inserts++
		if s.inserts == s.failInsert {
			return 0, errInjected
		}
		if len(args)%len(Columns) != 0 {
			return 0, fmt.Errorf("got %d args", len(args))
		}
		if want := strings.Count(query, "("); want-1 != len(args)/len(Columns) {
			return 0, fmt.Errorf("statement has %d tuples, args for %d", want-1, len(args)/len(Columns))
		}
		name := tableName(strings.TrimPrefix(query, "INSERT INTO "))
		for i := 0; i < len(args); i += len(Columns) {
			s.tables[name] = append(s.tables[name], recordFrom(args[i:i+len(Columns)]))
		}
		s.sizes = append(s.sizes, len(args)/len(Columns))
		return int64(len(args) / len(Columns)), nil
	}
	return 0, fmt.Errorf("unexpected statement %q", query)
}

func tableName(rest string) string {
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		rest = rest[:i]
	}
	return strings.Trim(rest, "\"`")
}

func recordFrom(vals []any) Record {
	r := Record{Date: vals[0].(time.Time), TemperatureC: vals[1].(int)}
	if s, ok := vals[2].(string); ok {
		r.Summary = &s
	}
	return r
}

func strPtr(s string) *string { return &s }
