package bench

import (
	"context"
	"errors"
	"testing"
	"time"
)

func allStrategies() []Strategy {
	return []Strategy{Tracked{}, Batched{ChunkSize: 1000}, Batched{ChunkSize: 100}, Batched{ChunkSize: 7}, Bulk{BatchSize: 5000, Timeout: time.Minute}}
}

func TestStrategiesInsertEveryRecord(t *testing.T) {
	ctx := context.Background()
	table := NewTable("weather_forecast_tests")
	for _, n := range []int{0, 1, 99, 100, 2000, 2500} {
		for _, st := range allStrategies() {
			sink := newMemSink()
			data := GenerateWith(GeneratorConfig{Count: n, Seed: 5, Base: testBase, NullRatio: 0.2})

			res, err := st.Insert(ctx, sink, table, data)
			if err != nil {
				t.Fatalf("%s n=%d: %v", st.Name(), n, err)
			}
			if res.Rows != int64(n) {
				t.Errorf("%s n=%d: Rows = %d", st.Name(), n, res.Rows)
			}
			got := sink.rows(table.Name)
			if len(got) != n {
				t.Fatalf("%s n=%d: table has %d rows", st.Name(), n, len(got))
			}
			for i := range got {
				assertSameRecord(t, st.Name(), i, got[i], data[i])
			}
		}
	}
}

func assertSameRecord(t *testing.T, name string, i int, got, want Record) {
	t.Helper()
	if !got.Date.Equal(want.Date) || got.TemperatureC != want.TemperatureC {
		t.Fatalf("%s: row %d = %+v, want %+v", name, i, got, want)
	}
	switch {
	case want.Summary == nil && got.Summary != nil:
		t.Fatalf("%s: row %d summary = %q, want NULL", name, i, *got.Summary)
	case want.Summary != nil && (got.Summary == nil || *got.Summary != *want.Summary):
		t.Fatalf("%s: row %d summary = %v, want %q", name, i, got.Summary, *want.Summary)
	}
}

func TestNullSummaryStaysNull(t *testing.T) {
	data := Dataset{{Date: testBase, TemperatureC: 10}}
	for _, st := range allStrategies() {
		sink := newMemSink()
		if _, err := st.Insert(context.Background(), sink, NewTable("t"), data); err != nil {
			t.Fatalf("%s: %v", st.Name(), err)
		}
		rows := sink.rows("t")
		if len(rows) != 1 || rows[0].Summary != nil {
			t.Errorf("%s: summary not stored as NULL: %+v", st.Name(), rows)
		}
	}
}

func TestEmptyDatasetIssuesNothing(t *testing.T) {
	for _, st := range allStrategies() {
		sink := newMemSink()
		res, err := st.Insert(context.Background(), sink, NewTable("t"), Dataset{})
		if err != nil || res.Rows != 0 {
			t.Errorf("%s: rows=%d err=%v", st.Name(), res.Rows, err)
		}
		if sink.opened != 0 || sink.inserts != 0 {
			t.Errorf("%s: opened %d sessions, %d inserts for empty dataset", st.Name(), sink.opened, sink.inserts)
		}
	}
}

func TestBatchedChunking(t *testing.T) {
	sink := newMemSink()
	data := GenerateWith(GeneratorConfig{Count: 2500, Seed: 1, Base: testBase})
	res, err := Batched{ChunkSize: 1000}.Insert(context.Background(), sink, NewTable("t"), data)
	if err != nil {
		t.Fatal(err)
	}
	if len(sink.sizes) != 3 || sink.sizes[0] != 1000 || sink.sizes[1] != 1000 || sink.sizes[2] != 500 {
		t.Errorf("statement sizes = %v, want [1000 1000 500]", sink.sizes)
	}
	if len(res.Batches) != 3 {
		t.Errorf("recorded %d batch latencies, want 3", len(res.Batches))
	}
	if sink.opened != 1 || sink.closed != 1 {
		t.Errorf("sessions opened=%d closed=%d, want 1/1", sink.opened, sink.closed)
	}
}

func TestBatchedFailureMidway(t *testing.T) {
	sink := newMemSink()
	sink.failInsert = 2
	data := GenerateWith(GeneratorConfig{Count: 2500, Seed: 1, Base: testBase})

	res, err := Batched{ChunkSize: 1000}.Insert(context.Background(), sink, NewTable("t"), data)
	if !errors.Is(err, errInjected) {
		t.Fatalf("err = %v, want injected failure", err)
	}
	if res.Rows != 1000 {
		t.Errorf("Rows = %d, want 1000", res.Rows)
	}
	if n := len(sink.rows("t")); n != 1000 {
		t.Errorf("table has %d rows, want 1000", n)
	}
	if sink.closed != sink.opened {
		t.Errorf("session leaked: opened=%d closed=%d", sink.opened, sink.closed)
	}
}

func TestBatchedValidate(t *testing.T) {
	table := NewTable("t")
	if err := (Batched{ChunkSize: 0}).Validate(Postgres, table); !errors.Is(err, ErrConfiguration) {
		t.Errorf("chunk 0: err = %v", err)
	}
	if err := (Batched{ChunkSize: 21845}).Validate(Postgres, table); err != nil {
		t.Errorf("chunk 21845 on postgres: %v", err)
	}
	if err := (Batched{ChunkSize: 21846}).Validate(Postgres, table); !errors.Is(err, ErrConfiguration) {
		t.Errorf("chunk 21846 on postgres: err = %v", err)
	}
	if err := (Batched{ChunkSize: 11000}).Validate(SQLite, table); !errors.Is(err, ErrConfiguration) {
		t.Errorf("chunk 11000 on sqlite: err = %v", err)
	}
}

func TestBulkHonorsBatchHint(t *testing.T) {
	sink := newMemSink()
	data := GenerateWith(GeneratorConfig{Count: 12000, Seed: 1, Base: testBase})
	if _, err := (Bulk{BatchSize: 5000}).Insert(context.Background(), sink, NewTable("t"), data); err != nil {
		t.Fatal(err)
	}
	if len(sink.sizes) != 3 || sink.sizes[2] != 2000 {
		t.Errorf("copy chunk sizes = %v", sink.sizes)
	}
}

func TestAvailable(t *testing.T) {
	sink := newMemSink()
	sink.caps = 0
	if err := Available(Bulk{}, sink); !errors.Is(err, ErrStrategyUnavailable) {
		t.Errorf("Bulk: err = %v", err)
	}
	if err := Available(Tracked{}, sink); !errors.Is(err, ErrStrategyUnavailable) {
		t.Errorf("Tracked: err = %v", err)
	}
	if err := Available(Batched{ChunkSize: 10}, sink); err != nil {
		t.Errorf("Batched: err = %v", err)
	}
}

func TestMeasure(t *testing.T) {
	sink := newMemSink()
	data := GenerateWith(GeneratorConfig{Count: 300, Seed: 1, Base: testBase})
	m := Measure(context.Background(), Batched{ChunkSize: 100}, sink, NewTable("t"), data)
	if m.Err != nil {
		t.Fatal(m.Err)
	}
	if m.Records != 300 || m.Rows != 300 || m.Batches.Count != 3 {
		t.Errorf("m = %+v", m)
	}
	if m.Elapsed <= 0 {
		t.Errorf("Elapsed = %v", m.Elapsed)
	}
	if rate, ok := m.Throughput(); !ok || rate <= 0 {
		t.Errorf("Throughput = %v, %v", rate, ok)
	}
}

func TestMeasureFailure(t *testing.T) {
	sink := newMemSink()
	sink.failTrack = true
	m := Measure(context.Background(), Tracked{}, sink, NewTable("t"), Dataset{{Date: testBase}})

	var te *TrialError
	if !errors.As(m.Err, &te) || te.Op != OpInsert {
		t.Fatalf("err = %v, want insert TrialError", m.Err)
	}
	if !errors.Is(m.Err, ErrTrialFailed) || !errors.Is(m.Err, errInjected) {
		t.Errorf("err %v should match ErrTrialFailed and the cause", m.Err)
	}
	if _, ok := m.Throughput(); ok {
		t.Error("failed trial reported a throughput")
	}
}

func TestThroughputZeroElapsed(t *testing.T) {
	m := Measurement{Records: 0, Elapsed: 0}
	if rate, ok := m.Throughput(); ok || rate != 0 {
		t.Errorf("Throughput = %v, %v, want undefined", rate, ok)
	}
	m = Measurement{Records: 1000, Elapsed: 500 * time.Millisecond}
	if rate, ok := m.Throughput(); !ok || rate != 2000 {
		t.Errorf("Throughput = %v, %v, want 2000", rate, ok)
	}
}
