package bench

import "time"

// Summaries is the ordered list of categorical labels a generated record draws from.
var Summaries = []string{
	"Freezing", "Bracing", "Chilly", "Cool", "Mild",
	"Warm", "Balmy", "Hot", "Sweltering", "Scorching",
}

// Columns of every benchmark table, in the order Record.Values returns them.
var Columns = []string{"date", "temperature_c", "summary"}

// SummaryMaxLen is the declared width of the summary column.
const SummaryMaxLen = 100

// Record is one generated row. Identity is assigned by the sink.
type Record struct {
	Date         time.Time
	TemperatureC int
	Summary      *string // nil is stored as NULL
}

// Values returns the record's column values. A missing summary becomes an untyped nil
// so every driver binds it as NULL.
func (r Record) Values() []any {
	var summary any
	if r.Summary != nil {
		summary = *r.Summary
	}
	return []any{r.Date, r.TemperatureC, summary}
}

// Dataset is an ordered sequence of records.
type Dataset []Record

// Rows is the tabular staging form handed to a native bulk loader.
type Rows [][]any

// Table names the target of a trial.
type Table struct {
	Name    string
	Columns []string
}

// NewTable returns a table with the standard benchmark columns.
func NewTable(name string) Table {
	return Table{Name: name, Columns: Columns}
}

// BulkOptions are the hints passed to a native bulk loader.
type BulkOptions struct {
	BatchSize int
	Timeout   time.Duration
}

// Result is what a strategy reports back from one insert.
type Result struct {
	Rows    int64
	Batches []time.Duration // per round trip, when the strategy tracks them
}

// Measurement is the outcome of one trial.
type Measurement struct {
	Strategy string
	Table    string
	Records  int
	Rows     int64
	Elapsed  time.Duration
	Batches  BatchStats
	Runs     int
	Skipped  bool
	Err      error
}

// OK reports whether the trial completed.
func (m Measurement) OK() bool {
	return !m.Skipped && m.Err == nil
}

// Throughput returns records per second. The second value is false when the figure is
// not meaningful: failed or skipped trials, and zero elapsed time.
func (m Measurement) Throughput() (float64, bool) {
	if !m.OK() || m.Elapsed <= 0 {
		return 0, false
	}
	return float64(m.Records) / m.Elapsed.Seconds(), true
}

// BatchStats summarizes per-round-trip latencies of a trial.
type BatchStats struct {
	Count int
	Avg   time.Duration
	Min   time.Duration
	Max   time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
}
