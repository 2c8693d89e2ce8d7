package bench

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// OpPrepare is the TrialError phase for table creation.
const OpPrepare = "prepare"

// TableReport holds the trials run against one table. Err is set when the table's run
// was aborted (table creation or reset failure).
type TableReport struct {
	Table        string
	Measurements []Measurement
	Err          error
}

// Report is the outcome of a whole run.
type Report struct {
	Tables []TableReport
}

// Failed counts failed trials and aborted tables.
func (r Report) Failed() int {
	n := 0
	for _, t := range r.Tables {
		if t.Err != nil {
			n++
		}
		for _, m := range t.Measurements {
			if !m.Skipped && m.Err != nil {
				n++
			}
		}
	}
	return n
}

// Runner sequences trials against a sink and prints the comparison.
type Runner struct {
	cfg  Config
	sink Sink
	out  io.Writer
	log  zerolog.Logger
	now  func() time.Time
}

type Option func(*Runner)

// WithOutput sets where the report is printed. Defaults to stdout.
func WithOutput(w io.Writer) Option { return func(r *Runner) { r.out = w } }

func WithLogger(l zerolog.Logger) Option { return func(r *Runner) { r.log = l } }

// WithClock overrides the base time generated dates start from.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// NewRunner validates cfg against the sink and returns a runner. Errors match
// ErrConfiguration.
func NewRunner(cfg Config, sink Sink, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{cfg: cfg, sink: sink, out: os.Stdout, log: zerolog.Nop(), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	for _, tc := range cfg.SelectedTables() {
		for _, st := range cfg.StrategiesFor(tc) {
			if b, ok := st.(Batched); ok {
				if err := b.Validate(sink.Dialect(), NewTable(tc.Name)); err != nil {
					return nil, fmt.Errorf("table %s: %w", tc.Name, err)
				}
			}
		}
	}
	return r, nil
}

// Run executes every selected table's trials. Trial failures are reported, not
// returned; the error is non-nil only when ctx ends the run early.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	PrintBanner(r.out, r.cfg.Records)
	tables := r.cfg.SelectedTables()
	report := Report{Tables: make([]TableReport, len(tables))}

	if r.cfg.ParallelTables && len(tables) > 1 {
		bufs := make([]bytes.Buffer, len(tables))
		var g errgroup.Group
		for i, tc := range tables {
			i, tc := i, tc
			g.Go(func() error {
				report.Tables[i] = r.RunTable(ctx, &bufs[i], tc)
				return nil
			})
		}
		_ = g.Wait()
		for i := range bufs {
			if _, err := bufs[i].WriteTo(r.out); err != nil {
				return report, err
			}
		}
	} else {
		for i, tc := range tables {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Tables[i] = r.RunTable(ctx, r.out, tc)
		}
	}

	PrintDone(r.out)
	return report, ctx.Err()
}

// RunTable runs the selected strategies against one table, strictly in order.
func (r *Runner) RunTable(ctx context.Context, w io.Writer, tc TableConfig) TableReport {
	table := NewTable(tc.Name)
	log := r.log.With().Str("table", table.Name).Logger()
	tr := TableReport{Table: table.Name}

	PrintTableHeader(w, table.Name)
	defer fmt.Fprintln(w)

	if r.cfg.CreateTables {
		if err := r.execOnce(ctx, r.sink.Dialect().CreateTableSQL(table)); err != nil {
			tr.Err = &TrialError{Table: table.Name, Strategy: "-", Op: OpPrepare, Err: err}
			log.Error().Err(err).Msg("create table failed, skipping table")
			fmt.Fprintf(w, "  ✗ %v\n", tr.Err)
			return tr
		}
	}

	for _, st := range r.cfg.StrategiesFor(tc) {
		if err := Available(st, r.sink); err != nil {
			log.Warn().Str("strategy", st.Name()).Err(err).Msg("strategy skipped")
			m := Measurement{Strategy: st.Name(), Table: table.Name, Records: r.cfg.Records, Skipped: true, Err: err}
			PrintTrial(w, m)
			tr.Measurements = append(tr.Measurements, m)
			continue
		}

		m, abort := r.trial(ctx, w, st, table)
		PrintTrial(w, m)
		tr.Measurements = append(tr.Measurements, m)
		if abort != nil {
			tr.Err = abort
			log.Error().Err(abort).Msg("reset failed, aborting remaining trials for table")
			break
		}
	}

	PrintComparison(w, table.Name, tr.Measurements)
	return tr
}

// trial runs one strategy cfg.Runs times and returns the median measurement. A non-nil
// abort error means the table could not be reset and no further trials should run.
func (r *Runner) trial(ctx context.Context, w io.Writer, st Strategy, table Table) (Measurement, error) {
	log := r.log.With().Str("table", table.Name).Str("strategy", st.Name()).Logger()
	runs := make([]Measurement, 0, r.cfg.Runs)

	for i := 0; i < r.cfg.Runs; i++ {
		if err := r.reset(ctx, table); err != nil {
			te := &TrialError{Table: table.Name, Strategy: st.Name(), Op: OpReset, Err: err}
			return Measurement{Strategy: st.Name(), Table: table.Name, Records: r.cfg.Records, Runs: i + 1, Err: te}, te
		}

		data := GenerateWith(GeneratorConfig{
			Count:     r.cfg.Records,
			Seed:      r.cfg.Seed,
			Base:      r.now(),
			NullRatio: r.cfg.NullRatio,
		})

		m := Measure(ctx, st, r.sink, table, data)
		if m.Err == nil && r.cfg.VerifyCount {
			m.Err = r.verify(ctx, st, table, len(data))
		}
		if m.Err != nil {
			m.Runs = i + 1
			log.Error().Err(m.Err).Int("run", i+1).Dur("elapsed", m.Elapsed).Msg("trial failed")
			return m, nil
		}
		log.Debug().Int("run", i+1).Int64("rows", m.Rows).Dur("elapsed", m.Elapsed).Msg("trial done")
		runs = append(runs, m)
	}

	median := MedianMeasurement(runs)
	median.Runs = len(runs)
	if len(runs) > 1 {
		PrintRuns(w, st.Name(), runs, median)
	}
	return median, nil
}

func (r *Runner) reset(ctx context.Context, table Table) error {
	return r.execOnce(ctx, r.sink.Dialect().DeleteSQL(table))
}

func (r *Runner) verify(ctx context.Context, st Strategy, table Table, want int) error {
	c, ok := r.sink.(Counter)
	if !ok {
		return nil
	}
	got, err := c.Count(ctx, table)
	if err == nil && got != int64(want) {
		err = fmt.Errorf("%w: table has %d rows, dataset has %d", ErrRowCountMismatch, got, want)
	}
	if err != nil {
		return &TrialError{Table: table.Name, Strategy: st.Name(), Op: OpVerify, Err: err}
	}
	return nil
}

// execOnce runs a single statement on a fresh session.
func (r *Runner) execOnce(ctx context.Context, query string) error {
	sess, err := r.sink.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()
	_, err = sess.Exec(ctx, query)
	return err
}
