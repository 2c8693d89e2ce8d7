package bench

import (
	"context"
	"fmt"
	"time"
)

// Strategy names accepted in configuration.
const (
	StrategyTracked = "tracked"
	StrategyBatched = "batched"
	StrategyBulk    = "bulk"
)

// AllStrategies lists every strategy in execution order.
var AllStrategies = []string{StrategyTracked, StrategyBatched, StrategyBulk}

// Strategy is one insertion algorithm under comparison.
type Strategy interface {
	Name() string
	// Requires returns the sink capabilities the strategy needs beyond Exec.
	Requires() Capability
	Insert(ctx context.Context, sink Sink, table Table, data Dataset) (Result, error)
}

// Available returns nil if sink can run st, or an error matching ErrStrategyUnavailable.
func Available(st Strategy, sink Sink) error {
	need := st.Requires()
	if need == 0 || Supports(sink, need) {
		return nil
	}
	return fmt.Errorf("%w: %s needs %s, %s sink has %s",
		ErrStrategyUnavailable, st.Name(), need, sink.Name(), sink.Capabilities())
}

// Tracked adds every record to the sink's tracked set and saves them in one commit.
type Tracked struct{}

func (Tracked) Name() string         { return "Tracked AddRange" }
func (Tracked) Requires() Capability { return CapTrack }

func (Tracked) Insert(ctx context.Context, sink Sink, table Table, data Dataset) (Result, error) {
	if len(data) == 0 {
		return Result{}, nil
	}
	tr, ok := sink.(Tracker)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s sink cannot track", ErrStrategyUnavailable, sink.Name())
	}
	n, err := tr.Track(ctx, table, data)
	return Result{Rows: n}, err
}

// Batched executes one parameterized multi-row INSERT per chunk of ChunkSize records on
// a single session.
type Batched struct {
	ChunkSize int
	// StatementTimeout bounds each INSERT. Zero means no per-statement bound.
	StatementTimeout time.Duration
}

func (b Batched) Name() string        { return fmt.Sprintf("Batched Insert (chunk %d)", b.ChunkSize) }
func (Batched) Requires() Capability { return 0 }

// Validate checks the chunk size against the dialect's bind parameter limit.
func (b Batched) Validate(d Dialect, table Table) error {
	if b.ChunkSize <= 0 {
		return configErrorf("chunk size must be positive, got %d", b.ChunkSize)
	}
	if params := b.ChunkSize * len(table.Columns); d.MaxParams > 0 && params > d.MaxParams {
		return configErrorf("chunk size %d needs %d parameters, %s allows %d",
			b.ChunkSize, params, d.Name, d.MaxParams)
	}
	return nil
}

func (b Batched) Insert(ctx context.Context, sink Sink, table Table, data Dataset) (Result, error) {
	var res Result
	if len(data) == 0 {
		return res, nil
	}
	d := sink.Dialect()
	if err := b.Validate(d, table); err != nil {
		return res, err
	}

	sess, err := sink.Open(ctx)
	if err != nil {
		return res, fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	batches := Batches(data, b.ChunkSize)
	res.Batches = make([]time.Duration, 0, len(batches))
	for i, batch := range batches {
		query, args := d.InsertSQL(table, batch)
		start := time.Now()
		n, err := b.exec(ctx, sess, query, args)
		res.Batches = append(res.Batches, time.Since(start))
		if err != nil {
			return res, fmt.Errorf("batch %d/%d (%d records): %w", i+1, len(batches), len(batch), err)
		}
		res.Rows += n
	}
	return res, nil
}

func (b Batched) exec(ctx context.Context, sess Session, query string, args []any) (int64, error) {
	if b.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.StatementTimeout)
		defer cancel()
	}
	return sess.Exec(ctx, query, args...)
}

// Bulk stages the dataset into rows and hands them to the sink's native bulk loader in
// one call.
type Bulk struct {
	BatchSize int
	Timeout   time.Duration
}

func (Bulk) Name() string         { return "Native Bulk Copy" }
func (Bulk) Requires() Capability { return CapBulkLoad }

func (b Bulk) Insert(ctx context.Context, sink Sink, table Table, data Dataset) (Result, error) {
	if len(data) == 0 {
		return Result{}, nil
	}
	bl, ok := sink.(BulkLoader)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s sink has no bulk loader", ErrStrategyUnavailable, sink.Name())
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	rows := Stage(data)
	start := time.Now()
	n, err := bl.BulkLoad(ctx, table, rows, BulkOptions{BatchSize: b.BatchSize, Timeout: b.Timeout})
	return Result{Rows: n, Batches: []time.Duration{time.Since(start)}}, err
}

// Measure times one strategy invocation. Only the Insert call is inside the clock.
func Measure(ctx context.Context, st Strategy, sink Sink, table Table, data Dataset) Measurement {
	m := Measurement{Strategy: st.Name(), Table: table.Name, Records: len(data), Runs: 1}

	start := time.Now()
	res, err := st.Insert(ctx, sink, table, data)
	m.Elapsed = time.Since(start)

	m.Rows = res.Rows
	m.Batches = ComputeBatchStats(res.Batches)
	if err != nil {
		m.Err = &TrialError{Table: table.Name, Strategy: st.Name(), Op: OpInsert, Err: err}
	}
	return m
}
