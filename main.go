package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bulkbench/bench"
	"bulkbench/lite"
	"bulkbench/my"
	"bulkbench/pg"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type options struct {
	cfg   bench.Config
	debug bool
	human bool
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	log := newLogger(opts.debug, opts.human).With().Str("run_id", uuid.NewString()).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed, err := run(ctx, opts.cfg, log, os.Stdout)
	if err != nil {
		log.Error().Err(err).Msg("benchmark aborted")
		if errors.Is(err, bench.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
	if failed > 0 {
		log.Warn().Int("failed", failed).Msg("some trials failed")
		os.Exit(1)
	}
}

// parseArgs reads flags and the optional positional record count. Flags may appear on
// either side of the count. Values given on the command line override the config file.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("bulkbench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: bulkbench [flags] [record_count]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Compares tracked, batched, and native bulk inserts of record_count rows")
		fmt.Fprintf(stderr, "(default %d) into each selected table.\n\n", bench.DefaultRecords)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "YAML config file; flags override its values")
	scope := fs.String("scope", "", "Tables to run: all, main, test, or a table name (default test)")
	strategies := fs.String("strategies", "", "Comma separated strategies: tracked, batched, bulk")

	driver := fs.String("driver", "", "Database driver: postgres, pq, mysql, sqlite")
	host := fs.String("host", "", "Database host")
	port := fs.Int("port", 0, "Database port")
	user := fs.String("user", "", "Database user")
	pass := fs.String("pass", "", "Database password")
	dbName := fs.String("db", "", "Database name")
	dsn := fs.String("dsn", "", "Full connection string, overrides host/port/user/pass/db")
	sslmode := fs.String("sslmode", "", "PostgreSQL sslmode")
	path := fs.String("path", "", "SQLite database file")

	seed := fs.Int64("seed", 0, "Dataset seed")
	runs := fs.Int("runs", 0, "Runs per strategy; the median is reported")
	chunk := fs.Int("chunk-size", 0, "Batched insert records per statement, for every table")
	trackBatch := fs.Int("track-batch", 0, "Rows per statement inside the tracked save (0 = all)")
	bulkBatch := fs.Int("bulk-batch", 0, "Rows per native bulk copy (0 = all)")
	bulkTimeout := fs.Duration("bulk-timeout", 0, "Timeout of one native bulk load")
	nullRatio := fs.Float64("null-ratio", 0, "Fraction of records with a null summary")
	parallel := fs.Bool("parallel-tables", false, "Run tables concurrently")
	noCreate := fs.Bool("no-create", false, "Do not create missing tables")
	noVerify := fs.Bool("no-verify", false, "Skip the row count check after each trial")

	var o options
	fs.BoolVar(&o.debug, "debug", false, "Debug logging")
	fs.BoolVar(&o.human, "human", false, "Human readable console logs")

	var positional []string
	rest := make([]string, 0, len(args))
	for i, a := range args {
		// A negative count would otherwise be read as an unknown flag.
		if isNegInt(a) && (i == 0 || !strings.HasPrefix(args[i-1], "-") || strings.Contains(args[i-1], "=") || isNegInt(args[i-1])) {
			positional = append(positional, a)
			continue
		}
		rest = append(rest, a)
	}
	for {
		if err := fs.Parse(rest); err != nil {
			return o, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}
	if len(positional) > 1 {
		return o, fmt.Errorf("unexpected arguments: %s", strings.Join(positional[1:], " "))
	}

	o.cfg = bench.DefaultConfig()
	if *configPath != "" {
		cfg, err := bench.LoadConfig(*configPath)
		if err != nil {
			return o, err
		}
		o.cfg = cfg
	}
	if len(positional) == 1 {
		o.cfg.Records = parseCount(positional[0])
	}

	c := &o.cfg
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scope":
			c.Scope = *scope
		case "strategies":
			c.Strategies = splitList(*strategies)
		case "driver":
			c.Connection.Driver = *driver
			if *driver == "mysql" && c.Connection.Port == 5432 {
				c.Connection.Port = 3306
			}
		case "host":
			c.Connection.Host = *host
		case "port":
			c.Connection.Port = *port
		case "user":
			c.Connection.User = *user
		case "pass":
			c.Connection.Password = *pass
		case "db":
			c.Connection.Database = *dbName
		case "dsn":
			c.Connection.DSN = *dsn
		case "sslmode":
			c.Connection.SSLMode = *sslmode
		case "path":
			c.Connection.Path = *path
		case "seed":
			c.Seed = *seed
		case "runs":
			c.Runs = *runs
		case "chunk-size":
			for i := range c.Tables {
				c.Tables[i].ChunkSize = *chunk
			}
		case "track-batch":
			c.TrackBatchSize = *trackBatch
		case "bulk-batch":
			c.BulkBatchSize = *bulkBatch
		case "bulk-timeout":
			c.BulkTimeout = *bulkTimeout
		case "null-ratio":
			c.NullRatio = *nullRatio
		case "parallel-tables":
			c.ParallelTables = *parallel
		case "no-create":
			c.CreateTables = !*noCreate
		case "no-verify":
			c.VerifyCount = !*noVerify
		}
	})

	return o, c.Validate()
}

// parseCount reads the record count argument. Anything that is not a non-negative
// integer falls back to the default.
func parseCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return bench.DefaultRecords
	}
	return n
}

func isNegInt(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n < 0
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newLogger(debug, human bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	var output io.Writer = os.Stderr
	if human {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// run connects, benchmarks every selected table, and returns the number of failed
// trials.
func run(ctx context.Context, cfg bench.Config, log zerolog.Logger, out io.Writer) (int, error) {
	sink, err := openSink(ctx, cfg, log)
	if err != nil {
		return 0, err
	}
	defer sink.Close()

	log.Info().
		Str("driver", cfg.Connection.Driver).
		Str("sink", sink.Name()).
		Str("capabilities", sink.Capabilities().String()).
		Int("records", cfg.Records).
		Str("scope", cfg.Scope).
		Msg("connected")

	r, err := bench.NewRunner(cfg, sink, bench.WithOutput(out), bench.WithLogger(log))
	if err != nil {
		return 0, err
	}
	report, err := r.Run(ctx)
	if err != nil {
		return report.Failed(), err
	}
	return report.Failed(), nil
}

func openSink(ctx context.Context, cfg bench.Config, log zerolog.Logger) (bench.Sink, error) {
	c := cfg.Connection
	switch c.Driver {
	case "postgres":
		pool, err := pg.Connect(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sink, err := pg.NewSink(pool, cfg.TrackBatchSize, log)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return sink, nil
	case "pq":
		db, err := pg.ConnectPQ(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("connect postgres (pq): %w", err)
		}
		sink, err := pg.NewPQSink(db, cfg.TrackBatchSize, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		return sink, nil
	case "mysql":
		db, err := my.Connect(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		sink, err := my.NewSink(db, cfg.TrackBatchSize, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		return sink, nil
	case "sqlite":
		db, err := lite.Connect(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sink, err := lite.NewSink(db, cfg.TrackBatchSize, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", bench.ErrConfiguration, c.Driver)
	}
}
