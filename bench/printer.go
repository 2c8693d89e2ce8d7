package bench

import (
	"fmt"
	"io"
	"time"
)

func PrintBanner(w io.Writer, records int) {
	fmt.Fprintln(w, "Bulk Insert Performance Tests")
	fmt.Fprintln(w, "=============================")
	fmt.Fprintf(w, "Running bulk insert tests with %d records...\n\n", records)
}

func PrintTableHeader(w io.Writer, table string) {
	fmt.Fprintf(w, "=== Running tests on %s ===\n", table)
}

// PrintTrial writes the one-line result of a trial.
func PrintTrial(w io.Writer, m Measurement) {
	switch {
	case m.Skipped:
		fmt.Fprintf(w, "%s: skipped (%v)\n", m.Strategy, m.Err)
	case m.Err != nil:
		fmt.Fprintf(w, "%s: FAILED after %dms for %d records: %v\n", m.Strategy, m.Elapsed.Milliseconds(), m.Records, m.Err)
	default:
		fmt.Fprintf(w, "%s: %dms for %d records\n", m.Strategy, m.Elapsed.Milliseconds(), m.Records)
	}
}

func PrintDone(w io.Writer) {
	fmt.Fprintln(w, "Performance tests completed.")
}

// PrintComparison writes a side-by-side table of every trial run against one table.
func PrintComparison(w io.Writer, table string, ms []Measurement) {
	if len(ms) == 0 {
		return
	}
	fastest := time.Duration(-1)
	for _, m := range ms {
		if m.OK() && m.Elapsed > 0 && (fastest < 0 || m.Elapsed < fastest) {
			fastest = m.Elapsed
		}
	}

	fmt.Fprintf(w, "\n╔══════════════════════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║  %-72s║\n", "BULK INSERT COMPARISON: "+table)
	fmt.Fprintf(w, "╠════════════════════════════╦════════════╦══════════════╦════════════════╣\n")
	fmt.Fprintf(w, "║  Strategy                  ║  Elapsed   ║  Rows/s      ║  vs fastest    ║\n")
	fmt.Fprintf(w, "╠════════════════════════════╬════════════╬══════════════╬════════════════╣\n")
	for _, m := range ms {
		elapsed, rate, rel := "-", "n/a", "-"
		switch {
		case m.Skipped:
			elapsed, rel = "skipped", "unavailable"
		case m.Err != nil:
			elapsed, rel = FmtDur(m.Elapsed), "FAILED"
		default:
			elapsed = FmtDur(m.Elapsed)
			if r, ok := m.Throughput(); ok {
				rate = fmt.Sprintf("%.1f", r)
			}
			if fastest > 0 {
				rel = fmt.Sprintf("%.2fx", float64(m.Elapsed)/float64(fastest))
			}
		}
		fmt.Fprintf(w, "║  %-26s║  %-10s║  %-12s║  %-14s║\n", trim(m.Strategy, 26), elapsed, rate, rel)
	}
	fmt.Fprintf(w, "╚════════════════════════════╩════════════╩══════════════╩════════════════╝\n")

	for _, m := range ms {
		if m.OK() && m.Batches.Count > 1 {
			PrintBatchStats(w, m)
		}
	}
}

// PrintBatchStats writes per-round-trip latency statistics of a trial.
func PrintBatchStats(w io.Writer, m Measurement) {
	s := m.Batches
	fmt.Fprintf(w, "\n┌─────────────────────────────────────────┐\n")
	fmt.Fprintf(w, "│  %-39s│\n", trim(m.Strategy, 39))
	fmt.Fprintf(w, "├─────────────────────────────────────────┤\n")
	fmt.Fprintf(w, "│  Batches:      %-25d│\n", s.Count)
	fmt.Fprintf(w, "│  Latency avg:  %-25s│\n", FmtDur(s.Avg))
	fmt.Fprintf(w, "│  Latency min:  %-25s│\n", FmtDur(s.Min))
	fmt.Fprintf(w, "│  Latency max:  %-25s│\n", FmtDur(s.Max))
	fmt.Fprintf(w, "│  Latency p50:  %-25s│\n", FmtDur(s.P50))
	fmt.Fprintf(w, "│  Latency p95:  %-25s│\n", FmtDur(s.P95))
	fmt.Fprintf(w, "│  Latency p99:  %-25s│\n", FmtDur(s.P99))
	fmt.Fprintf(w, "└─────────────────────────────────────────┘\n")
}

// PrintRuns writes the per-run summary of a repeated trial.
func PrintRuns(w io.Writer, label string, runs []Measurement, median Measurement) {
	steady, maxDev := SteadyState(runs, 0.05)
	fmt.Fprintf(w, "  ── %s: %d runs ──\n", label, len(runs))
	for i, r := range runs {
		marker := "  "
		if r.Elapsed == median.Elapsed {
			marker = "→ "
		}
		rate := "n/a"
		if t, ok := r.Throughput(); ok {
			rate = fmt.Sprintf("%.1f rows/s", t)
		}
		fmt.Fprintf(w, "  %sRun %d: %s  %s\n", marker, i+1, FmtDur(r.Elapsed), rate)
	}
	if steady {
		fmt.Fprintf(w, "  ✅ steady (max deviation %.1f%%)\n", maxDev*100)
	} else {
		fmt.Fprintf(w, "  ⚠️  unsteady (max deviation %.1f%% > 5%%), reporting median\n", maxDev*100)
	}
}

func FmtDur(d time.Duration) string {
	us := float64(d.Microseconds())
	if us < 1000 {
		return fmt.Sprintf("%.0fµs", us)
	}
	return fmt.Sprintf("%.2fms", us/1000)
}

func trim(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
