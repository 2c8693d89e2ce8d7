package bench

import (
	"math"
	"sort"
	"time"
)

func ComputeBatchStats(durations []time.Duration) BatchStats {
	stats := BatchStats{Count: len(durations)}
	if len(durations) == 0 {
		return stats
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	stats.Avg = sum / time.Duration(len(sorted))
	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	stats.P50 = pct(sorted, 50)
	stats.P95 = pct(sorted, 95)
	stats.P99 = pct(sorted, 99)
	return stats
}

// MedianMeasurement picks the median run by elapsed time from multiple runs.
func MedianMeasurement(runs []Measurement) Measurement {
	if len(runs) == 1 {
		return runs[0]
	}
	sorted := make([]Measurement, len(runs))
	copy(sorted, runs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Elapsed < sorted[j].Elapsed })
	return sorted[len(sorted)/2]
}

// SteadyState checks if throughput variance across runs is within tolerance.
// Runs without a throughput figure are ignored.
func SteadyState(runs []Measurement, tolerance float64) (bool, float64) {
	var rates []float64
	for _, r := range runs {
		if rate, ok := r.Throughput(); ok {
			rates = append(rates, rate)
		}
	}
	if len(rates) < 2 {
		return true, 0
	}
	var sum float64
	for _, r := range rates {
		sum += r
	}
	mean := sum / float64(len(rates))
	if mean == 0 {
		return false, 0
	}

	var maxDev float64
	for _, r := range rates {
		dev := math.Abs(r-mean) / mean
		if dev > maxDev {
			maxDev = dev
		}
	}
	return maxDev <= tolerance, maxDev
}

func pct(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
