package bench

import (
	"math/rand"
	"time"
)

// Temperature range of generated records, [TempMin, TempMax).
const (
	TempMin = -20
	TempMax = 55
)

// DateWindow is the number of distinct days generated dates cycle through.
const DateWindow = 365

// GeneratorConfig configures synthetic data generation.
type GeneratorConfig struct {
	Count int
	// Seed for reproducible generation.
	Seed int64
	// Base is the day the date window starts from. Zero means today.
	Base time.Time
	// NullRatio is the fraction of records whose summary is left NULL (0-1).
	NullRatio float64
}

// Generate returns count records drawn from src. Dates start at the day of base and
// cycle every DateWindow records.
func Generate(count int, src rand.Source, base time.Time) Dataset {
	return generate(count, rand.New(src), base, 0)
}

// GenerateWith is Generate driven by a GeneratorConfig.
func GenerateWith(cfg GeneratorConfig) Dataset {
	base := cfg.Base
	if base.IsZero() {
		base = time.Now()
	}
	return generate(cfg.Count, rand.New(rand.NewSource(cfg.Seed)), base, cfg.NullRatio)
}

func generate(count int, rng *rand.Rand, base time.Time, nullRatio float64) Dataset {
	if count <= 0 {
		return Dataset{}
	}
	day := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, time.UTC)

	data := make(Dataset, count)
	for i := range data {
		temp := TempMin + rng.Intn(TempMax-TempMin)
		summary := Summaries[rng.Intn(len(Summaries))]
		rec := Record{
			Date:         day.AddDate(0, 0, i%DateWindow),
			TemperatureC: temp,
			Summary:      &summary,
		}
		if nullRatio > 0 && rng.Float64() < nullRatio {
			rec.Summary = nil
		}
		data[i] = rec
	}
	return data
}

// Batches splits data into contiguous chunks of at most size records. The chunks share
// data's backing array. size must be positive.
func Batches(data Dataset, size int) []Dataset {
	if size <= 0 {
		panic("bench: batch size must be positive")
	}
	batches := make([]Dataset, 0, (len(data)+size-1)/size)
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		batches = append(batches, data[i:end:end])
	}
	return batches
}

// Stage converts a dataset into the tabular form used by bulk loaders.
func Stage(data Dataset) Rows {
	rows := make(Rows, len(data))
	for i, r := range data {
		rows[i] = r.Values()
	}
	return rows
}
