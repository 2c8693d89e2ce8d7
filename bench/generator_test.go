package bench

import (
	"math/rand"
	"testing"
	"time"
)

var testBase = time.Date(2025, 3, 28, 15, 4, 5, 0, time.UTC)

func TestGenerateLength(t *testing.T) {
	for _, n := range []int{0, 1, 2, 364, 365, 366, 2500} {
		data := Generate(n, rand.NewSource(1), testBase)
		if len(data) != n {
			t.Errorf("Generate(%d) len = %d", n, len(data))
		}
	}
	if data := Generate(-5, rand.NewSource(1), testBase); len(data) != 0 {
		t.Errorf("Generate(-5) len = %d, want 0", len(data))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(500, rand.NewSource(7), testBase)
	b := Generate(500, rand.NewSource(7), testBase)
	for i := range a {
		if !a[i].Date.Equal(b[i].Date) || a[i].TemperatureC != b[i].TemperatureC || *a[i].Summary != *b[i].Summary {
			t.Fatalf("record %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
	// Independent slices: mutating one must not affect the other.
	*a[0].Summary = "changed"
	if *b[0].Summary == "changed" {
		t.Fatal("datasets share summary storage")
	}
}

func TestGenerateFieldRanges(t *testing.T) {
	labels := make(map[string]bool, len(Summaries))
	for _, s := range Summaries {
		labels[s] = true
	}
	data := Generate(5000, rand.NewSource(3), testBase)
	seen := map[string]bool{}
	for i, r := range data {
		if r.TemperatureC < TempMin || r.TemperatureC >= TempMax {
			t.Fatalf("record %d temperature %d outside [%d, %d)", i, r.TemperatureC, TempMin, TempMax)
		}
		if r.Summary == nil || !labels[*r.Summary] {
			t.Fatalf("record %d summary %v not a known label", i, r.Summary)
		}
		seen[*r.Summary] = true
	}
	if len(seen) != len(Summaries) {
		t.Errorf("saw %d distinct labels, want %d", len(seen), len(Summaries))
	}
}

func TestGenerateDateCycle(t *testing.T) {
	data := Generate(800, rand.NewSource(1), testBase)
	day0 := time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)
	if !data[0].Date.Equal(day0) {
		t.Errorf("first date = %v, want %v", data[0].Date, day0)
	}
	if !data[364].Date.Equal(day0.AddDate(0, 0, 364)) {
		t.Errorf("date[364] = %v", data[364].Date)
	}
	for _, i := range []int{365, 366, 730} {
		if !data[i].Date.Equal(data[i-DateWindow].Date) {
			t.Errorf("date[%d] = %v, want same day as date[%d] = %v", i, data[i].Date, i-DateWindow, data[i-DateWindow].Date)
		}
	}
}

func TestGenerateWithNullRatio(t *testing.T) {
	data := GenerateWith(GeneratorConfig{Count: 1000, Seed: 1, Base: testBase, NullRatio: 1})
	for i, r := range data {
		if r.Summary != nil {
			t.Fatalf("record %d summary = %q, want nil", i, *r.Summary)
		}
	}

	plain := Generate(100, rand.NewSource(9), testBase)
	zero := GenerateWith(GeneratorConfig{Count: 100, Seed: 9, Base: testBase})
	for i := range plain {
		if plain[i].TemperatureC != zero[i].TemperatureC || *plain[i].Summary != *zero[i].Summary {
			t.Fatalf("record %d: NullRatio 0 changed the random stream", i)
		}
	}
}

func TestBatchesCoverEveryRecordOnce(t *testing.T) {
	for _, l := range []int{1, 2, 7, 10, 31} {
		data := Generate(l, rand.NewSource(int64(l)), testBase)
		for k := 1; k <= l; k++ {
			batches := Batches(data, k)
			total := 0
			for bi, b := range batches {
				if len(b) == 0 {
					t.Fatalf("L=%d K=%d: batch %d empty", l, k, bi)
				}
				if len(b) > k {
					t.Fatalf("L=%d K=%d: batch %d has %d records", l, k, bi, len(b))
				}
				for j := range b {
					if &b[j] != &data[total+j] {
						t.Fatalf("L=%d K=%d: batch %d record %d is not data[%d]", l, k, bi, j, total+j)
					}
				}
				total += len(b)
			}
			if total != l {
				t.Fatalf("L=%d K=%d: batches cover %d records", l, k, total)
			}
			if want := (l + k - 1) / k; len(batches) != want {
				t.Fatalf("L=%d K=%d: %d batches, want %d", l, k, len(batches), want)
			}
		}
	}
}

func TestBatchesShapes(t *testing.T) {
	data := Generate(2500, rand.NewSource(1), testBase)
	batches := Batches(data, 1000)
	if len(batches) != 3 || len(batches[0]) != 1000 || len(batches[1]) != 1000 || len(batches[2]) != 500 {
		t.Errorf("2500/1000 batch sizes wrong: %d batches", len(batches))
	}
	if got := Batches(data[:2000], 1000); len(got) != 2 {
		t.Errorf("exact multiple: %d batches, want 2", len(got))
	}
	if got := Batches(nil, 10); len(got) != 0 {
		t.Errorf("empty dataset: %d batches, want 0", len(got))
	}
	if got := Batches(data[:3], 100); len(got) != 1 || len(got[0]) != 3 {
		t.Errorf("small dataset: want a single partial batch")
	}
}

func TestBatchesPanicsOnZeroSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Batches(data, 0) did not panic")
		}
	}()
	Batches(Dataset{{}}, 0)
}

func TestStageNullSummary(t *testing.T) {
	data := Dataset{
		{Date: testBase, TemperatureC: 3, Summary: strPtr("Cool")},
		{Date: testBase, TemperatureC: -4},
	}
	rows := Stage(data)
	if rows[0][2] != "Cool" {
		t.Errorf("row 0 summary = %v", rows[0][2])
	}
	if rows[1][2] != nil {
		t.Errorf("row 1 summary = %#v, want untyped nil", rows[1][2])
	}
}
