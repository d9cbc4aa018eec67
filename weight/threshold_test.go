package weight

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"
)

// ak4Rows mirrors the reference single-jet table (path ids follow the reference menu).
var ak4Rows = []PathInterval{
	{Lower: 100, Path: 2}, // HLT_PFJet60
	{Lower: 147, Path: 3}, // HLT_PFJet80
	{Lower: 174, Path: 4}, // HLT_PFJet140
	{Lower: 284, Path: 5}, // HLT_PFJet200
	{Lower: 329, Path: 6}, // HLT_PFJet260
	{Lower: 380, Path: 7}, // HLT_PFJet320
	{Lower: 437, Path: 8}, // HLT_PFJet400
	{Lower: 499, Path: 9}, // HLT_PFJet450
}

func TestNewThresholdTable_MalformedTables_ConfigurationError(t *testing.T) {
	tests := []struct {
		name string
		rows []PathInterval
	}{
		{"empty", nil},
		{"unordered", []PathInterval{{Lower: 100, Path: 1}, {Lower: 50, Path: 2}}},
		{"equal bounds", []PathInterval{{Lower: 100, Path: 1}, {Lower: 100, Path: 2}}},
		{"negative first bound", []PathInterval{{Lower: -1, Path: 1}}},
		{"NaN bound", []PathInterval{{Lower: 0, Path: 1}, {Lower: math.NaN(), Path: 2}}},
		{"infinite bound", []PathInterval{{Lower: 0, Path: 1}, {Lower: math.Inf(1), Path: 2}}},
		{"duplicate path", []PathInterval{{Lower: 0, Path: 1}, {Lower: 10, Path: 1}}},
		{"sentinel path", []PathInterval{{Lower: 0, Path: NoActivePath}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewThresholdTable(tt.rows)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestClassify_ReferenceSingleJetTable_Boundaries(t *testing.T) {
	// GIVEN the reference single-jet table
	table, err := NewThresholdTable(ak4Rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		value float64
		want  PathID
	}{
		{-5, NoActivePath},
		{0, NoActivePath},
		{50, NoActivePath},
		{99.999, NoActivePath},
		{100, 2},
		{146.999, 2},
		{147, 3},
		{174, 4},
		{250, 4},
		{283.999, 4},
		{284, 5},
		{300, 5},
		{329, 6},
		{437, 8},
		{498.9, 8},
		{499, 9},
		{1e9, 9},
		{math.Inf(1), 9},
		{math.NaN(), NoActivePath},
	}
	for _, tt := range tests {
		// WHEN the value is classified
		got := table.Classify(tt.value)

		// THEN the owning interval is the half-open one containing the value
		if got != tt.want {
			t.Errorf("Classify(%v) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

// randomTable builds a well-formed table of 1..10 rows. Row i owns path i+1.
func randomTable(rng *rand.Rand) []PathInterval {
	n := 1 + rng.Intn(10)
	bounds := make([]float64, 0, n)
	seen := make(map[float64]bool)
	for len(bounds) < n {
		b := math.Round(rng.Float64()*1000*100) / 100
		if seen[b] {
			continue
		}
		seen[b] = true
		bounds = append(bounds, b)
	}
	sort.Float64s(bounds)
	rows := make([]PathInterval, n)
	for i, b := range bounds {
		rows[i] = PathInterval{Lower: b, Path: PathID(i + 1)}
	}
	return rows
}

func TestClassify_RandomWellFormedTables_ExactlyOneIntervalMatches(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		// GIVEN a random well-formed table
		rows := randomTable(rng)
		table, err := NewThresholdTable(rows)
		if err != nil {
			t.Fatalf("trial %d: unexpected error: %v", trial, err)
		}

		for k := 0; k < 50; k++ {
			v := rng.Float64() * 1200
			// WHEN the matching rows are counted by brute force
			matches := 0
			var owner PathID = NoActivePath
			for i, r := range rows {
				upper := math.Inf(1)
				if i+1 < len(rows) {
					upper = rows[i+1].Lower
				}
				if r.Lower <= v && v < upper {
					matches++
					owner = r.Path
				}
			}

			// THEN at most one row matches and Classify agrees with it
			if v >= rows[0].Lower && matches != 1 {
				t.Fatalf("trial %d: value %v matched %d rows", trial, v, matches)
			}
			if v < rows[0].Lower && matches != 0 {
				t.Fatalf("trial %d: value %v below range matched %d rows", trial, v, matches)
			}
			if got := table.Classify(v); got != owner {
				t.Fatalf("trial %d: Classify(%v) = %d, want %d", trial, v, got, owner)
			}
		}
	}
}

func TestClassify_IncreasingValues_RankNeverDecreases(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 100; trial++ {
		// GIVEN a random table where path id grows with the threshold
		table, err := NewThresholdTable(randomTable(rng))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		values := make([]float64, 100)
		for i := range values {
			values[i] = rng.Float64() * 1200
		}
		sort.Float64s(values)

		// WHEN classifying increasing values
		prev := NoActivePath
		for _, v := range values {
			got := table.Classify(v)
			// THEN the returned rank never decreases
			if got < prev {
				t.Fatalf("trial %d: Classify(%v) = %d after %d", trial, v, got, prev)
			}
			prev = got
		}
	}
}

func TestClassify_SameInput_SameOutput(t *testing.T) {
	table, err := NewThresholdTable(ak4Rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range []float64{0, 100, 250, 499, 700} {
		if a, b := table.Classify(v), table.Classify(v); a != b {
			t.Errorf("Classify(%v) not idempotent: %d then %d", v, a, b)
		}
	}
}

func TestThresholdTable_Upper(t *testing.T) {
	table, err := NewThresholdTable(ak4Rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upper, ok := table.Upper(5); !ok || upper != 329 {
		t.Errorf("Upper(5) = %v, %t; want 329, true", upper, ok)
	}
	if upper, ok := table.Upper(9); !ok || !math.IsInf(upper, 1) {
		t.Errorf("Upper(9) = %v, %t; want +Inf, true", upper, ok)
	}
	if _, ok := table.Upper(1); ok {
		t.Error("Upper(1) should report a path outside the table")
	}
}

func TestNewThresholdTable_CopiesRows(t *testing.T) {
	// GIVEN a table built from a caller-owned slice
	rows := append([]PathInterval(nil), ak4Rows...)
	table, err := NewThresholdTable(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// WHEN the caller mutates the slice afterwards
	rows[0].Lower = 0

	// THEN the table is unaffected
	if got := table.Classify(50); got != NoActivePath {
		t.Errorf("table changed after caller mutation: Classify(50) = %d", got)
	}
}
