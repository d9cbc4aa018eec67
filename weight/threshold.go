package weight

import (
	"fmt"
	"math"
)

// PathInterval is one row of a threshold table: observable values in
// [Lower, next row's Lower) belong to Path.
type PathInterval struct {
	Lower float64
	Path  PathID
}

// ThresholdTable maps an observable to the single trigger path that owns it.
// Rows partition [Lower_0, +inf) into contiguous half-open intervals; the
// last interval is unbounded above.
type ThresholdTable struct {
	rows []PathInterval
}

// NewThresholdTable validates rows and returns an immutable table.
// Rows must be strictly ascending by Lower, start at a finite bound >= 0,
// and name each path at most once.
func NewThresholdTable(rows []PathInterval) (*ThresholdTable, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: threshold table has no rows", ErrConfiguration)
	}
	seen := make(map[PathID]int, len(rows))
	for i, r := range rows {
		if math.IsNaN(r.Lower) || math.IsInf(r.Lower, 0) {
			return nil, fmt.Errorf("%w: row[%d]: lower bound must be finite, got %v", ErrConfiguration, i, r.Lower)
		}
		if i == 0 && r.Lower < 0 {
			return nil, fmt.Errorf("%w: row[0]: lower bound must be >= 0, got %v", ErrConfiguration, r.Lower)
		}
		if i > 0 && r.Lower <= rows[i-1].Lower {
			return nil, fmt.Errorf("%w: row[%d]: lower bound %v does not exceed previous bound %v",
				ErrConfiguration, i, r.Lower, rows[i-1].Lower)
		}
		if r.Path < 0 {
			return nil, fmt.Errorf("%w: row[%d]: invalid path id %d", ErrConfiguration, i, r.Path)
		}
		if prev, dup := seen[r.Path]; dup {
			return nil, fmt.Errorf("%w: row[%d]: path id %d already assigned in row[%d]", ErrConfiguration, i, r.Path, prev)
		}
		seen[r.Path] = i
	}
	return &ThresholdTable{rows: append([]PathInterval(nil), rows...)}, nil
}

// Classify returns the path owning value, or NoActivePath when value lies
// below the first bound (or is NaN).
func (t *ThresholdTable) Classify(value float64) PathID {
	// the highest bound value reaches owns it
	for i := len(t.rows) - 1; i >= 0; i-- {
		if value >= t.rows[i].Lower {
			return t.rows[i].Path
		}
	}
	return NoActivePath
}

// Rows returns a copy of the table rows in ascending order.
func (t *ThresholdTable) Rows() []PathInterval {
	return append([]PathInterval(nil), t.rows...)
}

// Upper returns the exclusive upper bound of the interval owned by id,
// +Inf for the last row, and false if id is not in the table.
func (t *ThresholdTable) Upper(id PathID) (float64, bool) {
	for i, r := range t.rows {
		if r.Path != id {
			continue
		}
		if i == len(t.rows)-1 {
			return math.Inf(1), true
		}
		return t.rows[i+1].Lower, true
	}
	return 0, false
}
