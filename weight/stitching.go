package weight

import (
	"fmt"
	"math"
)

// StitchingBin is one generator-level bin: binning values in
// [Lower, next bin's Lower) receive Weight.
type StitchingBin struct {
	Lower  float64
	Weight float64
}

// StitchingTable merges simulation samples generated in disjoint ranges of a
// generator-level quantity (e.g. the hard-process pT scale). Values below the
// first bound are excluded from the merged sample and get weight 0.
type StitchingTable struct {
	bins []StitchingBin
}

// NewStitchingTable validates bins: strictly ascending finite bounds starting
// at >= 0, finite non-negative weights.
func NewStitchingTable(bins []StitchingBin) (*StitchingTable, error) {
	if len(bins) == 0 {
		return nil, fmt.Errorf("%w: stitching table has no bins", ErrConfiguration)
	}
	for i, b := range bins {
		if math.IsNaN(b.Lower) || math.IsInf(b.Lower, 0) {
			return nil, fmt.Errorf("%w: bin[%d]: lower bound must be finite, got %v", ErrConfiguration, i, b.Lower)
		}
		if i == 0 && b.Lower < 0 {
			return nil, fmt.Errorf("%w: bin[0]: lower bound must be >= 0, got %v", ErrConfiguration, b.Lower)
		}
		if i > 0 && b.Lower <= bins[i-1].Lower {
			return nil, fmt.Errorf("%w: bin[%d]: lower bound %v does not exceed previous bound %v",
				ErrConfiguration, i, b.Lower, bins[i-1].Lower)
		}
		if math.IsNaN(b.Weight) || math.IsInf(b.Weight, 0) || b.Weight < 0 {
			return nil, fmt.Errorf("%w: bin[%d]: weight must be finite and >= 0, got %v", ErrConfiguration, i, b.Weight)
		}
	}
	return &StitchingTable{bins: append([]StitchingBin(nil), bins...)}, nil
}

// Lookup returns the weight of the bin containing binValue, 0 below range.
func (t *StitchingTable) Lookup(binValue float64) float64 {
	if t == nil {
		return 0
	}
	for i := len(t.bins) - 1; i >= 0; i-- {
		if binValue >= t.bins[i].Lower {
			return t.bins[i].Weight
		}
	}
	return 0
}

// Bins returns a copy of the bins in ascending order.
func (t *StitchingTable) Bins() []StitchingBin {
	return append([]StitchingBin(nil), t.bins...)
}
