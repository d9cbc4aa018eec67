package weight

import (
	"fmt"
	"math"
)

// PathWeights maps a trigger path to its normalization weight, the inverse
// effective integrated luminosity recorded by that path in the run period.
type PathWeights struct {
	weights map[PathID]float64
}

// NewPathWeights validates and copies weights. Every weight must be finite and positive.
func NewPathWeights(weights map[PathID]float64) (*PathWeights, error) {
	w := &PathWeights{weights: make(map[PathID]float64, len(weights))}
	for id, v := range weights {
		if id < 0 {
			return nil, fmt.Errorf("%w: luminosity weight for invalid path id %d", ErrConfiguration, id)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return nil, fmt.Errorf("%w: luminosity weight for path %d must be finite and positive, got %v", ErrConfiguration, id, v)
		}
		w.weights[id] = v
	}
	return w, nil
}

// InverseLuminosity converts an effective luminosity into a path weight: scale / lumi.
func InverseLuminosity(scale, lumi float64) (float64, error) {
	if lumi <= 0 || math.IsNaN(lumi) || math.IsInf(lumi, 0) {
		return 0, fmt.Errorf("%w: effective luminosity must be finite and positive, got %v", ErrConfiguration, lumi)
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return 0, fmt.Errorf("%w: luminosity scale must be finite and positive, got %v", ErrConfiguration, scale)
	}
	return scale / lumi, nil
}

// Lookup returns the weight for id; 0 for paths without a configured weight.
func (w *PathWeights) Lookup(id PathID) float64 {
	if w == nil {
		return 0
	}
	return w.weights[id]
}

// Has reports whether id has a configured weight.
func (w *PathWeights) Has(id PathID) bool {
	if w == nil {
		return false
	}
	_, ok := w.weights[id]
	return ok
}

// Len returns the number of configured weights.
func (w *PathWeights) Len() int {
	if w == nil {
		return 0
	}
	return len(w.weights)
}
