package trace

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// accumulator keeps what Summarize needs, independent of the record level.
type accumulator struct {
	weights     []float64
	observables []float64
	unowned     int
	notFired    int
	pathCounts  map[string]int
	pathWeights map[string]float64
}

func (a *accumulator) add(r Record) {
	if a.pathCounts == nil {
		a.pathCounts = make(map[string]int)
		a.pathWeights = make(map[string]float64)
	}
	obs := r.Observable
	if math.IsNaN(obs) {
		obs = 0
	}
	a.weights = append(a.weights, r.Weight)
	a.observables = append(a.observables, obs)
	switch {
	case r.Path < 0:
		a.unowned++
	case !r.Fired:
		a.notFired++
	}
	if r.PathName != "" {
		a.pathCounts[r.PathName]++
		a.pathWeights[r.PathName] += r.Weight
	}
}

func (a *accumulator) merge(o *accumulator) {
	a.weights = append(a.weights, o.weights...)
	a.observables = append(a.observables, o.observables...)
	a.unowned += o.unowned
	a.notFired += o.notFired
	if len(o.pathCounts) > 0 && a.pathCounts == nil {
		a.pathCounts = make(map[string]int)
		a.pathWeights = make(map[string]float64)
	}
	for name, n := range o.pathCounts {
		a.pathCounts[name] += n
		a.pathWeights[name] += o.pathWeights[name]
	}
}

// Summary aggregates the weighted events of a WeightTrace.
type Summary struct {
	Events           int
	ZeroWeight       int
	Unowned          int // observable below every threshold
	NotFired         int // owning path did not fire
	SumWeights       float64
	SumWeights2      float64
	EffectiveEntries float64 // (sum w)^2 / sum w^2
	MeanObservable   float64 // weighted by event weight
	PathCounts       map[string]int
	PathWeights      map[string]float64
}

// Summarize computes aggregate statistics from a WeightTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(wt *WeightTrace) *Summary {
	s := &Summary{
		PathCounts:  make(map[string]int),
		PathWeights: make(map[string]float64),
	}
	if wt == nil {
		return s
	}
	a := &wt.summary
	s.Events = len(a.weights)
	s.Unowned = a.unowned
	s.NotFired = a.notFired
	for name, n := range a.pathCounts {
		s.PathCounts[name] = n
		s.PathWeights[name] = a.pathWeights[name]
	}
	if s.Events == 0 {
		return s
	}
	for _, w := range a.weights {
		if w == 0 {
			s.ZeroWeight++
		}
	}
	s.SumWeights = floats.Sum(a.weights)
	s.SumWeights2 = floats.Dot(a.weights, a.weights)
	if s.SumWeights2 > 0 {
		s.EffectiveEntries = s.SumWeights * s.SumWeights / s.SumWeights2
	}
	if s.SumWeights != 0 {
		s.MeanObservable = stat.Mean(a.observables, a.weights)
	}
	return s
}
