package weight

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Family is a group of trigger paths with a common selection (single jet,
// single large-radius jet, jet-pair average). Each family classifies events
// independently from its own observable.
type Family struct {
	Name       string
	Observable string          // event observable the thresholds apply to (e.g. "jet12ptave")
	Patterns   []string        // path-name patterns selecting this family's paths in a run
	Mandatory  bool            // unresolved patterns or missing weights are fatal
	Thresholds *ThresholdTable // observable -> owning path
}

// Assignment is the outcome of weighting one event for one family.
type Assignment struct {
	Family     string
	Observable float64
	Path       PathID // NoActivePath when the observable is below all thresholds
	Fired      bool   // decision bit of Path
	Weight     float64
}

// Engine computes per-event weights from immutable period tables.
// An Engine is safe for concurrent use.
type Engine struct {
	menu      *Menu
	weights   *PathWeights
	stitching *StitchingTable // nil when no sample stitching is configured
	families  []*Family
	byName    map[string]*Family
}

// NewEngine validates the cross-references between menu, families and
// weights. stitching may be nil.
func NewEngine(menu *Menu, weights *PathWeights, stitching *StitchingTable, families []*Family) (*Engine, error) {
	if menu == nil {
		return nil, fmt.Errorf("%w: engine requires a path menu", ErrConfiguration)
	}
	if weights == nil {
		return nil, fmt.Errorf("%w: engine requires a luminosity weight table", ErrConfiguration)
	}
	e := &Engine{
		menu:      menu,
		weights:   weights,
		stitching: stitching,
		byName:    make(map[string]*Family, len(families)),
	}
	for i, f := range families {
		if f == nil || f.Name == "" {
			return nil, fmt.Errorf("%w: family[%d] has no name", ErrConfiguration, i)
		}
		if _, dup := e.byName[f.Name]; dup {
			return nil, fmt.Errorf("%w: family %q defined twice", ErrConfiguration, f.Name)
		}
		if f.Thresholds == nil {
			return nil, fmt.Errorf("%w: family %q has no threshold table", ErrConfiguration, f.Name)
		}
		if f.Observable == "" {
			return nil, fmt.Errorf("%w: family %q has no observable", ErrConfiguration, f.Name)
		}
		for _, row := range f.Thresholds.rows {
			if menu.Name(row.Path) == "" {
				return nil, fmt.Errorf("%w: family %q: path id %d is not in the menu", ErrConfiguration, f.Name, row.Path)
			}
			if f.Mandatory && !weights.Has(row.Path) {
				return nil, fmt.Errorf("%w: family %q: no luminosity weight for mandatory path %s",
					ErrConfiguration, f.Name, menu.Name(row.Path))
			}
		}
		e.families = append(e.families, f)
		e.byName[f.Name] = f
	}
	return e, nil
}

// Menu returns the period path menu.
func (e *Engine) Menu() *Menu { return e.menu }

// Weights returns the luminosity weight table.
func (e *Engine) Weights() *PathWeights { return e.weights }

// Stitching returns the stitching table, nil if none is configured.
func (e *Engine) Stitching() *StitchingTable { return e.stitching }

// Families returns the configured families in configuration order.
func (e *Engine) Families() []*Family {
	return append([]*Family(nil), e.families...)
}

// Family looks a family up by name.
func (e *Engine) Family(name string) (*Family, bool) {
	f, ok := e.byName[name]
	return f, ok
}

// ComputeWeight assigns the event to the path owning observable within
// family and returns that path's luminosity weight if, and only if, the path
// fired. An owning path that did not fire yields weight 0; the event is not
// handed down to a lower-threshold path.
func (e *Engine) ComputeWeight(observable float64, decisions DecisionBits, family *Family) Assignment {
	a := Assignment{
		Family:     family.Name,
		Observable: observable,
		Path:       family.Thresholds.Classify(observable),
	}
	if a.Path == NoActivePath {
		logrus.Tracef("family %s: observable %v below lowest threshold", family.Name, observable)
		return a
	}
	a.Fired = decisions.Has(a.Path)
	if !a.Fired {
		return a
	}
	a.Weight = e.weights.Lookup(a.Path)
	return a
}

// StitchingWeight returns the sample-stitching factor for a generator binning value.
// Without a stitching table every value maps to 0.
func (e *Engine) StitchingWeight(binValue float64) float64 {
	if e.stitching == nil {
		return 0
	}
	w := e.stitching.Lookup(binValue)
	if w == 0 {
		logrus.Tracef("binning value %v outside stitching range", binValue)
	}
	return w
}

// Factor is one optional multiplicative weight component.
type Factor struct {
	Value   float64
	Present bool
}

// Apply wraps v as a present factor.
func Apply(v float64) Factor { return Factor{Value: v, Present: true} }

// Combine multiplies all present factors. With no present factor the event is
// unweighted and Combine returns 1.
func Combine(factors ...Factor) float64 {
	w := 1.0
	for _, f := range factors {
		if f.Present {
			w *= f.Value
		}
	}
	return w
}
