// Package source provides a file-backed trigger decision source. A replay
// file records, per run, the trigger menu and, per luminosity block, the
// prescales and the events with their observables and fired paths.
package source

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/karma-hep/trigweight/weight"
	"github.com/karma-hep/trigweight/weight/scope"
)

// File is the YAML layout of a replay file.
type File struct {
	Process string      `yaml:"process"`
	Runs    []RunRecord `yaml:"runs"`
}

// RunRecord holds one run: its trigger menu and luminosity blocks.
type RunRecord struct {
	Run   uint32       `yaml:"run"`
	Paths []string     `yaml:"paths"` // versioned path names in menu order
	Lumis []LumiRecord `yaml:"lumis"`
}

// LumiRecord holds one luminosity block. Paths missing from Prescales are unprescaled.
type LumiRecord struct {
	Lumi      uint32         `yaml:"lumi"`
	Prescales map[string]int `yaml:"prescales,omitempty"`
	Events    []EventRecord  `yaml:"events"`
}

// EventRecord holds one event.
type EventRecord struct {
	Event        uint64             `yaml:"event"`
	Observables  map[string]float64 `yaml:"observables,omitempty"`
	Fired        []string           `yaml:"fired,omitempty"`
	BinningValue *float64           `yaml:"binning_value,omitempty"`
}

type lumiKey struct {
	run  weight.RunID
	lumi weight.LumiID
}

type eventKey struct {
	run   weight.RunID
	lumi  weight.LumiID
	event weight.EventID
}

// Replay serves decisions recorded in a File. It is immutable after
// construction and safe for concurrent readers.
type Replay struct {
	process   string
	names     map[weight.RunID][]string
	prescales map[lumiKey][]int
	accept    map[eventKey][]bool
	runs      [][]scope.Event // events grouped by run, file order
}

var _ scope.DecisionSource = (*Replay)(nil)

// Load reads a replay file. Uses strict parsing: unrecognized keys are rejected.
func Load(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading replay file: %w", err)
	}
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing replay file: %w", err)
	}
	return New(&f)
}

// New indexes f and validates its cross-references.
func New(f *File) (*Replay, error) {
	r := &Replay{
		process:   f.Process,
		names:     make(map[weight.RunID][]string, len(f.Runs)),
		prescales: make(map[lumiKey][]int),
		accept:    make(map[eventKey][]bool),
	}
	for i, rr := range f.Runs {
		run := weight.RunID(rr.Run)
		prefix := fmt.Sprintf("runs[%d] (run %d)", i, rr.Run)
		if _, dup := r.names[run]; dup {
			return nil, fmt.Errorf("%s: run listed twice", prefix)
		}
		index := make(map[string]int, len(rr.Paths))
		for j, name := range rr.Paths {
			if _, dup := index[name]; dup {
				return nil, fmt.Errorf("%s: path %q listed twice", prefix, name)
			}
			index[name] = j
		}
		r.names[run] = append([]string(nil), rr.Paths...)

		var events []scope.Event
		for _, lr := range rr.Lumis {
			lk := lumiKey{run: run, lumi: weight.LumiID(lr.Lumi)}
			if _, dup := r.prescales[lk]; dup {
				return nil, fmt.Errorf("%s: lumi block %d listed twice", prefix, lr.Lumi)
			}
			ps := make([]int, len(rr.Paths))
			for j := range ps {
				ps[j] = 1
			}
			for name, v := range lr.Prescales {
				j, ok := index[name]
				if !ok {
					return nil, fmt.Errorf("%s lumi %d: prescale for unknown path %q", prefix, lr.Lumi, name)
				}
				ps[j] = v
			}
			r.prescales[lk] = ps

			for _, er := range lr.Events {
				ek := eventKey{run: run, lumi: lk.lumi, event: weight.EventID(er.Event)}
				if _, dup := r.accept[ek]; dup {
					return nil, fmt.Errorf("%s lumi %d: event %d listed twice", prefix, lr.Lumi, er.Event)
				}
				acc := make([]bool, len(rr.Paths))
				for _, name := range er.Fired {
					j, ok := index[name]
					if !ok {
						return nil, fmt.Errorf("%s lumi %d event %d: fired path %q not in run menu", prefix, lr.Lumi, er.Event, name)
					}
					acc[j] = true
				}
				r.accept[ek] = acc
				events = append(events, scope.Event{
					Run:          run,
					Lumi:         lk.lumi,
					Number:       ek.event,
					Observables:  er.Observables,
					BinningValue: er.BinningValue,
				})
			}
		}
		r.runs = append(r.runs, events)
	}
	return r, nil
}

// Process returns the process name the decisions were recorded under.
func (r *Replay) Process() string { return r.process }

// PathNames implements scope.DecisionSource. Unknown processes and runs have no paths.
func (r *Replay) PathNames(process string, run weight.RunID) []string {
	if process != r.process {
		return nil
	}
	return append([]string(nil), r.names[run]...)
}

// Prescale implements scope.DecisionSource. Unknown paths report 0.
func (r *Replay) Prescale(process string, run weight.RunID, lumi weight.LumiID, index int) int {
	if process != r.process {
		return 0
	}
	ps := r.prescales[lumiKey{run: run, lumi: lumi}]
	if index < 0 || index >= len(ps) {
		return 0
	}
	return ps[index]
}

// Decisions implements scope.DecisionSource.
func (r *Replay) Decisions(process string, run weight.RunID, lumi weight.LumiID, event weight.EventID) []bool {
	if process != r.process {
		return nil
	}
	return r.accept[eventKey{run: run, lumi: lumi, event: event}]
}

// Partition deals whole runs round-robin onto n streams. Each stream's
// events keep file order.
func (r *Replay) Partition(n int) [][]scope.Event {
	if n < 1 {
		n = 1
	}
	parts := make([][]scope.Event, n)
	for i, events := range r.runs {
		parts[i%n] = append(parts[i%n], events...)
	}
	return parts
}
