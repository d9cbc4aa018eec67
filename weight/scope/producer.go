// Package scope maps the host's scope-boundary callbacks (job, run,
// luminosity block) onto the Global/Run/Lumi caches and weights events.
//
// A Producer is an explicit state machine:
//
//	Uninitialized -> GlobalReady -> RunReady <-> LumiReady -> ... -> Done
//
// Each processing stream owns its own Producer; nothing is shared between
// streams except the read-only engine and decision source.
package scope

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/karma-hep/trigweight/weight"
)

// State is the lifecycle state of a Producer.
type State int

const (
	Uninitialized State = iota
	GlobalReady
	RunReady
	LumiReady
	Done
)

var stateNames = map[State]string{
	Uninitialized: "uninitialized",
	GlobalReady:   "global-ready",
	RunReady:      "run-ready",
	LumiReady:     "lumi-ready",
	Done:          "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event is the per-event input of the producer.
type Event struct {
	Run          weight.RunID
	Lumi         weight.LumiID
	Number       weight.EventID
	Observables  map[string]float64 // reconstructed observables by name (e.g. "jet12ptave")
	BinningValue *float64           // generator-level binning value; nil for real data
}

// FamilyWeight is the weighting outcome for one family. Inactive families
// (unresolved in the current run) always carry weight 0.
type FamilyWeight struct {
	weight.Assignment
	Active bool
}

// Result is the per-event output.
type Result struct {
	Run       weight.RunID
	Lumi      weight.LumiID
	Event     weight.EventID
	Weight    float64       // combined event weight
	Trigger   weight.Factor // primary family weight; present for real data only
	Stitching weight.Factor // present when the event carries a binning value
	Primary   FamilyWeight
	Families  []FamilyWeight
	Decisions weight.DecisionBits
	AnyFired  bool
	Prescale  int // prescale of the primary path in the current lumi block; 0 if unknown
}

// Producer weights events within the Global/Run/Lumi scope hierarchy.
type Producer struct {
	engine *weight.Engine
	source DecisionSource
	log    *logrus.Entry

	state  State
	global *GlobalCache
	run    *RunCache  // nil outside a run
	lumi   *LumiCache // nil outside a luminosity block
}

// NewProducer returns an uninitialized producer. log may be nil.
func NewProducer(engine *weight.Engine, source DecisionSource, log *logrus.Entry) *Producer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Producer{engine: engine, source: source, log: log}
}

// State returns the current lifecycle state.
func (p *Producer) State() State { return p.state }

// Global returns the job cache, nil before InitGlobal.
func (p *Producer) Global() *GlobalCache { return p.global }

// Run returns the current run cache, nil outside a run.
func (p *Producer) Run() *RunCache { return p.run }

// Lumi returns the current luminosity-block cache, nil outside a block.
func (p *Producer) Lumi() *LumiCache { return p.lumi }

func (p *Producer) expect(op string, want ...State) error {
	for _, s := range want {
		if p.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in state %s", weight.ErrOrdering, op, p.state)
}

// InitGlobal compiles the path patterns and records the job settings.
// It may be called exactly once.
func (p *Producer) InitGlobal(cfg GlobalConfig) error {
	if err := p.expect("InitGlobal", Uninitialized); err != nil {
		return err
	}
	if p.engine == nil || p.source == nil {
		return fmt.Errorf("%w: producer needs an engine and a decision source", weight.ErrConfiguration)
	}
	gc, err := newGlobalCache(cfg, p.engine)
	if err != nil {
		return err
	}
	p.global = gc
	p.state = GlobalReady
	p.log.Infof("global scope ready: data=%t process=%q primary=%s patterns=%d",
		gc.IsData, gc.HLTProcessName, gc.Primary.Name, len(gc.Rules))
	return nil
}

// BeginRun resolves the configured path patterns against the run's menu.
func (p *Producer) BeginRun(run weight.RunID) error {
	if err := p.expect("BeginRun", GlobalReady); err != nil {
		return err
	}
	names := p.source.PathNames(p.global.HLTProcessName, run)
	log := p.log.WithField("run", run)
	rc, err := newRunCache(run, p.global, p.engine, names, log)
	if err != nil {
		return err
	}
	p.run = rc
	p.state = RunReady
	log.Debugf("run scope ready: %d of %d paths resolved", len(rc.Paths), len(names))
	return nil
}

// BeginLumiBlock snapshots the prescales of the resolved paths.
func (p *Producer) BeginLumiBlock(lumi weight.LumiID) error {
	if err := p.expect("BeginLumiBlock", RunReady); err != nil {
		return err
	}
	p.lumi = newLumiCache(lumi, p.run, p.global, p.source)
	p.state = LumiReady
	return nil
}

// EndLumiBlock releases the luminosity-block cache.
func (p *Producer) EndLumiBlock() error {
	if err := p.expect("EndLumiBlock", LumiReady); err != nil {
		return err
	}
	p.lumi = nil
	p.state = RunReady
	return nil
}

// EndRun releases the run cache. The luminosity block must be closed first.
func (p *Producer) EndRun() error {
	if err := p.expect("EndRun", RunReady); err != nil {
		return err
	}
	p.run = nil
	p.state = GlobalReady
	return nil
}

// EndJob releases the job cache. The run must be closed first.
func (p *Producer) EndJob() error {
	if err := p.expect("EndJob", GlobalReady); err != nil {
		return err
	}
	p.global = nil
	p.state = Done
	return nil
}

// Prescale returns the current prescale of path id, if known.
func (p *Producer) Prescale(id weight.PathID) (int, bool) {
	if p.lumi == nil {
		return 0, false
	}
	ps, ok := p.lumi.Prescales[id]
	return ps, ok
}

// Produce weights one event. It fails only when no run scope is open or the
// event belongs to a different run or block than the open scopes.
func (p *Producer) Produce(ev Event) (Result, error) {
	if err := p.expect("Produce", RunReady, LumiReady); err != nil {
		return Result{}, err
	}
	if ev.Run != p.run.Run {
		return Result{}, fmt.Errorf("%w: event %d of run %d delivered in run %d", weight.ErrOrdering, ev.Number, ev.Run, p.run.Run)
	}
	if p.lumi != nil && ev.Lumi != p.lumi.Lumi {
		return Result{}, fmt.Errorf("%w: event %d of lumi block %d delivered in block %d", weight.ErrOrdering, ev.Number, ev.Lumi, p.lumi.Lumi)
	}

	accept := p.source.Decisions(p.global.HLTProcessName, ev.Run, ev.Lumi, ev.Number)
	bits := p.run.Translate(accept)
	res := Result{
		Run:       ev.Run,
		Lumi:      ev.Lumi,
		Event:     ev.Number,
		Decisions: bits,
		AnyFired:  bits.Any(),
	}

	for _, f := range p.engine.Families() {
		fw := p.familyWeight(f, ev, bits)
		res.Families = append(res.Families, fw)
		if f == p.global.Primary {
			res.Primary = fw
		}
	}

	if p.global.IsData {
		res.Trigger = weight.Apply(res.Primary.Weight)
	}
	if ev.BinningValue != nil {
		if p.engine.Stitching() != nil {
			res.Stitching = weight.Apply(p.engine.StitchingWeight(*ev.BinningValue))
		} else {
			p.log.Debugf("event %d has a binning value but the period has no stitching table", ev.Number)
		}
	}
	res.Weight = weight.Combine(res.Trigger, res.Stitching)
	if ps, ok := p.Prescale(res.Primary.Path); ok {
		res.Prescale = ps
	}
	return res, nil
}

func (p *Producer) familyWeight(f *weight.Family, ev Event, bits weight.DecisionBits) FamilyWeight {
	observable, ok := ev.Observables[f.Observable]
	if !ok {
		p.log.Tracef("event %d has no observable %s", ev.Number, f.Observable)
		observable = math.NaN()
	}
	fw := FamilyWeight{
		Assignment: p.engine.ComputeWeight(observable, bits, f),
		Active:     p.run.Active(f.Name),
	}
	if !fw.Active {
		fw.Weight = 0
	}
	return fw
}
