package scope

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/karma-hep/trigweight/weight"
)

// GlobalConfig holds the static job-level settings.
type GlobalConfig struct {
	IsData         bool     // real data gets trigger weights; simulation gets stitching weights
	HLTProcessName string   // process whose trigger results are read
	PrimaryFamily  string   // family providing the event weight; "" selects the first family
	Patterns       []string // extra family-less path patterns, resolved for diagnostics

	// FamilyPatterns adds job-level patterns to the named families. They
	// gate activity exactly like the family's own patterns.
	FamilyPatterns map[string][]string
}

// PatternRule is a compiled path-name pattern and the family it selects for.
// Family is nil for family-less patterns.
type PatternRule struct {
	Matcher PathNameMatcher
	Family  *weight.Family
}

// GlobalCache holds everything valid for the whole job.
type GlobalCache struct {
	IsData         bool
	HLTProcessName string
	Primary        *weight.Family
	Rules          []PatternRule
}

func newGlobalCache(cfg GlobalConfig, engine *weight.Engine) (*GlobalCache, error) {
	families := engine.Families()
	if len(families) == 0 {
		return nil, fmt.Errorf("%w: period defines no trigger family", weight.ErrConfiguration)
	}
	gc := &GlobalCache{
		IsData:         cfg.IsData,
		HLTProcessName: cfg.HLTProcessName,
		Primary:        families[0],
	}
	if cfg.PrimaryFamily != "" {
		f, ok := engine.Family(cfg.PrimaryFamily)
		if !ok {
			return nil, fmt.Errorf("%w: unknown primary family %q", weight.ErrConfiguration, cfg.PrimaryFamily)
		}
		gc.Primary = f
	}
	for name := range cfg.FamilyPatterns {
		if _, ok := engine.Family(name); !ok {
			return nil, fmt.Errorf("%w: patterns given for unknown family %q", weight.ErrConfiguration, name)
		}
	}
	for _, f := range families {
		patterns := append(append([]string(nil), f.Patterns...), cfg.FamilyPatterns[f.Name]...)
		for _, p := range patterns {
			m, err := CompilePattern(p)
			if err != nil {
				return nil, fmt.Errorf("family %s: %w", f.Name, err)
			}
			gc.Rules = append(gc.Rules, PatternRule{Matcher: m, Family: f})
		}
	}
	for _, p := range cfg.Patterns {
		m, err := CompilePattern(p)
		if err != nil {
			return nil, err
		}
		gc.Rules = append(gc.Rules, PatternRule{Matcher: m})
	}
	return gc, nil
}

// ResolvedPath ties a run's trigger path to a menu path.
type ResolvedPath struct {
	ID          weight.PathID
	Name        string // versioned name as listed by the source
	SourceIndex int
}

// RunCache holds the trigger menu resolved for one run.
type RunCache struct {
	Run        weight.RunID
	Paths      []ResolvedPath
	Unresolved []string // patterns that matched no path in this run

	bySource map[int]weight.PathID
	inactive map[string]bool
}

func newRunCache(run weight.RunID, gc *GlobalCache, engine *weight.Engine, names []string, log *logrus.Entry) (*RunCache, error) {
	rc := &RunCache{
		Run:      run,
		bySource: make(map[int]weight.PathID),
		inactive: make(map[string]bool),
	}
	menu := engine.Menu()
	claimed := make(map[weight.PathID]string)
	for _, rule := range gc.Rules {
		matched := 0
		for idx, name := range names {
			if !rule.Matcher.Matches(name) {
				continue
			}
			matched++
			if _, done := rc.bySource[idx]; done {
				continue
			}
			id, ok := menu.Lookup(weight.BaseName(name))
			if !ok {
				log.Debugf("path %s matches %q but is not in the period menu", name, rule.Matcher)
				continue
			}
			if other, dup := claimed[id]; dup {
				log.Warnf("path %s resolves to %s already held by %s; ignored", name, menu.Name(id), other)
				continue
			}
			claimed[id] = name
			rc.bySource[idx] = id
			rc.Paths = append(rc.Paths, ResolvedPath{ID: id, Name: name, SourceIndex: idx})
		}
		if matched > 0 {
			continue
		}
		rc.Unresolved = append(rc.Unresolved, rule.Matcher.String())
		if rule.Family == nil {
			log.Warnf("%v: pattern %q matched no path in run %d", weight.ErrUnresolvedPattern, rule.Matcher, run)
			continue
		}
		if rule.Family.Mandatory {
			return nil, fmt.Errorf("%w: pattern %q of mandatory family %s matched no path in run %d",
				weight.ErrUnresolvedPattern, rule.Matcher, rule.Family.Name, run)
		}
		log.Warnf("%v: pattern %q matched no path in run %d; family %s inactive for this run",
			weight.ErrUnresolvedPattern, rule.Matcher, run, rule.Family.Name)
		rc.inactive[rule.Family.Name] = true
	}
	return rc, nil
}

// Active reports whether family resolved all of its patterns in this run.
func (rc *RunCache) Active(family string) bool {
	return !rc.inactive[family]
}

// Translate converts per-source-index accept flags into menu decision bits.
// Paths that were not resolved for this run never set a bit.
func (rc *RunCache) Translate(accept []bool) weight.DecisionBits {
	var bits weight.DecisionBits
	for idx, id := range rc.bySource {
		if idx < len(accept) && accept[idx] {
			bits = bits.With(id)
		}
	}
	return bits
}

// Resolved returns the resolved path for id.
func (rc *RunCache) Resolved(id weight.PathID) (ResolvedPath, bool) {
	for _, p := range rc.Paths {
		if p.ID == id {
			return p, true
		}
	}
	return ResolvedPath{}, false
}

// LumiCache holds the prescales valid for one luminosity block.
type LumiCache struct {
	Lumi      weight.LumiID
	Prescales map[weight.PathID]int
}

func newLumiCache(lumi weight.LumiID, rc *RunCache, gc *GlobalCache, source DecisionSource) *LumiCache {
	lc := &LumiCache{
		Lumi:      lumi,
		Prescales: make(map[weight.PathID]int, len(rc.Paths)),
	}
	for _, p := range rc.Paths {
		lc.Prescales[p.ID] = source.Prescale(gc.HLTProcessName, rc.Run, lumi, p.SourceIndex)
	}
	return lc
}
