package scope

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/karma-hep/trigweight/weight"
)

const testProcess = "HLT"

// Menu ids used throughout the scope tests.
const (
	idIsoMu24    weight.PathID = 0
	idPFJet60    weight.PathID = 1
	idPFJet80    weight.PathID = 2
	idAK8PFJet80 weight.PathID = 3
)

const (
	weightPFJet60  = 0.5
	weightPFJet80  = 0.25
	weightAK8Jet80 = 0.125
)

// newTestEngine builds a two-family engine:
// ak4 owns [100,147) with HLT_PFJet60 and [147,inf) with HLT_PFJet80,
// ak8 owns [175,inf) with HLT_AK8PFJet80.
func newTestEngine(t *testing.T, ak4Patterns []string, mandatory bool) *weight.Engine {
	t.Helper()
	menu, err := weight.NewMenu([]string{"HLT_IsoMu24", "HLT_PFJet60", "HLT_PFJet80", "HLT_AK8PFJet80"})
	require.NoError(t, err)
	weights, err := weight.NewPathWeights(map[weight.PathID]float64{
		idPFJet60:    weightPFJet60,
		idPFJet80:    weightPFJet80,
		idAK8PFJet80: weightAK8Jet80,
	})
	require.NoError(t, err)
	ak4, err := weight.NewThresholdTable([]weight.PathInterval{{Lower: 100, Path: idPFJet60}, {Lower: 147, Path: idPFJet80}})
	require.NoError(t, err)
	ak8, err := weight.NewThresholdTable([]weight.PathInterval{{Lower: 175, Path: idAK8PFJet80}})
	require.NoError(t, err)
	stitching, err := weight.NewStitchingTable([]weight.StitchingBin{
		{Lower: 15, Weight: 45.6157956973778},
		{Lower: 30, Weight: 13.9177659430564},
	})
	require.NoError(t, err)
	if ak4Patterns == nil {
		ak4Patterns = []string{`^HLT_PFJet[0-9]+_v[0-9]+$`}
	}
	e, err := weight.NewEngine(menu, weights, stitching, []*weight.Family{
		{Name: "ak4", Observable: "jet12ptave", Patterns: ak4Patterns, Mandatory: mandatory, Thresholds: ak4},
		{Name: "ak8", Observable: "jet12ptave", Patterns: []string{`^HLT_AK8PFJet[0-9]+_v[0-9]+$`}, Thresholds: ak8},
	})
	require.NoError(t, err)
	return e
}

// fakeSource serves a fixed trigger menu per run. Decisions are looked up by
// event number and given as fired path names.
type fakeSource struct {
	paths     map[weight.RunID][]string
	prescales map[weight.LumiID]int // same prescale for every path of a block
	fired     map[weight.EventID][]string
}

// defaultPaths is the versioned menu every test run lists unless overridden.
var defaultPaths = []string{"HLT_IsoMu24_v4", "HLT_PFJet60_v9", "HLT_PFJet80_v9", "HLT_AK8PFJet80_v3"}

func newFakeSource() *fakeSource {
	return &fakeSource{
		paths:     map[weight.RunID][]string{1: defaultPaths, 2: defaultPaths},
		prescales: map[weight.LumiID]int{},
		fired:     map[weight.EventID][]string{},
	}
}

func (s *fakeSource) PathNames(process string, run weight.RunID) []string {
	if process != testProcess {
		return nil
	}
	return s.paths[run]
}

func (s *fakeSource) Prescale(process string, run weight.RunID, lumi weight.LumiID, index int) int {
	if ps, ok := s.prescales[lumi]; ok {
		return ps
	}
	return 1
}

func (s *fakeSource) Decisions(process string, run weight.RunID, lumi weight.LumiID, event weight.EventID) []bool {
	names := s.PathNames(process, run)
	accept := make([]bool, len(names))
	for _, f := range s.fired[event] {
		for i, name := range names {
			if name == f {
				accept[i] = true
			}
		}
	}
	return accept
}

// newTestProducer returns a producer whose log output is captured by the returned hook.
func newTestProducer(e *weight.Engine, src DecisionSource) (*Producer, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewProducer(e, src, logrus.NewEntry(logger)), hook
}

func dataConfig() GlobalConfig {
	return GlobalConfig{IsData: true, HLTProcessName: testProcess}
}

func ptave(run weight.RunID, lumi weight.LumiID, number weight.EventID, v float64) Event {
	return Event{Run: run, Lumi: lumi, Number: number, Observables: map[string]float64{"jet12ptave": v}}
}

// warnings returns the messages logged at warning level.
func warnings(hook *logtest.Hook) []string {
	var msgs []string
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			msgs = append(msgs, entry.Message)
		}
	}
	return msgs
}
