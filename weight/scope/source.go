package scope

import "github.com/karma-hep/trigweight/weight"

// DecisionSource provides the trigger configuration and decisions recorded by
// the process named process. Path indices refer to positions in the list
// returned by PathNames for the same run. All reads are synchronous and
// implementations must be safe for concurrent readers.
type DecisionSource interface {
	// PathNames lists the (versioned) trigger path names of run in menu order.
	PathNames(process string, run weight.RunID) []string

	// Prescale returns the prescale of path index in luminosity block lumi.
	Prescale(process string, run weight.RunID, lumi weight.LumiID, index int) int

	// Decisions returns one accept flag per path index for event.
	Decisions(process string, run weight.RunID, lumi weight.LumiID, event weight.EventID) []bool
}

// LumiFilter selects the luminosity blocks to process.
type LumiFilter interface {
	Contains(run weight.RunID, lumi weight.LumiID) bool
}
