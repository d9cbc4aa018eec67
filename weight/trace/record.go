// Package trace provides per-event weight records and their summaries.
// It has no dependencies on weight/scope and stores pure data types.
package trace

// Record captures the weighting outcome of one event.
type Record struct {
	Run             uint32  `json:"run"`
	Lumi            uint32  `json:"lumi"`
	Event           uint64  `json:"event"`
	Weight          float64 `json:"weight"`
	TriggerWeight   float64 `json:"trigger_weight,omitempty"`
	StitchingWeight float64 `json:"stitching_weight,omitempty"`
	Family          string  `json:"family"`
	Path            int     `json:"path"` // -1 when no path owns the event
	PathName        string  `json:"path_name,omitempty"`
	Fired           bool    `json:"fired"`
	Active          bool    `json:"active"`
	Prescale        int     `json:"prescale,omitempty"`
	Observable      float64 `json:"observable"`
}
