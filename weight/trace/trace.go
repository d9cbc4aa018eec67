package trace

import (
	"encoding/json"
	"fmt"
	"io"
)

// Level controls which records are kept.
type Level string

const (
	// LevelNone keeps no per-event records (summary counters only).
	LevelNone Level = "none"
	// LevelEvents keeps one record per weighted event.
	LevelEvents Level = "events"
)

// WeightTrace collects event records of one stream.
type WeightTrace struct {
	Level   Level
	Records []Record
	summary accumulator
}

// NewWeightTrace creates a WeightTrace ready for recording.
func NewWeightTrace(level Level) *WeightTrace {
	return &WeightTrace{Level: level, Records: make([]Record, 0)}
}

// Add accounts for r in the summary and keeps it if the level asks for records.
func (wt *WeightTrace) Add(r Record) {
	wt.summary.add(r)
	if wt.Level == LevelEvents {
		wt.Records = append(wt.Records, r)
	}
}

// Merge appends other's records and counters to wt. Streams are merged in
// a fixed order so the combined output is deterministic.
func (wt *WeightTrace) Merge(other *WeightTrace) {
	if other == nil {
		return
	}
	wt.Records = append(wt.Records, other.Records...)
	wt.summary.merge(&other.summary)
}

// WriteJSONLines writes one JSON object per record.
func (wt *WeightTrace) WriteJSONLines(w io.Writer) error {
	enc := json.NewEncoder(w)
	for i, r := range wt.Records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	return nil
}
