// Package lumimask reads certified luminosity-block lists ("golden JSON"):
//
//	{"273158": [[1, 1279]], "273302": [[1, 459], [461, 500]]}
//
// Keys are run numbers, values are inclusive luminosity-block ranges.
package lumimask

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/karma-hep/trigweight/weight"
)

// Range is an inclusive range of luminosity blocks.
type Range struct {
	First weight.LumiID
	Last  weight.LumiID
}

// Mask is an immutable set of certified (run, lumi) pairs.
type Mask struct {
	runs map[weight.RunID][]Range // sorted, non-overlapping
}

// Load reads a mask from a JSON file.
func Load(path string) (*Mask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lumi mask: %w", err)
	}
	return Parse(data)
}

// Parse decodes a mask from JSON.
func Parse(data []byte) (*Mask, error) {
	var raw map[string][][]uint32
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing lumi mask: %w", err)
	}
	m := &Mask{runs: make(map[weight.RunID][]Range, len(raw))}
	for key, pairs := range raw {
		run, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("lumi mask: run %q is not a number", key)
		}
		ranges := make([]Range, 0, len(pairs))
		for i, p := range pairs {
			if len(p) != 2 {
				return nil, fmt.Errorf("lumi mask: run %s range[%d]: want [first, last], got %v", key, i, p)
			}
			if p[0] > p[1] {
				return nil, fmt.Errorf("lumi mask: run %s range[%d]: first %d after last %d", key, i, p[0], p[1])
			}
			ranges = append(ranges, Range{First: weight.LumiID(p[0]), Last: weight.LumiID(p[1])})
		}
		sort.Slice(ranges, func(i, j int) bool { return ranges[i].First < ranges[j].First })
		for i := 1; i < len(ranges); i++ {
			if ranges[i].First <= ranges[i-1].Last {
				return nil, fmt.Errorf("lumi mask: run %s: ranges [%d, %d] and [%d, %d] overlap",
					key, ranges[i-1].First, ranges[i-1].Last, ranges[i].First, ranges[i].Last)
			}
		}
		m.runs[weight.RunID(run)] = ranges
	}
	return m, nil
}

// Contains reports whether lumi block lumi of run is certified.
func (m *Mask) Contains(run weight.RunID, lumi weight.LumiID) bool {
	ranges := m.runs[run]
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].Last >= lumi })
	return i < len(ranges) && ranges[i].First <= lumi
}
