package weight

import (
	"fmt"
	"regexp"
)

// PathID identifies a trigger path by its position in the period's path menu.
type PathID int

// NoActivePath is returned when no path owns an event (below all thresholds).
const NoActivePath PathID = -1

// MaxPaths is the width of DecisionBits.
const MaxPaths = 64

// versionSuffix matches the "_v<N>" suffix the trigger menu appends to path names.
var versionSuffix = regexp.MustCompile(`_v[0-9]+$`)

// BaseName strips the menu version suffix: "HLT_PFJet200_v5" -> "HLT_PFJet200".
func BaseName(name string) string {
	return versionSuffix.ReplaceAllString(name, "")
}

// Menu is the ordered list of trigger paths known for a run period.
// A path's PathID is its index in the menu.
type Menu struct {
	names []string
	index map[string]PathID
}

// NewMenu builds a menu from unversioned path names.
// Names must be unique and the menu must fit into DecisionBits.
func NewMenu(names []string) (*Menu, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: path menu is empty", ErrConfiguration)
	}
	if len(names) > MaxPaths {
		return nil, fmt.Errorf("%w: path menu has %d paths, at most %d supported", ErrConfiguration, len(names), MaxPaths)
	}
	m := &Menu{
		names: make([]string, len(names)),
		index: make(map[string]PathID, len(names)),
	}
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("%w: path[%d] has an empty name", ErrConfiguration, i)
		}
		if prev, dup := m.index[name]; dup {
			return nil, fmt.Errorf("%w: path %q listed twice (positions %d and %d)", ErrConfiguration, name, prev, i)
		}
		m.names[i] = name
		m.index[name] = PathID(i)
	}
	return m, nil
}

// Len returns the number of paths in the menu.
func (m *Menu) Len() int { return len(m.names) }

// Lookup returns the PathID for an unversioned name.
func (m *Menu) Lookup(name string) (PathID, bool) {
	id, ok := m.index[name]
	return id, ok
}

// Name returns the path name for id, or "" for unknown ids (including NoActivePath).
func (m *Menu) Name(id PathID) string {
	if id < 0 || int(id) >= len(m.names) {
		return ""
	}
	return m.names[id]
}

// Names returns a copy of the menu in PathID order.
func (m *Menu) Names() []string {
	return append([]string(nil), m.names...)
}

// DecisionBits holds one bit per menu path; bit i set means path i fired.
type DecisionBits uint64

// Has reports whether the bit for id is set. Out-of-range ids are never set.
func (b DecisionBits) Has(id PathID) bool {
	if id < 0 || id >= MaxPaths {
		return false
	}
	return b&(1<<uint(id)) != 0
}

// With returns b with the bit for id set. Out-of-range ids are ignored.
func (b DecisionBits) With(id PathID) DecisionBits {
	if id < 0 || id >= MaxPaths {
		return b
	}
	return b | 1<<uint(id)
}

// Any reports whether any path fired.
func (b DecisionBits) Any() bool { return b != 0 }
