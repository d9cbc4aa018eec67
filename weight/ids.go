package weight

// RunID identifies a data-taking run.
type RunID uint32

// LumiID identifies a luminosity block within a run.
type LumiID uint32

// EventID identifies an event within a run.
type EventID uint64
