package weight

import "errors"

var (
	// ErrConfiguration marks a malformed table or period configuration. Fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrOrdering marks a scope transition or event delivered out of order. Fatal.
	ErrOrdering = errors.New("ordering violation")

	// ErrUnresolvedPattern marks a path-name pattern that matched nothing in a run.
	// Only fatal for mandatory families; otherwise logged and the family is inactive.
	ErrUnresolvedPattern = errors.New("unresolved path pattern")
)
