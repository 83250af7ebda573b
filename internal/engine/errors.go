package engine

import "errors"

// ErrNotFound is returned when a referenced task, edge, or note id does
// not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidArgument is returned for caller errors: self-dependencies,
// unknown statuses, inverted size bounds.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrCycle is returned when adding a dependency edge would close a cycle.
// The wrapped message carries both endpoint ids.
var ErrCycle = errors.New("cycle detected")
