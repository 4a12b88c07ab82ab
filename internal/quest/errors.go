package quest

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a quest name is not in the registry.
var ErrNotFound = errors.New("quest not found")

// LoadError reports that saved progress could not be loaded: the stored
// version fails the compatibility check, or the serialized data is malformed.
// It is fatal to the current operation; the engine never repairs a record.
type LoadError struct {
	Quest string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load quest %s: %v", e.Quest, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// DefinitionError reports a structural defect in a quest definition: a cycle,
// a child referencing a missing stage, or a duplicate name at registration.
// These are caught before any stage executes.
type DefinitionError struct {
	Quest  string
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid quest definition %s: %s", e.Quest, e.Reason)
}
