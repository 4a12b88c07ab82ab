package character

import "fmt"

// Error wraps a failed GitHub interaction. Status is the HTTP status code
// when the API answered, or 0 for transport failures.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("character: %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("character: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
