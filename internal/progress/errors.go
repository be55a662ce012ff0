package progress

import (
	"errors"
	"fmt"
)

// ErrInvalidEvent is returned when a completion event falls outside the
// accepted input domain. No store call is made in that case.
var ErrInvalidEvent = errors.New("invalid completion event")

// PersistenceError wraps any failure of the progress store.
type PersistenceError struct {
	Op  string // read, upsert, increment or delete
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("progress %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistenceError reports whether err is or wraps a *PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
