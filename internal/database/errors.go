package database

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup target does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when the conditional insert into
	// users_by_email loses the uniqueness race.
	ErrEmailTaken = errors.New("email already registered")
)

// TransientError wraps a store failure that the caller may retry: timeouts,
// unavailable replicas, or a grouped write whose outcome is unknown. Retrying
// is only safe in full for creation writes; see the repository method docs.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient store failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable store failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
