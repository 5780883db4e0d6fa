package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every store implementation. The entity-specific
// wrappers carry their generic sentinel in the chain, so callers can match
// the broad category or the exact entity.
var (
	// ErrNotFound is the broad "no such entity" category.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is the broad "already exists" category.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity marks writes rejected by database constraints.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrSchemeNotFound reports a missing scheme row.
	ErrSchemeNotFound = fmt.Errorf("%w: scheme", ErrNotFound)

	// ErrTaskNotFound reports a missing speech task row.
	ErrTaskNotFound = fmt.Errorf("%w: speech task", ErrNotFound)

	// ErrPendingTaskExists reports a pending task already occupying a
	// (scheme, index, segment key) slot. The partial unique index on
	// pending tasks backs the same rule in the schema.
	ErrPendingTaskExists = fmt.Errorf("%w: pending task", ErrDuplicate)
)

// IsNotFoundError reports whether err is ErrNotFound or one of its
// entity-specific wrappers.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is ErrDuplicate or one of its
// entity-specific wrappers.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError wraps a low-level database failure with the entity and
// operation it interrupted. errors.Is and errors.As reach through it to the
// underlying error.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v",
			e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError builds a StoreError around err.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
