package ledger

import (
	"errors"
	"fmt"
)

// Error classes returned by the ledger. Match them with errors.Is.
var (
	// ErrValidation marks malformed or missing input. Not retriable.
	ErrValidation = errors.New("ledger: validation failed")

	// ErrNotFound marks a reference to a trade that does not exist.
	ErrNotFound = errors.New("ledger: not found")

	// ErrInvalidTransition marks an outcome update the trade lifecycle forbids.
	ErrInvalidTransition = errors.New("ledger: invalid transition")

	// ErrStorage marks an I/O, locking or corruption failure. Retriable by caller policy.
	ErrStorage = errors.New("ledger: storage failure")

	// ErrConcurrentUpdate is a storage failure raised when another writer
	// changed the trade between read and update.
	ErrConcurrentUpdate = errors.New("ledger: concurrent update")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ledger: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransitionError describes a refused outcome update.
type TransitionError struct {
	TradeID uint
	From    string
	To      string
	Field   string // set when a one-time field was already resolved to another value
}

func (e *TransitionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("ledger: trade %d: %s already set", e.TradeID, e.Field)
	}
	return fmt.Sprintf("ledger: trade %d: cannot move from %s to %s", e.TradeID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// StorageError wraps a failure of the underlying database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Retriable reports whether the caller may retry the operation.
func (e *StorageError) Retriable() bool { return true }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// class labels an error for metrics.
func class(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "storage"
	}
}
