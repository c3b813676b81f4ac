package library

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the services. Callers branch with
// errors.Is; none of them wrap driver-specific error types.
var (
	// ErrNotFound is returned by lookups when no row matches.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique constraint rejects an
	// insert or update (duplicate ISBN, duplicate national id).
	ErrDuplicate = errors.New("duplicate key")

	// ErrHasActiveLoans blocks deletion of a book or borrower that
	// still has an open loan.
	ErrHasActiveLoans = errors.New("entity has active loans")

	// ErrDuplicateActiveLoan blocks issuing a second open loan for the
	// same book and borrower pair.
	ErrDuplicateActiveLoan = errors.New("borrower already holds an open loan for this book")

	// ErrNoCopiesAvailable blocks issuing a loan when every copy of the
	// book is already out.
	ErrNoCopiesAvailable = errors.New("no copies available")

	// ErrLoanClosed is returned when closing a loan that was already
	// closed. A closed loan is terminal.
	ErrLoanClosed = errors.New("loan already closed")

	// ErrStorage wraps store-level failures that map to no other
	// sentinel. The driver's message is kept; its error type is not.
	ErrStorage = errors.New("storage failure")
)

// ValidationError reports a rejected input field. Validation runs once,
// at the service entry point of each mutating operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
