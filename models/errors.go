package models

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

var (
	ErrFeedNotFound      = NotFoundError{Resource: "feed"}
	ErrSleepNotFound     = NotFoundError{Resource: "sleep session"}
	ErrShareCodeNotFound = NotFoundError{Resource: "share code"}
)

// BackendError wraps a failed read or write against the document store.
// Callers may retry the whole operation.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Backend wraps err as a BackendError unless it is nil or already a domain error.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.Is(err, ErrNotFound) || errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrSleepAlreadyOpen     = errors.New("a sleep session is already open")
	ErrNoOpenSleep          = errors.New("no open sleep session")
	ErrShareCodeExhausted   = errors.New("could not allocate a unique share code")
	ErrPartialDelete        = errors.New("some records could not be deleted")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrExportDisabled       = errors.New("export is not configured")
)

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
