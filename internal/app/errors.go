package app

import (
	"errors"
	"fmt"
)

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound           = errors.New("not found")
	ErrBoardNotFound      = errors.New("board not found")
	ErrNoBoardSelected    = errors.New("no board selected")
	ErrSuperseded         = errors.New("operation superseded by a newer request")
	ErrSubmitInFlight     = errors.New("submission already in flight")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("email and password are required")
)

// ValidationError reports a client-side input failure. It never reaches the
// remote service.
type ValidationError struct {
	Field string
	Err   error
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

// Unwrap exposes the underlying sentinel.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
