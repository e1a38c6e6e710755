package core

import "github.com/pkg/errors"

// FieldError pins a failure to one input field. The API error handler
// renders a slice of these as the {"field": "message"} body clients expect
// on 400 responses.
type FieldError struct {
	Field string
	Error string
}

// ValidationError marks a client-caused failure (bad login, duplicate
// bucket number, unknown expense category). Without Fields the message is
// returned as a plain {"error": ...} body.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

// NewShutdownError signals the server loop that the process is no longer
// healthy and should stop gracefully.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
