package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrStorageUnavailable signals that the local durable store could not be
// opened or accessed. Fatal in terminal mode, retried in hosted mode.
var ErrStorageUnavailable = errors.New("local storage unavailable")

// ValidationError is raised before any write is attempted; no partial state
// is ever committed for a failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
