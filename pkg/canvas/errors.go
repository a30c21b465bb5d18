package canvas

import (
	"errors"
	"fmt"
)

// ValidationError reports input that was rejected before it reached the
// log. The relay drops the offending event and logs a notice; validation
// failures are terminal to the single request, never to the session.
type ValidationError struct {
	// Field is the rejected input field (e.g. "path", "content").
	Field string

	// Reason describes why the input was rejected.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
