package fields

import (
	"errors"
	"fmt"
)

// UnknownFieldError indicates a request for a field name that is not part
// of the catalog.
type UnknownFieldError struct {
	// Name is the field name that was requested.
	Name string
}

// Error implements the error interface.
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field: %s", e.Name)
}

// IsUnknownField returns true if the error is an UnknownFieldError.
func IsUnknownField(err error) bool {
	var e *UnknownFieldError
	return errors.As(err, &e)
}
