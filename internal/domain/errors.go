package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique constraint rejects a write.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthorized means the caller carries no valid identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the identity lacks the role for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotEligible rejects a review without a completed result, or a second review.
	ErrNotEligible = errors.New("not eligible to review this item")
	// ErrInvalidTransition rejects a status change the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports malformed input. Fields names the offending
// request fields; IDs lists catalog ids that do not exist.
type ValidationError struct {
	Msg    string
	Fields []string
	IDs    []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " (fields: %s)", strings.Join(e.Fields, ", "))
	}
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, " (unknown ids: %s)", strings.Join(e.IDs, ", "))
	}
	return b.String()
}

// NewValidationError builds a ValidationError for the given fields.
func NewValidationError(msg string, fields ...string) *ValidationError {
	return &ValidationError{Msg: msg, Fields: fields}
}

// UnknownItemsError lists catalog ids that could not be resolved.
func UnknownItemsError(ids []string) *ValidationError {
	return &ValidationError{Msg: "unknown catalog items", Fields: []string{"items"}, IDs: ids}
}

// AsValidation unwraps err into a ValidationError when it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
