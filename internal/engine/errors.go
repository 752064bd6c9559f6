// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is; every EngineError matches the sentinel of its code.
var (
	ErrStructureMismatch = errors.New("structure mismatch")
	ErrNavigation        = errors.New("navigation failure")
	ErrSiteFailure       = errors.New("site failure")
	ErrInvalidDescriptor = errors.New("invalid site descriptor")
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	ErrCodeStructureMismatch ErrorCode = "STRUCTURE_MISMATCH"
	ErrCodeNavigation        ErrorCode = "NAVIGATION_FAILURE"
	ErrCodeSiteFailure       ErrorCode = "SITE_FAILURE"
	ErrCodeInvalidDescriptor ErrorCode = "INVALID_DESCRIPTOR"
)

var sentinels = map[ErrorCode]error{
	ErrCodeStructureMismatch: ErrStructureMismatch,
	ErrCodeNavigation:        ErrNavigation,
	ErrCodeSiteFailure:       ErrSiteFailure,
	ErrCodeInvalidDescriptor: ErrInvalidDescriptor,
}

// EngineError wraps errors with additional context
type EngineError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Details    map[string]interface{}
}

func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is matches another EngineError with the same code, the code's sentinel,
// or anything the underlying error matches.
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	if s, ok := sentinels[e.Code]; ok && s == target {
		return true
	}
	return errors.Is(e.Underlying, target)
}

// NewEngineError creates a new EngineError
func NewEngineError(code ErrorCode, message string, err error) *EngineError {
	return &EngineError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithDetail adds a detail to the error
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	e.Details[key] = value
	return e
}

// Code returns the code of the first EngineError in err's chain, or "".
func Code(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}
