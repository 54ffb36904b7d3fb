package pulse

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request, message or tool argument failed validation.
	ErrValidation = errors.New("validation error")

	// ErrUserNotFound indicates no account matched the requested identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnknownTool indicates the requested tool is not in the registry.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrNotConfigured indicates a required credential or endpoint is missing.
	ErrNotConfigured = errors.New("not configured")
)

// ErrorKind classifies a failure for callers and for the model.
type ErrorKind string

const (
	ErrorKindUserNotFound    ErrorKind = "user_not_found"
	ErrorKindAPI             ErrorKind = "api_error"
	ErrorKindUnknownFunction ErrorKind = "unknown_function"
	ErrorKindConfiguration   ErrorKind = "configuration_error"
	ErrorKindInternal        ErrorKind = "internal_error"
)

// KindOf maps err onto the error taxonomy. Errors that do not wrap one of the
// sentinels are treated as upstream API failures. A nil error has no kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserNotFound):
		return ErrorKindUserNotFound
	case errors.Is(err, ErrUnknownTool):
		return ErrorKindUnknownFunction
	case errors.Is(err, ErrNotConfigured):
		return ErrorKindConfiguration
	case errors.Is(err, ErrValidation):
		return ErrorKindInternal
	default:
		return ErrorKindAPI
	}
}
