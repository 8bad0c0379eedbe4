package telemetry

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrForbidden       = errors.New("not authorized to modify this session")

	// ErrInvalidInput wraps payload validation failures; the wrapped
	// *validation.RequestValidationError carries the field details.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorage marks database faults (failed insert, failed export
	// query) as opposed to problems with the request itself.
	ErrStorage = errors.New("storage failure")
)
