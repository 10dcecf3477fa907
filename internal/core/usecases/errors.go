package usecases

import "errors"

var (
	// ErrEmptyPrompt is returned when a generation request has no user prompt.
	ErrEmptyPrompt = errors.New("user prompt is required")
	// ErrInvalidGeneration means the model answered but not with code,
	// explanation and context.
	ErrInvalidGeneration = errors.New("model response is not a valid script")
	// ErrUpstream wraps failures of the language model call itself.
	ErrUpstream = errors.New("language model request failed")

	ErrInvalidBorderQuery = errors.New("invalid border query")
	ErrRegionNotFound     = errors.New("could not find one or both regions")
	ErrNoSharedBorder     = errors.New("no shared border found between the regions")
	ErrBufferNotPolygon   = errors.New("failed to create buffer polygon")

	ErrEmptyCode       = errors.New("code is required")
	ErrSessionNotFound = errors.New("session not found")
)

// DetailError attaches diagnostic details to a sentinel error.
type DetailError struct {
	Err     error
	Details any
}

func (e *DetailError) Error() string { return e.Err.Error() }
func (e *DetailError) Unwrap() error { return e.Err }

func withDetails(err error, details any) error {
	return &DetailError{Err: err, Details: details}
}
