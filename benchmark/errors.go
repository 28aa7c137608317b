package benchmark

import "github.com/pkg/errors"

// Error kinds. Match them with errors.Is.
var (
	// ErrConfiguration reports an invalid request: a bad metric for
	// comparison, a malformed override table or invalid run options.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation reports a parameter combination rejected by a filter.
	ErrValidation = errors.New("validation error")
	// ErrExecution reports a failure inside a measured pass.
	ErrExecution = errors.New("execution error")
	// ErrPersistence reports a failed save, load or export.
	ErrPersistence = errors.New("persistence error")
	// ErrInterrupted reports a run stopped by context cancellation.
	ErrInterrupted = errors.New("interrupted")

	// ErrAlreadyExists is returned when saving over an existing file without overwrite.
	ErrAlreadyExists error = &kindError{msg: "file already exists", kind: ErrPersistence}
	// ErrNotFound is returned when loading a missing file.
	ErrNotFound error = &kindError{msg: "file not found", kind: ErrPersistence}
	// ErrDecode is returned when a persisted document cannot be decoded.
	ErrDecode error = &kindError{msg: "decode failed", kind: ErrPersistence}
)

// kindError is a sentinel that also matches its broader kind.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
