package ocr

import (
	"errors"
	"fmt"
)

// Common OCR errors
var (
	// ErrUnknownEngine is returned by New for an engine name it does not know.
	ErrUnknownEngine = errors.New("unknown OCR engine")

	// ErrEngineUnavailable is returned when an engine cannot be initialized,
	// e.g. Tesseract language data is missing.
	ErrEngineUnavailable = errors.New("OCR engine unavailable")

	// ErrRecognitionFailed is returned when the engine fails on an image.
	ErrRecognitionFailed = errors.New("OCR recognition failed")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS is set and no default credentials are found.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")
)

// Error wraps an OCR failure with the operation that produced it.
type Error struct {
	// Op is the operation that failed (e.g., "Recognize", "NewVisionEngine").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the underlying error matches target.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates an Error for op.
func NewError(op string, err error, details string) *Error {
	return &Error{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapError wraps err as an *Error unless it already is one. A nil err
// returns nil.
func WrapError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *Error
	if errors.As(err, &ocrErr) {
		return err
	}

	return NewError(op, err, details)
}
