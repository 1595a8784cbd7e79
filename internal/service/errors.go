package service

import "fmt"

// InvalidUploadError is a client error. Reason is safe to show to the caller.
type InvalidUploadError struct {
	Reason string
}

func (e *InvalidUploadError) Error() string {
	return e.Reason
}

func invalidUpload(format string, args ...interface{}) error {
	return &InvalidUploadError{Reason: fmt.Sprintf(format, args...)}
}

// ProcessingError wraps a failure while staging or classifying an upload.
// Only a generic message is shown to the caller.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
