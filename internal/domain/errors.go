package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
	ErrObjectExists = errors.New("object already exists")
)

// BackendError is returned by ImageBackend implementations when the remote
// procedure itself rejects a call. Details carries any extra diagnostic text
// the backend supplied, such as remaining foreign-key references.
type BackendError struct {
	Message string
	Details string
}

func (e *BackendError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + " (" + e.Details + ")"
}
