package contentful

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound matches any request that failed with a 404.
	ErrNotFound = errors.New("contentful: not found")
	// ErrVersionConflict matches writes rejected because the presented
	// version was stale, or because no version was known at all.
	ErrVersionConflict = errors.New("contentful: version conflict")
)

// RequestFailedError is a non-success response from the management API.
type RequestFailedError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("contentful request failed (%d) %s %s: %s", e.StatusCode, e.Method, e.Path, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *RequestFailedError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// VersionConflictError is a write that presented the wrong version for
// resource ID.
type VersionConflictError struct {
	Method  string
	Path    string
	ID      string
	Version int
	Body    string
}

func (e *VersionConflictError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("contentful version conflict on %s (version %d)", e.ID, e.Version)
	}
	return fmt.Sprintf("contentful version conflict (409) %s %s (version %d): %s", e.Method, e.Path, e.Version, e.Body)
}

func (e *VersionConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// IsNotFound reports whether err is a 404 from the management API.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
