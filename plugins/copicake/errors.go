package copicake

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidRequest is wrapped by every validation failure raised before a
// request is sent.
var ErrInvalidRequest = errors.New("copicake: invalid request")

// RemoteError is a non-2xx response from the API.
type RemoteError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("copicake: %s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Temporary reports whether repeating the call later could succeed.
func (e *RemoteError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsRemoteError reports whether err is, or wraps, a RemoteError.
func IsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
