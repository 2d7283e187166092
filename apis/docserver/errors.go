package docserver

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("docserver: not found")
	ErrNoPages  = errors.New("docserver: document has no pages")
)

// HTTPError is a non-2xx answer from the document server
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string // truncated response body
	Reason     string // message of a JSON error body
}

func (e *HTTPError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: HTTP Status Code: %d: %s", e.Method, e.URL, e.StatusCode, e.Reason)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP Status Code: %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP Status Code: %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Is makes a 404 HTTPError match ErrNotFound
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}
