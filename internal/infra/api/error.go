package api

import "fmt"

// Error is an HTTP-level failure from the backend. The raw body is kept
// for diagnostics; user-facing text comes from the retry classifier.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api: http %d", e.StatusCode)
	}
	return fmt.Sprintf("api: http %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus exposes the status code to the error classifier.
func (e *Error) HTTPStatus() int {
	return e.StatusCode
}
