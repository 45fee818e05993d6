package gmail

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// APIError is a non-2xx response from the Gmail API.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	// Body is the raw response body.
	Body string
	// Message is Google's error message when the body carried one.
	Message string

	cause *googleapi.Error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("gmail api %s %s: %d %s", e.Method, e.URL, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	if e.cause == nil {
		return nil
	}
	return e.cause
}

// RequestError is a transport failure: DNS, connection, TLS, cancellation.
type RequestError struct {
	Method string
	URL    string
	Cause  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("gmail request %s %s: %v", e.Method, e.URL, e.Cause)
}

func (e *RequestError) Unwrap() error { return e.Cause }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 that survived the refresh retry.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}
