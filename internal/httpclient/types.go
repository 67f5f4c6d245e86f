package httpclient

import "fmt"

// HTTPError is returned for any response with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
	// Body is the start of the response body
	Body []byte
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string, body []byte) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
		Body:       body,
	}
}
