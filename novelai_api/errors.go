package novelai_api

import "fmt"

// APIError is a failure the user can act on: a rejected request, an upstream
// error response or an unusable response body. Status carries the HTTP code
// when one applies, 0 otherwise.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func newAPIError(status int, format string, args ...any) *APIError {
	return &APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}
