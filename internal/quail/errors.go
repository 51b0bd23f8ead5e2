package quail

import (
	"errors"
	"fmt"
)

// APIError is a failure reported by the Quail API, either through the
// response envelope or the HTTP status.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("quail: api error %d (http %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("quail: http %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is an API error for a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
