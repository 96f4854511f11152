package api

import "net/http"

// Error represents an API error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeBadRequest = "BAD_REQUEST"
)

// ErrNotFound is the response for unmatched routes.
var ErrNotFound = &Error{
	Code:    ErrCodeNotFound,
	Message: "Resource not found",
	Status:  http.StatusNotFound,
}
