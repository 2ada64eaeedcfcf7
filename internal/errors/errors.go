package errors

import (
	"net/http"

	"github.com/go-playground/validator/v10"
)

// APIError is the error shape handlers push onto the gin context.
// Internal is kept out of the response body, it is for logging only.
type APIError struct {
	Status   int    `json:"-"`
	Message  string `json:"error"`
	Internal error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *APIError) Unwrap() error {
	return e.Internal
}

func New(status int, message string, internal error) *APIError {
	return &APIError{
		Status:   status,
		Message:  message,
		Internal: internal,
	}
}

func BadRequest(message string, err error) *APIError {
	return New(http.StatusBadRequest, message, err)
}

func Unauthorized(message string, err error) *APIError {
	return New(http.StatusUnauthorized, message, err)
}

func Forbidden(message string, err error) *APIError {
	return New(http.StatusForbidden, message, err)
}

func NotFound(message string, err error) *APIError {
	return New(http.StatusNotFound, message, err)
}

func Conflict(message string, err error) *APIError {
	return New(http.StatusConflict, message, err)
}

func UnprocessableEntity(message string, err error) *APIError {
	return New(http.StatusUnprocessableEntity, message, err)
}

func Internal(err error) *APIError {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// NewValidationError maps gin binding failures to 422 with the first
// offending field in the message.
func NewValidationError(err error) *APIError {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return UnprocessableEntity("Validation failed on field '"+verrs[0].Field()+"'", err)
	}
	return UnprocessableEntity("Validation failed", err)
}
