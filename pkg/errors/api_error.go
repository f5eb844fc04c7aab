package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Machine-readable codes returned by the inventory API.
const (
	CodeEmailExists     = "EMAIL_EXISTS"
	CodeValidationError = "VALIDATION_ERROR"
	CodeConflict        = "CONFLICT"
	CodeBadRequest      = "BAD_REQUEST"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeSlugTaken       = "SLUG_TAKEN"
	CodeInternal        = "INTERNAL_ERROR"
)

// APIError is an error body decoded from the inventory API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("api error %d: %s: %s", e.Status, e.Code, e.Message)
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// FromAPIError converts a backend error into the response body of this
// service: a localized message, with the backend code and its own message
// verbatim in Details.
func FromAPIError(err *APIError, lang string) *StandardError {
	code := "UpstreamError"
	switch {
	case err.Code == CodeValidationError || err.Code == CodeBadRequest:
		code = "InvalidRequest"
	case err.Code == CodeConflict || err.Code == CodeEmailExists || err.Code == CodeSlugTaken:
		code = "Conflict"
	case err.Code == CodeNotFound || err.Status == http.StatusNotFound:
		code = "ResourceNotFound"
	case err.Code == CodeForbidden || err.Status == http.StatusForbidden:
		code = "Forbidden"
	case err.Code == CodeUnauthorized || err.Status == http.StatusUnauthorized:
		code = "Unauthorized"
	}
	details := fmt.Sprintf("Code: %s", err.Code)
	if err.Message != "" {
		details += ", Upstream: " + err.Message
	}
	return NewStandardError(code, Localize(err.Code, lang), details)
}
