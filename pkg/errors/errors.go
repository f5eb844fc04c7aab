package errors

import (
	"fmt"
	"net/http"
)

// StandardError represents a standardized error response
type StandardError struct {
	Code    string `json:"error"`   // Error code/type (e.g., "InvalidRequest", "BatchNotFound")
	Message string `json:"message"` // Human-readable error message
	Details string `json:"details"` // Additional details (field name, offending batch, etc.)
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case "InvalidRequest", "ValidationError", "InvalidTransfer", "InsufficientQuantity", "PriceBelowFloor":
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusUnauthorized
	case "Forbidden":
		return http.StatusForbidden
	case "BatchNotFound", "DraftNotFound", "ResourceNotFound":
		return http.StatusNotFound
	case "DuplicateItem", "Conflict", "StaleSelection", "SubmissionInFlight", "InvalidState":
		return http.StatusConflict
	case "UpstreamError":
		return http.StatusBadGateway
	case "BrokerConnectionError", "ServiceUnavailable", "QuoteUnavailable":
		return http.StatusServiceUnavailable
	case "SerializationError", "DatabaseError", "InternalError":
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewStandardError creates a new StandardError
func NewStandardError(errorCode, message, details string) *StandardError {
	return &StandardError{
		Code:    errorCode,
		Message: message,
		Details: details,
	}
}

// Common error constructors
func NewInvalidRequest(message, details string) *StandardError {
	return NewStandardError("InvalidRequest", message, details)
}

func NewValidationError(message, field string) *StandardError {
	return NewStandardError("ValidationError", message, fmt.Sprintf("Field: %s", field))
}

func NewBatchNotFound(batchID string) *StandardError {
	return NewStandardError("BatchNotFound", "batch not found", fmt.Sprintf("Batch ID: %s", batchID))
}

func NewDraftNotFound(draftID string) *StandardError {
	return NewStandardError("DraftNotFound", "composition draft not found", fmt.Sprintf("Draft ID: %s", draftID))
}

func NewInsufficientQuantity(available, requested int) *StandardError {
	return NewStandardError("InsufficientQuantity", "insufficient quantity in source status",
		fmt.Sprintf("Available: %d, Requested: %d", available, requested))
}

func NewPriceBelowFloor(floor, price string) *StandardError {
	return NewStandardError("PriceBelowFloor", "sale price is below the batch base price",
		fmt.Sprintf("Floor: %s, Price: %s", floor, price))
}

func NewInvalidState(message, state string) *StandardError {
	return NewStandardError("InvalidState", message, fmt.Sprintf("State: %s", state))
}

func NewSerializationError(err error) *StandardError {
	return NewStandardError("SerializationError", "failed to serialize data", err.Error())
}

func NewDatabaseError(operation string, err error) *StandardError {
	return NewStandardError("DatabaseError", fmt.Sprintf("database operation failed: %s", operation), err.Error())
}

func NewBrokerConnectionError(err error) *StandardError {
	return NewStandardError("BrokerConnectionError", "failed to connect to event broker", err.Error())
}

func NewInternalError(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewStandardError("InternalError", message, details)
}
