package dto

import (
	"net/http"
	"time"

	"github.com/openveg/directory-service/internal/domain/apperr"
)

const (
	// ErrCodeInvalidRequest indicates a malformed request or identifier.
	ErrCodeInvalidRequest = "invalid_request"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"
	// ErrCodeNotFound indicates a resource or vote was not found.
	ErrCodeNotFound = "not_found"
	// ErrCodeConflict indicates a duplicate review or duplicate vote.
	ErrCodeConflict = "conflict"
	// ErrCodeRateLimit indicates rate limit exceeded.
	ErrCodeRateLimit = "rate_limit_exceeded"
	// ErrCodeTimeout indicates a request timeout.
	ErrCodeTimeout = "timeout"
)

// PageMeta describes one page of a listing result.
type PageMeta struct {
	Page  int   `json:"page" example:"1"`
	Limit int   `json:"limit" example:"10"`
	Total int64 `json:"total" example:"25"`
	Pages int   `json:"pages" example:"3"`
}

// Paginated wraps a page of results with its metadata.
type Paginated[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// ErrorResponse is the standardized error envelope for the API.
type ErrorResponse struct {
	Error     string    `json:"error" example:"conflict"`
	Message   string    `json:"message,omitempty" example:"user has already reviewed this entity"`
	RequestID string    `json:"request_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Timestamp time.Time `json:"timestamp" example:"2025-01-28T10:00:00Z"`
}

// NewError creates an ErrorResponse with the given code and message.
func NewError(code, message string) ErrorResponse {
	return ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithRequestID adds a request ID to the error response.
func (e ErrorResponse) WithRequestID(requestID string) ErrorResponse {
	e.RequestID = requestID
	return e
}

// StatusForError maps a classified error to an HTTP status code.
func StatusForError(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidArgument:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrCodeForError maps a classified error to its wire error code.
func ErrCodeForError(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidArgument:
		return ErrCodeInvalidRequest
	case apperr.KindNotFound:
		return ErrCodeNotFound
	case apperr.KindConflict:
		return ErrCodeConflict
	default:
		return ErrCodeInternal
	}
}
