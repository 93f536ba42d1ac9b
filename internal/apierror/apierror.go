// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

// ConflictError carries the rejected transition and, for stock checks, the
// products that would go negative.
type ConflictError struct {
	Detail    string      `json:"detail"`
	Shortages interface{} `json:"shortages,omitempty"`
}

func NewConflict(msg string, shortages interface{}) *ConflictError {
	return &ConflictError{Detail: msg, Shortages: shortages}
}
