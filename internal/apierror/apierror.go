// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Code is a stable machine-readable identifier; Contexto carries the values
// the caller needs to correct the request (crédito disponible, saldo actual).
type APIError struct {
	Detail   string            `json:"detail"`
	Code     string            `json:"code,omitempty"`
	Contexto map[string]string `json:"contexto,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// NewWithCode builds an error envelope with a machine-readable code and
// optional context values.
func NewWithCode(code, msg string, contexto map[string]string) *APIError {
	return &APIError{Detail: msg, Code: code, Contexto: contexto}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}
