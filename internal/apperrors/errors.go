package apperrors

import (
	"errors"
	"fmt"
)

// UpstreamError carries the detail reported by an external provider
// (email delivery, geocoding, text polishing) so it can be surfaced to the caller.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Detail     string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap returns the wrapped error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUpstream) match every UpstreamError.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// NewUpstream builds an UpstreamError for the given provider.
func NewUpstream(provider string, statusCode int, detail string, err error) error {
	if err == nil {
		err = errors.New("unexpected response")
	}
	return &UpstreamError{Provider: provider, StatusCode: statusCode, Detail: detail, Err: err}
}

// --- Standard Error Definitions ---

// These sentinel errors define common application-level error conditions.
// They are checked with errors.Is at the request boundary.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates failure during data validation.
	ErrValidation = errors.New("validation failed")
	// ErrDatabase indicates a general database interaction error.
	ErrDatabase = errors.New("database error")
	// ErrUnauthorized indicates an authentication failure.
	ErrUnauthorized = errors.New("unauthorized access")
	// ErrDuplicate indicates a conflict due to duplicate data (e.g., unique constraint).
	ErrDuplicate = errors.New("duplicate resource")
	// ErrConflict indicates a general conflict state.
	ErrConflict = errors.New("resource conflict")
	// ErrBadRequest indicates a malformed request from the client/caller.
	ErrBadRequest = errors.New("bad request")
	// ErrUpstream indicates an external provider failed or answered with an unexpected shape.
	ErrUpstream = errors.New("upstream provider error")
	// ErrSignature indicates a webhook signature did not verify.
	ErrSignature = errors.New("invalid signature")
	// ErrNotConfigured indicates an optional integration has no credentials.
	ErrNotConfigured = errors.New("integration not configured")
)

// --- Helper functions for checking ---

// IsNotFoundError checks if the error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if the error is or wraps ErrValidation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDatabaseError checks if the error is or wraps ErrDatabase.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsUnauthorizedError checks if the error is or wraps ErrUnauthorized.
func IsUnauthorizedError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsDuplicateError checks if the error is or wraps ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsBadRequestError checks if the error is or wraps ErrBadRequest.
func IsBadRequestError(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// IsUpstreamError checks if the error is or wraps ErrUpstream.
func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsSignatureError checks if the error is or wraps ErrSignature.
func IsSignatureError(err error) bool {
	return errors.Is(err, ErrSignature)
}

// AsUpstream extracts the UpstreamError from the chain, if any.
func AsUpstream(err error) (*UpstreamError, bool) {
	var target *UpstreamError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
