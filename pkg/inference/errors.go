package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors for common conditions.
var (
	// ErrNoAPIKey is returned when the credential is missing.
	ErrNoAPIKey = errors.New("inference: API key required")

	// ErrNoModel is returned when model is required but missing.
	ErrNoModel = errors.New("inference: model required")

	// ErrEmptyResponse is returned when the service answers without usable text.
	ErrEmptyResponse = errors.New("inference: empty response")

	// ErrProviderUnavailable is returned when no providers are available.
	ErrProviderUnavailable = errors.New("inference: provider unavailable")
)

// APIError represents an error response from an inference API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Code is the error code (if provided), e.g. "insufficient_quota".
	Code string

	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("inference [%s]: API error %d (%s): %s",
			e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("inference [%s]: API error %d: %s",
		e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429 && !e.IsQuotaExceeded()
}

// IsQuotaExceeded returns true when the account has no remaining quota.
// The service reports this as a 429 with a distinct code.
func (e *APIError) IsQuotaExceeded() bool {
	return e.Code == "insufficient_quota"
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// Reason classifies why a remote call failed. It is diagnostic only; every
// reason leads to the same canned answer.
type Reason string

// Failure reasons.
const (
	ReasonNone               Reason = ""
	ReasonMissingCredentials Reason = "missing_credentials"
	ReasonRateLimited        Reason = "rate_limited"
	ReasonQuotaExceeded      Reason = "quota_exceeded"
	ReasonUnauthorized       Reason = "unauthorized"
	ReasonServer             Reason = "server_error"
	ReasonNetwork            Reason = "network"
	ReasonTimeout            Reason = "timeout"
	ReasonMalformed          Reason = "malformed_response"
	ReasonOther              Reason = "other"
)

// Classify maps an error from a Provider to a Reason.
func Classify(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	if errors.Is(err, ErrNoAPIKey) {
		return ReasonMissingCredentials
	}
	if errors.Is(err, ErrEmptyResponse) {
		return ReasonMalformed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsQuotaExceeded():
			return ReasonQuotaExceeded
		case apiErr.IsRateLimited():
			return ReasonRateLimited
		case apiErr.IsUnauthorized():
			return ReasonUnauthorized
		case apiErr.IsServerError():
			return ReasonServer
		}
		return ReasonOther
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ReasonTimeout
		}
		return ReasonNetwork
	}
	if strings.Contains(err.Error(), "connection refused") {
		return ReasonNetwork
	}
	return ReasonOther
}
