// Package upstream normalizes failures from model and embedding APIs into a
// small taxonomy the ingestion and sweep paths can act on.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	dErrors "rostersync/pkg/domain-errors"
	"rostersync/pkg/platform/sentinel"
)

// Category is the normalized failure taxonomy.
type Category string

const (
	// CategoryTimeout: the call exceeded its deadline
	CategoryTimeout Category = "timeout"

	// CategoryOutage: the provider is down or returned 5xx
	CategoryOutage Category = "provider_outage"

	// CategoryRateLimited: 429 from the provider
	CategoryRateLimited Category = "rate_limited"

	// CategoryMalformedOutput: the response did not match the expected schema
	CategoryMalformedOutput Category = "malformed_output"

	// CategoryAuthentication: bad or missing credentials
	CategoryAuthentication Category = "authentication"

	// CategoryBadRequest: the provider rejected the request itself
	CategoryBadRequest Category = "bad_request"

	// CategoryCanceled: the caller gave up before the provider answered
	CategoryCanceled Category = "canceled"
)

// Error wraps a provider failure with its category.
type Error struct {
	Category   Category
	Provider   string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("upstream %s [%s]: %s: %v", e.Provider, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("upstream %s [%s]: %s", e.Provider, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// New creates a categorized error. Timeouts, outages and rate limits are retryable.
func New(category Category, provider, message string, underlying error) *Error {
	retryable := category == CategoryTimeout ||
		category == CategoryOutage ||
		category == CategoryRateLimited

	return &Error{
		Category:   category,
		Provider:   provider,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// Malformed reports output that failed schema validation.
func Malformed(provider, message string) *Error {
	return New(CategoryMalformedOutput, provider, message, nil)
}

// FromStatus categorizes a non-2xx HTTP response.
func FromStatus(provider string, status int, body string) *Error {
	msg := fmt.Sprintf("status %d: %s", status, truncate(body, 200))
	switch {
	case status == http.StatusTooManyRequests:
		return New(CategoryRateLimited, provider, msg, nil)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return New(CategoryTimeout, provider, msg, nil)
	case status >= 500:
		return New(CategoryOutage, provider, msg, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return New(CategoryAuthentication, provider, msg, nil)
	default:
		return New(CategoryBadRequest, provider, msg, nil)
	}
}

// FromTransport categorizes an error returned before any response arrived.
// Cancellation is the caller's doing and says nothing about the provider.
func FromTransport(provider string, err error) *Error {
	if errors.Is(err, context.Canceled) {
		return New(CategoryCanceled, provider, "request canceled", err)
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return New(CategoryTimeout, provider, "request timed out", err)
	}
	return New(CategoryOutage, provider, "request failed", err)
}

// IsRetryable reports whether err is a retryable upstream failure.
func IsRetryable(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return errors.Is(err, sentinel.ErrUnavailable)
}

// IsMalformed reports whether err is a schema violation in provider output.
func IsMalformed(err error) bool {
	return CategoryOf(err) == CategoryMalformedOutput
}

// CategoryOf extracts the category, or "" for non-upstream errors.
func CategoryOf(err error) Category {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Category
	}
	return ""
}

// ToDomain translates an upstream failure into a coded domain error.
func ToDomain(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch {
	case IsMalformed(err):
		return dErrors.Wrap(err, dErrors.CodeMalformedOutput, msg)
	case CategoryOf(err) == CategoryTimeout, errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	case IsRetryable(err):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
