// Package retry classifies backend failures and drives bounded,
// category-specific backoff for the operations that may be re-issued.
package retry

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"
)

// Category buckets every possible failure into exactly one class.
type Category string

const (
	CategoryNetwork        Category = "network"
	CategoryAuthentication Category = "authentication"
	CategoryValidation     Category = "validation"
	CategoryPayment        Category = "payment"
	CategoryGeneration     Category = "generation"
	CategoryRateLimit      Category = "rate_limit"
	CategoryServer         Category = "server"
	CategoryUnknown        Category = "unknown"
)

// statusCoder is implemented by errors that carry an HTTP status code
// (api.Error does).
type statusCoder interface {
	HTTPStatus() int
}

// Categorize maps an error to its category. It is total: any error shape,
// including nil, maps to something, defaulting to unknown.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch code := sc.HTTPStatus(); {
		case code == 401 || code == 403:
			return CategoryAuthentication
		case code == 400 || code == 422:
			return CategoryValidation
		case code == 402:
			return CategoryPayment
		case code == 429:
			return CategoryRateLimit
		case code >= 500:
			return CategoryServer
		default:
			return CategoryUnknown
		}
	}

	// No HTTP response at all: transport-level failure.
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) ||
		errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}

	return CategoryUnknown
}

// Retryable reports whether an error's category is transient.
func Retryable(err error) bool {
	switch Categorize(err) {
	case CategoryNetwork, CategoryRateLimit, CategoryServer:
		return true
	default:
		return false
	}
}

// Delay returns how long to wait before the next attempt. attempt is
// zero-based: the wait before the first retry uses attempt 0.
func Delay(err error, attempt int) time.Duration {
	switch Categorize(err) {
	case CategoryNetwork:
		return 1 * time.Second
	case CategoryRateLimit:
		d := 2 * time.Second << uint(attempt)
		if d > 8*time.Second {
			d = 8 * time.Second
		}
		return d
	case CategoryServer:
		return 5 * time.Second
	default:
		return 1 * time.Second
	}
}

// Message returns the fixed, user-facing message for a category. Technical
// detail stays on the error itself for diagnostics.
func Message(cat Category) string {
	switch cat {
	case CategoryNetwork:
		return "Connection problem. Check your network and try again."
	case CategoryAuthentication:
		return "Your session has expired. Please sign in again."
	case CategoryValidation:
		return "Something in the request looks wrong. Review the form and retry."
	case CategoryPayment:
		return "Not enough credits to generate. Add tokens or subscribe."
	case CategoryGeneration:
		return "The design could not be generated. Try a different style or area."
	case CategoryRateLimit:
		return "Too many requests right now. Wait a moment and retry."
	case CategoryServer:
		return "The service hit a problem on our side. Try again shortly."
	default:
		return "Something unexpected went wrong. Try again."
	}
}

// Suggestions returns recovery steps for a category, user-facing.
func Suggestions(cat Category) []string {
	switch cat {
	case CategoryNetwork:
		return []string{"Check your internet connection", "Retry in a few seconds"}
	case CategoryAuthentication:
		return []string{"Sign in again"}
	case CategoryValidation:
		return []string{"Check the address and selected areas", "Remove custom prompts and retry"}
	case CategoryPayment:
		return []string{"Purchase tokens", "Start a subscription", "Use holiday credits if available"}
	case CategoryRateLimit:
		return []string{"Wait a minute before retrying"}
	case CategoryServer:
		return []string{"Retry shortly", "Contact support if the problem persists"}
	default:
		return []string{"Retry", "Contact support if the problem persists"}
	}
}
