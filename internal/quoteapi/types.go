// Package quoteapi provides a client for the structured quote/analytics API.
// This package centralizes all quote API interactions for the application.
package quoteapi

import (
	"fmt"
	"time"
)

// APIError represents a non-2xx response from the quote API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quote API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Transient reports whether the failure is worth treating as "this source
// failed this round" rather than a provider contract break. 429 and 5xx are
// transient; other 4xx indicate a request the provider will never accept.
func (e *APIError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// RateLimitError represents a client-side rate limit rejection.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("quote API rate limit exceeded, retry after %v", e.RetryAfter)
}
