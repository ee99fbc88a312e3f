// Package llm provides multimodal vision model providers and the API key
// rotation layered over them.
package llm

import (
	"fmt"
	"strings"
)

// IsRateLimitError checks if an error is a rate-limit-class provider error.
// Matches 429 status codes, quota markers, and RESOURCE_EXHAUSTED statuses.
// Only these errors justify trying a different API key; anything else is a
// request problem a new key cannot fix.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "resource_exhausted") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "too many requests")
}

// RateExhaustedError is returned when every configured API key was rejected
// with a rate-limit-class error.
type RateExhaustedError struct {
	Attempts int
}

func (e *RateExhaustedError) Error() string {
	return fmt.Sprintf("all %d vision API keys rate limited", e.Attempts)
}
