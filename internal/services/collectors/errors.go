// Package collectors implements the structured-API and vision collection
// paths behind the shared Collector contract.
package collectors

import "fmt"

// ErrorKind classifies a collection failure for the orchestrator and the
// metrics collaborator.
type ErrorKind string

const (
	// ErrKindNetworkTimeout is a deadline or connection failure; this source
	// failed this round, nothing is broken.
	ErrKindNetworkTimeout ErrorKind = "network-timeout"
	// ErrKindHTTP is a non-2xx upstream status. 429/5xx are transient;
	// other 4xx mean the request itself is wrong.
	ErrKindHTTP ErrorKind = "http-error"
	// ErrKindParse means the upstream payload or model response did not
	// match the expected shape; the provider likely changed format.
	ErrKindParse ErrorKind = "parse-error"
	// ErrKindNavigation means the page never reached a stable rendered
	// state within the page-load bound.
	ErrKindNavigation ErrorKind = "navigation-failure"
	// ErrKindRateLimited means every vision API key was quota-rejected.
	ErrKindRateLimited ErrorKind = "rate-limited"
)

// CollectError is a classified collection failure. Fatal marks failures
// that re-running would not fix (shape changes, bad requests); the
// orchestrator treats both the same way, but the distinction drives
// logging and alert severity downstream.
type CollectError struct {
	Kind      ErrorKind
	Fatal     bool
	RawPrefix string // first bytes of the offending payload, for diagnosis
	Err       error
}

func (e *CollectError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CollectError) Unwrap() error {
	return e.Err
}
