// Package interfaces provides service interfaces for dependency injection.
package interfaces

import (
	"context"

	"github.com/ternarybob/crossquote/internal/models"
)

// Collector retrieves market data for one symbol from one upstream origin.
//
// Collect never panics or returns an error across its boundary: every
// failure (network, parse, timeout) is captured in the returned envelope
// with Success=false. LatencyMs is measured from call entry to return,
// inclusive of any internal retries. Invocations are independent and share
// no mutable state with other collectors.
type Collector interface {
	// Collect gathers a snapshot for the symbol.
	Collect(ctx context.Context, symbol string) *models.CollectionResult

	// Source identifies the collection path for reporting.
	Source() models.Source
}

// RecordCache is the short-TTL cache collaborator. It is consulted by the
// caller layer before orchestration; the collection core never touches it.
type RecordCache interface {
	// Get returns the cached unified record for a symbol, or (nil, false) on
	// a miss or expired entry.
	Get(ctx context.Context, symbol string) (*models.UnifiedRecord, bool)

	// Put stores a unified record under its symbol with the configured TTL.
	Put(ctx context.Context, symbol string, record *models.UnifiedRecord) error

	// Close releases the underlying store.
	Close() error
}

// MetricsRecorder is the metrics collaborator. The caller layer reports
// per-collector attempt facts and the reconciliation outcome after each
// collection; the core only exposes those facts on its return value.
type MetricsRecorder interface {
	// RecordAttempt reports one collector attempt.
	RecordAttempt(symbol string, source models.Source, success bool, latencyMs int64)

	// RecordOutcome reports a reconciliation outcome.
	RecordOutcome(symbol string, status models.ValidationStatus, confidence float64, conflicts int)
}
