// Package orchestrator runs both collection paths concurrently and hands the
// settled results to the reconciler.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/common"
	"github.com/ternarybob/crossquote/internal/interfaces"
	"github.com/ternarybob/crossquote/internal/models"
	"github.com/ternarybob/crossquote/internal/services/reconcile"
)

// ErrAllSourcesFailed is returned when no collector produced data for a
// symbol. The wrapping error carries the per-source failure details.
var ErrAllSourcesFailed = errors.New("all sources failed")

// ErrUnknownSource is returned when a diagnostic request names a source this
// orchestrator has no collector for.
var ErrUnknownSource = errors.New("unknown source")

// AllSourcesError is the error returned when no collector produced data. It
// carries the per-source outcomes so callers can still report each attempt,
// and unwraps to ErrAllSourcesFailed.
type AllSourcesError struct {
	Symbol   string
	Outcomes []models.SourceOutcome
}

func (e *AllSourcesError) Error() string {
	detail := ""
	for _, outcome := range e.Outcomes {
		detail += fmt.Sprintf(" %s: %s;", outcome.Source, outcome.Error)
	}
	return fmt.Sprintf("%s for %s:%s", ErrAllSourcesFailed, e.Symbol, detail)
}

func (e *AllSourcesError) Unwrap() error { return ErrAllSourcesFailed }

// Orchestrator fans a collection request out to every configured collector,
// waits for all of them to settle, and reconciles whatever came back. One
// slow or failing path never blocks the other beyond its own timeout.
type Orchestrator struct {
	collectors []interfaces.Collector
	timeouts   map[models.Source]time.Duration
	reconciler *reconcile.Reconciler
	logger     arbor.ILogger
}

func New(config common.OrchestratorConfig, reconciler *reconcile.Reconciler, logger arbor.ILogger, collectors ...interfaces.Collector) *Orchestrator {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Orchestrator{
		collectors: collectors,
		timeouts: map[models.Source]time.Duration{
			models.SourceStructured: common.Duration(config.StructuredTimeout, 15*time.Second),
			models.SourceVision:     common.Duration(config.VisionTimeout, 90*time.Second),
		},
		reconciler: reconciler,
		logger:     logger,
	}
}

// Collect gathers the symbol from every collector concurrently and returns
// the reconciled record. It fails only when every source failed; a partial
// outcome is a success with a single-source validation status.
func (o *Orchestrator) Collect(ctx context.Context, symbol string) (*models.UnifiedRecord, error) {
	results := o.fanOut(ctx, symbol, o.collectors)
	return o.settle(symbol, results)
}

// CollectFrom runs exactly one collection path, for diagnostic requests that
// pin a source. The result still flows through the reconciler so the caller
// sees the same envelope shape.
func (o *Orchestrator) CollectFrom(ctx context.Context, symbol string, source models.Source) (*models.UnifiedRecord, error) {
	for _, c := range o.collectors {
		if c.Source() == source {
			results := o.fanOut(ctx, symbol, []interfaces.Collector{c})
			return o.settle(symbol, results)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
}

// fanOut runs the given collectors concurrently, each under its own timeout
// derived from the request context, and waits for every one to settle.
// Collectors report failures through their envelope, never by panicking, so
// the wait is bounded by the longest per-source timeout.
func (o *Orchestrator) fanOut(ctx context.Context, symbol string, collectors []interfaces.Collector) []*models.CollectionResult {
	results := make([]*models.CollectionResult, len(collectors))
	var wg sync.WaitGroup
	for i, c := range collectors {
		wg.Add(1)
		go func(i int, c interfaces.Collector) {
			defer wg.Done()
			timeout, ok := o.timeouts[c.Source()]
			if !ok {
				timeout = 30 * time.Second
			}
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			results[i] = c.Collect(cctx, symbol)
		}(i, c)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) settle(symbol string, results []*models.CollectionResult) (*models.UnifiedRecord, error) {
	unified := o.reconciler.Reconcile(symbol, results...)

	if unified.Validation.Status == models.StatusNoData {
		o.logger.Warn().Str("symbol", symbol).Msg("All collection sources failed")
		return nil, &AllSourcesError{Symbol: symbol, Outcomes: unified.Sources}
	}

	return unified, nil
}
