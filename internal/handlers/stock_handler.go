package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/common"
	"github.com/ternarybob/crossquote/internal/interfaces"
	"github.com/ternarybob/crossquote/internal/models"
	"github.com/ternarybob/crossquote/internal/services/orchestrator"
)

// StockHandler serves the collection API. Requests flow cache -> orchestrator
// -> metrics; diagnostic requests that pin a source bypass the cache so the
// caller always sees a fresh single-path collection.
type StockHandler struct {
	orchestrator *orchestrator.Orchestrator
	cache        interfaces.RecordCache
	metrics      interfaces.MetricsRecorder
	logger       arbor.ILogger
}

func NewStockHandler(o *orchestrator.Orchestrator, cache interfaces.RecordCache, metrics interfaces.MetricsRecorder, logger arbor.ILogger) *StockHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &StockHandler{
		orchestrator: o,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
	}
}

// stockResponse is the API envelope around a unified record.
type stockResponse struct {
	*models.UnifiedRecord
	Cached bool `json:"cached"`
}

// GetStockHandler handles GET /api/stock/{symbol}.
//
// Query parameters:
//
//	source=structured|vision  run only that collection path (diagnostic)
func (h *StockHandler) GetStockHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	symbol := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/stock/"), "/")
	if symbol == "" || strings.Contains(symbol, "/") {
		WriteError(w, http.StatusBadRequest, "symbol is required: /api/stock/{symbol}")
		return
	}
	symbol = common.NormalizeSymbol(symbol)

	if pinned := r.URL.Query().Get("source"); pinned != "" {
		h.serveSingleSource(w, r.Context(), symbol, pinned)
		return
	}

	if record, ok := h.cache.Get(r.Context(), symbol); ok {
		h.logger.Debug().Str("symbol", symbol).Msg("Serving cached record")
		WriteJSON(w, http.StatusOK, stockResponse{UnifiedRecord: record, Cached: true})
		return
	}

	record, err := h.orchestrator.Collect(r.Context(), symbol)
	if err != nil {
		h.writeCollectError(w, symbol, err)
		return
	}
	h.report(symbol, record)

	if err := h.cache.Put(r.Context(), symbol, record); err != nil {
		h.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache unified record")
	}

	WriteJSON(w, http.StatusOK, stockResponse{UnifiedRecord: record, Cached: false})
}

func (h *StockHandler) serveSingleSource(w http.ResponseWriter, ctx context.Context, symbol, pinned string) {
	var source models.Source
	switch pinned {
	case "structured", string(models.SourceStructured):
		source = models.SourceStructured
	case "vision":
		source = models.SourceVision
	default:
		WriteError(w, http.StatusBadRequest, "source must be \"structured\" or \"vision\"")
		return
	}

	record, err := h.orchestrator.CollectFrom(ctx, symbol, source)
	if err != nil {
		h.writeCollectError(w, symbol, err)
		return
	}
	h.report(symbol, record)

	WriteJSON(w, http.StatusOK, stockResponse{UnifiedRecord: record, Cached: false})
}

func (h *StockHandler) writeCollectError(w http.ResponseWriter, symbol string, err error) {
	var allFailed *orchestrator.AllSourcesError
	switch {
	case errors.As(err, &allFailed):
		// A failed round still produced per-source attempt facts.
		for _, outcome := range allFailed.Outcomes {
			h.metrics.RecordAttempt(symbol, outcome.Source, outcome.Success, outcome.LatencyMs)
		}
		h.logger.Warn().Err(err).Str("symbol", symbol).Msg("Collection failed on all sources")
		WriteError(w, http.StatusBadGateway, "data unavailable for "+symbol)
	case errors.Is(err, orchestrator.ErrUnknownSource):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Str("symbol", symbol).Msg("Collection failed")
		WriteError(w, http.StatusInternalServerError, "collection failed")
	}
}

// report forwards attempt and outcome facts to the metrics collaborator.
func (h *StockHandler) report(symbol string, record *models.UnifiedRecord) {
	for _, outcome := range record.Sources {
		h.metrics.RecordAttempt(symbol, outcome.Source, outcome.Success, outcome.LatencyMs)
	}
	h.metrics.RecordOutcome(symbol, record.Validation.Status, record.Confidence, len(record.Validation.ConflictFields))
}
