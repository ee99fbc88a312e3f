package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/common"
	"github.com/ternarybob/crossquote/internal/interfaces"
	"github.com/ternarybob/crossquote/internal/models"
	"github.com/ternarybob/crossquote/internal/services/metrics"
	"github.com/ternarybob/crossquote/internal/services/orchestrator"
	"github.com/ternarybob/crossquote/internal/services/reconcile"
)

type cannedCollector struct {
	source models.Source
	data   *models.CanonicalStockRecord
	err    error
	calls  int
}

func (c *cannedCollector) Source() models.Source { return c.source }

func (c *cannedCollector) Collect(ctx context.Context, symbol string) *models.CollectionResult {
	c.calls++
	started := time.Now()
	if c.err != nil {
		return models.FailedResult(c.source, started, c.err)
	}
	data := *c.data
	data.BasicInfo.Symbol = symbol
	return models.SuccessResult(c.source, started, &data)
}

// mapCache is an in-memory RecordCache for handler tests.
type mapCache struct {
	entries map[string]*models.UnifiedRecord
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]*models.UnifiedRecord{}}
}

func (m *mapCache) Get(ctx context.Context, symbol string) (*models.UnifiedRecord, bool) {
	record, ok := m.entries[symbol]
	return record, ok
}

func (m *mapCache) Put(ctx context.Context, symbol string, record *models.UnifiedRecord) error {
	m.entries[symbol] = record
	return nil
}

func (m *mapCache) Close() error { return nil }

// countingRecorder captures metrics calls for assertions.
type countingRecorder struct {
	attempts []recordedAttempt
	outcomes int
}

type recordedAttempt struct {
	source  models.Source
	success bool
}

func (r *countingRecorder) RecordAttempt(symbol string, source models.Source, success bool, latencyMs int64) {
	r.attempts = append(r.attempts, recordedAttempt{source: source, success: success})
}

func (r *countingRecorder) RecordOutcome(symbol string, status models.ValidationStatus, confidence float64, conflicts int) {
	r.outcomes++
}

func priceRecord(source models.Source, price float64) *models.CanonicalStockRecord {
	r := models.NewCanonicalStockRecord("", source)
	r.PriceData.CurrentPrice = &price
	return r
}

func newTestHandler(cache interfaces.RecordCache, collectors ...interfaces.Collector) *StockHandler {
	return newTestHandlerWithMetrics(cache, metrics.Noop{}, collectors...)
}

func newTestHandlerWithMetrics(cache interfaces.RecordCache, recorder interfaces.MetricsRecorder, collectors ...interfaces.Collector) *StockHandler {
	logger := arbor.NewLogger()
	reconciler := reconcile.New(common.ReconcileConfig{
		PriceTolerance:         0.001,
		RatioTolerance:         0.02,
		SingleSourceConfidence: 0.5,
	}, logger)
	o := orchestrator.New(common.OrchestratorConfig{}, reconciler, logger, collectors...)
	return NewStockHandler(o, cache, recorder, logger)
}

func getStock(t *testing.T, h *StockHandler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.GetStockHandler(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestGetStockSuccess(t *testing.T) {
	structured := &cannedCollector{source: models.SourceStructured, data: priceRecord(models.SourceStructured, 71500)}
	vision := &cannedCollector{source: models.SourceVision, data: priceRecord(models.SourceVision, 71500)}
	h := newTestHandler(newMapCache(), structured, vision)

	rec, body := getStock(t, h, "/api/stock/005930")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["cached"])
	assert.Equal(t, "consistent", body["validation"].(map[string]interface{})["status"])
	assert.Equal(t, "005930", body["basicInfo"].(map[string]interface{})["symbol"])
}

func TestGetStockServesFromCache(t *testing.T) {
	structured := &cannedCollector{source: models.SourceStructured, data: priceRecord(models.SourceStructured, 71500)}
	h := newTestHandler(newMapCache(), structured)

	_, first := getStock(t, h, "/api/stock/005930")
	assert.Equal(t, false, first["cached"])

	_, second := getStock(t, h, "/api/stock/005930")
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, 1, structured.calls, "second request must not re-collect")
}

func TestGetStockNormalizesSymbolForCache(t *testing.T) {
	structured := &cannedCollector{source: models.SourceStructured, data: priceRecord(models.SourceStructured, 190.5)}
	h := newTestHandler(newMapCache(), structured)

	getStock(t, h, "/api/stock/aapl")
	_, second := getStock(t, h, "/api/stock/AAPL")

	assert.Equal(t, true, second["cached"])
	assert.Equal(t, 1, structured.calls)
}

func TestGetStockMissingSymbol(t *testing.T) {
	h := newTestHandler(newMapCache())

	rec, _ := getStock(t, h, "/api/stock/")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStockAllSourcesFailed(t *testing.T) {
	structured := &cannedCollector{source: models.SourceStructured, err: errors.New("down")}
	vision := &cannedCollector{source: models.SourceVision, err: errors.New("also down")}
	recorder := &countingRecorder{}
	h := newTestHandlerWithMetrics(newMapCache(), recorder, structured, vision)

	rec, body := getStock(t, h, "/api/stock/005930")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body["error"], "data unavailable")

	// Both failed attempts still reach the metrics collaborator.
	require.Len(t, recorder.attempts, 2)
	seen := map[models.Source]bool{}
	for _, attempt := range recorder.attempts {
		assert.False(t, attempt.success)
		seen[attempt.source] = true
	}
	assert.True(t, seen[models.SourceStructured])
	assert.True(t, seen[models.SourceVision])
}

func TestGetStockPinnedSource(t *testing.T) {
	structured := &cannedCollector{source: models.SourceStructured, data: priceRecord(models.SourceStructured, 71500)}
	vision := &cannedCollector{source: models.SourceVision, data: priceRecord(models.SourceVision, 71600)}
	cache := newMapCache()
	h := newTestHandler(cache, structured, vision)

	t.Run("vision only", func(t *testing.T) {
		rec, body := getStock(t, h, "/api/stock/005930?source=vision")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "single-source", body["validation"].(map[string]interface{})["status"])
		assert.Equal(t, 0, structured.calls)
		assert.Equal(t, 1, vision.calls)
	})

	t.Run("structured accepts both spellings", func(t *testing.T) {
		for _, pinned := range []string{"structured", "structured-api"} {
			rec, body := getStock(t, h, "/api/stock/005930?source="+pinned)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "single-source", body["validation"].(map[string]interface{})["status"])
		}
		assert.Equal(t, 2, structured.calls)
	})

	t.Run("diagnostic requests bypass the cache", func(t *testing.T) {
		assert.Empty(t, cache.entries)
	})

	t.Run("unknown source", func(t *testing.T) {
		rec, _ := getStock(t, h, "/api/stock/005930?source=telepathy")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetStockRejectsNonGET(t *testing.T) {
	h := newTestHandler(newMapCache())

	req := httptest.NewRequest(http.MethodPost, "/api/stock/005930", nil)
	rec := httptest.NewRecorder()
	h.GetStockHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
