// Package app assembles the application components and owns their lifecycle.
package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/common"
	"github.com/ternarybob/crossquote/internal/handlers"
	"github.com/ternarybob/crossquote/internal/interfaces"
	"github.com/ternarybob/crossquote/internal/quoteapi"
	"github.com/ternarybob/crossquote/internal/services/browser"
	"github.com/ternarybob/crossquote/internal/services/cache"
	"github.com/ternarybob/crossquote/internal/services/collectors"
	"github.com/ternarybob/crossquote/internal/services/llm"
	"github.com/ternarybob/crossquote/internal/services/metrics"
	"github.com/ternarybob/crossquote/internal/services/orchestrator"
	"github.com/ternarybob/crossquote/internal/services/reconcile"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Collection core
	QuoteClient  *quoteapi.Client
	BrowserPool  *browser.Pool
	KeyRing      *llm.KeyRing
	Reconciler   *reconcile.Reconciler
	Orchestrator *orchestrator.Orchestrator

	// Collaborators
	Cache   interfaces.RecordCache
	Metrics interfaces.MetricsRecorder

	// HTTP handlers
	StockHandler *handlers.StockHandler
	APIHandler   *handlers.APIHandler
}

// New wires the application from configuration. Construction order follows
// the dependency chain: clients, browser pool, collectors, reconciler,
// orchestrator, then the HTTP handlers on top.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	a.QuoteClient = quoteapi.NewClient(
		config.QuoteAPI.BaseURL,
		config.QuoteAPI.APIKey,
		quoteapi.WithLogger(logger),
		quoteapi.WithRateLimit(config.QuoteAPI.RateLimit),
		quoteapi.WithTimeout(common.Duration(config.QuoteAPI.Timeout, 0)),
	)
	structured := collectors.NewStructuredCollector(a.QuoteClient, logger)

	a.BrowserPool = browser.NewPool(config.Browser, logger)
	if err := a.BrowserPool.Init(config.Browser); err != nil {
		return nil, fmt.Errorf("failed to initialize browser pool: %w", err)
	}

	keyRing, err := llm.NewKeyRingFromConfig(config.Vision, logger)
	if err != nil {
		a.BrowserPool.Shutdown()
		return nil, fmt.Errorf("failed to initialize vision models: %w", err)
	}
	a.KeyRing = keyRing
	vision := collectors.NewVisionCollector(a.BrowserPool, keyRing, config.Browser, config.Vision, logger)

	a.Reconciler = reconcile.New(config.Reconcile, logger)
	a.Orchestrator = orchestrator.New(config.Orchestrator, a.Reconciler, logger, structured, vision)

	if config.Cache.Enabled {
		recordCache, err := cache.New(config.Cache, logger)
		if err != nil {
			a.BrowserPool.Shutdown()
			return nil, fmt.Errorf("failed to initialize record cache: %w", err)
		}
		a.Cache = recordCache
	} else {
		a.Cache = cache.Disabled{}
	}

	a.Metrics = metrics.New()

	a.StockHandler = handlers.NewStockHandler(a.Orchestrator, a.Cache, a.Metrics, logger)
	a.APIHandler = handlers.NewAPIHandler()

	logger.Info().
		Str("quote_api", config.QuoteAPI.BaseURL).
		Str("vision_provider", config.Vision.Provider).
		Int("vision_keys", keyRing.Size()).
		Int("browser_instances", config.Browser.MaxInstances).
		Bool("cache_enabled", config.Cache.Enabled).
		Msg("Application initialized")

	return a, nil
}

// Close releases browser instances and the cache store.
func (a *App) Close() {
	if a.BrowserPool != nil {
		if err := a.BrowserPool.Shutdown(); err != nil {
			a.Logger.Warn().Err(err).Msg("Browser pool shutdown failed")
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Cache close failed")
		}
	}
	a.Logger.Info().Msg("Application closed")
}
