// Package browser manages a pool of headless Chrome contexts shared by the
// vision collection path. The pool is the explicitly owned form of the
// usual "one global browser" shortcut: construction, hand-out, and shutdown
// are all visible operations, so lifecycle is testable in isolation.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/common"
)

// Pool manages a fixed set of Chrome browser contexts with round-robin
// hand-out. Each vision collection opens its own tab (child context) off a
// pooled browser, so concurrent requests never share page state.
type Pool struct {
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	mu               sync.Mutex
	maxInstances     int
	currentIndex     int
	logger           arbor.ILogger
	initialized      bool
}

// NewPool creates an uninitialized browser pool.
func NewPool(config common.BrowserConfig, logger arbor.ILogger) *Pool {
	return &Pool{
		maxInstances: config.MaxInstances,
		logger:       logger,
	}
}

// Init starts the configured number of browser instances. Partial startup
// is tolerated as long as at least one instance comes up.
func (p *Pool) Init(config common.BrowserConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return fmt.Errorf("browser pool already initialized")
	}
	if config.MaxInstances <= 0 {
		return fmt.Errorf("max_instances must be greater than 0, got: %d", config.MaxInstances)
	}

	p.maxInstances = config.MaxInstances
	p.browsers = make([]context.Context, 0, p.maxInstances)
	p.browserCancels = make([]context.CancelFunc, 0, p.maxInstances)
	p.allocatorCancels = make([]context.CancelFunc, 0, p.maxInstances)
	p.currentIndex = 0

	p.logger.Info().
		Int("pool_size", p.maxInstances).
		Bool("headless", config.Headless).
		Msg("Initializing browser pool")

	successCount := 0
	var lastErr error
	for i := 0; i < p.maxInstances; i++ {
		if err := p.createInstance(i, config); err != nil {
			lastErr = err
			p.logger.Warn().
				Err(err).
				Int("browser_index", i).
				Msg("Failed to create browser instance")
			continue
		}
		successCount++
	}

	if successCount == 0 {
		p.cleanupInstances()
		return fmt.Errorf("failed to create any browser instances, last error: %w", lastErr)
	}
	if successCount < p.maxInstances {
		p.logger.Warn().
			Int("requested", p.maxInstances).
			Int("created", successCount).
			Msg("Created fewer browser instances than requested")
		p.maxInstances = successCount
	}

	p.initialized = true
	p.logger.Info().
		Int("browsers_created", len(p.browsers)).
		Msg("Browser pool initialized")

	return nil
}

// createInstance starts one browser and verifies it responds.
func (p *Pool) createInstance(index int, config common.BrowserConfig) error {
	startTime := time.Now()

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", config.DisableGPU),
		chromedp.Flag("no-sandbox", config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight),
		chromedp.UserAgent(config.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(
		context.Background(),
		allocatorOpts...,
	)

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser instance failed startup test: %w", err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)

	p.logger.Debug().
		Int("browser_index", index).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser instance created")

	return nil
}

// Acquire returns a fresh tab context off the next pooled browser, plus a
// release function that closes the tab. Callers must invoke release on
// every exit path; an unclosed tab is a leaked renderer process.
func (p *Pool) Acquire() (context.Context, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil, nil, fmt.Errorf("browser pool not initialized")
	}
	if len(p.browsers) == 0 {
		return nil, nil, fmt.Errorf("no browser instances available")
	}

	index := p.currentIndex % len(p.browsers)
	p.currentIndex = (p.currentIndex + 1) % len(p.browsers)

	// Child context = new tab in the pooled browser. Cancelling it closes
	// the tab without touching the browser itself.
	tabCtx, tabCancel := chromedp.NewContext(p.browsers[index])

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		tabCancel()
		p.logger.Debug().
			Int("browser_index", index).
			Msg("Browser tab released")
	}

	return tabCtx, release, nil
}

// Shutdown tears down all browser instances with a bounded wait.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}

	browserCount := len(p.browsers)
	p.logger.Info().
		Int("browser_count", browserCount).
		Msg("Shutting down browser pool")

	done := make(chan struct{})
	go func() {
		p.cleanupInstances()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		p.logger.Warn().
			Int("browser_count", browserCount).
			Msg("Browser pool shutdown timed out, forcing cleanup")
		p.cleanupInstances()
	}

	p.initialized = false
	return nil
}

// cleanupInstances cancels all contexts (must be called with mutex held).
func (p *Pool) cleanupInstances() {
	for _, cancel := range p.browserCancels {
		if cancel != nil {
			cancel()
		}
	}
	for _, cancel := range p.allocatorCancels {
		if cancel != nil {
			cancel()
		}
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
	p.currentIndex = 0
}

// IsInitialized reports whether Init has completed.
func (p *Pool) IsInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}
