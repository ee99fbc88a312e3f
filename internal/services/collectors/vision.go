package collectors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/common"
	"github.com/ternarybob/crossquote/internal/interfaces"
	"github.com/ternarybob/crossquote/internal/models"
	"github.com/ternarybob/crossquote/internal/services/llm"
)

// Extractor is the key-rotating vision extraction surface. Satisfied by
// llm.KeyRing; tests substitute a fake.
type Extractor interface {
	Extract(ctx context.Context, png []byte, instruction string) (string, []llm.KeyAttempt, error)
}

// minRenderedChars is the least visible text a rendered quote page can
// plausibly carry; anything below it means the page never really loaded.
const minRenderedChars = 200

// VisionCollector collects a snapshot by screenshotting the public finance
// page for a symbol and asking a multimodal model to read the fields off
// the image. Per invocation it steps Navigate -> Capture -> Extract ->
// Parse, failing the whole attempt at the first fatal step.
type VisionCollector struct {
	browser    interfaces.BrowserProvider
	extractor  Extractor
	browserCfg common.BrowserConfig
	visionCfg  common.VisionConfig
	logger     arbor.ILogger

	// capture is the Navigate+Capture implementation; a field so tests can
	// run the Extract/Parse pipeline without a real browser.
	capture func(ctx context.Context, url string) ([]byte, string, error)
}

// NewVisionCollector creates a vision collector over a browser pool and a
// key-rotating extractor.
func NewVisionCollector(
	browser interfaces.BrowserProvider,
	extractor Extractor,
	browserCfg common.BrowserConfig,
	visionCfg common.VisionConfig,
	logger arbor.ILogger,
) *VisionCollector {
	c := &VisionCollector{
		browser:    browser,
		extractor:  extractor,
		browserCfg: browserCfg,
		visionCfg:  visionCfg,
		logger:     logger,
	}
	c.capture = c.capturePage
	return c
}

// Source identifies the collection path.
func (c *VisionCollector) Source() models.Source {
	return models.SourceVision
}

// Collect runs one vision collection attempt. All failures come back as a
// failed envelope, never as a panic or error across the boundary.
func (c *VisionCollector) Collect(ctx context.Context, symbol string) (result *models.CollectionResult) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("symbol", symbol).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Vision collector panicked")
			result = models.FailedResult(models.SourceVision, started, fmt.Errorf("collector panic: %v", r))
		}
	}()

	koreaMarket := common.IsKoreaSymbol(symbol)
	pageURL := c.pageURL(symbol, koreaMarket)

	// Navigate + Capture
	png, html, err := c.capture(ctx, pageURL)
	if err != nil {
		navErr := &CollectError{Kind: ErrKindNavigation, Fatal: true, Err: err}
		c.logger.Warn().
			Err(navErr).
			Str("symbol", symbol).
			Str("url", pageURL).
			Msg("Vision navigation failed")
		return models.FailedResult(models.SourceVision, started, navErr)
	}

	// Cheap DOM check before paying for a model call: a blank or error page
	// produces a screenshot the model can only hallucinate numbers from.
	fallbackName, err := inspectRenderedPage(html)
	if err != nil {
		navErr := &CollectError{Kind: ErrKindNavigation, Fatal: true, Err: err}
		c.logger.Warn().
			Err(navErr).
			Str("symbol", symbol).
			Str("url", pageURL).
			Msg("Rendered page failed sanity check")
		return models.FailedResult(models.SourceVision, started, navErr)
	}

	// Extract
	instruction := BuildExtractionPrompt(symbol, koreaMarket)
	response, attempts, err := c.extractor.Extract(ctx, png, instruction)
	if err != nil {
		extractErr := c.classifyExtract(err)
		c.logger.Warn().
			Err(extractErr).
			Str("symbol", symbol).
			Int("keys_attempted", len(attempts)).
			Msg("Vision extraction failed")
		return models.FailedResult(models.SourceVision, started, extractErr)
	}
	if skipped := len(attempts) - 1; skipped > 0 {
		c.logger.Info().
			Str("symbol", symbol).
			Int("keys_skipped", skipped).
			Msg("Vision extraction rotated past rate-limited keys")
	}

	// Parse
	payload, err := ExtractJSON(response)
	if err != nil {
		var parseErr *CollectError
		if ce, ok := err.(*CollectError); ok {
			parseErr = ce
		} else {
			parseErr = &CollectError{Kind: ErrKindParse, Fatal: true, Err: err}
		}
		c.logger.Warn().
			Str("symbol", symbol).
			Str("response_prefix", parseErr.RawPrefix).
			Msg("Vision response did not contain parseable JSON")
		return models.FailedResult(models.SourceVision, started, parseErr)
	}

	record := mapVisionPayload(symbol, payload, fallbackName, koreaMarket)

	c.logger.Debug().
		Str("symbol", symbol).
		Dur("latency", time.Since(started)).
		Msg("Vision collection completed")

	return models.SuccessResult(models.SourceVision, started, record)
}

// pageURL picks the public finance page for the symbol's market.
func (c *VisionCollector) pageURL(symbol string, koreaMarket bool) string {
	if koreaMarket {
		return fmt.Sprintf(c.visionCfg.KoreaPageURLTemplate, common.KoreaCode(symbol))
	}
	return fmt.Sprintf(c.visionCfg.PageURLTemplate, symbol)
}

// classifyExtract maps key-ring errors onto the collector taxonomy.
func (c *VisionCollector) classifyExtract(err error) *CollectError {
	if _, ok := err.(*llm.RateExhaustedError); ok {
		return &CollectError{Kind: ErrKindRateLimited, Err: err}
	}
	return &CollectError{Kind: ErrKindHTTP, Err: err}
}

// capturePage acquires a tab, navigates to the page with a fixed viewport
// and locale headers, waits the settle delay, and takes a fixed-region
// screenshot. The tab is released on every exit path.
func (c *VisionCollector) capturePage(ctx context.Context, url string) ([]byte, string, error) {
	tabCtx, release, err := c.browser.Acquire()
	if err != nil {
		return nil, "", fmt.Errorf("failed to acquire browser: %w", err)
	}
	defer release()

	pageTimeout := common.Duration(c.browserCfg.PageTimeout, 30*time.Second)
	navCtx, cancel := context.WithTimeout(tabCtx, pageTimeout)
	defer cancel()

	// The tab context is not derived from the request context; link the
	// two so an orchestrator timeout cancels the in-flight navigation.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	settle := common.Duration(c.browserCfg.SettleDelay, 2*time.Second)
	headers := network.Headers{}
	if c.browserCfg.Locale != "" {
		headers["Accept-Language"] = c.browserCfg.Locale
	}

	var html string
	var shot []byte
	err = chromedp.Run(navCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.EmulateViewport(int64(c.browserCfg.ViewportWidth), int64(c.browserCfg.ViewportHeight)),
		chromedp.Navigate(url),
		chromedp.Sleep(settle),
		chromedp.OuterHTML("html", &html),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, err := page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithClip(&page.Viewport{
					X:      0,
					Y:      0,
					Width:  float64(c.browserCfg.CaptureWidth),
					Height: float64(c.browserCfg.CaptureHeight),
					Scale:  1,
				}).
				Do(ctx)
			if err != nil {
				return err
			}
			shot = buf
			return nil
		}),
	)
	if err != nil {
		return nil, "", fmt.Errorf("page capture failed: %w", err)
	}

	return shot, html, nil
}

// inspectRenderedPage verifies the page actually rendered content and pulls
// the document title as a display-name fallback.
func inspectRenderedPage(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse rendered page: %w", err)
	}

	bodyText := strings.TrimSpace(doc.Find("body").Text())
	if len(bodyText) < minRenderedChars {
		return "", fmt.Errorf("page rendered %d chars of text, below the %d minimum", len(bodyText), minRenderedChars)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	return title, nil
}

// mapVisionPayload maps the parsed model payload onto the canonical record,
// coercing anything non-numeric to null rather than propagating garbage.
func mapVisionPayload(symbol string, payload map[string]interface{}, fallbackName string, koreaMarket bool) *models.CanonicalStockRecord {
	record := models.NewCanonicalStockRecord(symbol, models.SourceVision)

	record.BasicInfo.Name = strField(payload, "name")
	if record.BasicInfo.Name == "" {
		record.BasicInfo.Name = fallbackName
	}
	record.BasicInfo.Market = strField(payload, "market")

	record.PriceData = models.PriceData{
		CurrentPrice:  nonNegative(numField(payload, "currentPrice")),
		PreviousClose: nonNegative(numField(payload, "previousClose")),
		Change:        numField(payload, "change"),
		ChangePercent: numField(payload, "changePercent"),
		Open:          nonNegative(numField(payload, "open")),
		High:          nonNegative(numField(payload, "high")),
		Low:           nonNegative(numField(payload, "low")),
		Volume:        nonNegative(numField(payload, "volume")),
		Week52High:    nonNegative(numField(payload, "week52High")),
		Week52Low:     nonNegative(numField(payload, "week52Low")),
	}

	record.Valuation = models.ValuationData{
		PER:           numField(payload, "per"),
		PBR:           numField(payload, "pbr"),
		EPS:           numField(payload, "eps"),
		BPS:           numField(payload, "bps"),
		ROE:           numField(payload, "roe"),
		DividendYield: numField(payload, "dividendYield"),
	}

	record.Financial = models.FinancialData{
		Revenue:         numField(payload, "revenue"),
		OperatingIncome: numField(payload, "operatingIncome"),
		NetIncome:       numField(payload, "netIncome"),
		OperatingMargin: numField(payload, "operatingMargin"),
		NetMargin:       numField(payload, "netMargin"),
		FiscalPeriod:    strField(payload, "fiscalPeriod"),
	}

	if koreaMarket {
		supply := &models.SupplyDemandData{
			ForeignOwnership:  numField(payload, "foreignOwnership"),
			ForeignNetBuy:     numField(payload, "foreignNetBuy"),
			InstitutionNetBuy: numField(payload, "institutionNetBuy"),
			IndividualNetBuy:  numField(payload, "individualNetBuy"),
		}
		if supply.ForeignOwnership != nil || supply.ForeignNetBuy != nil ||
			supply.InstitutionNetBuy != nil || supply.IndividualNetBuy != nil {
			record.SupplyDemand = supply
		}
	}

	record.MarketData = models.MarketData{
		MarketCap:         nonNegative(numField(payload, "marketCap")),
		SharesOutstanding: nonNegative(numField(payload, "sharesOutstanding")),
		FloatShares:       nonNegative(numField(payload, "floatShares")),
		Beta:              numField(payload, "beta"),
	}

	return record
}
