package collectors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/models"
	"github.com/ternarybob/crossquote/internal/quoteapi"
)

// StructuredCollector collects a snapshot through the structured quote API
// and maps the provider payload onto the canonical record.
type StructuredCollector struct {
	client *quoteapi.Client
	logger arbor.ILogger
}

// NewStructuredCollector creates a structured collector over a quote API client.
func NewStructuredCollector(client *quoteapi.Client, logger arbor.ILogger) *StructuredCollector {
	return &StructuredCollector{
		client: client,
		logger: logger,
	}
}

// Source identifies the collection path.
func (c *StructuredCollector) Source() models.Source {
	return models.SourceStructured
}

// Collect fetches and maps the provider snapshot. All failures come back
// as a failed envelope, never as a panic or error across the boundary.
func (c *StructuredCollector) Collect(ctx context.Context, symbol string) (result *models.CollectionResult) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("symbol", symbol).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Structured collector panicked")
			result = models.FailedResult(models.SourceStructured, started, fmt.Errorf("collector panic: %v", r))
		}
	}()

	resp, err := c.client.GetStock(ctx, symbol)
	if err != nil {
		classified := c.classify(err)
		c.logger.Warn().
			Err(classified).
			Str("symbol", symbol).
			Msg("Structured collection failed")
		return models.FailedResult(models.SourceStructured, started, classified)
	}

	record := mapStructuredResponse(symbol, resp)

	c.logger.Debug().
		Str("symbol", symbol).
		Dur("latency", time.Since(started)).
		Msg("Structured collection completed")

	return models.SuccessResult(models.SourceStructured, started, record)
}

// classify maps transport errors onto the collector error taxonomy.
func (c *StructuredCollector) classify(err error) *CollectError {
	var apiErr *quoteapi.APIError
	if errors.As(err, &apiErr) {
		return &CollectError{
			Kind:      ErrKindHTTP,
			Fatal:     !apiErr.Transient(),
			RawPrefix: apiErr.Message,
			Err:       err,
		}
	}

	var rateErr *quoteapi.RateLimitError
	if errors.As(err, &rateErr) {
		return &CollectError{Kind: ErrKindHTTP, Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &CollectError{Kind: ErrKindNetworkTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &CollectError{Kind: ErrKindNetworkTimeout, Err: err}
	}

	// Anything else out of the client is a payload that did not decode:
	// the provider changed shape.
	return &CollectError{Kind: ErrKindParse, Fatal: true, Err: err}
}

// mapStructuredResponse maps the provider payload onto the canonical
// record. Every field is validated on the way in: non-finite numbers are
// dropped and non-negative invariants enforced.
func mapStructuredResponse(symbol string, resp *quoteapi.StockResponse) *models.CanonicalStockRecord {
	record := models.NewCanonicalStockRecord(symbol, models.SourceStructured)
	record.BasicInfo.Name = resp.Name
	record.BasicInfo.Market = resp.Market

	record.PriceData = models.PriceData{
		CurrentPrice:  nonNegative(valid(resp.Price)),
		PreviousClose: nonNegative(valid(resp.PreviousClose)),
		Change:        valid(resp.Change),
		ChangePercent: valid(resp.ChangePercent),
		Open:          nonNegative(valid(resp.Open)),
		High:          nonNegative(valid(resp.High)),
		Low:           nonNegative(valid(resp.Low)),
		Volume:        nonNegative(valid(resp.Volume)),
		Week52High:    nonNegative(valid(resp.Week52High)),
		Week52Low:     nonNegative(valid(resp.Week52Low)),
	}

	record.Valuation = models.ValuationData{
		PER:           valid(resp.PER),
		PBR:           valid(resp.PBR),
		EPS:           valid(resp.EPS),
		BPS:           valid(resp.BPS),
		ROE:           valid(resp.ROE),
		DividendYield: valid(resp.DividendYield),
	}

	record.Financial = models.FinancialData{
		Revenue:         valid(resp.Revenue),
		OperatingIncome: valid(resp.OperatingIncome),
		NetIncome:       valid(resp.NetIncome),
		OperatingMargin: valid(resp.OperatingMargin),
		NetMargin:       valid(resp.NetMargin),
		FiscalPeriod:    resp.FiscalPeriod,
	}

	if resp.ForeignOwnership != nil || resp.ForeignNetBuy != nil ||
		resp.InstitutionNetBuy != nil || resp.IndividualNetBuy != nil {
		record.SupplyDemand = &models.SupplyDemandData{
			ForeignOwnership:  valid(resp.ForeignOwnership),
			ForeignNetBuy:     valid(resp.ForeignNetBuy),
			InstitutionNetBuy: valid(resp.InstitutionNetBuy),
			IndividualNetBuy:  valid(resp.IndividualNetBuy),
		}
	}

	record.MarketData = models.MarketData{
		MarketCap:         nonNegative(valid(resp.MarketCap)),
		SharesOutstanding: nonNegative(valid(resp.SharesOutstanding)),
		FloatShares:       nonNegative(valid(resp.FloatShares)),
		Beta:              valid(resp.Beta),
	}

	return record
}

// valid drops nil and non-finite values.
func valid(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return finite(*v)
}
