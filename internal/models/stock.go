// Package models defines the canonical market-data shapes shared by all
// collectors and the reconciliation pipeline.
package models

import "time"

// Source identifies which collection path produced a record.
type Source string

const (
	// SourceStructured is the structured quote API collection path.
	SourceStructured Source = "structured-api"
	// SourceVision is the browser screenshot + vision model collection path.
	SourceVision Source = "vision"
	// SourceUnified tags records produced by reconciliation.
	SourceUnified Source = "unified"
)

// BasicInfo holds symbol identity fields.
type BasicInfo struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
	Market string `json:"market,omitempty"`
}

// PriceData holds quote-level numeric fields. Nullable values are pointers:
// nil means the source did not report the field, never "zero". Change fields
// may legitimately be negative or zero.
type PriceData struct {
	CurrentPrice  *float64 `json:"currentPrice"`
	PreviousClose *float64 `json:"previousClose"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"changePercent"`
	Open          *float64 `json:"open"`
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	Volume        *float64 `json:"volume"`
	Week52High    *float64 `json:"week52High"`
	Week52Low     *float64 `json:"week52Low"`
}

// ValuationData holds per-share valuation ratios. Each field is independently
// nullable; providers legitimately lack individual ratios.
type ValuationData struct {
	PER           *float64 `json:"per"`
	PBR           *float64 `json:"pbr"`
	EPS           *float64 `json:"eps"`
	BPS           *float64 `json:"bps"`
	ROE           *float64 `json:"roe"`
	DividendYield *float64 `json:"dividendYield"`
}

// FinancialData holds statement-level aggregates for the most recent
// reported fiscal period.
type FinancialData struct {
	Revenue         *float64 `json:"revenue"`
	OperatingIncome *float64 `json:"operatingIncome"`
	NetIncome       *float64 `json:"netIncome"`
	OperatingMargin *float64 `json:"operatingMargin"`
	NetMargin       *float64 `json:"netMargin"`
	FiscalPeriod    string   `json:"fiscalPeriod,omitempty"`
}

// SupplyDemandData holds investor-flow fields reported by Korean-market
// sources. The whole block is absent for markets that do not publish it.
type SupplyDemandData struct {
	ForeignOwnership  *float64 `json:"foreignOwnership"`
	ForeignNetBuy     *float64 `json:"foreignNetBuy"`
	InstitutionNetBuy *float64 `json:"institutionNetBuy"`
	IndividualNetBuy  *float64 `json:"individualNetBuy"`
}

// MarketData holds market-wide sizing fields.
type MarketData struct {
	MarketCap         *float64 `json:"marketCap"`
	SharesOutstanding *float64 `json:"sharesOutstanding"`
	FloatShares       *float64 `json:"floatShares"`
	Beta              *float64 `json:"beta"`
}

// CanonicalStockRecord is the common shape every collector must produce.
// Every numeric leaf is either a finite number or nil.
type CanonicalStockRecord struct {
	BasicInfo    BasicInfo         `json:"basicInfo"`
	PriceData    PriceData         `json:"priceData"`
	Valuation    ValuationData     `json:"valuationData"`
	Financial    FinancialData     `json:"financialData"`
	SupplyDemand *SupplyDemandData `json:"supplyDemandData,omitempty"`
	MarketData   MarketData        `json:"marketData"`
	Timestamp    int64             `json:"timestamp"` // epoch millis of collection
	Source       Source            `json:"source"`
}

// NewCanonicalStockRecord creates an empty record stamped with the current
// collection instant.
func NewCanonicalStockRecord(symbol string, source Source) *CanonicalStockRecord {
	return &CanonicalStockRecord{
		BasicInfo: BasicInfo{Symbol: symbol},
		Timestamp: time.Now().UnixMilli(),
		Source:    source,
	}
}

// CollectionResult is the envelope every collector returns. Exactly one of
// (Success && Data != nil) or (!Success && Data == nil) holds.
type CollectionResult struct {
	Data      *CanonicalStockRecord `json:"data"`
	Source    Source                `json:"source"`
	Timestamp int64                 `json:"timestamp"`
	Success   bool                  `json:"success"`
	Error     string                `json:"error,omitempty"`
	LatencyMs int64                 `json:"latencyMs"`
}

// FailedResult builds a failure envelope for a collection attempt.
func FailedResult(source Source, started time.Time, err error) *CollectionResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &CollectionResult{
		Source:    source,
		Timestamp: time.Now().UnixMilli(),
		Success:   false,
		Error:     msg,
		LatencyMs: time.Since(started).Milliseconds(),
	}
}

// SuccessResult builds a success envelope around a collected record.
func SuccessResult(source Source, started time.Time, data *CanonicalStockRecord) *CollectionResult {
	return &CollectionResult{
		Data:      data,
		Source:    source,
		Timestamp: time.Now().UnixMilli(),
		Success:   true,
		LatencyMs: time.Since(started).Milliseconds(),
	}
}
