// Package reconcile compares canonical records field by field and produces
// the unified record, its validation report, and a confidence score.
package reconcile

import "github.com/ternarybob/crossquote/internal/models"

// toleranceClass selects the relative tolerance applied to a numeric field.
type toleranceClass int

const (
	// classPrice covers quote-level fields where the only legitimate
	// disagreement is quote-timing skew between sources.
	classPrice toleranceClass = iota
	// classRatio covers valuation and statement fields that different
	// providers compute from slightly different trailing windows.
	classRatio
)

// numericField is one comparable numeric leaf of the canonical record.
type numericField struct {
	path  string
	class toleranceClass
	get   func(*models.CanonicalStockRecord) *float64
	set   func(*models.CanonicalStockRecord, float64)
}

// stringField is one comparable string leaf of the canonical record.
type stringField struct {
	path string
	get  func(*models.CanonicalStockRecord) string
	set  func(*models.CanonicalStockRecord, string)
}

// supply returns the supply/demand block, allocating it on first write.
func supply(r *models.CanonicalStockRecord) *models.SupplyDemandData {
	if r.SupplyDemand == nil {
		r.SupplyDemand = &models.SupplyDemandData{}
	}
	return r.SupplyDemand
}

// sdGet reads a supply/demand leaf without allocating the block.
func sdGet(r *models.CanonicalStockRecord, pick func(*models.SupplyDemandData) *float64) *float64 {
	if r.SupplyDemand == nil {
		return nil
	}
	return pick(r.SupplyDemand)
}

// numericFields enumerates every comparable numeric leaf. Path names follow
// the JSON shape so reports read the same as the serialized record.
var numericFields = []numericField{
	{"priceData.currentPrice", classPrice,
		func(r *models.CanonicalStockRecord) *float64 { return r.PriceData.CurrentPrice },
		func(r *models.CanonicalStockRecord, v float64) { r.PriceData.CurrentPrice = &v }},
	{"priceData.previousClose", classPrice,
		func(r *models.CanonicalStockRecord) *float64 { return r.PriceData.PreviousClose },
		func(r *models.CanonicalStockRecord, v float64) { r.PriceData.PreviousClose = &v }},
	{"priceData.change", classPrice,
		func(r *models.CanonicalStockRecord) *float64 { return r.PriceData.Change },
		func(r *models.CanonicalStockRecord, v float64) { r.PriceData.Change = &v }},
	{"priceData.changePercent", classPrice,
		func(r *models.CanonicalStockRecord) *float64 { return r.PriceData.ChangePercent },
		func(r *models.CanonicalStockRecord, v float64) { r.PriceData.ChangePercent = &v }},
	{"priceData.open", classPrice,
		func(r *models.CanonicalStockRecord) *float64 { return r.PriceData.Open },
		func(r *models.CanonicalStockRecord, v float64) { r.PriceData.Open = &v }},
	{"priceData.high", classPrice,
		func(r *models.CanonicalStockRecord) *float64 { return r.PriceData.High },
		func(r *models.CanonicalStockRecord, v float64) { r.PriceData.High = &v }},
	{"priceData.low", classPrice,
		func(r *models.CanonicalStockRecord) *float64 { return r.PriceData.Low },
		func(r *models.CanonicalStockRecord, v float64) { r.PriceData.Low = &v }},
	{"priceData.volume", classPrice,
		func(r *models.CanonicalStockRecord) *float64 { return r.PriceData.Volume },
		func(r *models.CanonicalStockRecord, v float64) { r.PriceData.Volume = &v }},
	{"priceData.week52High", classPrice,
		func(r *models.CanonicalStockRecord) *float64 { return r.PriceData.Week52High },
		func(r *models.CanonicalStockRecord, v float64) { r.PriceData.Week52High = &v }},
	{"priceData.week52Low", classPrice,
		func(r *models.CanonicalStockRecord) *float64 { return r.PriceData.Week52Low },
		func(r *models.CanonicalStockRecord, v float64) { r.PriceData.Week52Low = &v }},

	{"valuationData.per", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.Valuation.PER },
		func(r *models.CanonicalStockRecord, v float64) { r.Valuation.PER = &v }},
	{"valuationData.pbr", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.Valuation.PBR },
		func(r *models.CanonicalStockRecord, v float64) { r.Valuation.PBR = &v }},
	{"valuationData.eps", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.Valuation.EPS },
		func(r *models.CanonicalStockRecord, v float64) { r.Valuation.EPS = &v }},
	{"valuationData.bps", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.Valuation.BPS },
		func(r *models.CanonicalStockRecord, v float64) { r.Valuation.BPS = &v }},
	{"valuationData.roe", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.Valuation.ROE },
		func(r *models.CanonicalStockRecord, v float64) { r.Valuation.ROE = &v }},
	{"valuationData.dividendYield", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.Valuation.DividendYield },
		func(r *models.CanonicalStockRecord, v float64) { r.Valuation.DividendYield = &v }},

	{"financialData.revenue", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.Financial.Revenue },
		func(r *models.CanonicalStockRecord, v float64) { r.Financial.Revenue = &v }},
	{"financialData.operatingIncome", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.Financial.OperatingIncome },
		func(r *models.CanonicalStockRecord, v float64) { r.Financial.OperatingIncome = &v }},
	{"financialData.netIncome", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.Financial.NetIncome },
		func(r *models.CanonicalStockRecord, v float64) { r.Financial.NetIncome = &v }},
	{"financialData.operatingMargin", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.Financial.OperatingMargin },
		func(r *models.CanonicalStockRecord, v float64) { r.Financial.OperatingMargin = &v }},
	{"financialData.netMargin", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.Financial.NetMargin },
		func(r *models.CanonicalStockRecord, v float64) { r.Financial.NetMargin = &v }},

	{"supplyDemandData.foreignOwnership", classRatio,
		func(r *models.CanonicalStockRecord) *float64 {
			return sdGet(r, func(s *models.SupplyDemandData) *float64 { return s.ForeignOwnership })
		},
		func(r *models.CanonicalStockRecord, v float64) { supply(r).ForeignOwnership = &v }},
	{"supplyDemandData.foreignNetBuy", classRatio,
		func(r *models.CanonicalStockRecord) *float64 {
			return sdGet(r, func(s *models.SupplyDemandData) *float64 { return s.ForeignNetBuy })
		},
		func(r *models.CanonicalStockRecord, v float64) { supply(r).ForeignNetBuy = &v }},
	{"supplyDemandData.institutionNetBuy", classRatio,
		func(r *models.CanonicalStockRecord) *float64 {
			return sdGet(r, func(s *models.SupplyDemandData) *float64 { return s.InstitutionNetBuy })
		},
		func(r *models.CanonicalStockRecord, v float64) { supply(r).InstitutionNetBuy = &v }},
	{"supplyDemandData.individualNetBuy", classRatio,
		func(r *models.CanonicalStockRecord) *float64 {
			return sdGet(r, func(s *models.SupplyDemandData) *float64 { return s.IndividualNetBuy })
		},
		func(r *models.CanonicalStockRecord, v float64) { supply(r).IndividualNetBuy = &v }},

	{"marketData.marketCap", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.MarketData.MarketCap },
		func(r *models.CanonicalStockRecord, v float64) { r.MarketData.MarketCap = &v }},
	{"marketData.sharesOutstanding", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.MarketData.SharesOutstanding },
		func(r *models.CanonicalStockRecord, v float64) { r.MarketData.SharesOutstanding = &v }},
	{"marketData.floatShares", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.MarketData.FloatShares },
		func(r *models.CanonicalStockRecord, v float64) { r.MarketData.FloatShares = &v }},
	{"marketData.beta", classRatio,
		func(r *models.CanonicalStockRecord) *float64 { return r.MarketData.Beta },
		func(r *models.CanonicalStockRecord, v float64) { r.MarketData.Beta = &v }},
}

// stringFields enumerates the comparable string leaves. The symbol itself
// is request identity, not a comparable field.
var stringFields = []stringField{
	{"basicInfo.name",
		func(r *models.CanonicalStockRecord) string { return r.BasicInfo.Name },
		func(r *models.CanonicalStockRecord, v string) { r.BasicInfo.Name = v }},
	{"basicInfo.market",
		func(r *models.CanonicalStockRecord) string { return r.BasicInfo.Market },
		func(r *models.CanonicalStockRecord, v string) { r.BasicInfo.Market = v }},
	{"financialData.fiscalPeriod",
		func(r *models.CanonicalStockRecord) string { return r.Financial.FiscalPeriod },
		func(r *models.CanonicalStockRecord, v string) { r.Financial.FiscalPeriod = v }},
}
