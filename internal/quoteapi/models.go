package quoteapi

// StockResponse is the provider payload for GET /api/stock/{symbol}.
// Every numeric field is a pointer: the provider omits or nulls fields it
// cannot source, and absence must stay distinguishable from zero.
type StockResponse struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Market string `json:"market"`

	Price         *float64 `json:"price"`
	PreviousClose *float64 `json:"previousClose"`
	Change        *float64 `json:"change"`
	ChangePercent *float64 `json:"changePercent"`
	Open          *float64 `json:"open"`
	High          *float64 `json:"high"`
	Low           *float64 `json:"low"`
	Volume        *float64 `json:"volume"`
	Week52High    *float64 `json:"week52High"`
	Week52Low     *float64 `json:"week52Low"`

	PER           *float64 `json:"per"`
	PBR           *float64 `json:"pbr"`
	EPS           *float64 `json:"eps"`
	BPS           *float64 `json:"bps"`
	ROE           *float64 `json:"roe"`
	DividendYield *float64 `json:"dividendYield"`

	Revenue         *float64 `json:"revenue"`
	OperatingIncome *float64 `json:"operatingIncome"`
	NetIncome       *float64 `json:"netIncome"`
	OperatingMargin *float64 `json:"operatingMargin"`
	NetMargin       *float64 `json:"netMargin"`
	FiscalPeriod    string   `json:"fiscalPeriod"`

	ForeignOwnership  *float64 `json:"foreignOwnership"`
	ForeignNetBuy     *float64 `json:"foreignNetBuy"`
	InstitutionNetBuy *float64 `json:"institutionNetBuy"`
	IndividualNetBuy  *float64 `json:"individualNetBuy"`

	MarketCap         *float64 `json:"marketCap"`
	SharesOutstanding *float64 `json:"sharesOutstanding"`
	FloatShares       *float64 `json:"floatShares"`
	Beta              *float64 `json:"beta"`
}
