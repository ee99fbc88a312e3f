package collectors

import (
	"fmt"
	"strings"
)

// BuildExtractionPrompt returns the field-extraction instruction sent with
// the page screenshot. The instruction pins the exact JSON shape, units,
// and the null convention so the response stays machine-parseable, and
// pushes scale-suffix conversion onto the model so the collector never
// re-derives "2.5T" style values itself.
func BuildExtractionPrompt(symbol string, koreaMarket bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are reading a stock quote page screenshot for the symbol %q.\n", symbol)
	b.WriteString(`Extract the fields below and respond with a single JSON object and nothing else.

Rules:
- Use plain JSON numbers. Convert scale suffixes to full numbers first
  (e.g. "2.5T" -> 2500000000000, "150B" -> 150000000000, "3.2M" -> 3200000).
- Strip currency symbols and grouping commas.
- Percentages are plain numbers without the % sign (e.g. "1.25%" -> 1.25).
- If a field is not visible on the page, use null. Never guess and never
  use 0 as a stand-in for an unknown value.

JSON shape:
{
  "name": string or null,
  "market": string or null,
  "currentPrice": number or null,
  "previousClose": number or null,
  "change": number or null,
  "changePercent": number or null,
  "open": number or null,
  "high": number or null,
  "low": number or null,
  "volume": number or null,
  "week52High": number or null,
  "week52Low": number or null,
  "per": number or null,
  "pbr": number or null,
  "eps": number or null,
  "bps": number or null,
  "roe": number or null,
  "dividendYield": number or null,
  "revenue": number or null,
  "operatingIncome": number or null,
  "netIncome": number or null,
  "operatingMargin": number or null,
  "netMargin": number or null,
  "fiscalPeriod": string or null,
  "marketCap": number or null,
  "sharesOutstanding": number or null,
  "floatShares": number or null,
  "beta": number or null`)

	if koreaMarket {
		b.WriteString(`,
  "foreignOwnership": number or null,
  "foreignNetBuy": number or null,
  "institutionNetBuy": number or null,
  "individualNetBuy": number or null`)
	}

	b.WriteString("\n}\n")
	return b.String()
}
