package common

import "strings"

// IsKoreaSymbol reports whether a ticker symbol refers to a Korean-market
// listing: either a bare six-digit code (e.g. "005930") or a Yahoo-style
// ".KS"/".KQ" suffix.
func IsKoreaSymbol(symbol string) bool {
	symbol = strings.TrimSpace(symbol)
	upper := strings.ToUpper(symbol)
	if strings.HasSuffix(upper, ".KS") || strings.HasSuffix(upper, ".KQ") {
		return true
	}
	if len(symbol) != 6 {
		return false
	}
	for _, r := range symbol {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// KoreaCode strips the market suffix from a Korean symbol, returning the
// bare six-digit code used by domestic finance pages.
func KoreaCode(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	upper = strings.TrimSuffix(upper, ".KS")
	upper = strings.TrimSuffix(upper, ".KQ")
	return upper
}

// NormalizeSymbol trims and upper-cases a symbol for use as a cache key and
// in upstream requests.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
