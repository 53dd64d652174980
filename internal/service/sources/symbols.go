package sources

import (
	"regexp"
	"sort"
	"strings"
)

const maxSymbolsPerItem = 5

var (
	cashtagRe = regexp.MustCompile(`\$([A-Z]{1,5})\b`)
	tickerRe  = regexp.MustCompile(`\b([A-Z]{2,5})\b`)
)

// knownSymbols gates bare-ticker matches so ordinary acronyms in headlines
// don't become symbol tags. Cashtags bypass the gate.
var knownSymbols = map[string]struct{}{
	"AAPL": {}, "GOOGL": {}, "MSFT": {}, "AMZN": {}, "TSLA": {},
	"META": {}, "NVDA": {}, "NFLX": {}, "INTC": {}, "AMD": {},
	"JPM": {}, "BAC": {}, "GS": {}, "MS": {}, "WFC": {},
	"V": {}, "MA": {},
}

// companyNames maps well-known company names to their ticker for texts that
// never spell the symbol out.
var companyNames = map[string]string{
	"apple":     "AAPL",
	"alphabet":  "GOOGL",
	"google":    "GOOGL",
	"microsoft": "MSFT",
	"amazon":    "AMZN",
	"tesla":     "TSLA",
	"meta":      "META",
	"nvidia":    "NVDA",
	"netflix":   "NFLX",
	"intel":     "INTC",
}

// ExtractSymbols returns the symbols a text mentions, deduplicated and
// sorted, capped at maxSymbolsPerItem.
func ExtractSymbols(text string) []string {
	found := make(map[string]struct{})

	for _, m := range cashtagRe.FindAllStringSubmatch(text, -1) {
		found[m[1]] = struct{}{}
	}
	for _, m := range tickerRe.FindAllStringSubmatch(text, -1) {
		if _, ok := knownSymbols[m[1]]; ok {
			found[m[1]] = struct{}{}
		}
	}
	lower := strings.ToLower(text)
	for name, sym := range companyNames {
		if strings.Contains(lower, name) {
			found[sym] = struct{}{}
		}
	}

	out := make([]string, 0, len(found))
	for s := range found {
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) > maxSymbolsPerItem {
		out = out[:maxSymbolsPerItem]
	}
	return out
}
