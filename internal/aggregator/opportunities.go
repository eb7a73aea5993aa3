package aggregator

import (
	"context"
	"time"
)

// SpreadCandidate is a lightweight, unscored cross-source price dislocation:
// a quick scan output for callers (diagnostics, the CLI, a dashboard) that
// don't need the full opportunity scoring internal/arbitrage performs.
type SpreadCandidate struct {
	Symbol     string    `json:"symbol"`
	SpreadPct  float64   `json:"spread_pct"`
	MinPrice   float64   `json:"min_price"`
	MaxPrice   float64   `json:"max_price"`
	MinSource  string    `json:"min_source"`
	MaxSource  string    `json:"max_source"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// minConfidenceForScan mirrors the original aggregator's
// get_arbitrage_opportunities threshold: only reasonably corroborated
// quotes are worth surfacing as a candidate.
const minConfidenceForScan = 0.7

// Opportunities does a quick, unscored scan for symbols whose cross-source
// spread already clears minSpreadPct, using the same per-source price
// collection as GetAggregatedData. It exists for callers that want a fast
// signal without running the full arbitrage pipeline; internal/arbitrage
// computes the authoritative, fee-aware Opportunity list.
func (a *Aggregator) Opportunities(ctx context.Context, symbols []string, minSpreadPct float64) ([]SpreadCandidate, error) {
	perSource := a.collect(ctx, symbols)

	var out []SpreadCandidate
	for _, symbol := range symbols {
		quote, ok := reconcile(symbol, perSource)
		if !ok || quote.Confidence < minConfidenceForScan {
			continue
		}

		var minPrice, maxPrice float64
		var minSource, maxSource string
		first := true
		for sourceName, data := range perSource {
			t, ok := data[symbol]
			if !ok {
				continue
			}
			price, _ := t.Last.Float64()
			if price <= 0 {
				continue
			}
			if first || price < minPrice {
				minPrice = price
				minSource = sourceName
			}
			if first || price > maxPrice {
				maxPrice = price
				maxSource = sourceName
			}
			first = false
		}
		if minSource == "" || maxSource == "" || minPrice <= 0 {
			continue
		}

		spreadPct := (maxPrice - minPrice) / minPrice
		if spreadPct < minSpreadPct {
			continue
		}

		out = append(out, SpreadCandidate{
			Symbol:     symbol,
			SpreadPct:  spreadPct,
			MinPrice:   minPrice,
			MaxPrice:   maxPrice,
			MinSource:  minSource,
			MaxSource:  maxSource,
			Confidence: quote.Confidence,
			Timestamp:  time.Now(),
		})
	}

	return out, nil
}
