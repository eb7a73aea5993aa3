// Package arbitrage drives the detection loop: scan the aggregator for
// cross-venue spreads, size and fee-adjust each candidate, score it, gate
// it through the Risk Manager, and publish accepted opportunities for the
// Execution Engine (§4.5).
package arbitrage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptospreadedge/platform/internal/aggregator"
	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/domain"
	"github.com/cryptospreadedge/platform/internal/eventbus"
	"github.com/cryptospreadedge/platform/internal/metrics"
	"github.com/cryptospreadedge/platform/internal/risk"
	"github.com/cryptospreadedge/platform/pkg/logger"
)

// Config tunes the scanner (§4.5, §6).
type Config struct {
	Watchlist           []string
	MinSpreadPct        float64
	MinProfit           decimal.Decimal
	SlippageBps         float64
	ScanInterval        time.Duration
	MaxBackoff          time.Duration
	SizeCeiling         decimal.Decimal
	DEXLiquidityHaircut float64 // Open Question #3: synthetic DEX books are illiquid
}

// DefaultConfig mirrors §4.5/§6's stated defaults.
func DefaultConfig(watchlist []string) Config {
	return Config{
		Watchlist:           watchlist,
		MinSpreadPct:        0.001,
		MinProfit:           decimal.NewFromFloat(1),
		SlippageBps:         5,
		ScanInterval:        time.Second,
		MaxBackoff:          30 * time.Second,
		SizeCeiling:         decimal.NewFromFloat(5000),
		DEXLiquidityHaircut: 0.5,
	}
}

// RiskGate is the subset of risk.Manager the engine depends on.
type RiskGate interface {
	IsOpportunitySafe(opp domain.Opportunity) (bool, string)
}

// Executor is the subset of execution.Engine the scanner dispatches
// risk-accepted opportunities to (§4.5 step 6 -> §4.8). Kept as an
// interface so arbitrage never imports the execution package directly.
type Executor interface {
	Execute(ctx context.Context, opp domain.Opportunity) (domain.Execution, error)
}

// Engine runs the scan loop.
type Engine struct {
	cfg        Config
	aggregator *aggregator.Aggregator
	registry   *connector.Registry
	riskGate   RiskGate
	bus        *eventbus.Bus
	executor   Executor
	logger     *logger.Logger

	stopCh    chan struct{}
	isRunning bool
}

func New(cfg Config, agg *aggregator.Aggregator, registry *connector.Registry, riskGate RiskGate, bus *eventbus.Bus, log *logger.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		aggregator: agg,
		registry:   registry,
		riskGate:   riskGate,
		bus:        bus,
		logger:     log.Named("arbitrage"),
		stopCh:     make(chan struct{}),
	}
}

// SetExecutor wires the Execution Engine into the scanner. Dispatch is
// fire-and-forget per opportunity: scanOnce must not block on one
// opportunity's full execution lifecycle while others wait to be scanned.
func (e *Engine) SetExecutor(executor Executor) {
	e.executor = executor
}

// Run drives the per-cycle scan at cfg.ScanInterval, doubling the interval
// up to MaxBackoff after three consecutive failures and resetting to the
// configured interval on success (§4.5 "Cadence").
func (e *Engine) Run(ctx context.Context) {
	e.isRunning = true
	defer func() { e.isRunning = false }()

	interval := e.cfg.ScanInterval
	consecutiveFailures := 0
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-ticker.C:
			if err := e.scanOnce(ctx); err != nil {
				consecutiveFailures++
				e.logger.Warn("scan cycle failed - consecutive_failures: %d, err: %v", consecutiveFailures, err)
				if consecutiveFailures >= 3 {
					interval *= 2
					if interval > e.cfg.MaxBackoff {
						interval = e.cfg.MaxBackoff
					}
					ticker.Reset(interval)
				}
				continue
			}
			if interval != e.cfg.ScanInterval {
				interval = e.cfg.ScanInterval
				ticker.Reset(interval)
			}
			consecutiveFailures = 0
		}
	}
}

// Stop ends the scan loop.
func (e *Engine) Stop() {
	close(e.stopCh)
}

// scanOnce implements the §4.5 per-cycle algorithm.
func (e *Engine) scanOnce(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.ArbitrageScanDuration.Observe(time.Since(start).Seconds()) }()

	candidates, err := e.aggregator.Opportunities(ctx, e.cfg.Watchlist, e.cfg.MinSpreadPct)
	if err != nil {
		return err
	}

	for _, c := range candidates {
		metrics.ArbitrageOpportunitiesScannedTotal.WithLabelValues(c.Symbol).Inc()

		opp, ok := e.buildOpportunity(ctx, c)
		if !ok {
			continue
		}

		safe, reason := e.riskGate.IsOpportunitySafe(opp)
		if !safe {
			metrics.ArbitrageOpportunitiesRejectedTotal.WithLabelValues(reason).Inc()
			e.logger.Debug("opportunity rejected by risk manager - symbol: %s, reason: %s", opp.Symbol, reason)
			continue
		}
		metrics.ArbitrageOpportunitiesAcceptedTotal.WithLabelValues(opp.Symbol, opp.BuyVenue, opp.SellVenue).Inc()

		if e.bus != nil {
			payload := map[string]interface{}{
				"id":          opp.ID,
				"symbol":      opp.Symbol,
				"buy_venue":   opp.BuyVenue,
				"sell_venue":  opp.SellVenue,
				"net_profit":  opp.NetProfit.String(),
				"risk_score":  opp.RiskScore,
				"confidence":  opp.Confidence,
				"timestamp":   opp.Timestamp.Unix(),
			}
			if err := e.bus.Publish(ctx, eventbus.StreamOpportunities, payload); err != nil {
				e.logger.Warn("publishing opportunity failed - symbol: %s, err: %v", opp.Symbol, err)
			}
		}

		if e.executor != nil {
			go e.dispatch(ctx, opp)
		}
	}

	return nil
}

// dispatch hands opp to the Execution Engine off the scan goroutine, so a
// slow or in-flight-rejected execution never stalls the next scan cycle.
func (e *Engine) dispatch(ctx context.Context, opp domain.Opportunity) {
	exec, err := e.executor.Execute(ctx, opp)
	if err != nil {
		e.logger.Warn("execution dispatch failed - symbol: %s, buy_venue: %s, sell_venue: %s, err: %v",
			opp.Symbol, opp.BuyVenue, opp.SellVenue, err)
		return
	}
	e.logger.Info("execution dispatched - symbol: %s, status: %s, net_profit: %s",
		opp.Symbol, exec.Status, exec.NetProfit)
}

// buildOpportunity turns a raw SpreadCandidate into a fully sized,
// fee-adjusted, scored Opportunity, or reports !ok if the candidate isn't
// tradable (not backed by two connected venues, or net profit too low).
func (e *Engine) buildOpportunity(ctx context.Context, c aggregator.SpreadCandidate) (domain.Opportunity, bool) {
	buyVenue, sellVenue := c.MinSource, c.MaxSource

	buyEntry, buyOK := connector.Catalog[buyVenue]
	sellEntry, sellOK := connector.Catalog[sellVenue]
	if !buyOK || !sellOK {
		return domain.Opportunity{}, false // one side is an alt data source, not an executable venue
	}

	conns := e.registry.Connectors()
	buyConn, ok := conns[buyVenue]
	if !ok || !buyConn.IsConnected() {
		return domain.Opportunity{}, false
	}
	sellConn, ok := conns[sellVenue]
	if !ok || !sellConn.IsConnected() {
		return domain.Opportunity{}, false
	}

	buyPx := decimal.NewFromFloat(c.MinPrice)
	sellPx := decimal.NewFromFloat(c.MaxPrice)

	size := e.estimateSize(ctx, buyConn, sellConn, buyPx, c.Symbol)
	if size.LessThanOrEqual(decimal.Zero) {
		return domain.Opportunity{}, false
	}

	notional := size.Mul(buyPx)
	fees := notional.Mul(decimal.NewFromFloat(buyEntry.TakerFee + sellEntry.TakerFee))
	slippage := notional.Mul(decimal.NewFromFloat(e.cfg.SlippageBps / 10000))

	grossProfit := sellPx.Sub(buyPx).Mul(size)
	netProfit := grossProfit.Sub(fees).Sub(slippage)

	if netProfit.LessThanOrEqual(e.cfg.MinProfit) {
		return domain.Opportunity{}, false
	}

	liquidityCoverage := 1.0
	if buyEntry.Kind == connector.VenueKindDEX || sellEntry.Kind == connector.VenueKindDEX {
		liquidityCoverage -= e.cfg.DEXLiquidityHaircut
	}
	venueRiskPenalty := (2 - buyEntry.TrustScore - sellEntry.TrustScore) / 2

	const w1, w2, w3 = 0.4, 0.3, 0.3
	volatility := c.SpreadPct // a wide cross-venue spread is itself a proxy for short-term volatility
	riskScore := clamp01(w1*volatility + w2*(1-liquidityCoverage) + w3*venueRiskPenalty)

	spread := sellPx.Sub(buyPx)
	now := time.Now()

	return domain.Opportunity{
		ID:             uuid.New().String(),
		Symbol:         c.Symbol,
		BuyVenue:       buyVenue,
		SellVenue:      sellVenue,
		BuyPx:          buyPx,
		SellPx:         sellPx,
		Spread:         spread,
		SpreadPct:      decimal.NewFromFloat(c.SpreadPct),
		TradableSize:   size,
		GrossProfit:    grossProfit,
		Fees:           fees.Add(slippage),
		NetProfit:      netProfit,
		RiskScore:      riskScore,
		Confidence:     c.Confidence,
		EstExecSeconds: 2.0,
		Timestamp:      now,
	}, true
}

// estimateSize caps tradable size at
// min(availableBase on sellVenue, availableQuote/buyPx on buyVenue, SizeCeiling)
// per §4.5 step 2.
func (e *Engine) estimateSize(ctx context.Context, buyConn, sellConn connector.Connector, buyPx decimal.Decimal, symbol string) decimal.Decimal {
	baseAsset, quoteAsset := splitSymbol(symbol)
	size := e.cfg.SizeCeiling

	if balances, err := sellConn.GetBalances(ctx); err == nil {
		if base := findBalance(balances, baseAsset); !base.IsZero() && base.LessThan(size) {
			size = base
		}
	}

	if balances, err := buyConn.GetBalances(ctx); err == nil && !buyPx.IsZero() {
		if quote := findBalance(balances, quoteAsset); !quote.IsZero() {
			affordable := quote.Div(buyPx)
			if affordable.LessThan(size) {
				size = affordable
			}
		}
	}

	return size
}

// splitSymbol breaks a canonical BASE/QUOTE symbol into its two assets.
func splitSymbol(symbol string) (base, quote string) {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '/' {
			return symbol[:i], symbol[i+1:]
		}
	}
	return symbol, ""
}

func findBalance(balances []connector.Balance, asset string) decimal.Decimal {
	for _, b := range balances {
		if b.Asset == asset {
			return b.Free
		}
	}
	return decimal.Zero
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
