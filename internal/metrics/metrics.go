// Package metrics holds the platform's Prometheus domain metrics: one
// package-level collector per concern, registered against the default
// registerer so they're served by the existing promhttp.Handler() in
// cmd/platform (§8 "observability").
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AggregatorCacheHitsTotal counts GetAggregatedData calls served from
	// the quote cache without re-polling any connector or source.
	AggregatorCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_cache_hits_total",
		Help: "Total number of aggregator quote-cache hits",
	})

	// AggregatorCacheMissesTotal counts GetAggregatedData calls that had
	// to fan out to connectors and sources.
	AggregatorCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_cache_misses_total",
		Help: "Total number of aggregator quote-cache misses",
	})

	// AggregatorReconcileDuration times one reconciliation round across
	// every requested symbol.
	AggregatorReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aggregator_reconcile_duration_seconds",
		Help:    "Time spent reconciling per-source tickers into AggregatedQuotes",
		Buckets: prometheus.DefBuckets,
	})

	// AggregatorSymbolsReconciledTotal counts symbols that produced a
	// usable AggregatedQuote, labeled by symbol.
	AggregatorSymbolsReconciledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregator_symbols_reconciled_total",
		Help: "Total number of symbols with at least one usable reconciled quote",
	}, []string{"symbol"})

	// ArbitrageOpportunitiesScannedTotal counts every spread candidate the
	// scanner evaluated, before risk gating.
	ArbitrageOpportunitiesScannedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbitrage_opportunities_scanned_total",
		Help: "Total number of spread candidates evaluated by the scan loop",
	}, []string{"symbol"})

	// ArbitrageOpportunitiesAcceptedTotal counts opportunities that passed
	// the risk gate and were published/dispatched.
	ArbitrageOpportunitiesAcceptedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbitrage_opportunities_accepted_total",
		Help: "Total number of opportunities accepted by the risk manager",
	}, []string{"symbol", "buy_venue", "sell_venue"})

	// ArbitrageOpportunitiesRejectedTotal counts opportunities the risk
	// gate turned away, labeled by reason.
	ArbitrageOpportunitiesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbitrage_opportunities_rejected_total",
		Help: "Total number of opportunities rejected by the risk manager",
	}, []string{"reason"})

	// ArbitrageScanDuration times one full scanOnce cycle.
	ArbitrageScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbitrage_scan_duration_seconds",
		Help:    "Time spent in one scan cycle",
		Buckets: prometheus.DefBuckets,
	})

	// ExecutionsTotal counts completed Execute calls, labeled by terminal
	// status (COMPLETED, ROLLED_BACK, FAILED).
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executions_total",
		Help: "Total number of executions by terminal status",
	}, []string{"status"})

	// ExecutionDuration times the paired leg placement in Execute, from
	// after semaphore acquisition until both legs return; a rollback that
	// follows is not included.
	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "execution_duration_seconds",
		Help:    "Time spent executing a paired buy/sell opportunity",
		Buckets: prometheus.DefBuckets,
	})

	// ExecutionNetProfit observes the realized net profit (or loss) of
	// every terminal execution, in quote currency units.
	ExecutionNetProfit = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "execution_net_profit",
		Help:    "Realized net profit per execution",
		Buckets: []float64{-100, -10, -1, 0, 1, 10, 100, 1000},
	})

	// ExecutionRollbacksTotal counts single-leg rollbacks, labeled by the
	// leg that was reversed.
	ExecutionRollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "execution_rollbacks_total",
		Help: "Total number of single-leg rollbacks by reversed side",
	}, []string{"reversed_side"})

	// RiskRejectionsTotal counts every IsOpportunitySafe/IsPositionSafe
	// rejection, labeled by reason.
	RiskRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_rejections_total",
		Help: "Total number of opportunities or positions rejected by the risk manager",
	}, []string{"reason"})

	// RiskDailyPnL tracks the running daily PnL RiskState exposes.
	RiskDailyPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "risk_daily_pnl",
		Help: "Current daily realized PnL tracked by the risk manager",
	})

	// RiskOpenPositions tracks the current open-position count.
	RiskOpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "risk_open_positions",
		Help: "Current number of open positions tracked by the risk manager",
	})

	// OrdersPlacedTotal counts successful PlaceOrder calls, labeled by
	// venue and side.
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed by venue and side",
	}, []string{"venue", "side"})

	// OrdersRejectedTotal counts PlaceOrder calls that do not produce an
	// order, labeled by reason: validation failure, pending-order cap, no
	// connector for the venue, or an error from the venue connector.
	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of PlaceOrder calls rejected, by reason",
	}, []string{"reason"})

	// OrdersFilledTotal counts orders the monitoring loop observed reach
	// OrderStatusFilled.
	OrdersFilledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_filled_total",
		Help: "Total number of orders observed filled by venue",
	}, []string{"venue"})

	// OrdersCancelledTotal counts orders cancelled, either by explicit
	// CancelOrder or by the timeout path in processPending.
	OrdersCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of orders cancelled by venue and cause",
	}, []string{"venue", "cause"})

	// OrdersPending tracks the current count of non-terminal orders the
	// manager is tracking.
	OrdersPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orders_pending",
		Help: "Current number of non-terminal orders tracked by the order manager",
	})
)
