// Command platform launches the arbitrage core: venue connectors,
// alternative sources, the aggregator, the risk manager, the arbitrage
// scanner, the order/execution engines, and the position/signal layer,
// wired together over the Redis Streams event bus with an optional
// Kafka mirror. It exposes a minimal ops HTTP surface (healthz, metrics,
// a debug opportunities feed) — not a full API gateway (out of scope).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cryptospreadedge/platform/internal/aggregator"
	"github.com/cryptospreadedge/platform/internal/arbitrage"
	"github.com/cryptospreadedge/platform/internal/connector"
	"github.com/cryptospreadedge/platform/internal/connector/venues"
	"github.com/cryptospreadedge/platform/internal/credentials"
	"github.com/cryptospreadedge/platform/internal/eventbus"
	"github.com/cryptospreadedge/platform/internal/eventbus/kafkabridge"
	"github.com/cryptospreadedge/platform/internal/execution"
	"github.com/cryptospreadedge/platform/internal/orders"
	"github.com/cryptospreadedge/platform/internal/position"
	"github.com/cryptospreadedge/platform/internal/risk"
	"github.com/cryptospreadedge/platform/internal/signal"
	"github.com/cryptospreadedge/platform/internal/source"
	"github.com/cryptospreadedge/platform/pkg/blockchain"
	"github.com/cryptospreadedge/platform/pkg/cache"
	"github.com/cryptospreadedge/platform/pkg/concurrency"
	"github.com/cryptospreadedge/platform/pkg/config"
	"github.com/cryptospreadedge/platform/pkg/kafka"
	"github.com/cryptospreadedge/platform/pkg/logger"
	pkgredis "github.com/cryptospreadedge/platform/pkg/redis"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "platform",
		Short:   "Real-time multi-venue arbitrage and trading core",
		Version: version,
		RunE:    runServe,
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logger.New("platform")

	loader := config.NewLoader(config.DefaultLoaderOptions())
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	credStore, err := credentials.Open(cfg.Security.CredentialsFile, cfg.Security.CredentialsPassphrase)
	if err != nil {
		return fmt.Errorf("opening credentials store: %w", err)
	}

	redisClient, err := pkgredis.NewRedisClient(&pkgredis.Config{
		Addr: fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redisClient.Close()

	quoteCache, err := cache.NewRedisCache(&cache.Config{
		Host:   cfg.Redis.Host,
		Port:   cfg.Redis.Port,
		DB:     cfg.Redis.DB,
		Prefix: "aggregator",
	})
	if err != nil {
		return fmt.Errorf("connecting cache to redis: %w", err)
	}

	bus := eventbus.New(redisClient, log)

	var bridge *kafkabridge.Bridge
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(&kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		if err != nil {
			log.Warn("kafka producer unavailable, mirror disabled - err: %v", err)
		} else {
			bridge = kafkabridge.New(producer, log)
		}
	}

	registry := buildConnectorRegistry(cfg, credStore, log)
	sources := buildSourceRegistry(cfg, log)

	agg := aggregator.New(registry, sources, quoteCache, log)
	riskMgr := risk.New(risk.Limits{
		MaxPositionSize:  decimal.NewFromFloat(cfg.Risk.MaxPositionSize),
		MaxDailyLoss:     decimal.NewFromFloat(cfg.Risk.MaxDailyLoss),
		MaxDailyTrades:   cfg.Risk.MaxDailyTrades,
		MaxPositionRisk:  cfg.Risk.MaxPositionRisk,
		MaxOpenPositions: cfg.Risk.MaxOpenPositions,
	}, log)

	arbCfg := arbitrage.Config{
		Watchlist:           cfg.Watchlist,
		MinSpreadPct:        cfg.Arbitrage.MinSpreadPct,
		MinProfit:           decimal.NewFromFloat(cfg.Arbitrage.MinProfit),
		SlippageBps:         cfg.Arbitrage.SlippageBps,
		ScanInterval:        time.Duration(cfg.Arbitrage.ScanIntervalSeconds) * time.Second,
		MaxBackoff:          30 * time.Second,
		SizeCeiling:         decimal.NewFromFloat(cfg.Arbitrage.SizeCeiling),
		DEXLiquidityHaircut: cfg.Arbitrage.DEXLiquidityHaircut,
	}
	arbEngine := arbitrage.New(arbCfg, agg, registry, riskMgr, bus, log)

	orderMgr := orders.New(orders.Config{
		MaxPendingOrders: cfg.Orders.MaxPendingOrders,
		OrderTimeout:     cfg.Orders.OrderTimeout(),
		RetryAttempts:    cfg.Retry.Attempts,
		RetryDelay:       time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
		MonitorInterval:  100 * time.Millisecond,
		CleanupInterval:  5 * time.Minute,
		CleanupCutoff:    time.Hour,
	}, registry, bus, log)

	execEngine := execution.New(orderMgr, bus, log, cfg.Arbitrage.MaxConcurrentExecutions)
	arbEngine.SetExecutor(execEngine)

	positions := position.New(decimal.NewFromInt(100000), log)
	sizing := position.FixedSize{Amount: decimal.NewFromFloat(cfg.Arbitrage.SizeCeiling)}
	signalConsumer := signal.NewConsumer(positions, sizing, decimal.NewFromFloat(cfg.Arbitrage.SizeCeiling), bus, log)

	orderMgr.Start(ctx)
	defer orderMgr.Stop()

	go arbEngine.Run(ctx)
	defer arbEngine.Stop()

	go consumeSignals(ctx, bus, signalConsumer, log)
	if bridge != nil {
		go mirrorToKafka(ctx, bus, bridge, log)
	}

	server := buildOpsServer(cfg, agg, riskMgr)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ops server stopped - err: %v", err)
		}
	}()

	log.Info("platform started - watchlist: %v, venues: %v", cfg.Watchlist, cfg.Venues.Enabled)
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func buildConnectorRegistry(cfg *config.Config, creds *credentials.Store, log *logger.Logger) *connector.Registry {
	// reg is referenced by the factory closures below before it exists; Go
	// closures capture by reference so this is safe as long as no factory
	// runs before NewRegistry returns and assigns it (getOrCreate only runs
	// from ConnectAll, called after this function has reg in hand).
	var reg *connector.Registry
	reg = connector.NewRegistry(log, creds, map[string]connector.Factory{
		"binance": func(c connector.Credentials) (connector.Connector, error) {
			return venues.NewBinance(c, log, reg.RateLimiter(), concurrency.DefaultRetryConfig(), reg.CircuitBreaker("binance")), nil
		},
		"coinbase": func(c connector.Credentials) (connector.Connector, error) {
			return venues.NewCoinbase(c, log, reg.RateLimiter(), concurrency.DefaultRetryConfig(), reg.CircuitBreaker("coinbase")), nil
		},
		"kraken": func(c connector.Credentials) (connector.Connector, error) {
			return venues.NewKraken(c, log, reg.RateLimiter(), concurrency.DefaultRetryConfig(), reg.CircuitBreaker("kraken")), nil
		},
		"okx": func(c connector.Credentials) (connector.Connector, error) {
			return venues.NewOKX(c, log, reg.RateLimiter(), concurrency.DefaultRetryConfig(), reg.CircuitBreaker("okx")), nil
		},
		"uniswap": func(c connector.Credentials) (connector.Connector, error) {
			ethClient, err := blockchain.NewEthereumClient(cfg.Web3.Ethereum)
			if err != nil {
				return nil, err
			}
			return venues.NewUniswap(ethClient, cfg.Web3.Ethereum.RPCURL, cfg.Web3.DeFi.UniswapV3Router, log, reg.RateLimiter(), concurrency.DefaultRetryConfig()), nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, venue := range cfg.Venues.Enabled {
		if err := reg.ConnectAll(ctx, []string{venue})[venue]; err != nil {
			log.Warn("venue connect failed - venue: %s, err: %v", venue, err)
		}
	}
	return reg
}

func buildSourceRegistry(cfg *config.Config, log *logger.Logger) *source.Registry {
	var sources []source.Source
	for _, name := range cfg.Sources.Enabled {
		switch name {
		case "coingecko":
			sources = append(sources, source.NewCoinGecko("", concurrency.DefaultRetryConfig(), log))
		case "coinmarketcap":
			sources = append(sources, source.NewCoinMarketCap("", concurrency.DefaultRetryConfig(), log))
		}
	}
	return source.NewRegistry(log, sources...)
}

func consumeSignals(ctx context.Context, bus *eventbus.Bus, consumer *signal.Consumer, log *logger.Logger) {
	if err := bus.Consume(ctx, eventbus.StreamSignalsGenerated, "platform-position", "platform", consumer.FromSignalsStream); err != nil {
		log.Warn("signal consumer stopped - err: %v", err)
	}
}

func mirrorToKafka(ctx context.Context, bus *eventbus.Bus, bridge *kafkabridge.Bridge, log *logger.Logger) {
	streams := []string{
		eventbus.StreamOpportunities,
		eventbus.StreamExecutions,
		eventbus.StreamOrders,
		eventbus.StreamOrdersUpdated,
		eventbus.StreamOrdersExecuted,
		eventbus.StreamOrdersCancelled,
		eventbus.StreamPositionsOpened,
		eventbus.StreamPositionsClosed,
	}
	for _, stream := range streams {
		go func(stream string) {
			if err := bus.Consume(ctx, stream, "kafka-mirror", "platform", bridge.Mirror(stream)); err != nil {
				log.Warn("kafka mirror consumer stopped - stream: %s, err: %v", stream, err)
			}
		}(stream)
	}
}

func buildOpsServer(cfg *config.Config, agg *aggregator.Aggregator, riskMgr *risk.Manager) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().Unix()})
	})
	router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	router.GET("/debug/opportunities", func(c *gin.Context) {
		candidates, err := agg.Opportunities(c.Request.Context(), cfg.Watchlist, cfg.Arbitrage.MinSpreadPct)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"opportunities": candidates, "risk_state": riskMgr.State()})
	})

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}
}
