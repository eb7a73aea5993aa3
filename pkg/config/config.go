// Package config loads the platform's configuration from file, environment,
// and defaults via viper, and can watch the file for live reload (§6
// "Configuration (enumerated)").
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the root configuration tree. Every field here maps to one of
// spec.md §6's enumerated keys, plus the ambient sections (server,
// database, redis, kafka, security, monitoring) this stack always
// carries regardless of the domain.
type Config struct {
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Security   SecurityConfig   `mapstructure:"security"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Orders    OrdersConfig    `mapstructure:"orders"`
	Retry     RetryConfig     `mapstructure:"retry"`

	Venues  VenuesConfig `mapstructure:"venues"`
	Sources SourcesConfig `mapstructure:"sources"`

	Watchlist []string `mapstructure:"watchlist"`

	// Web3 carries the on-chain RPC/contract settings the DEX connector
	// and the adapted DeFi components need.
	Web3 Web3Config `mapstructure:"web3"`
}

// ServerConfig configures the ambient ops HTTP surface (healthz/metrics).
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

// DatabaseConfig configures the optional Postgres execution/order audit log.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
}

// RedisConfig configures the cache and the event bus's Streams transport.
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// KafkaConfig configures the event bus's best-effort Kafka mirror.
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	RetryMax      int      `mapstructure:"retry_max"`
	RequiredAcks  string   `mapstructure:"required_acks"`
}

// SecurityConfig configures the credentials store's passphrase and any
// JWT-protected ops endpoints.
type SecurityConfig struct {
	CredentialsPassphrase string `mapstructure:"credentials_passphrase"`
	CredentialsFile       string `mapstructure:"credentials_file"`
	JWTSecret             string `mapstructure:"jwt_secret"`
}

// MonitoringConfig configures the Prometheus metrics surface.
type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	PrometheusPort    int    `mapstructure:"prometheus_port"`
	MetricsPath       string `mapstructure:"metrics_path"`
}

// ArbitrageConfig matches §6's arbitrage-cadence keys directly.
type ArbitrageConfig struct {
	ScanIntervalSeconds     int     `mapstructure:"scan_interval_seconds"`
	MinSpreadPct            float64 `mapstructure:"min_spread_pct"`
	MinProfit               float64 `mapstructure:"min_profit"`
	SlippageBps             float64 `mapstructure:"slippage_bps"`
	SizeCeiling             float64 `mapstructure:"size_ceiling"`
	DEXLiquidityHaircut     float64 `mapstructure:"dex_liquidity_haircut"`
	MaxConcurrentExecutions int     `mapstructure:"max_concurrent_executions"`
	AggregatorCacheTTLSec   int     `mapstructure:"aggregator_cache_ttl_seconds"`
	StreamMaxLen            int64   `mapstructure:"stream_max_len"`
}

// RiskConfig matches §6's risk.* keys directly.
type RiskConfig struct {
	MaxPositionSize  float64 `mapstructure:"max_position_size"`
	MaxDailyLoss     float64 `mapstructure:"max_daily_loss"`
	MaxDailyTrades   int     `mapstructure:"max_daily_trades"`
	MaxPositionRisk  float64 `mapstructure:"max_position_risk"`
	MaxOpenPositions int     `mapstructure:"max_open_positions"`
}

// OrdersConfig matches §6's order-timeout key plus the order manager's
// pending-order cap.
type OrdersConfig struct {
	MaxPendingOrders    int `mapstructure:"max_pending_orders"`
	OrderTimeoutSeconds int `mapstructure:"order_timeout_seconds"`
}

// RetryConfig matches §6's retry.* keys directly.
type RetryConfig struct {
	Attempts     int `mapstructure:"attempts"`
	BaseDelayMs  int `mapstructure:"base_delay_ms"`
	BackoffMult  int `mapstructure:"backoff"`
}

// VenuesConfig carries which venue connectors to construct; credentials
// themselves live in the encrypted internal/credentials store, never here.
type VenuesConfig struct {
	Enabled []string `mapstructure:"enabled"`
}

// SourcesConfig carries which alternative data sources to construct.
type SourcesConfig struct {
	Enabled []string `mapstructure:"enabled"`
}

// Web3Config groups on-chain RPC endpoints, kept for the Uniswap
// connector.
type Web3Config struct {
	Ethereum EthereumConfig `mapstructure:"ethereum"`
	Bitcoin  BitcoinConfig  `mapstructure:"bitcoin"`
	Solana   SolanaConfig   `mapstructure:"solana"`
	DeFi     DeFiConfig     `mapstructure:"defi"`
}

// EthereumConfig configures the blockchain.EthereumClient used by the
// Uniswap venue connector.
type EthereumConfig struct {
	RPCURL     string `mapstructure:"rpc_url"`
	TestnetURL string `mapstructure:"testnet_url"`
	PrivateKey string `mapstructure:"private_key"`
	GasLimit   int64  `mapstructure:"gas_limit"`
	GasPrice   int64  `mapstructure:"gas_price"`
}

// BitcoinConfig is kept for symmetry with the teacher's multi-chain
// wallet stack; unused by any SPEC_FULL.md component (no BTC venue).
type BitcoinConfig struct {
	RPCURL      string `mapstructure:"rpc_url"`
	RPCUsername string `mapstructure:"rpc_username"`
	RPCPassword string `mapstructure:"rpc_password"`
}

// SolanaConfig configures pkg/blockchain's SolanaClient factory.
type SolanaConfig struct {
	RPCURL     string `mapstructure:"rpc_url"`
	TestnetURL string `mapstructure:"testnet_url"`
	PrivateKey string `mapstructure:"private_key"`
}

// DeFiConfig configures the Uniswap venue connector's router identity.
// Trimmed down from the teacher's lending/yield-farming fields
// (Aave/Compound/Chainlink/1inch) — none of them map to a SPEC_FULL.md
// component, there's no lending or yield-farming venue in scope.
type DeFiConfig struct {
	UniswapV3Router string `mapstructure:"uniswap_v3_router"`
}

// Loader wraps a *viper.Viper with the platform's defaults, env binding,
// and live-reload wiring.
type Loader struct {
	v *viper.Viper
}

// LoaderOptions configures where Load looks for config.
type LoaderOptions struct {
	ConfigName  string
	ConfigPaths []string
	ConfigType  string
	EnvPrefix   string
}

// DefaultLoaderOptions mirrors the teacher's enhanced-config defaults,
// renamed for this platform.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		ConfigName:  "config",
		ConfigPaths: []string{".", "./config", "./configs"},
		ConfigType:  "yaml",
		EnvPrefix:   "CRYPTOSPREADEDGE",
	}
}

// NewLoader builds a Loader with defaults set and environment variables
// bound (dots/dashes replaced with underscores, per the teacher's
// SetEnvKeyReplacer convention).
func NewLoader(opts LoaderOptions) *Loader {
	v := viper.New()
	v.SetConfigName(opts.ConfigName)
	v.SetConfigType(opts.ConfigType)
	for _, p := range opts.ConfigPaths {
		v.AddConfigPath(p)
	}
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)
	return &Loader{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "cryptospreadedge")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "300s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "cryptospreadedge-stream-auditor")
	v.SetDefault("kafka.retry_max", 5)
	v.SetDefault("kafka.required_acks", "all")

	v.SetDefault("security.credentials_file", "./credentials.json")

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.prometheus_port", 9090)
	v.SetDefault("monitoring.metrics_path", "/metrics")

	// §6 enumerated defaults.
	v.SetDefault("arbitrage.scan_interval_seconds", 1)
	v.SetDefault("arbitrage.min_spread_pct", 0.001)
	v.SetDefault("arbitrage.min_profit", 1)
	v.SetDefault("arbitrage.slippage_bps", 5)
	v.SetDefault("arbitrage.size_ceiling", 5000)
	v.SetDefault("arbitrage.dex_liquidity_haircut", 0.5)
	v.SetDefault("arbitrage.max_concurrent_executions", 8)
	v.SetDefault("arbitrage.aggregator_cache_ttl_seconds", 30)
	v.SetDefault("arbitrage.stream_max_len", 10000)

	v.SetDefault("risk.max_position_size", 10000)
	v.SetDefault("risk.max_daily_loss", 1000)
	v.SetDefault("risk.max_daily_trades", 200)
	v.SetDefault("risk.max_position_risk", 0.02)
	v.SetDefault("risk.max_open_positions", 20)

	v.SetDefault("orders.max_pending_orders", 100)
	v.SetDefault("orders.order_timeout_seconds", 30)

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.base_delay_ms", 200)
	v.SetDefault("retry.backoff", 2)

	v.SetDefault("venues.enabled", []string{"binance", "coinbase", "kraken", "okx", "uniswap"})
	v.SetDefault("sources.enabled", []string{"coingecko", "coinmarketcap"})
	v.SetDefault("watchlist", []string{"BTC/USDT", "ETH/USDT"})
}

// Load reads the config file (if present; absence is not an error) and
// unmarshals the merged file/env/defaults view into a Config.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Watch re-invokes onChange with the freshly-reloaded Config every time
// the backing file changes on disk.
func (l *Loader) Watch(onChange func(*Config)) {
	l.v.OnConfigChange(func(_ fsnotify.Event) {
		var cfg Config
		if err := l.v.Unmarshal(&cfg); err != nil {
			return
		}
		onChange(&cfg)
	})
	l.v.WatchConfig()
}

// ConfigFileUsed reports which file, if any, was read.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// ScanInterval/OrderTimeout/etc. as time.Duration convenience accessors.
func (c ArbitrageConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

func (c OrdersConfig) OrderTimeout() time.Duration {
	return time.Duration(c.OrderTimeoutSeconds) * time.Second
}
