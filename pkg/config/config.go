package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AtashM95/tradebot/pkg/resilience"
)

const (
	DataSourceSynthetic  = "synthetic"
	DataSourceClickHouse = "clickhouse"

	AnalyticsLocal  = "local"
	AnalyticsRemote = "remote"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		TimeFormat string `yaml:"time_format"`
		Collect    bool   `yaml:"collect"`
		Topic      string `yaml:"topic"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Orchestrator struct {
		Interval        time.Duration `yaml:"interval"`
		BarsPerAnalysis int           `yaml:"bars_per_analysis"`
		AutoStart       bool          `yaml:"auto_start"`
	} `yaml:"orchestrator"`
	Watchlist struct {
		Defaults []string `yaml:"defaults"`
	} `yaml:"watchlist"`
	Backtest struct {
		Years       int    `yaml:"years"`
		TrainDays   int    `yaml:"train_days"`
		TestDays    int    `yaml:"test_days"`
		StepDays    int    `yaml:"step_days"`
		Parallelism int    `yaml:"parallelism"`
		Strategy    string `yaml:"strategy"`
	} `yaml:"backtest"`
	Governance struct {
		DriftThreshold float64       `yaml:"drift_threshold"`
		DriftAlpha     float64       `yaml:"drift_alpha"`
		DriftCacheTTL  time.Duration `yaml:"drift_cache_ttl"`
		ShadowMargin   float64       `yaml:"shadow_margin"`
		PrimaryMetric  string        `yaml:"primary_metric"`
	} `yaml:"governance"`
	Live struct {
		// PIN is read from LIVE_UNLOCK_PIN only.
		PIN             string `yaml:"-"`
		ConfirmPhrase   string `yaml:"confirm_phrase"`
		SessionMinutes  int    `yaml:"session_minutes"`
		UnlockPerMinute int    `yaml:"unlock_attempts_per_minute"`
	} `yaml:"live"`
	Risk struct {
		Equity             float64 `yaml:"equity"`
		Cash               float64 `yaml:"cash"`
		CashBuffer         float64 `yaml:"cash_buffer"`
		RiskPerTrade       float64 `yaml:"risk_per_trade"`
		MaxPositionWeight  float64 `yaml:"max_position_weight"`
		TradeQueueTTLHours int     `yaml:"trade_queue_ttl_hours"`
	} `yaml:"risk"`
	Data struct {
		Source   string                   `yaml:"source"`
		CacheTTL time.Duration            `yaml:"cache_ttl"`
		Retry    resilience.RetryConfig   `yaml:"retry"`
		Breaker  resilience.BreakerConfig `yaml:"breaker"`
	} `yaml:"data"`
	SQLite struct {
		Path        string        `yaml:"path"`
		BusyTimeout time.Duration `yaml:"busy_timeout"`
	} `yaml:"sqlite"`
	Redis struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size"`
		MinIdleConns int           `yaml:"min_idle_conns"`
		Timeout      time.Duration `yaml:"timeout"`
		Prefix       string        `yaml:"prefix"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled         bool     `yaml:"enabled"`
		Brokers         []string `yaml:"brokers"`
		SimulationTopic string   `yaml:"simulation_topic"`
		LiveTopic       string   `yaml:"live_topic"`
		RequiredAcks    int      `yaml:"required_acks"`
		Compression     string   `yaml:"compression"`
		Producer        struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		Table            string        `yaml:"table"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Analytics struct {
		Mode     string                   `yaml:"mode"`
		URL      string                   `yaml:"url"`
		Timeout  time.Duration            `yaml:"timeout"`
		MinScore float64                  `yaml:"min_score"`
		Retry    resilience.RetryConfig   `yaml:"retry"`
		Breaker  resilience.BreakerConfig `yaml:"breaker"`
	} `yaml:"analytics"`
}

// Default returns a configuration that runs fully offline: synthetic bars,
// a local SQLite file, no Redis, Kafka or ClickHouse.
func Default() *Config {
	var c Config
	c.Environment = "development"
	c.Server.Port = 8000
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"
	c.Logging.TimeFormat = time.RFC3339
	c.Logging.Topic = "tradebot.logs"
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	c.Orchestrator.Interval = time.Minute
	c.Orchestrator.BarsPerAnalysis = 160
	c.Watchlist.Defaults = []string{"SPY", "QQQ", "AAPL", "MSFT", "NVDA"}
	c.Backtest.Years = 5
	c.Backtest.TrainDays = 504
	c.Backtest.TestDays = 126
	c.Backtest.StepDays = 63
	c.Backtest.Parallelism = 4
	c.Backtest.Strategy = "trend_following"
	c.Governance.DriftThreshold = 0.15
	c.Governance.DriftAlpha = 0.05
	c.Governance.DriftCacheTTL = 10 * time.Minute
	c.Governance.ShadowMargin = 0.1
	c.Governance.PrimaryMetric = "accuracy"
	c.Live.ConfirmPhrase = "I_UNDERSTAND_LIVE_TRADING_RISK"
	c.Live.SessionMinutes = 15
	c.Live.UnlockPerMinute = 5
	c.Risk.Cash = 100000
	c.Risk.CashBuffer = 0.08
	c.Risk.RiskPerTrade = 0.005
	c.Risk.MaxPositionWeight = 0.12
	c.Risk.TradeQueueTTLHours = 48
	c.Data.Source = DataSourceSynthetic
	c.Data.CacheTTL = 5 * time.Minute
	c.Data.Retry = resilience.DefaultRetryConfig()
	c.Data.Breaker = resilience.DefaultBreakerConfig()
	c.SQLite.Path = "data/tradebot.db"
	c.SQLite.BusyTimeout = 5 * time.Second
	c.Redis.Host = "localhost"
	c.Redis.Port = 6379
	c.Redis.PoolSize = 10
	c.Redis.Timeout = 3 * time.Second
	c.Redis.Prefix = "tradebot"
	c.Kafka.SimulationTopic = "signals.simulation"
	c.Kafka.LiveTopic = "signals.live"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "snappy"
	c.Kafka.Producer.MaxAttempts = 3
	c.Kafka.Producer.Linger = 10 * time.Millisecond
	c.Kafka.Producer.WriteTimeout = 10 * time.Second
	c.Kafka.Producer.ReadTimeout = 10 * time.Second
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "market"
	c.ClickHouse.Table = "daily_bars"
	c.ClickHouse.DialTimeout = 5 * time.Second
	c.ClickHouse.ReadTimeout = 10 * time.Second
	c.Analytics.Mode = AnalyticsLocal
	c.Analytics.Timeout = 3 * time.Second
	c.Analytics.MinScore = 0.65
	c.Analytics.Retry = resilience.DefaultRetryConfig()
	c.Analytics.Breaker = resilience.DefaultBreakerConfig()
	return &c
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env (if present), then the YAML file, then applies
// environment overrides. A missing YAML file falls back to Default.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var c *Config
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		c = Default()
	} else {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		c = loaded
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	c.Live.PIN = os.Getenv("LIVE_UNLOCK_PIN")

	if v := os.Getenv("TRADEBOT_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLite.Path = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, portStr, found := strings.Cut(v, ":")
		c.Redis.Host = host
		if found {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("REDIS_ADDR: %w", err)
			}
			c.Redis.Port = port
		}
		c.Redis.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		c.Data.Source = v
	}
	if v := os.Getenv("ANALYTICS_URL"); v != "" {
		c.Analytics.URL = v
		c.Analytics.Mode = AnalyticsRemote
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backtest.Years < 1 || c.Backtest.TrainDays <= 0 || c.Backtest.TestDays <= 0 || c.Backtest.StepDays <= 0 {
		return fmt.Errorf("backtest: years must be >= 1 and train/test/step days must be > 0")
	}
	switch c.Data.Source {
	case DataSourceSynthetic:
	case DataSourceClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when data.source is clickhouse")
		}
	default:
		return fmt.Errorf("data.source must be '%s' or '%s', got '%s'", DataSourceSynthetic, DataSourceClickHouse, c.Data.Source)
	}
	switch c.Analytics.Mode {
	case AnalyticsLocal:
	case AnalyticsRemote:
		if c.Analytics.URL == "" {
			return fmt.Errorf("analytics.url is required when analytics.mode is remote")
		}
	default:
		return fmt.Errorf("analytics.mode must be '%s' or '%s', got '%s'", AnalyticsLocal, AnalyticsRemote, c.Analytics.Mode)
	}
	if c.Live.SessionMinutes <= 0 {
		return fmt.Errorf("live.session_minutes must be > 0")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Governance.DriftThreshold <= 0 || c.Governance.DriftThreshold >= 1 {
		return fmt.Errorf("governance.drift_threshold must be in (0, 1)")
	}
	return nil
}

// SessionTTL is the configured live session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Live.SessionMinutes) * time.Minute
}

// TradeQueueTTL is how long an unfunded trade stays parked.
func (c *Config) TradeQueueTTL() time.Duration {
	return time.Duration(c.Risk.TradeQueueTTLHours) * time.Hour
}
