package di

import (
	"context"
	"fmt"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/models"
	domrepo "github.com/AtashM95/tradebot/internal/domain/repository"
	domsvc "github.com/AtashM95/tradebot/internal/domain/service"
	"github.com/AtashM95/tradebot/internal/handler/api"
	internalrepo "github.com/AtashM95/tradebot/internal/repository"
	"github.com/AtashM95/tradebot/internal/service/ratelimit"
	"github.com/AtashM95/tradebot/internal/services/analytics"
	"github.com/AtashM95/tradebot/internal/services/backtest"
	"github.com/AtashM95/tradebot/internal/services/features"
	"github.com/AtashM95/tradebot/internal/services/governance"
	"github.com/AtashM95/tradebot/internal/services/livegate"
	"github.com/AtashM95/tradebot/internal/usecase"
	"github.com/AtashM95/tradebot/pkg/cache"
	pkgch "github.com/AtashM95/tradebot/pkg/clickhouse"
	"github.com/AtashM95/tradebot/pkg/config"
	xhttp "github.com/AtashM95/tradebot/pkg/http"
	pkgkafka "github.com/AtashM95/tradebot/pkg/kafka"
	applogger "github.com/AtashM95/tradebot/pkg/logger"
	"github.com/AtashM95/tradebot/pkg/metrics"
	"github.com/AtashM95/tradebot/pkg/resilience"
	"github.com/AtashM95/tradebot/pkg/server"
	pkgsqlite "github.com/AtashM95/tradebot/pkg/sqlite"
)

// SignalSinks routes submitted signals by mode.
type SignalSinks struct {
	Live domrepo.SignalSink
	Sim  domrepo.SignalSink
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New(nil)
}

// ProvideSQLiteClient opens the application database.
func ProvideSQLiteClient(cfg *config.Config) (*pkgsqlite.Client, func(), error) {
	client, err := pkgsqlite.NewClient(
		pkgsqlite.WithPath(cfg.SQLite.Path),
		pkgsqlite.WithBusyTimeout(cfg.SQLite.BusyTimeout),
		pkgsqlite.WithForeignKeys(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideStore applies the schema and seeds the default watchlist on first run.
func ProvideStore(cfg *config.Config, client *pkgsqlite.Client) (*internalrepo.SQLiteStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := internalrepo.NewSQLiteStore(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}
	if err := store.SeedWatchlist(ctx, cfg.Watchlist.Defaults); err != nil {
		return nil, fmt.Errorf("seed watchlist: %w", err)
	}
	return store, nil
}

// ProvideCache returns a memory+Redis layered cache when Redis is enabled,
// otherwise an in-process memory cache.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		mc := cache.NewMemoryCache(0)
		return mc, func() { _ = mc.Close() }, nil
	}

	rc, err := cache.NewRedisCache(cache.RedisOptions{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		PoolTimeout:  cfg.Redis.Timeout,
		Prefix:       cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected",
		applogger.String("host", cfg.Redis.Host),
		applogger.Int("port", cfg.Redis.Port),
	)

	lc := cache.NewLayeredCache(rc, 1000, time.Minute)
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideClickHouseClient connects to ClickHouse when it is the bar source.
// It returns a nil client for the synthetic source.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if cfg.Data.Source != config.DataSourceClickHouse {
		return nil, func() {}, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.DailyBarsDDL(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, func() { _ = client.Close() }, nil
}

// ProvideBarSource builds cache -> retry/breaker -> ClickHouse or synthetic.
func ProvideBarSource(cfg *config.Config, ch *pkgch.Client, c cache.Service, l *applogger.Logger) domrepo.BarSource {
	var base domrepo.BarSource
	if ch != nil {
		base = internalrepo.NewClickHouseBarSource(ch, cfg.ClickHouse.Database, cfg.ClickHouse.Table, l)
	} else {
		base = internalrepo.NewSyntheticBarSource()
	}

	breaker := resilience.NewBreaker("bars", cfg.Data.Breaker, l)
	resilient := internalrepo.NewResilientBarSource(base, cfg.Data.Retry, breaker)
	if cfg.Data.CacheTTL <= 0 {
		return resilient
	}
	return internalrepo.NewCachedBarSource(resilient, c, cfg.Data.CacheTTL)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithSignalTopics(cfg.Kafka.SimulationTopic, cfg.Kafka.LiveTopic),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts, cfg.Kafka.Compression),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, func() { _ = producer.Close() }, nil
}

// ProvideSignalSinks publishes to Kafka when a producer exists and falls back
// to logging otherwise.
func ProvideSignalSinks(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) SignalSinks {
	if producer == nil {
		return SignalSinks{
			Live: internalrepo.NewLogSignalSink(models.ModeLive, l),
			Sim:  internalrepo.NewLogSignalSink(models.ModeSimulation, l),
		}
	}
	return SignalSinks{
		Live: internalrepo.NewKafkaSignalSink(producer, producer.SignalTopic(true)),
		Sim:  internalrepo.NewKafkaSignalSink(producer, producer.SignalTopic(false)),
	}
}

// ProvideRegistry loads persisted models into the in-memory registry.
func ProvideRegistry(store *internalrepo.SQLiteStore, l *applogger.Logger) (*governance.Registry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reg := governance.NewRegistry(store, l)
	if err := reg.Load(ctx); err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	return reg, nil
}

func ProvideDriftDetector(cfg *config.Config, c cache.Service) *governance.DriftDetector {
	return governance.NewDriftDetector(
		cfg.Governance.DriftThreshold,
		cfg.Governance.DriftAlpha,
		governance.WithDriftCache(c, cfg.Governance.DriftCacheTTL),
	)
}

func ProvideShadowEvaluator(cfg *config.Config, reg *governance.Registry) *governance.ShadowEvaluator {
	return governance.NewShadowEvaluator(reg, governance.Predictor{}, cfg.Governance.PrimaryMetric, cfg.Governance.ShadowMargin)
}

// ProvideLiveGate creates the live-trading gate. An empty PIN leaves the gate
// permanently locked.
func ProvideLiveGate(cfg *config.Config, m domrepo.Metrics, l *applogger.Logger) *livegate.Gate {
	if cfg.Live.PIN == "" {
		l.Warn("LIVE_UNLOCK_PIN is not set; live trading cannot be unlocked")
	}
	return livegate.New(livegate.Config{
		PIN:        cfg.Live.PIN,
		Phrase:     cfg.Live.ConfirmPhrase,
		SessionTTL: cfg.SessionTTL(),
	}, m, l)
}

func ProvideUnlockLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Live.UnlockPerMinute, cfg.Live.UnlockPerMinute)
}

// ProvidePipeline picks the local rule pipeline or the remote analytics service.
func ProvidePipeline(cfg *config.Config, l *applogger.Logger) domsvc.AnalysisPipeline {
	if cfg.Analytics.Mode == config.AnalyticsRemote {
		return analytics.NewHTTPPipeline(analytics.NewHTTPServiceBase(cfg, l))
	}
	return analytics.NewRulePipeline(analytics.DefaultRules(), cfg.Analytics.MinScore, governance.Predictor{})
}

func ProvideFunding(cfg *config.Config) domsvc.FundingCheck {
	return analytics.NewRiskManager(analytics.RiskLimits{
		Equity:            cfg.Risk.Equity,
		Cash:              cfg.Risk.Cash,
		CashBuffer:        cfg.Risk.CashBuffer,
		RiskPerTrade:      cfg.Risk.RiskPerTrade,
		MaxPositionWeight: cfg.Risk.MaxPositionWeight,
	})
}

// ProvideEngine creates the walk-forward backtest engine.
func ProvideEngine(cfg *config.Config, bars domrepo.BarSource, store *internalrepo.SQLiteStore, m domrepo.Metrics, l *applogger.Logger) *backtest.Engine {
	return backtest.NewEngine(bars, store, l,
		backtest.WithStore(store),
		backtest.WithMetrics(m),
		backtest.WithParallelism(cfg.Backtest.Parallelism),
	)
}

// ProvideOrchestrator assembles the trading control loop.
func ProvideOrchestrator(
	cfg *config.Config,
	bars domrepo.BarSource,
	store *internalrepo.SQLiteStore,
	reg *governance.Registry,
	gate *livegate.Gate,
	pipeline domsvc.AnalysisPipeline,
	funding domsvc.FundingCheck,
	sinks SignalSinks,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Bars:      bars,
		Watchlist: store,
		Models:    reg,
		Gate:      gate,
		Features:  features.NewEngine(),
		Setup:     analytics.NewSetupGate(),
		Pipeline:  pipeline,
		Funding:   funding,
		Signals:   store,
		Alerts:    store,
		Queue:     store,
		Logs:      store,
		LiveSink:  sinks.Live,
		SimSink:   sinks.Sim,
		Metrics:   m,
		Logger:    l.With(applogger.String("component", "orchestrator")),
	}, usecase.OrchestratorConfig{
		Interval:        cfg.Orchestrator.Interval,
		BarsPerAnalysis: cfg.Orchestrator.BarsPerAnalysis,
		TradeQueueTTL:   cfg.TradeQueueTTL(),
	})
}

// ProvideHandler creates the /api handler.
func ProvideHandler(
	cfg *config.Config,
	orch *usecase.Orchestrator,
	engine *backtest.Engine,
	store *internalrepo.SQLiteStore,
	client *pkgsqlite.Client,
	reg *governance.Registry,
	drift *governance.DriftDetector,
	shadow *governance.ShadowEvaluator,
	gate *livegate.Gate,
	limiter *ratelimit.Limiter,
	m domrepo.Metrics,
	l *applogger.Logger,
) *api.Handler {
	defaults := models.BacktestParams{
		Strategy:  cfg.Backtest.Strategy,
		Years:     cfg.Backtest.Years,
		TrainDays: cfg.Backtest.TrainDays,
		TestDays:  cfg.Backtest.TestDays,
		StepDays:  cfg.Backtest.StepDays,
	}
	return api.NewHandler(api.Deps{
		Orchestrator:  orch,
		Backtester:    engine,
		Runs:          store,
		Registry:      reg,
		Drift:         drift,
		Shadow:        shadow,
		Gate:          gate,
		Watchlist:     store,
		Logs:          store,
		Signals:       store,
		Alerts:        store,
		Queue:         store,
		Metrics:       m,
		UnlockLimiter: limiter,
		StorePing:     client.Health,
		Defaults:      defaults,
		Settings: models.RuntimeSettings{
			Environment:       cfg.Environment,
			Watchlist:         cfg.Watchlist.Defaults,
			Interval:          cfg.Orchestrator.Interval,
			BarsPerAnalysis:   cfg.Orchestrator.BarsPerAnalysis,
			Backtest:          defaults,
			DriftThreshold:    cfg.Governance.DriftThreshold,
			DriftAlpha:        cfg.Governance.DriftAlpha,
			ShadowMargin:      cfg.Governance.ShadowMargin,
			PrimaryMetric:     cfg.Governance.PrimaryMetric,
			LivePINConfigured: cfg.Live.PIN != "",
			SessionMinutes:    cfg.Live.SessionMinutes,
			DataSource:        cfg.Data.Source,
			AnalyticsMode:     cfg.Analytics.Mode,
			KafkaEnabled:      cfg.Kafka.Enabled,
			RedisEnabled:      cfg.Redis.Enabled,
		},
	}, l.With(applogger.String("component", "api")))
}

// ProvideHTTPServer creates the Echo server hosting the handler.
func ProvideHTTPServer(cfg *config.Config, h *api.Handler, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
	}
	if cfg.Server.Host != "" {
		opts = append(opts, xhttp.WithHost(cfg.Server.Host))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, nil, nil))
	} else {
		opts = append(opts, xhttp.WithMetrics("", nil, nil))
	}
	return xhttp.NewServer(h, l, opts...)
}

// ProvideApp creates the application lifecycle owner.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	orch *usecase.Orchestrator,
	engine *backtest.Engine,
	reg *governance.Registry,
	producer *pkgkafka.Producer,
) *server.App {
	return server.New(cfg, l, srv, orch, engine, reg, producer)
}
