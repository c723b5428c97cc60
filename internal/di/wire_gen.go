// Injector for the graph declared in wire.go, written in the form wire
// emits. Running go generate in this package replaces it with wire's output.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"github.com/AtashM95/tradebot/pkg/config"
	"github.com/AtashM95/tradebot/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	metrics := ProvideMetrics()
	client, cleanup, err := ProvideSQLiteClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	sqLiteStore, err := ProvideStore(cfg, client)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	service, cleanup2, err := ProvideCache(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	clickhouseClient, cleanup3, err := ProvideClickHouseClient(cfg)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	barSource := ProvideBarSource(cfg, clickhouseClient, service, logger)
	producer, cleanup4, err := ProvideKafkaProducer(cfg)
	if err != nil {
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	signalSinks := ProvideSignalSinks(cfg, producer, logger)
	registry, err := ProvideRegistry(sqLiteStore, logger)
	if err != nil {
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	driftDetector := ProvideDriftDetector(cfg, service)
	shadowEvaluator := ProvideShadowEvaluator(cfg, registry)
	gate := ProvideLiveGate(cfg, metrics, logger)
	limiter := ProvideUnlockLimiter(cfg)
	analysisPipeline := ProvidePipeline(cfg, logger)
	fundingCheck := ProvideFunding(cfg)
	engine := ProvideEngine(cfg, barSource, sqLiteStore, metrics, logger)
	orchestrator := ProvideOrchestrator(cfg, barSource, sqLiteStore, registry, gate, analysisPipeline, fundingCheck, signalSinks, metrics, logger)
	handler := ProvideHandler(cfg, orchestrator, engine, sqLiteStore, client, registry, driftDetector, shadowEvaluator, gate, limiter, metrics, logger)
	httpServer := ProvideHTTPServer(cfg, handler, logger)
	app := ProvideApp(cfg, logger, httpServer, orchestrator, engine, registry, producer)
	return app, func() {
		cleanup4()
		cleanup3()
		cleanup2()
		cleanup()
	}, nil
}
