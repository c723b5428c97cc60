//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/AtashM95/tradebot/pkg/config"
	"github.com/AtashM95/tradebot/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideSQLiteClient,
		ProvideStore,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideBarSource,
		ProvideSignalSinks,

		// Domain services
		ProvideRegistry,
		ProvideDriftDetector,
		ProvideShadowEvaluator,
		ProvideLiveGate,
		ProvideUnlockLimiter,
		ProvidePipeline,
		ProvideFunding,
		ProvideEngine,

		// Use cases
		ProvideOrchestrator,

		// Transport and application
		ProvideHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
