//go:build wireinject
// +build wireinject

package di

import (
	"SentiFlow/pkg/config"
	"SentiFlow/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideStats,
		ProvideMetrics,

		// Infrastructure clients
		ProvideDedupIndex,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,

		// Repositories
		ProvidePublisher,
		ProvideScoreStore,

		// Services
		ProvideScorer,
		ProvideKafkaSource,
		ProvideSources,

		// Use cases
		ProvideScheduler,
		ProvideGateway,
		ProvideAggregator,
		ProvideBroadcaster,
		ProvidePipeline,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
