//go:build wireinject
// +build wireinject

package di

import (
	"SigCouncil/pkg/config"
	"SigCouncil/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideWeightStore,

		// Repositories
		ProvideRecommendationStore,
		ProvideOutcomeStore,
		ProvidePublisher,
		ProvideMarketProvider,

		// Collaborators
		ProvidePriceFeed,
		ProvideClassifier,
		ProvideBots,
		ProvideCalibrator,
		ProvideAggregator,
		ProvideSynthesizer,
		ProvideTracker,
		ProvideOptimizer,
		ProvideLimiter,

		// Use cases
		ProvideOutcomeUseCase,
		ProvideScanUseCase,
		ProvideKafkaOutcomesHandler,
		ProvideTickPipeline,

		// Delivery
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
