//go:build wireinject
// +build wireinject

package di

import (
	"PairWatch/pkg/config"
	"PairWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure
		ProvideMetrics,
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideCache,

		// Market state
		ProvideTickBuffer,
		ProvideResampler,
		ProvideAnalyticsEngine,
		ProvideAlertRegistry,

		// Ingestion
		ProvideTickPublisher,
		ProvideTickProcessor,
		ProvideTickPipeline,
		ProvideTickCollector,
		ProvideKafkaConsumer,
		ProvideKafkaTickSource,

		// Read side
		ProvideMarketQuery,
		ProvidePairAnalytics,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
