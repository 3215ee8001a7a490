//go:build wireinject
// +build wireinject

package di

import (
	"ChartSense/pkg/config"
	"ChartSense/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// The cleanup closes backing clients after the app has shut down.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideTracer,

		// Infrastructure clients
		ProvideTierBackend,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories and event flow
		ProvideFrameEventStore,
		ProvideEventPipeline,
		ProvideKafkaConsumer,

		// Use cases
		ProvideTierResolver,
		ProvideFramePipeline,

		// Transport
		ProvideLimiter,
		ProvideStreamHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
