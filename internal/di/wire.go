//go:build wireinject
// +build wireinject

package di

import (
	"github.com/carlcj05/Astrozee/internal/usecase"
	"github.com/carlcj05/Astrozee/pkg/config"
	applogger "github.com/carlcj05/Astrozee/pkg/logger"
	"github.com/carlcj05/Astrozee/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideResponseCache,

		// Repositories
		ProvideEpisodeStore,
		ProvideReportPublisher,
		ProvideOracle,

		// Use cases
		ProvideTransitEngine,
		ProvideReportUseCase,
		ProvideKafkaRequestsHandler,

		// Transport
		ProvideTransitsHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeReports builds the report use case alone, for commands that do
// not serve HTTP. Kafka publishing stays off.
func InitializeReports(cfg *config.Config, l *applogger.Logger) (*usecase.TransitReportUseCase, error) {
	wire.Build(
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideEpisodeStore,
		ProvideOracle,
		ProvideTransitEngine,
		ProvideNoPublisher,
		ProvideReportUseCase,
	)
	return &usecase.TransitReportUseCase{}, nil
}
