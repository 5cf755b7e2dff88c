//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"safetywatch/internal"
	"safetywatch/internal/controllers"
	"safetywatch/internal/events"
	"safetywatch/internal/providers"
	"safetywatch/internal/remote"
	"safetywatch/internal/report"
	"safetywatch/internal/services"
	"safetywatch/internal/structures"
	"safetywatch/internal/violation"
)

var engineSet = wire.NewSet(
	providers.NewConfigProvider,
	providers.NewLogProvider,
	providers.NewMetricsProvider,

	remote.NewDriveStore,
	violation.NewRegistry,
	wire.Bind(new(violation.DateLister), new(*violation.Registry)),
	events.NewBus,
	wire.Bind(new(events.BusInterface), new(*events.Bus)),
	violation.NewMonitor,
	services.NewViolationService,
	report.NewZstdCompressor,
	report.NewExporter,
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		engineSet,
		providers.NewInstrumentedCacheProvider,
		violation.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewHandler,
		internal.NewApp,
	)

	return nil, nil
}

func InitToolkit(cfg *structures.CliFlags) (*Toolkit, error) {

	wire.Build(
		engineSet,
		NewToolkit,
	)

	return nil, nil
}
