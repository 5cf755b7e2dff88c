package di

import (
	"safetywatch/internal/providers"
	"safetywatch/internal/report"
	"safetywatch/internal/services"
	"safetywatch/internal/structures"
	"safetywatch/internal/violation"
)

// Toolkit is the engine without the HTTP server, for one-shot CLI commands.
type Toolkit struct {
	Config   *structures.Config
	Logger   providers.Logger
	Registry *violation.Registry
	Service  services.ViolationServiceInterface
	Exporter *report.Exporter
}

func NewToolkit(conf *structures.Config, logger providers.Logger, registry *violation.Registry, service services.ViolationServiceInterface, exporter *report.Exporter) *Toolkit {
	return &Toolkit{
		Config:   conf,
		Logger:   logger,
		Registry: registry,
		Service:  service,
		Exporter: exporter,
	}
}
