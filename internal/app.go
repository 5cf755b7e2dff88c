package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"safetywatch/internal/controllers"
	"safetywatch/internal/events"
	"safetywatch/internal/providers"
	"safetywatch/internal/structures"
	"safetywatch/internal/violation"
	"safetywatch/internal/violation/interfaces"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	WebServer *http.Server
}

// NewHandler mounts the instrumented API routes next to the health and metrics
// endpoints, which stay out of request metrics.
func NewHandler(healthController *controllers.HealthController, conf *structures.Config, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface, logger providers.Logger) http.Handler {
	instrumentedAPI := router.Handler(metrics, logger)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)
	return mux
}

func subscribeAlerts(bus *events.Bus, logger providers.Logger) {
	bus.Subscribe(events.ViolationDetected, func(e events.Event) {
		logger.Infof(providers.TypeMonitor, "Violation event %s: %v", e.ID, e.Data)
	})
	bus.Subscribe(events.AlertRaised, func(e events.Event) {
		logger.Warnf(providers.TypeMonitor, "ALERT %s: new %v violations", e.ID, e.Data["title"])
	})
	bus.Subscribe(events.AlertDismissed, func(e events.Event) {
		logger.Infof(providers.TypeMonitor, "Alert %v dismissed", e.Data["alert_id"])
	})
}

// NewApp runs the service until SIGINT or SIGTERM: it warms every category
// cache, starts the poll scheduler and serves HTTP.
func NewApp(handler http.Handler, scheduler interfaces.SchedulerInterface, registry *violation.Registry, bus *events.Bus, conf *structures.Config, logger providers.Logger) (*App, error) {
	logger.Infof(providers.TypeApp, "Starting %s", conf.AppName)

	subscribeAlerts(bus, logger)
	go bus.Start()

	warmCtx, warmCancel := context.WithTimeout(context.Background(), conf.Store.Timeout*time.Duration(len(conf.Categories)+1))
	registry.Warm(warmCtx, logger)
	warmCancel()

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      handler,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: conf.Store.Timeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", conf.WebServer.Host, conf.WebServer.Port)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		scheduler.Stop()
		bus.Stop()
		return nil, fmt.Errorf("server error: %w", err)
	}

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.WebServer.Shutdown(ctx); err != nil {
		return nil, err
	}
	bus.Stop()
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return app, nil
}
