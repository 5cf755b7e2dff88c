package violation

import (
	"context"
	"safetywatch/internal/providers"
	"safetywatch/internal/structures"
	"safetywatch/internal/violation/interfaces"
	"time"

	"github.com/roylee0704/gron"
	"go.uber.org/atomic"
)

// Scheduler fires monitor polls on a fixed wall-clock interval.
type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	monitor *Monitor
	caches  DateLister
	cron    *gron.Cron
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(config *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, monitor *Monitor, caches DateLister) interfaces.SchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config:  config,
		logger:  logger,
		metrics: metrics,
		monitor: monitor,
		caches:  caches,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	interval := s.config.Monitor.Interval

	s.cron.AddFunc(gron.Every(interval), s.Tick)
	s.cron.Start()
	s.logger.Infof(providers.TypeMonitor, "Violation monitor polling every %s", interval)
}

// Tick runs one poll unless the previous one is still in flight.
func (s *Scheduler) Tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warnf(providers.TypeMonitor, "Previous poll still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	s.metrics.IncPollTicks()
	started := time.Now()
	s.logger.Debugf(providers.TypeMonitor, "Performing violation check at %s", started.Format("15:04:05"))

	alert := s.monitor.Poll(s.ctx, s.caches)
	if alert.Active {
		s.logger.Debugf(providers.TypeMonitor, "Alert active for %s since %s", alert.Category, alert.RaisedAt.Format(time.RFC3339))
	}
	s.logger.Debugf(providers.TypeMonitor, "Violation check finished in %s", time.Since(started))
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.cancel()
}
