package violation

import (
	"context"
	"errors"
	"safetywatch/internal/events"
	"safetywatch/internal/models"
	"safetywatch/internal/providers"
	"safetywatch/internal/structures"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Monitor detects newly arrived violations by comparing today's per-category
// image counts between polls. A category with no entry in counts is in the
// baseline state for the observed date.
type Monitor struct {
	checkMu sync.Mutex

	mu           sync.Mutex
	observedDate string
	counts       map[models.Category]int
	alert        models.AlertState

	titles  map[models.Category]string
	bus     events.BusInterface
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewMonitor(conf *structures.Config, bus events.BusInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *Monitor {
	titles := make(map[models.Category]string, len(conf.Categories))
	for _, cc := range conf.Categories {
		titles[models.Category(cc.Name)] = cc.Title
	}
	return &Monitor{
		counts:  make(map[models.Category]int),
		titles:  titles,
		bus:     bus,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// CheckForNewViolations force-refreshes every category and reports whether
// any of them gained violations today. Every category's count is updated, but
// only the first detecting category in iteration order is returned.
func (m *Monitor) CheckForNewViolations(ctx context.Context, caches DateLister) (bool, models.Category) {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	today := models.DateOf(m.now())
	m.rollover(models.DateKey(today))

	var first models.Category
	found := false
	for _, cat := range caches.Categories() {
		count, ok := m.todayCount(ctx, caches, cat, today)
		if !ok {
			continue
		}
		m.metrics.SetTodayCount(string(cat), count)

		det, detected := m.observe(cat, count)
		if !detected {
			continue
		}
		if det.Baseline {
			m.logger.Infof(providers.TypeMonitor, "[%s] initial violations detected: %d", cat, det.Current)
		} else {
			m.logger.Infof(providers.TypeMonitor, "[%s] new violations detected: %d new", cat, det.Delta())
		}
		m.bus.Publish(events.Event{
			Type: events.ViolationDetected,
			Data: map[string]any{
				"category": string(cat),
				"previous": det.Previous,
				"current":  det.Current,
				"delta":    det.Delta(),
				"baseline": det.Baseline,
			},
		})
		if !found {
			found = true
			first = cat
		}
	}
	return found, first
}

// rollover clears all counts when the calendar date moved since the last check.
func (m *Monitor) rollover(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.observedDate == key {
		return
	}
	if m.observedDate != "" {
		m.logger.Infof(providers.TypeMonitor, "Date changed from %s to %s, resetting counts", m.observedDate, key)
	}
	m.observedDate = key
	m.counts = make(map[models.Category]int)
}

func (m *Monitor) todayCount(ctx context.Context, caches DateLister, cat models.Category, today time.Time) (int, bool) {
	records, err := caches.ListDates(ctx, cat, ListOptions{ForceRefresh: true, RestrictToDate: today})
	if err != nil {
		if records == nil {
			m.logger.Errorf(providers.TypeMonitor, "[%s] skipping poll: %s", cat, err)
			return 0, false
		}
		if errors.Is(err, ErrConsistency) {
			m.logger.Warnf(providers.TypeMonitor, "[%s] polling with partial metadata: %s", cat, err)
		}
	}
	if len(records) == 0 {
		return 0, true
	}
	return records[0].ImageCount, true
}

func (m *Monitor) observe(cat models.Category, count int) (models.Detection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, observed := m.counts[cat]
	if !observed {
		if count <= 0 {
			return models.Detection{}, false
		}
		m.counts[cat] = count
		return models.Detection{Category: cat, Current: count, Baseline: true}, true
	}
	if count <= prev {
		return models.Detection{}, false
	}
	m.counts[cat] = count
	return models.Detection{Category: cat, Previous: prev, Current: count}, true
}

// TriggerAlert raises the process-wide alert for cat. It does nothing and
// returns false while another alert is still active.
func (m *Monitor) TriggerAlert(cat models.Category) bool {
	m.mu.Lock()
	if m.alert.Active {
		m.mu.Unlock()
		return false
	}
	m.alert = models.AlertState{
		Active:   true,
		Category: cat,
		Title:    m.title(cat),
		ID:       uuid.NewString(),
		RaisedAt: m.now().UTC(),
	}
	state := m.alert
	m.mu.Unlock()

	m.metrics.IncAlerts(string(cat))
	m.logger.Infof(providers.TypeMonitor, "Triggering %s alert %s", cat, state.ID)
	m.bus.Publish(events.Event{
		ID:   state.ID,
		Type: events.AlertRaised,
		Data: map[string]any{"category": string(cat), "title": state.Title},
	})
	return true
}

// Dismiss clears the active alert; it reports whether one was active.
func (m *Monitor) Dismiss() bool {
	m.mu.Lock()
	if !m.alert.Active {
		m.mu.Unlock()
		return false
	}
	prev := m.alert
	m.alert = models.AlertState{}
	m.mu.Unlock()

	m.bus.Publish(events.Event{
		Type: events.AlertDismissed,
		Data: map[string]any{"category": string(prev.Category), "alert_id": prev.ID},
	})
	return true
}

func (m *Monitor) Alert() models.AlertState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alert
}

// Observed returns the observed date and a copy of today's counts.
func (m *Monitor) Observed() (string, map[models.Category]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.Category]int, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return m.observedDate, out
}

// Poll runs one monitor tick: detect, then raise an alert for the first detecting category.
func (m *Monitor) Poll(ctx context.Context, caches DateLister) models.AlertState {
	if found, cat := m.CheckForNewViolations(ctx, caches); found {
		m.TriggerAlert(cat)
	}
	return m.Alert()
}

func (m *Monitor) title(cat models.Category) string {
	if t := m.titles[cat]; t != "" {
		return t
	}
	return string(cat)
}
