package testutil

import (
	"fmt"
	"sync"
	"time"

	"safetywatch/internal/events"
	"safetywatch/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu              sync.Mutex
	Requests        int
	RequestLabels   map[string]int // key: "endpoint:status"
	CacheHits       int
	CacheMisses     int
	Refreshes       map[string]int // key: "category:outcome"
	RepairFailures  int
	DegradedRecords int
	DateFolders     map[string]int
	TodayCounts     map[string]int
	Alerts          int
	PollTicks       int
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
	if m.RequestLabels == nil {
		m.RequestLabels = make(map[string]int)
	}
	m.RequestLabels[fmt.Sprintf("%s:%d", endpoint, status)]++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}
func (m *MockMetrics) ObserveRefreshDuration(category string, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Refreshes == nil {
		m.Refreshes = make(map[string]int)
	}
	m.Refreshes[category+":"+outcome]++
}
func (m *MockMetrics) IncRepairFailures(_ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RepairFailures++
}
func (m *MockMetrics) IncDegradedRecords(_ string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DegradedRecords += count
}
func (m *MockMetrics) SetDateFolders(category string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DateFolders == nil {
		m.DateFolders = make(map[string]int)
	}
	m.DateFolders[category] = count
}
func (m *MockMetrics) SetTodayCount(category string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TodayCounts == nil {
		m.TodayCounts = make(map[string]int)
	}
	m.TodayCounts[category] = count
}
func (m *MockMetrics) IncAlerts(_ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts++
}
func (m *MockMetrics) IncPollTicks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PollTicks++
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu      sync.Mutex
	Data    map[string][]byte
	Cleared int
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data = make(map[string][]byte)
	m.Cleared++
}

// MockCompressor implements report.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// MockBus implements events.BusInterface and delivers synchronously.
type MockBus struct {
	mu        sync.Mutex
	Published []events.Event
	subs      map[events.Type][]events.Handler
}

func (m *MockBus) Subscribe(t events.Type, h events.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs == nil {
		m.subs = make(map[events.Type][]events.Handler)
	}
	m.subs[t] = append(m.subs[t], h)
}

func (m *MockBus) Publish(e events.Event) {
	m.mu.Lock()
	m.Published = append(m.Published, e)
	handlers := m.subs[e.Type]
	m.mu.Unlock()
	for _, h := range handlers {
		h(e)
	}
}

// OfType returns the published events of type t.
func (m *MockBus) OfType(t events.Type) []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []events.Event
	for _, e := range m.Published {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
