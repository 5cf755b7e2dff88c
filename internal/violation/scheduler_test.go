package violation

import (
	"safetywatch/internal/structures"
	"safetywatch/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(lister DateLister) (*Scheduler, *monitorFixture) {
	f := newMonitorFixture()
	conf := &structures.Config{Monitor: structures.MonitorConfig{Interval: time.Second}}
	s := NewScheduler(conf, &testutil.MockLogger{}, f.metrics, f.monitor, lister).(*Scheduler)
	return s, f
}

func TestScheduler_TickPolls(t *testing.T) {
	lister := newFakeLister("worker")
	lister.set("worker", 2)
	s, f := newTestScheduler(lister)

	s.Tick()

	assert.Equal(t, 1, f.metrics.PollTicks)
	assert.True(t, f.monitor.Alert().Active)
	assert.False(t, s.running.Load())
}

func TestScheduler_SkipsOverlappingTick(t *testing.T) {
	lister := newFakeLister("worker")
	s, f := newTestScheduler(lister)

	s.running.Store(true)
	s.Tick()

	assert.Equal(t, 0, f.metrics.PollTicks)
	assert.Empty(t, lister.calls)
}

func TestScheduler_InitRunsOnInterval(t *testing.T) {
	lister := newFakeLister("worker")
	s, _ := newTestScheduler(lister)

	s.Init()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return lister.callCount() > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestScheduler_StopWithoutInit(t *testing.T) {
	s, _ := newTestScheduler(newFakeLister())
	assert.NotPanics(t, s.Stop)
}
