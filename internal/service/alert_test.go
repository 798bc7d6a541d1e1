package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openveg/directory-service/internal/cache"
	"github.com/openveg/directory-service/internal/domain/model"
)

// recordingNotifier captures every notification it receives.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(_ context.Context, alert model.AlertRecord, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, string(alert.Type)+": "+message)
	if n.fail {
		return errors.New("channel down")
	}
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type unreachableStore struct{}

func (unreachableStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store unreachable")
}

func (unreachableStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store unreachable")
}

func (unreachableStore) Del(context.Context, string) error {
	return errors.New("store unreachable")
}

func (unreachableStore) KeysMatching(context.Context, string) ([]string, error) {
	return nil, errors.New("store unreachable")
}

func (unreachableStore) ScanStats(context.Context) (cache.StoreStats, error) {
	return cache.StoreStats{}, errors.New("store unreachable")
}

func alertTestCache(t *testing.T) *cache.Service {
	t.Helper()
	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(store.Stop)
	return cache.NewService(store, time.Minute, time.Second, zerolog.Nop())
}

func findAlert(alerts []model.AlertRecord, alertType model.AlertType) *model.AlertRecord {
	for i := range alerts {
		if alerts[i].Type == alertType {
			return &alerts[i]
		}
	}
	return nil
}

func TestAlertMonitor_HitRatioLifecycle(t *testing.T) {
	cacheSvc := alertTestCache(t)
	notifier := &recordingNotifier{}

	thresholds := DefaultAlertThresholds()
	thresholds.MinHitRatio = 0.9
	thresholds.CriticalHitRatio = 0.2
	thresholds.MinSamples = 2
	thresholds.MaxMemoryBytes = 0
	thresholds.MaxKeys = 0

	monitor := NewAlertMonitor(cacheSvc, thresholds, []Notifier{notifier}, zerolog.Nop())
	ctx := context.Background()

	// One hit, one miss: ratio 0.5 is below 0.9 but above critical.
	cache.Set(ctx, cacheSvc, "doctor:1", "x", "doctor", cache.SetOptions{})
	cacheSvc.GetRaw(ctx, "doctor:1")
	cacheSvc.GetRaw(ctx, "doctor:missing")

	monitor.Tick(ctx)

	alerts := monitor.ActiveAlerts()
	record := findAlert(alerts, model.AlertLowHitRatio)
	require.NotNil(t, record)
	assert.Equal(t, model.SeverityWarning, record.Severity)
	assert.False(t, record.Resolved)
	assert.Equal(t, 1, notifier.count())

	// A persisting breach refreshes the record without re-notifying.
	monitor.Tick(ctx)
	assert.Len(t, monitor.ActiveAlerts(), 1)
	assert.Equal(t, 1, notifier.count())

	// Dropping below the critical threshold escalates and notifies again.
	for i := 0; i < 20; i++ {
		cacheSvc.GetRaw(ctx, "doctor:missing")
	}
	monitor.Tick(ctx)
	record = findAlert(monitor.ActiveAlerts(), model.AlertLowHitRatio)
	require.NotNil(t, record)
	assert.Equal(t, model.SeverityCritical, record.Severity)
	assert.Equal(t, 2, notifier.count())

	// Recovery resolves the record and sends a recovery notice.
	cacheSvc.ResetCounters()
	for i := 0; i < 10; i++ {
		cacheSvc.GetRaw(ctx, "doctor:1")
	}
	monitor.Tick(ctx)
	record = findAlert(monitor.ActiveAlerts(), model.AlertLowHitRatio)
	require.NotNil(t, record)
	assert.True(t, record.Resolved)
	assert.False(t, record.ResolvedAt.IsZero())
	assert.Equal(t, 3, notifier.count())
}

func TestAlertMonitor_ResolvedRecordGarbageCollected(t *testing.T) {
	cacheSvc := alertTestCache(t)

	thresholds := DefaultAlertThresholds()
	thresholds.MinHitRatio = 0.9
	thresholds.CriticalHitRatio = 0.1
	thresholds.MinSamples = 1
	thresholds.ResolveGracePeriod = 5 * time.Minute
	thresholds.MaxMemoryBytes = 0
	thresholds.MaxKeys = 0

	monitor := NewAlertMonitor(cacheSvc, thresholds, nil, zerolog.Nop())

	now := time.Now()
	monitor.nowFn = func() time.Time { return now }

	ctx := context.Background()
	cache.Set(ctx, cacheSvc, "doctor:1", "x", "doctor", cache.SetOptions{})
	cacheSvc.GetRaw(ctx, "doctor:1")
	cacheSvc.GetRaw(ctx, "doctor:missing")
	monitor.Tick(ctx)
	require.NotNil(t, findAlert(monitor.ActiveAlerts(), model.AlertLowHitRatio))

	// Recover, then advance past the grace period.
	cacheSvc.ResetCounters()
	for i := 0; i < 10; i++ {
		cacheSvc.GetRaw(ctx, "doctor:1")
	}
	monitor.Tick(ctx)
	record := findAlert(monitor.ActiveAlerts(), model.AlertLowHitRatio)
	require.NotNil(t, record)
	assert.True(t, record.Resolved)

	now = now.Add(10 * time.Minute)
	monitor.Tick(ctx)
	assert.Nil(t, findAlert(monitor.ActiveAlerts(), model.AlertLowHitRatio))
}

func TestAlertMonitor_MemoryAndKeyBreaches(t *testing.T) {
	cacheSvc := alertTestCache(t)

	thresholds := DefaultAlertThresholds()
	thresholds.MinSamples = 1 << 30 // keep the hit-ratio check out of the way
	thresholds.MaxMemoryBytes = 1
	thresholds.MaxKeys = 1

	monitor := NewAlertMonitor(cacheSvc, thresholds, nil, zerolog.Nop())
	ctx := context.Background()

	cache.Set(ctx, cacheSvc, "doctor:1", "a long enough payload", "doctor", cache.SetOptions{})
	cache.Set(ctx, cacheSvc, "doctor:2", "another payload", "doctor", cache.SetOptions{})

	monitor.Tick(ctx)

	alerts := monitor.ActiveAlerts()
	memory := findAlert(alerts, model.AlertHighMemory)
	require.NotNil(t, memory)
	assert.Equal(t, model.SeverityWarning, memory.Severity)
	assert.Greater(t, memory.CurrentValue, memory.Threshold)

	size := findAlert(alerts, model.AlertCacheSize)
	require.NotNil(t, size)
	assert.Equal(t, model.SeverityWarning, size.Severity)
}

func TestAlertMonitor_StoreUnreachableIsCritical(t *testing.T) {
	cacheSvc := cache.NewService(unreachableStore{}, time.Minute, time.Second, zerolog.Nop())

	thresholds := DefaultAlertThresholds()
	thresholds.MinSamples = 1 << 30
	thresholds.MaxMemoryBytes = 0
	thresholds.MaxKeys = 0

	notifier := &recordingNotifier{}
	monitor := NewAlertMonitor(cacheSvc, thresholds, []Notifier{notifier}, zerolog.Nop())

	monitor.Tick(context.Background())

	record := findAlert(monitor.ActiveAlerts(), model.AlertStoreUnhealthy)
	require.NotNil(t, record)
	assert.Equal(t, model.SeverityCritical, record.Severity)
	assert.Equal(t, 1, notifier.count())
}

func TestAlertMonitor_NotifierFailureIsolated(t *testing.T) {
	cacheSvc := alertTestCache(t)

	thresholds := DefaultAlertThresholds()
	thresholds.MinHitRatio = 0.9
	thresholds.CriticalHitRatio = 0.1
	thresholds.MinSamples = 1
	thresholds.MaxMemoryBytes = 0
	thresholds.MaxKeys = 0

	failing := &recordingNotifier{fail: true}
	healthy := &recordingNotifier{}
	monitor := NewAlertMonitor(cacheSvc, thresholds, []Notifier{failing, healthy}, zerolog.Nop())

	ctx := context.Background()
	cacheSvc.GetRaw(ctx, "doctor:missing")

	assert.NotPanics(t, func() { monitor.Tick(ctx) })
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, healthy.count(), "one failing channel must not block the rest")
}

func TestAlertMonitor_StartStop(t *testing.T) {
	cacheSvc := alertTestCache(t)
	monitor := NewAlertMonitor(cacheSvc, DefaultAlertThresholds(), nil, zerolog.Nop())

	monitor.Start(10 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	monitor.Stop()
	assert.NotPanics(t, monitor.Stop)
}
