package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openveg/directory-service/internal/cache"
	"github.com/openveg/directory-service/internal/domain/model"
	"github.com/openveg/directory-service/internal/metrics"
)

// AlertThresholds configures the monitored limits.
type AlertThresholds struct {
	// MinHitRatio breaches as warning below this value.
	MinHitRatio float64
	// CriticalHitRatio escalates the hit-ratio breach to critical.
	CriticalHitRatio float64
	// MaxMemoryBytes breaches as warning above this value.
	MaxMemoryBytes int64
	// MaxKeys breaches as warning above this count.
	MaxKeys int
	// ResolveGracePeriod keeps a resolved record visible before GC.
	ResolveGracePeriod time.Duration
	// MinSamples suppresses hit-ratio alerts until enough traffic.
	MinSamples int64
}

// DefaultAlertThresholds returns the default monitor limits.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		MinHitRatio:        0.5,
		CriticalHitRatio:   0.2,
		MaxMemoryBytes:     256 << 20,
		MaxKeys:            100000,
		ResolveGracePeriod: 5 * time.Minute,
		MinSamples:         100,
	}
}

// AlertMonitor drives the per-metric OK -> Alerting -> OK state
// machine over the cache's stats. One record per ongoing condition:
// a persisting breach refreshes the record, recovery resolves it, and
// resolved records are garbage-collected after the grace period.
type AlertMonitor struct {
	cache      *cache.Service
	thresholds AlertThresholds
	notifiers  []Notifier
	log        zerolog.Logger
	nowFn      func() time.Time

	mu     sync.Mutex
	alerts map[model.AlertType]*model.AlertRecord
	cancel context.CancelFunc
}

// NewAlertMonitor creates a monitor over the cache service.
func NewAlertMonitor(cacheSvc *cache.Service, thresholds AlertThresholds, notifiers []Notifier, log zerolog.Logger) *AlertMonitor {
	if thresholds.ResolveGracePeriod <= 0 {
		thresholds.ResolveGracePeriod = 5 * time.Minute
	}
	return &AlertMonitor{
		cache:      cacheSvc,
		thresholds: thresholds,
		notifiers:  notifiers,
		log:        log.With().Str("component", "cache_alerts").Logger(),
		nowFn:      time.Now,
		alerts:     make(map[model.AlertType]*model.AlertRecord),
	}
}

// Tick recomputes every monitored metric once. Exported so tests and
// the admin API can force an evaluation.
func (m *AlertMonitor) Tick(ctx context.Context) {
	stats := m.cache.Stats(ctx)

	// Hit ratio: skip until there is enough traffic to be meaningful.
	if stats.Hits+stats.Misses >= m.thresholds.MinSamples {
		switch {
		case stats.HitRatio < m.thresholds.CriticalHitRatio:
			m.raise(ctx, model.AlertLowHitRatio, model.SeverityCritical, stats.HitRatio, m.thresholds.CriticalHitRatio,
				fmt.Sprintf("cache hit ratio %.2f below critical threshold %.2f", stats.HitRatio, m.thresholds.CriticalHitRatio))
		case stats.HitRatio < m.thresholds.MinHitRatio:
			m.raise(ctx, model.AlertLowHitRatio, model.SeverityWarning, stats.HitRatio, m.thresholds.MinHitRatio,
				fmt.Sprintf("cache hit ratio %.2f below threshold %.2f", stats.HitRatio, m.thresholds.MinHitRatio))
		default:
			m.resolve(ctx, model.AlertLowHitRatio, stats.HitRatio)
		}
	}

	if m.thresholds.MaxMemoryBytes > 0 {
		if stats.MemoryUsage > m.thresholds.MaxMemoryBytes {
			m.raise(ctx, model.AlertHighMemory, model.SeverityWarning, float64(stats.MemoryUsage), float64(m.thresholds.MaxMemoryBytes),
				fmt.Sprintf("cache memory %d bytes exceeds threshold %d", stats.MemoryUsage, m.thresholds.MaxMemoryBytes))
		} else {
			m.resolve(ctx, model.AlertHighMemory, float64(stats.MemoryUsage))
		}
	}

	if m.thresholds.MaxKeys > 0 {
		if stats.CacheSize > m.thresholds.MaxKeys {
			m.raise(ctx, model.AlertCacheSize, model.SeverityWarning, float64(stats.CacheSize), float64(m.thresholds.MaxKeys),
				fmt.Sprintf("cache holds %d keys, threshold %d", stats.CacheSize, m.thresholds.MaxKeys))
		} else {
			m.resolve(ctx, model.AlertCacheSize, float64(stats.CacheSize))
		}
	}

	// Connectivity: a non-responsive store is critical outright.
	if err := m.cache.HealthCheck(ctx); err != nil {
		m.raise(ctx, model.AlertStoreUnhealthy, model.SeverityCritical, 0, 1,
			fmt.Sprintf("cache store unreachable: %v", err))
	} else {
		m.resolve(ctx, model.AlertStoreUnhealthy, 1)
	}

	m.gc()
	m.updateGauges()
}

// ActiveAlerts returns a snapshot of all records, resolved included
// (until garbage collection).
func (m *AlertMonitor) ActiveAlerts() []model.AlertRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	alerts := make([]model.AlertRecord, 0, len(m.alerts))
	for _, record := range m.alerts {
		alerts = append(alerts, *record)
	}
	return alerts
}

// Start begins periodic monitoring. Idempotent restart like the warmer.
func (m *AlertMonitor) Start(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Tick(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	m.log.Info().Dur("interval", interval).Msg("alert monitoring started")
}

// Stop cancels the monitoring loop. Idempotent.
func (m *AlertMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
		m.log.Info().Msg("alert monitoring stopped")
	}
}

// raise creates or refreshes the record for a breached metric. Only a
// new breach (or a severity escalation) fans out notifications.
func (m *AlertMonitor) raise(ctx context.Context, alertType model.AlertType, severity model.AlertSeverity, current, threshold float64, message string) {
	m.mu.Lock()
	existing, ok := m.alerts[alertType]
	if ok && !existing.Resolved {
		escalated := existing.Severity != severity && severity == model.SeverityCritical
		existing.CurrentValue = current
		existing.Severity = severity
		existing.Message = message
		record := *existing
		m.mu.Unlock()
		if escalated {
			m.notifyAll(ctx, record, message)
		}
		return
	}

	record := &model.AlertRecord{
		ID:           uuid.NewString(),
		Type:         alertType,
		Severity:     severity,
		Message:      message,
		CurrentValue: current,
		Threshold:    threshold,
		Timestamp:    m.nowFn(),
	}
	m.alerts[alertType] = record
	snapshot := *record
	m.mu.Unlock()

	m.log.Warn().Str("type", string(alertType)).Str("severity", string(severity)).Msg(message)
	m.notifyAll(ctx, snapshot, message)
}

// resolve transitions a breached metric back to OK and schedules the
// record's removal.
func (m *AlertMonitor) resolve(ctx context.Context, alertType model.AlertType, current float64) {
	m.mu.Lock()
	record, ok := m.alerts[alertType]
	if !ok || record.Resolved {
		m.mu.Unlock()
		return
	}
	record.Resolved = true
	record.ResolvedAt = m.nowFn()
	record.CurrentValue = current
	snapshot := *record
	m.mu.Unlock()

	message := fmt.Sprintf("%s recovered", alertType)
	m.log.Info().Str("type", string(alertType)).Msg(message)
	m.notifyAll(ctx, snapshot, message)
}

// gc drops resolved records older than the grace period.
func (m *AlertMonitor) gc() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.nowFn().Add(-m.thresholds.ResolveGracePeriod)
	for alertType, record := range m.alerts {
		if record.Resolved && record.ResolvedAt.Before(cutoff) {
			delete(m.alerts, alertType)
		}
	}
}

func (m *AlertMonitor) updateGauges() {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[model.AlertSeverity]int{}
	for _, record := range m.alerts {
		if !record.Resolved {
			counts[record.Severity]++
		}
	}
	metrics.SetActiveAlerts(string(model.SeverityWarning), counts[model.SeverityWarning])
	metrics.SetActiveAlerts(string(model.SeverityCritical), counts[model.SeverityCritical])
}

// notifyAll fans the transition out to every channel; each failure is
// isolated and logged.
func (m *AlertMonitor) notifyAll(ctx context.Context, alert model.AlertRecord, message string) {
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, alert, message); err != nil {
			m.log.Warn().Err(err).Str("notifier", notifier.Name()).Msg("alert notification failed")
		}
	}
}
