package model

import "time"

// AlertSeverity grades a cache alert.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType names the monitored cache metric that tripped.
type AlertType string

const (
	AlertLowHitRatio    AlertType = "low_hit_ratio"
	AlertHighMemory     AlertType = "high_memory_usage"
	AlertCacheSize      AlertType = "cache_size_exceeded"
	AlertStoreUnhealthy AlertType = "store_unreachable"
)

// AlertRecord tracks one ongoing threshold breach. A record is keyed
// by its type: the monitor refreshes the existing record instead of
// creating duplicates while the condition persists, marks it resolved
// on recovery, and garbage-collects it after a grace period.
type AlertRecord struct {
	ID           string        `json:"id"`
	Type         AlertType     `json:"type"`
	Severity     AlertSeverity `json:"severity"`
	Message      string        `json:"message"`
	CurrentValue float64       `json:"current_value"`
	Threshold    float64       `json:"threshold"`
	Timestamp    time.Time     `json:"timestamp"`
	Resolved     bool          `json:"resolved"`
	ResolvedAt   time.Time     `json:"resolved_at,omitempty"`
}
