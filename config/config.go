// Package config provides configuration management for the directory service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete application configuration.
type Config struct {
	Server   ServerConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Warming  WarmingConfig
	Alerts   AlertsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string
	RateLimit   int
	RateWindow  time.Duration
	CORSOrigins []string
	LogLevel    string
	LogPretty   bool
}

// CacheConfig holds cache configuration.
type CacheConfig struct {
	TTL             time.Duration
	OpTimeout       time.Duration
	CleanupInterval time.Duration
}

// DatabaseConfig holds MongoDB configuration.
type DatabaseConfig struct {
	URI          string
	DatabaseName string
}

// WarmingConfig holds cache warming configuration.
type WarmingConfig struct {
	Enabled  bool
	Interval time.Duration
	TopN     int
}

// AlertsConfig holds cache alert monitor configuration.
type AlertsConfig struct {
	Enabled            bool
	Interval           time.Duration
	MinHitRatio        float64
	CriticalHitRatio   float64
	MaxMemoryBytes     int64
	MaxKeys            int
	ResolveGracePeriod time.Duration
	WebhookURL         string
}

// Load creates a Config from environment variables.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			RateLimit:   getEnvInt("RATE_LIMIT", 100),
			RateWindow:  getEnvDuration("RATE_WINDOW", time.Minute),
			CORSOrigins: parseCORSOrigins(os.Getenv("CORS_ORIGINS")),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogPretty:   getEnvBool("LOG_PRETTY", false),
		},
		Cache: CacheConfig{
			TTL:             getEnvDuration("CACHE_TTL", 5*time.Minute),
			OpTimeout:       getEnvDuration("CACHE_OP_TIMEOUT", 2*time.Second),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Minute),
		},
		Database: DatabaseConfig{
			URI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			DatabaseName: getEnv("MONGODB_DATABASE", "directory"),
		},
		Warming: WarmingConfig{
			Enabled:  getEnvBool("CACHE_WARMING_ENABLED", true),
			Interval: getEnvDuration("CACHE_WARMING_INTERVAL", 15*time.Minute),
			TopN:     getEnvInt("CACHE_WARMING_TOP_N", 10),
		},
		Alerts: AlertsConfig{
			Enabled:            getEnvBool("CACHE_ALERTS_ENABLED", true),
			Interval:           getEnvDuration("CACHE_ALERTS_INTERVAL", time.Minute),
			MinHitRatio:        getEnvFloat("CACHE_ALERTS_MIN_HIT_RATIO", 0.5),
			CriticalHitRatio:   getEnvFloat("CACHE_ALERTS_CRITICAL_HIT_RATIO", 0.2),
			MaxMemoryBytes:     int64(getEnvInt("CACHE_ALERTS_MAX_MEMORY_BYTES", 256<<20)),
			MaxKeys:            getEnvInt("CACHE_ALERTS_MAX_KEYS", 100000),
			ResolveGracePeriod: getEnvDuration("CACHE_ALERTS_RESOLVE_GRACE", 5*time.Minute),
			WebhookURL:         getEnv("CACHE_ALERTS_WEBHOOK_URL", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseCORSOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
