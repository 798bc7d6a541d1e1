package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openveg/directory-service/internal/cache"
	"github.com/openveg/directory-service/internal/domain/apperr"
	"github.com/openveg/directory-service/internal/service"
)

// CacheHandler exposes cache introspection and administration.
type CacheHandler struct {
	cache   *cache.Service
	warmer  *service.CacheWarmer
	monitor *service.AlertMonitor
}

// NewCacheHandler creates a cache admin handler.
func NewCacheHandler(cacheSvc *cache.Service, warmer *service.CacheWarmer, monitor *service.AlertMonitor) *CacheHandler {
	return &CacheHandler{cache: cacheSvc, warmer: warmer, monitor: monitor}
}

// Register mounts the cache admin routes.
func (h *CacheHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/cache")
	g.GET("/stats", h.Stats)
	g.POST("/warm", h.Warm)
	g.GET("/alerts", h.Alerts)
	g.POST("/invalidate", h.Invalidate)
}

// Stats returns the rolling hit/miss counters and store usage.
func (h *CacheHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Stats(c.Request.Context()))
}

// Warm triggers a warming pass. A pass already in progress reports
// skipped rather than queueing.
func (h *CacheHandler) Warm(c *gin.Context) {
	result := h.warmer.WarmAll(c.Request.Context())
	status := http.StatusOK
	if result.Skipped {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

// Alerts returns the monitor's current alert records.
func (h *CacheHandler) Alerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": h.monitor.ActiveAlerts()})
}

// invalidateRequest selects exactly one invalidation scope.
type invalidateRequest struct {
	Key     string `json:"key,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// Invalidate removes cache entries by key, tag, or glob pattern.
func (h *CacheHandler) Invalidate(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.InvalidArgument(err.Error()))
		return
	}

	ctx := c.Request.Context()
	switch {
	case req.Key != "":
		h.cache.Invalidate(ctx, req.Key)
	case req.Tag != "":
		h.cache.InvalidateByTag(ctx, req.Tag)
	case req.Pattern != "":
		h.cache.InvalidatePattern(ctx, req.Pattern)
	default:
		_ = c.Error(apperr.InvalidArgument("one of key, tag, or pattern is required"))
		return
	}
	c.Status(http.StatusNoContent)
}
