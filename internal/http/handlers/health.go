package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arcpp/proteome-backend/internal/cache"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	cache   *cache.SummaryCache
	started time.Time
}

// NewHealthHandler accepts nil dependencies; a nil cache reports as disabled.
func NewHealthHandler(db Pinger, summaryCache *cache.SummaryCache) *HealthHandler {
	return &HealthHandler{db: db, cache: summaryCache, started: time.Now()}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/ping
func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbState := "connected"
	if h.db == nil {
		dbState = "unconfigured"
	} else if err := h.db.PingContext(ctx); err != nil {
		dbState = "disconnected"
	}

	cacheState := "disabled"
	if h.cache != nil {
		cacheState = "connected"
		if err := h.cache.KV().Ping(ctx); err != nil {
			cacheState = "disconnected"
		}
	}

	status, code := "healthy", http.StatusOK
	if dbState != "connected" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	} else if cacheState == "disconnected" {
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Seconds(),
		"database":  dbState,
		"cache":     cacheState,
	})
}
