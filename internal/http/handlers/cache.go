package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arcpp/proteome-backend/internal/cache"
	"github.com/arcpp/proteome-backend/internal/http/response"
	"github.com/arcpp/proteome-backend/internal/jobs/pipeline/summary_cache_populate"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/species"
	pkgerrors "github.com/arcpp/proteome-backend/internal/pkg/errors"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/services"
)

const populateEntityType = "species"

type CacheHandler struct {
	cache   *cache.SummaryCache
	jobs    services.JobService
	species *species.Registry
}

func NewCacheHandler(summaryCache *cache.SummaryCache, jobs services.JobService, registry *species.Registry) *CacheHandler {
	return &CacheHandler{cache: summaryCache, jobs: jobs, species: registry}
}

// GET /api/cache/stats
func (h *CacheHandler) Stats(c *gin.Context) {
	var st cache.Stats
	if h.cache != nil {
		st = h.cache.Stats(c.Request.Context())
	}
	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		cache.Stats
	}{Success: true, Stats: st})
}

// POST /api/cache/populate?species=
// A run already queued or running for the same species is returned as is.
func (h *CacheHandler) Populate(c *gin.Context) {
	if h.cache == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "cache_disabled", fmt.Errorf("cache tier is not configured"))
		return
	}
	entityID := "all"
	payload := map[string]any{}
	if raw := strings.TrimSpace(c.Query("species")); raw != "" {
		sp, ok := h.species.Lookup(raw)
		if !ok {
			response.RespondErr(c, fmt.Errorf("unknown species %q: %w", raw, pkgerrors.ErrInvalidArgument), "populate_failed")
			return
		}
		entityID = sp.ID
		payload["species"] = sp.ID
	}
	job, created, err := h.jobs.EnqueueIfIdle(dbctx.Of(c.Request.Context()), summary_cache_populate.JobType, populateEntityType, entityID, payload)
	if err != nil {
		response.RespondErr(c, err, "populate_failed")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"job": job, "created": created})
}
