package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/arcpp/proteome-backend/internal/http/response"
	"github.com/arcpp/proteome-backend/internal/services"
)

type SpeciesHandler struct {
	listing services.ListingService
	stats   services.SpeciesStatsService
}

func NewSpeciesHandler(listing services.ListingService, stats services.SpeciesStatsService) *SpeciesHandler {
	return &SpeciesHandler{listing: listing, stats: stats}
}

// GET /api/species/:speciesId/proteins-summary
// Query: limit, offset, search, datasets, overlaps.
func (h *SpeciesHandler) ProteinsSummary(c *gin.Context) {
	datasets, err := queryList(c, "datasets")
	if err != nil {
		response.RespondErr(c, err, "proteins_summary_failed")
		return
	}
	overlaps, err := queryInts(c, "overlaps")
	if err != nil {
		response.RespondErr(c, err, "proteins_summary_failed")
		return
	}
	res, err := h.listing.List(c.Request.Context(), services.ListRequest{
		Species:  c.Param("speciesId"),
		Offset:   queryInt(c, "offset", 0),
		Limit:    queryInt(c, "limit", services.DefaultPageSize),
		Search:   c.Query("search"),
		Datasets: datasets,
		Overlaps: overlaps,
	})
	if err != nil {
		response.RespondErr(c, err, "proteins_summary_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /api/species/coverage-stats
func (h *SpeciesHandler) CoverageStats(c *gin.Context) {
	res, err := h.stats.CoverageStats(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err, "coverage_stats_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /api/species/:speciesId/dataset-stats
func (h *SpeciesHandler) DatasetStats(c *gin.Context) {
	res, err := h.stats.DatasetStats(c.Request.Context(), c.Param("speciesId"))
	if err != nil {
		response.RespondErr(c, err, "dataset_stats_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /api/species/:speciesId/dataset-overlap
func (h *SpeciesHandler) DatasetOverlap(c *gin.Context) {
	res, err := h.stats.DatasetOverlap(c.Request.Context(), c.Param("speciesId"))
	if err != nil {
		response.RespondErr(c, err, "dataset_overlap_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /api/species/:speciesId/modification-stats
func (h *SpeciesHandler) ModificationStats(c *gin.Context) {
	res, err := h.stats.ModificationStats(c.Request.Context(), c.Param("speciesId"))
	if err != nil {
		response.RespondErr(c, err, "modification_stats_failed")
		return
	}
	response.RespondOK(c, res)
}
