package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arcpp/proteome-backend/internal/http/response"
	"github.com/arcpp/proteome-backend/internal/services"
)

type ProteinHandler struct {
	proteins services.ProteinService
}

func NewProteinHandler(proteins services.ProteinService) *ProteinHandler {
	return &ProteinHandler{proteins: proteins}
}

// GET /api/coverage/:proteinId
func (h *ProteinHandler) Coverage(c *gin.Context) {
	res, err := h.proteins.Coverage(c.Request.Context(), c.Param("proteinId"))
	if err != nil {
		response.RespondErr(c, err, "coverage_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /api/proteins/ids
func (h *ProteinHandler) IDs(c *gin.Context) {
	ids, err := h.proteins.IDs(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err, "protein_ids_failed")
		return
	}
	response.RespondOK(c, ids)
}

// GET /api/hvo-ids
func (h *ProteinHandler) HVOIDs(c *gin.Context) {
	ids, err := h.proteins.IDs(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err, "protein_ids_failed")
		return
	}
	response.RespondOK(c, ids.HVO)
}

// GET /api/proteins/resolve?q=
func (h *ProteinHandler) Resolve(c *gin.Context) {
	res, err := h.proteins.Resolve(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.RespondErr(c, err, "resolve_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /api/proteins/:proteinId/sequence
func (h *ProteinHandler) Sequence(c *gin.Context) {
	res, err := h.proteins.Sequence(c.Request.Context(), c.Param("proteinId"))
	if err != nil {
		response.RespondErr(c, err, "sequence_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /api/proteins/:proteinId/details
func (h *ProteinHandler) Details(c *gin.Context) {
	p, err := h.proteins.Details(c.Request.Context(), c.Param("proteinId"))
	if err != nil {
		response.RespondErr(c, err, "details_failed")
		return
	}
	out := *p
	out.Sequence = ""
	out.DatasetIDs = nil
	response.RespondOK(c, out)
}

// GET /api/proteins/:proteinId/psm-count
func (h *ProteinHandler) PSMCount(c *gin.Context) {
	res, err := h.proteins.PSMCount(c.Request.Context(), c.Param("proteinId"))
	if err != nil {
		response.RespondErr(c, err, "psm_count_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /api/proteins/:proteinId/summary
func (h *ProteinHandler) Summary(c *gin.Context) {
	res, err := h.proteins.Summary(c.Request.Context(), c.Param("proteinId"))
	if err != nil {
		response.RespondErr(c, err, "summary_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /api/proteins/:proteinId/psms-by-dataset
func (h *ProteinHandler) PSMsByDataset(c *gin.Context) {
	start := time.Now()
	proteinID := c.Param("proteinId")
	res, err := h.proteins.PSMsByDataset(c.Request.Context(), proteinID)
	if err != nil {
		response.RespondErr(c, err, "psms_by_dataset_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"proteinId":      res.ProteinID,
		"data":           res.Data,
		"source":         res.Source,
		"responseTimeMs": time.Since(start).Milliseconds(),
	})
}

// GET /api/plot/peptide-coverage/:proteinId
func (h *ProteinHandler) PlotData(c *gin.Context) {
	res, err := h.proteins.PlotData(c.Request.Context(), c.Param("proteinId"))
	if err != nil {
		response.RespondErr(c, err, "plot_failed")
		return
	}
	response.RespondOK(c, res)
}
