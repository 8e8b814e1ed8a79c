package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/arcpp/proteome-backend/internal/http/response"
	"github.com/arcpp/proteome-backend/internal/services"
)

type DatasetHandler struct {
	datasets services.DatasetService
}

func NewDatasetHandler(datasets services.DatasetService) *DatasetHandler {
	return &DatasetHandler{datasets: datasets}
}

// GET /api/datasets/ids
func (h *DatasetHandler) IDs(c *gin.Context) {
	ids, err := h.datasets.IDs(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err, "dataset_ids_failed")
		return
	}
	response.RespondOK(c, ids)
}
