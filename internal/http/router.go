package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/arcpp/proteome-backend/internal/http/handlers"
	httpMW "github.com/arcpp/proteome-backend/internal/http/middleware"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string

	HealthHandler  *httpH.HealthHandler
	CacheHandler   *httpH.CacheHandler
	JobHandler     *httpH.JobHandler
	ProteinHandler *httpH.ProteinHandler
	SpeciesHandler *httpH.SpeciesHandler
	DatasetHandler *httpH.DatasetHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.HealthHandler != nil {
			api.GET("/ping", cfg.HealthHandler.Ping)
			api.GET("/health", cfg.HealthHandler.Health)
		}

		// Cache
		if cfg.CacheHandler != nil {
			api.GET("/cache/stats", cfg.CacheHandler.Stats)
			api.POST("/cache/populate", cfg.CacheHandler.Populate)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}

		// Proteins
		if cfg.ProteinHandler != nil {
			api.GET("/coverage/:proteinId", cfg.ProteinHandler.Coverage)
			api.GET("/hvo-ids", cfg.ProteinHandler.HVOIDs)
			api.GET("/proteins/ids", cfg.ProteinHandler.IDs)
			api.GET("/proteins/resolve", cfg.ProteinHandler.Resolve)
			api.GET("/proteins/:proteinId/sequence", cfg.ProteinHandler.Sequence)
			api.GET("/proteins/:proteinId/details", cfg.ProteinHandler.Details)
			api.GET("/proteins/:proteinId/psm-count", cfg.ProteinHandler.PSMCount)
			api.GET("/proteins/:proteinId/summary", cfg.ProteinHandler.Summary)
			api.GET("/proteins/:proteinId/psms-by-dataset", cfg.ProteinHandler.PSMsByDataset)
			api.GET("/plot/peptide-coverage/:proteinId", cfg.ProteinHandler.PlotData)
		}

		// Species
		if cfg.SpeciesHandler != nil {
			api.GET("/species/coverage-stats", cfg.SpeciesHandler.CoverageStats)
			api.GET("/species/:speciesId/proteins-summary", cfg.SpeciesHandler.ProteinsSummary)
			api.GET("/species/:speciesId/dataset-stats", cfg.SpeciesHandler.DatasetStats)
			api.GET("/species/:speciesId/dataset-overlap", cfg.SpeciesHandler.DatasetOverlap)
			api.GET("/species/:speciesId/modification-stats", cfg.SpeciesHandler.ModificationStats)
		}

		// Datasets
		if cfg.DatasetHandler != nil {
			api.GET("/datasets/ids", cfg.DatasetHandler.IDs)
		}
	}

	return r
}
