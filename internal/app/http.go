package app

import (
	"github.com/arcpp/proteome-backend/internal/http"
	httpH "github.com/arcpp/proteome-backend/internal/http/handlers"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Cache   *httpH.CacheHandler
	Job     *httpH.JobHandler
	Protein *httpH.ProteinHandler
	Species *httpH.SpeciesHandler
	Dataset *httpH.DatasetHandler
}

func wireHandlers(log *logger.Logger, services Services, db httpH.Pinger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(db, services.SummaryCache),
		Cache:   httpH.NewCacheHandler(services.SummaryCache, services.JobService, services.Species),
		Job:     httpH.NewJobHandler(services.JobService),
		Protein: httpH.NewProteinHandler(services.Protein),
		Species: httpH.NewSpeciesHandler(services.Listing, services.SpeciesStats),
		Dataset: httpH.NewDatasetHandler(services.Dataset),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers) *http.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewServer(http.RouterConfig{
		Log:            log,
		ServiceName:    serviceName,
		AllowedOrigins: cfg.AllowedOrigins,
		HealthHandler:  handlers.Health,
		CacheHandler:   handlers.Cache,
		JobHandler:     handlers.Job,
		ProteinHandler: handlers.Protein,
		SpeciesHandler: handlers.Species,
		DatasetHandler: handlers.Dataset,
	})
}
