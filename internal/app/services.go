package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/arcpp/proteome-backend/internal/cache"
	"github.com/arcpp/proteome-backend/internal/ingest"
	"github.com/arcpp/proteome-backend/internal/jobs/pipeline/summary_cache_populate"
	jobruntime "github.com/arcpp/proteome-backend/internal/jobs/runtime"
	"github.com/arcpp/proteome-backend/internal/jobs/worker"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/populate"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/species"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/summary"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
	"github.com/arcpp/proteome-backend/internal/services"
)

type Services struct {
	Species      *species.Registry
	SummaryCache *cache.SummaryCache
	Builder      *summary.Builder
	Populator    *populate.Populator
	Importer     *ingest.Importer

	Listing      services.ListingService
	Protein      services.ProteinService
	SpeciesStats services.SpeciesStatsService
	Dataset      services.DatasetService
	JobService   services.JobService

	JobRegistry *jobruntime.Registry
	JobWorker   *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	registry := species.Default(log)

	summaryCache := clients.SummaryCache(log, cfg.CacheBatchSize)
	builder := summary.NewBuilder(summary.NewRepoStore(repos.Peptide), log, cfg.QValueThreshold)
	populator := populate.New(log, repos.Protein, builder, summaryCache, cfg.PopulateBatchSize, cfg.PopulateWorkers)

	jobService := services.NewJobService(log, repos.JobRun)
	jobRegistry := jobruntime.NewRegistry()
	if summaryCache != nil {
		if err := jobRegistry.Register(summary_cache_populate.New(log, registry, populator)); err != nil {
			return Services{}, fmt.Errorf("register %s: %w", summary_cache_populate.JobType, err)
		}
	}
	jobWorker := worker.NewWorker(log, repos.JobRun, jobRegistry, worker.Config{
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: time.Second,
	})

	return Services{
		Species:      registry,
		SummaryCache: summaryCache,
		Builder:      builder,
		Populator:    populator,
		Importer:     ingest.NewImporter(db, log, repos.Protein, repos.Peptide, repos.Dataset),
		Listing:      services.NewListingService(log, registry, repos.Protein, repos.Peptide, builder, summaryCache, cfg.ListingConcurrency),
		Protein:      services.NewProteinService(log, repos.Protein, repos.Peptide, builder, summaryCache, cfg.QValueThreshold),
		SpeciesStats: services.NewSpeciesStatsService(log, registry, repos.Protein, repos.Peptide, cfg.QValueThreshold, cfg.CoverageStatsTTL),
		Dataset:      services.NewDatasetService(log, repos.Dataset),
		JobService:   jobService,
		JobRegistry:  jobRegistry,
		JobWorker:    jobWorker,
	}, nil
}
