package summary_cache_populate

import (
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/populate"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/species"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

const JobType = "summary_cache_populate"

type Pipeline struct {
	log       *logger.Logger
	species   *species.Registry
	populator *populate.Populator
}

func New(baseLog *logger.Logger, registry *species.Registry, populator *populate.Populator) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", JobType),
		species:   registry,
		populator: populator,
	}
}

func (p *Pipeline) Type() string { return JobType }
