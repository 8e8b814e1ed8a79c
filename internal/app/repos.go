package app

import (
	"gorm.io/gorm"

	jobrepo "github.com/arcpp/proteome-backend/internal/data/repos/jobs"
	protrepo "github.com/arcpp/proteome-backend/internal/data/repos/proteomics"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

type Repos struct {
	Protein protrepo.ProteinRepo
	Peptide protrepo.PeptideRepo
	Dataset protrepo.DatasetRepo
	JobRun  jobrepo.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Protein: protrepo.NewProteinRepo(db, log),
		Peptide: protrepo.NewPeptideRepo(db, log),
		Dataset: protrepo.NewDatasetRepo(db, log),
		JobRun:  jobrepo.NewJobRunRepo(db, log),
	}
}
