package db

import (
	"gorm.io/gorm"

	"github.com/arcpp/proteome-backend/internal/domain/jobs"
	"github.com/arcpp/proteome-backend/internal/domain/proteomics"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Authoritative proteome data
		&proteomics.Protein{},
		&proteomics.Dataset{},
		&proteomics.ProteinDataset{},
		&proteomics.Peptide{},

		// Background jobs
		&jobs.JobRun{},
	)
}
