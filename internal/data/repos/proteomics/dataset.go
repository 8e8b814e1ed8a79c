package proteomics

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

type DatasetRepo interface {
	Upsert(dbc dbctx.Context, datasets []*types.Dataset) error
	ListIDs(dbc dbctx.Context) ([]string, error)
}

type datasetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetRepo(db *gorm.DB, baseLog *logger.Logger) DatasetRepo {
	return &datasetRepo{db: db, log: baseLog.With("repo", "DatasetRepo")}
}

func (r *datasetRepo) Upsert(dbc dbctx.Context, datasets []*types.Dataset) error {
	if len(datasets) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).
		Create(&datasets).Error
}

// ListIDs returns dataset ids from both the dataset table and memberships,
// since older imports only recorded memberships.
func (r *datasetRepo) ListIDs(dbc dbctx.Context) ([]string, error) {
	tx := dbc.DB(r.db)
	var a, b []string
	if err := tx.Model(&types.Dataset{}).Pluck("id", &a).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&types.ProteinDataset{}).Distinct().Pluck("dataset_id", &b).Error; err != nil {
		return nil, err
	}
	return append(a, b...), nil
}
