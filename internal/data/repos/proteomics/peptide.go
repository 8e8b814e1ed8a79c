package proteomics

import (
	"gorm.io/gorm"

	types "github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

// PeptideSpan is the minimal projection used for species-wide coverage.
type PeptideSpan struct {
	ProteinID  string
	StartIndex int
	EndIndex   int
}

// PeptideModification is one (protein, raw annotation) pair.
type PeptideModification struct {
	ProteinID    string
	Modification string
}

type PeptideRepo interface {
	Create(dbc dbctx.Context, peptides []*types.Peptide) error
	DeleteByProteinDataset(dbc dbctx.Context, proteinID, datasetID string) error
	FindByProtein(dbc dbctx.Context, proteinID string) ([]*types.Peptide, error)
	CountDistinctSequences(dbc dbctx.Context, proteinID string) (int, error)
	ListModificationStrings(dbc dbctx.Context, proteinID string) ([]string, error)
	SpansByPrefix(dbc dbctx.Context, prefix string, maxQ float64) ([]PeptideSpan, error)
	ModificationsByPrefix(dbc dbctx.Context, prefix string) ([]PeptideModification, error)
	ModificationsLike(dbc dbctx.Context, prefix, term string) ([]PeptideModification, error)
}

type peptideRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPeptideRepo(db *gorm.DB, baseLog *logger.Logger) PeptideRepo {
	return &peptideRepo{db: db, log: baseLog.With("repo", "PeptideRepo")}
}

func (r *peptideRepo) Create(dbc dbctx.Context, peptides []*types.Peptide) error {
	if len(peptides) == 0 {
		return nil
	}
	return dbc.DB(r.db).CreateInBatches(peptides, 500).Error
}

func (r *peptideRepo) DeleteByProteinDataset(dbc dbctx.Context, proteinID, datasetID string) error {
	return dbc.DB(r.db).
		Where("protein_id = ? AND dataset_id = ?", proteinID, datasetID).
		Delete(&types.Peptide{}).Error
}

func (r *peptideRepo) FindByProtein(dbc dbctx.Context, proteinID string) ([]*types.Peptide, error) {
	var out []*types.Peptide
	if err := dbc.DB(r.db).
		Where("protein_id = ?", proteinID).
		Order("start_index ASC, end_index ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *peptideRepo) CountDistinctSequences(dbc dbctx.Context, proteinID string) (int, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.Peptide{}).
		Where("protein_id = ?", proteinID).
		Distinct("sequence").
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *peptideRepo) ListModificationStrings(dbc dbctx.Context, proteinID string) ([]string, error) {
	var out []string
	if err := dbc.DB(r.db).
		Model(&types.Peptide{}).
		Where("protein_id = ? AND modification <> ''", proteinID).
		Distinct().
		Order("modification ASC").
		Pluck("modification", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *peptideRepo) SpansByPrefix(dbc dbctx.Context, prefix string, maxQ float64) ([]PeptideSpan, error) {
	var out []PeptideSpan
	if err := dbc.DB(r.db).
		Model(&types.Peptide{}).
		Select("protein_id, start_index, end_index").
		Where(`protein_id LIKE ? ESCAPE '\' AND q_value <= ?`, prefixPattern(prefix), maxQ).
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *peptideRepo) ModificationsByPrefix(dbc dbctx.Context, prefix string) ([]PeptideModification, error) {
	var out []PeptideModification
	if err := dbc.DB(r.db).
		Model(&types.Peptide{}).
		Select("protein_id, modification").
		Where(`protein_id LIKE ? ESCAPE '\' AND modification <> ''`, prefixPattern(prefix)).
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ModificationsLike narrows candidates for modification search in SQL; the
// caller still checks that the term hits a type token rather than a position.
func (r *peptideRepo) ModificationsLike(dbc dbctx.Context, prefix, term string) ([]PeptideModification, error) {
	var out []PeptideModification
	if err := dbc.DB(r.db).
		Model(&types.Peptide{}).
		Distinct("protein_id", "modification").
		Where(`protein_id LIKE ? ESCAPE '\' AND LOWER(modification) LIKE ? ESCAPE '\'`, prefixPattern(prefix), containsPattern(term)).
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
