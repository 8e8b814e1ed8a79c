package proteomics

import (
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

// ProteinFilter selects proteins for the authoritative listing. Prefix is
// mandatory; an empty prefix matches nothing.
type ProteinFilter struct {
	Prefix   string
	Search   string
	Datasets []string
	Overlaps []int
	// ModificationMatches are protein ids whose peptides carry a matching
	// modification type; they extend the search OR.
	ModificationMatches []string
	Offset              int
	Limit               int
}

type SequenceLength struct {
	ID     string
	Length int
}

type DatasetCount struct {
	Dataset string `json:"dataset"`
	Count   int    `json:"proteinCount"`
}

type OverlapCount struct {
	Overlap int `json:"overlapCount"`
	Count   int `json:"proteinCount"`
}

type ProteinRepo interface {
	Upsert(dbc dbctx.Context, proteins []*types.Protein) error
	AttachDatasets(dbc dbctx.Context, proteinID string, datasetIDs []string) error
	GetByID(dbc dbctx.Context, id string) (*types.Protein, error)
	GetByUniProtID(dbc dbctx.Context, uniProtID string) (*types.Protein, error)
	ListIDs(dbc dbctx.Context) (ids []string, uniProtIDs []string, err error)
	ListAfter(dbc dbctx.Context, prefix, afterID string, limit int) ([]*types.Protein, error)
	ListProteins(dbc dbctx.Context, f ProteinFilter) ([]*types.Protein, int64, error)
	SequenceLengths(dbc dbctx.Context, prefix string) ([]SequenceLength, error)
	CountByDataset(dbc dbctx.Context, prefix string) ([]DatasetCount, error)
	OverlapHistogram(dbc dbctx.Context, prefix string) ([]OverlapCount, error)
}

type proteinRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProteinRepo(db *gorm.DB, baseLog *logger.Logger) ProteinRepo {
	return &proteinRepo{db: db, log: baseLog.With("repo", "ProteinRepo")}
}

func (r *proteinRepo) Upsert(dbc dbctx.Context, proteins []*types.Protein) error {
	if len(proteins) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		CreateInBatches(proteins, 200).Error
}

func (r *proteinRepo) AttachDatasets(dbc dbctx.Context, proteinID string, datasetIDs []string) error {
	rows := make([]types.ProteinDataset, 0, len(datasetIDs))
	for _, ds := range datasetIDs {
		if ds = strings.TrimSpace(ds); ds != "" {
			rows = append(rows, types.ProteinDataset{ProteinID: proteinID, DatasetID: ds})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *proteinRepo) GetByID(dbc dbctx.Context, id string) (*types.Protein, error) {
	var p types.Protein
	err := dbc.DB(r.db).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("protein", id)
	}
	if err != nil {
		return nil, err
	}
	if err := r.fillDatasets(dbc, []*types.Protein{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *proteinRepo) GetByUniProtID(dbc dbctx.Context, uniProtID string) (*types.Protein, error) {
	var p types.Protein
	err := dbc.DB(r.db).Where("UPPER(uni_prot_id) = ?", strings.ToUpper(uniProtID)).Order("id ASC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("uniprot", uniProtID)
	}
	if err != nil {
		return nil, err
	}
	if err := r.fillDatasets(dbc, []*types.Protein{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *proteinRepo) ListIDs(dbc dbctx.Context) ([]string, []string, error) {
	var rows []struct {
		ID        string
		UniProtID string
	}
	if err := dbc.DB(r.db).Model(&types.Protein{}).Select("id, uni_prot_id").Order("id ASC").Scan(&rows).Error; err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(rows))
	uni := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		uni = append(uni, row.UniProtID)
	}
	return ids, uni, nil
}

// ListAfter pages through a species by id using a keyset cursor.
func (r *proteinRepo) ListAfter(dbc dbctx.Context, prefix, afterID string, limit int) ([]*types.Protein, error) {
	if prefix == "" {
		return []*types.Protein{}, nil
	}
	var out []*types.Protein
	if err := dbc.DB(r.db).
		Where(`id LIKE ? ESCAPE '\' AND id > ?`, prefixPattern(prefix), afterID).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if err := r.fillDatasets(dbc, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListProteins applies the species prefix, the dataset and overlap filters
// (intersected) and the search OR, orders by id and paginates. It returns
// the page and the total before pagination.
func (r *proteinRepo) ListProteins(dbc dbctx.Context, f ProteinFilter) ([]*types.Protein, int64, error) {
	if f.Prefix == "" {
		return []*types.Protein{}, 0, nil
	}
	tx := dbc.DB(r.db)
	q := tx.Model(&types.Protein{}).Where(`id LIKE ? ESCAPE '\'`, prefixPattern(f.Prefix))

	if len(f.Datasets) > 0 {
		q = q.Where("id IN (?)", tx.Model(&types.ProteinDataset{}).
			Select("protein_id").
			Where("dataset_id IN ?", f.Datasets))
	}
	if len(f.Overlaps) > 0 {
		q = q.Where(overlapCondition(tx, f.Overlaps))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := containsPattern(s)
		or := tx.Where(`LOWER(id) LIKE ? ESCAPE '\'`, pat).
			Or(`LOWER(uni_prot_id) LIKE ? ESCAPE '\'`, pat).
			Or(`LOWER(description) LIKE ? ESCAPE '\'`, pat).
			Or("id IN (?)", tx.Model(&types.ProteinDataset{}).
				Select("protein_id").
				Where(`LOWER(dataset_id) LIKE ? ESCAPE '\'`, pat))
		if len(f.ModificationMatches) > 0 {
			or = or.Or("id IN ?", f.ModificationMatches)
		}
		q = q.Where(or)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*types.Protein
	page := q.Session(&gorm.Session{}).Order("id ASC")
	if f.Offset > 0 {
		page = page.Offset(f.Offset)
	}
	if f.Limit > 0 {
		page = page.Limit(f.Limit)
	}
	if err := page.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	if err := r.fillDatasets(dbc, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// overlapCondition selects proteins whose membership count is in overlaps.
// Zero matches proteins without any membership row.
func overlapCondition(tx *gorm.DB, overlaps []int) *gorm.DB {
	var positive []int
	zero := false
	for _, n := range overlaps {
		switch {
		case n == 0:
			zero = true
		case n > 0:
			positive = append(positive, n)
		}
	}
	members := tx.Model(&types.ProteinDataset{}).Select("protein_id")
	cond := tx.Where("1 = 0")
	if len(positive) > 0 {
		cond = cond.Or("id IN (?)", tx.Model(&types.ProteinDataset{}).
			Select("protein_id").
			Group("protein_id").
			Having("COUNT(*) IN ?", positive))
	}
	if zero {
		cond = cond.Or("id NOT IN (?)", members)
	}
	return cond
}

func (r *proteinRepo) fillDatasets(dbc dbctx.Context, proteins []*types.Protein) error {
	if len(proteins) == 0 {
		return nil
	}
	ids := make([]string, len(proteins))
	for i, p := range proteins {
		ids[i] = p.ID
	}
	var rows []types.ProteinDataset
	if err := dbc.DB(r.db).
		Where("protein_id IN ?", ids).
		Order("protein_id ASC, dataset_id ASC").
		Find(&rows).Error; err != nil {
		return err
	}
	byProtein := make(map[string][]string, len(proteins))
	for _, row := range rows {
		byProtein[row.ProteinID] = append(byProtein[row.ProteinID], row.DatasetID)
	}
	for _, p := range proteins {
		p.DatasetIDs = byProtein[p.ID]
		if p.DatasetIDs == nil {
			p.DatasetIDs = []string{}
		}
	}
	return nil
}

func (r *proteinRepo) SequenceLengths(dbc dbctx.Context, prefix string) ([]SequenceLength, error) {
	if prefix == "" {
		return []SequenceLength{}, nil
	}
	var rows []struct {
		ID       string
		Sequence string
	}
	if err := dbc.DB(r.db).
		Model(&types.Protein{}).
		Select("id, sequence").
		Where(`id LIKE ? ESCAPE '\' AND sequence <> ''`, prefixPattern(prefix)).
		Order("id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]SequenceLength, len(rows))
	for i, row := range rows {
		out[i] = SequenceLength{ID: row.ID, Length: len(row.Sequence)}
	}
	return out, nil
}

// CountByDataset returns proteins per dataset, largest first.
func (r *proteinRepo) CountByDataset(dbc dbctx.Context, prefix string) ([]DatasetCount, error) {
	if prefix == "" {
		return []DatasetCount{}, nil
	}
	var out []DatasetCount
	if err := dbc.DB(r.db).
		Model(&types.ProteinDataset{}).
		Select("dataset_id AS dataset, COUNT(*) AS count").
		Where(`protein_id LIKE ? ESCAPE '\'`, prefixPattern(prefix)).
		Group("dataset_id").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Dataset < out[j].Dataset
	})
	return out, nil
}

// OverlapHistogram returns how many proteins were seen in exactly n
// datasets, ascending by n. Proteins without memberships form the n=0
// bucket.
func (r *proteinRepo) OverlapHistogram(dbc dbctx.Context, prefix string) ([]OverlapCount, error) {
	if prefix == "" {
		return []OverlapCount{}, nil
	}
	tx := dbc.DB(r.db)
	perProtein := tx.Model(&types.ProteinDataset{}).
		Select("protein_id, COUNT(*) AS overlap").
		Where(`protein_id LIKE ? ESCAPE '\'`, prefixPattern(prefix)).
		Group("protein_id")
	var out []OverlapCount
	if err := tx.Table("(?) AS per_protein", perProtein).
		Select("overlap, COUNT(*) AS count").
		Group("overlap").
		Order("overlap ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}

	var unassigned int64
	if err := tx.Model(&types.Protein{}).
		Where(`id LIKE ? ESCAPE '\'`, prefixPattern(prefix)).
		Where("id NOT IN (?)", tx.Model(&types.ProteinDataset{}).Select("protein_id")).
		Count(&unassigned).Error; err != nil {
		return nil, err
	}
	if unassigned > 0 {
		out = append([]OverlapCount{{Overlap: 0, Count: int(unassigned)}}, out...)
	}
	return out, nil
}
