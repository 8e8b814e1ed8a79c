package ingest

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	protrepo "github.com/arcpp/proteome-backend/internal/data/repos/proteomics"
	types "github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

type ImportStats struct {
	Proteins        int `json:"proteins"`
	Peptides        int `json:"peptides"`
	Memberships     int `json:"memberships"`
	UnknownProteins int `json:"unknownProteins"`
}

type Importer struct {
	db       *gorm.DB
	log      *logger.Logger
	proteins protrepo.ProteinRepo
	peptides protrepo.PeptideRepo
	datasets protrepo.DatasetRepo
}

func NewImporter(db *gorm.DB, baseLog *logger.Logger, proteins protrepo.ProteinRepo, peptides protrepo.PeptideRepo, datasets protrepo.DatasetRepo) *Importer {
	return &Importer{
		db:       db,
		log:      baseLog.With("component", "Importer"),
		proteins: proteins,
		peptides: peptides,
		datasets: datasets,
	}
}

// ImportFasta upserts one protein per record. Existing rows are replaced
// whole, so scalar columns not present in FASTA are reset.
func (im *Importer) ImportFasta(ctx context.Context, records []FastaRecord) (ImportStats, error) {
	rows := make([]*types.Protein, 0, len(records))
	for _, r := range records {
		rows = append(rows, &types.Protein{
			ID:          strings.TrimSpace(r.ID),
			Description: r.Description,
			Sequence:    r.Sequence,
		})
	}
	if err := im.proteins.Upsert(dbctx.Of(ctx), rows); err != nil {
		return ImportStats{}, fmt.Errorf("upsert proteins: %w", err)
	}
	im.log.Info("fasta imported", "proteins", len(rows))
	return ImportStats{Proteins: len(rows)}, nil
}

// ImportPSMs replaces the peptides of datasetID for every protein the PSMs
// touch, in one transaction. PSM accessions resolve by protein id first,
// then by UniProt accession; unresolved accessions are counted and skipped.
func (im *Importer) ImportPSMs(ctx context.Context, datasetID string, psms []PSM) (ImportStats, error) {
	datasetID = strings.TrimSpace(datasetID)
	if datasetID == "" {
		return ImportStats{}, fmt.Errorf("dataset id is required")
	}
	var stats ImportStats
	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := im.datasets.Upsert(dbc, []*types.Dataset{{ID: datasetID, Name: datasetID}}); err != nil {
			return fmt.Errorf("upsert dataset: %w", err)
		}

		resolved := map[string]string{}
		unknown := map[string]bool{}
		byProtein := map[string][]*types.Peptide{}
		var order []string
		for _, psm := range psms {
			id, ok := resolved[psm.ProteinAccession]
			if !ok && !unknown[psm.ProteinAccession] {
				var err error
				id, err = im.resolve(dbc, psm.ProteinAccession)
				if err != nil {
					return err
				}
				if id == "" {
					unknown[psm.ProteinAccession] = true
				} else {
					resolved[psm.ProteinAccession] = id
				}
			}
			if id == "" {
				continue
			}
			if _, seen := byProtein[id]; !seen {
				order = append(order, id)
			}
			ds := datasetID
			byProtein[id] = append(byProtein[id], &types.Peptide{
				ProteinID:    id,
				DatasetID:    &ds,
				Sequence:     psm.Sequence,
				StartIndex:   psm.Start,
				EndIndex:     psm.End,
				QValue:       psm.QValue,
				Modification: psm.Modification,
			})
		}

		for _, id := range order {
			if err := im.peptides.DeleteByProteinDataset(dbc, id, datasetID); err != nil {
				return fmt.Errorf("clear peptides of %s: %w", id, err)
			}
			if err := im.peptides.Create(dbc, byProtein[id]); err != nil {
				return fmt.Errorf("insert peptides of %s: %w", id, err)
			}
			if err := im.proteins.AttachDatasets(dbc, id, []string{datasetID}); err != nil {
				return fmt.Errorf("attach %s: %w", id, err)
			}
			stats.Peptides += len(byProtein[id])
		}
		stats.Memberships = len(order)
		stats.UnknownProteins = len(unknown)
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	im.log.Info("psms imported",
		"dataset", datasetID,
		"peptides", stats.Peptides,
		"proteins", stats.Memberships,
		"unknown_accessions", stats.UnknownProteins,
	)
	return stats, nil
}

func (im *Importer) resolve(dbc dbctx.Context, accession string) (string, error) {
	if p, err := im.proteins.GetByID(dbc, accession); err == nil {
		return p.ID, nil
	} else if protrepo.Classify(err) != protrepo.ClassNotFound {
		return "", err
	}
	if p, err := im.proteins.GetByUniProtID(dbc, accession); err == nil {
		return p.ID, nil
	} else if protrepo.Classify(err) != protrepo.ClassNotFound {
		return "", err
	}
	return "", nil
}
