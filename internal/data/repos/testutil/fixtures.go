package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/arcpp/proteome-backend/internal/domain/proteomics"
)

func SeedProtein(tb testing.TB, ctx context.Context, tx *gorm.DB, id, uniProt, description, sequence string, datasets ...string) *proteomics.Protein {
	tb.Helper()
	p := &proteomics.Protein{
		ID:          id,
		UniProtID:   uniProt,
		Description: description,
		Sequence:    sequence,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed protein: %v", err)
	}
	for _, ds := range datasets {
		if err := tx.WithContext(ctx).
			Where(proteomics.Dataset{ID: ds}).
			FirstOrCreate(&proteomics.Dataset{ID: ds, Name: ds}).Error; err != nil {
			tb.Fatalf("seed dataset: %v", err)
		}
		if err := tx.WithContext(ctx).Create(&proteomics.ProteinDataset{ProteinID: id, DatasetID: ds}).Error; err != nil {
			tb.Fatalf("seed membership: %v", err)
		}
	}
	p.DatasetIDs = datasets
	return p
}

func SeedPeptide(tb testing.TB, ctx context.Context, tx *gorm.DB, proteinID, dataset, sequence string, start, end int, q float64, mod string) *proteomics.Peptide {
	tb.Helper()
	p := &proteomics.Peptide{
		ProteinID:    proteinID,
		Sequence:     sequence,
		StartIndex:   start,
		EndIndex:     end,
		QValue:       q,
		Modification: mod,
	}
	if dataset != "" {
		ds := dataset
		p.DatasetID = &ds
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed peptide: %v", err)
	}
	return p
}
