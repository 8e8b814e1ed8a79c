package summary

import (
	"context"

	protrepo "github.com/arcpp/proteome-backend/internal/data/repos/proteomics"
	types "github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
)

// peptideStore adapts PeptideRepo to Store.
type peptideStore struct {
	repo protrepo.PeptideRepo
}

func NewRepoStore(repo protrepo.PeptideRepo) Store {
	return peptideStore{repo: repo}
}

func (s peptideStore) CountDistinctSequences(ctx context.Context, proteinID string) (int, error) {
	return s.repo.CountDistinctSequences(dbctx.Of(ctx), proteinID)
}

func (s peptideStore) FindPeptidesByProtein(ctx context.Context, proteinID string) ([]*types.Peptide, error) {
	return s.repo.FindByProtein(dbctx.Of(ctx), proteinID)
}

func (s peptideStore) ListModificationStrings(ctx context.Context, proteinID string) ([]string, error) {
	return s.repo.ListModificationStrings(dbctx.Of(ctx), proteinID)
}
