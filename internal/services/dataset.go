package services

import (
	"context"
	"regexp"
	"sort"
	"strings"

	protrepo "github.com/arcpp/proteome-backend/internal/data/repos/proteomics"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

var datasetIDPattern = regexp.MustCompile(`(?i)\b(PXD|RPXD|PRXD)(\d{6})\b`)

type DatasetService interface {
	// IDs returns every known ProteomeXchange accession, upper-cased,
	// deduplicated and sorted.
	IDs(ctx context.Context) ([]string, error)
}

type datasetService struct {
	log      *logger.Logger
	datasets protrepo.DatasetRepo
}

func NewDatasetService(baseLog *logger.Logger, datasets protrepo.DatasetRepo) DatasetService {
	return &datasetService{log: baseLog.With("service", "DatasetService"), datasets: datasets}
}

func (s *datasetService) IDs(ctx context.Context) ([]string, error) {
	raw, err := s.datasets.ListIDs(dbctx.Of(ctx))
	if err != nil {
		return nil, err
	}
	return NormalizeDatasetIDs(raw), nil
}

// NormalizeDatasetIDs extracts accessions from free-form fields. One field
// may hold several ids separated by commas, semicolons or whitespace.
func NormalizeDatasetIDs(raw []string) []string {
	set := map[string]struct{}{}
	for _, field := range raw {
		for _, m := range datasetIDPattern.FindAllStringSubmatch(field, -1) {
			set[strings.ToUpper(m[1])+m[2]] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
