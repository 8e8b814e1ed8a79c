package summary

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/coverage"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/modifications"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

// Store is the slice of the authoritative store the builder reads.
type Store interface {
	CountDistinctSequences(ctx context.Context, proteinID string) (int, error)
	FindPeptidesByProtein(ctx context.Context, proteinID string) ([]*proteomics.Peptide, error)
	ListModificationStrings(ctx context.Context, proteinID string) ([]string, error)
}

type Builder struct {
	store Store
	log   *logger.Logger
	maxQ  float64
}

func NewBuilder(store Store, baseLog *logger.Logger, maxQ float64) *Builder {
	if maxQ <= 0 {
		maxQ = coverage.DefaultQValueThreshold
	}
	return &Builder{store: store, log: baseLog.With("component", "SummaryBuilder"), maxQ: maxQ}
}

// Build composes the summary of one protein. A failing sub-step leaves its
// field at the zero value and is logged; the summary is always returned.
func (b *Builder) Build(ctx context.Context, p *proteomics.Protein) proteomics.ProteinSummary {
	out := proteomics.ProteinSummary{
		HvoID:         p.ID,
		UniProtID:     p.UniProtID,
		Description:   p.Description,
		Datasets:      CleanDatasets(p.DatasetIDs),
		Modifications: []string{},
	}

	if n, err := b.store.CountDistinctSequences(ctx, p.ID); err != nil {
		b.log.Warn("psm count failed", "protein_id", p.ID, "error", err)
	} else {
		out.PSMCount = n
	}

	if pct, err := b.coverage(ctx, p); err != nil {
		b.log.Warn("coverage failed", "protein_id", p.ID, "error", err)
	} else {
		out.CoveragePercent = pct
	}

	if raws, err := b.store.ListModificationStrings(ctx, p.ID); err != nil {
		b.log.Warn("modification types failed", "protein_id", p.ID, "error", err)
	} else {
		out.Modifications = modifications.DistinctTypes(raws)
	}
	return out
}

func (b *Builder) coverage(ctx context.Context, p *proteomics.Protein) (float64, error) {
	peps, err := b.store.FindPeptidesByProtein(ctx, p.ID)
	if err != nil {
		return 0, err
	}
	res, err := coverage.Compute(p.ID, len(p.Sequence), coverage.FromPeptides(peps, b.maxQ), func(iv coverage.Interval) {
		b.log.Warn("inverted peptide interval", "protein_id", p.ID, "start", iv.Start, "end", iv.End)
	})
	if err != nil {
		return 0, err
	}
	return Round1(res.CoveragePercent), nil
}

// DatasetCounts returns PSM rows per dataset for one protein, highest
// count first.
func (b *Builder) DatasetCounts(ctx context.Context, proteinID string) ([]proteomics.DatasetPSMCount, error) {
	peps, err := b.store.FindPeptidesByProtein(ctx, proteinID)
	if err != nil {
		return nil, err
	}
	return CountByDataset(peps), nil
}

func CountByDataset(peps []*proteomics.Peptide) []proteomics.DatasetPSMCount {
	counts := map[string]int{}
	for _, p := range peps {
		if p == nil || p.DatasetID == nil {
			continue
		}
		ds := strings.TrimSpace(*p.DatasetID)
		if ds == "" {
			continue
		}
		counts[ds]++
	}
	out := make([]proteomics.DatasetPSMCount, 0, len(counts))
	for ds, n := range counts {
		out = append(out, proteomics.DatasetPSMCount{Dataset: ds, PSMCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PSMCount != out[j].PSMCount {
			return out[i].PSMCount > out[j].PSMCount
		}
		return out[i].Dataset < out[j].Dataset
	})
	return out
}

// CleanDatasets drops blank ids and keeps stored order.
func CleanDatasets(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
