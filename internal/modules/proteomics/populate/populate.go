// Package populate fills the summary cache from the authoritative store.
package populate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arcpp/proteome-backend/internal/cache"
	protrepo "github.com/arcpp/proteome-backend/internal/data/repos/proteomics"
	types "github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/species"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/summary"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

const (
	DefaultPageSize    = 50
	DefaultConcurrency = 6
)

type Result struct {
	Species    string `json:"species"`
	Proteins   int    `json:"proteins"`
	PSMEntries int    `json:"psmEntries"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"durationMs"`
}

// Progress receives the running protein count after each page.
type Progress func(done int)

type Populator struct {
	log         *logger.Logger
	proteins    protrepo.ProteinRepo
	builder     *summary.Builder
	cache       *cache.SummaryCache
	pageSize    int
	concurrency int
}

func New(
	baseLog *logger.Logger,
	proteins protrepo.ProteinRepo,
	builder *summary.Builder,
	summaryCache *cache.SummaryCache,
	pageSize int,
	concurrency int,
) *Populator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Populator{
		log:         baseLog.With("component", "CachePopulator"),
		proteins:    proteins,
		builder:     builder,
		cache:       summaryCache,
		pageSize:    pageSize,
		concurrency: concurrency,
	}
}

// Run walks every protein of sp in id order, writes its summary and
// per-dataset PSM counts, and marks the cache seeded once all pages are
// written. A species without proteins leaves the sentinel untouched. A protein whose dataset counts cannot be loaded keeps its summary
// and is counted as failed.
func (p *Populator) Run(ctx context.Context, sp species.Species, progress Progress) (Result, error) {
	start := time.Now()
	res := Result{Species: sp.ID}
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page, err := p.loadPage(ctx, sp.Prefix, after)
		if err != nil {
			return res, fmt.Errorf("load proteins after %q: %w", after, err)
		}
		if len(page) == 0 {
			break
		}

		rows, psms, failed := p.buildPage(ctx, page)
		if err := p.cache.SetMany(ctx, rows); err != nil {
			return res, fmt.Errorf("write summaries: %w", err)
		}
		if err := p.cache.SetPSMsMany(ctx, psms); err != nil {
			return res, fmt.Errorf("write psm counts: %w", err)
		}
		res.Proteins += len(rows)
		res.PSMEntries += len(psms)
		res.Failed += failed
		after = page[len(page)-1].ID
		if progress != nil {
			progress(res.Proteins)
		}
		if len(page) < p.pageSize {
			break
		}
	}

	if res.Proteins == 0 {
		res.DurationMs = time.Since(start).Milliseconds()
		p.log.Warn("no proteins to populate; leaving cache unseeded", "species", sp.ID)
		return res, nil
	}
	if err := p.cache.MarkSeeded(ctx); err != nil {
		return res, fmt.Errorf("mark seeded: %w", err)
	}
	res.DurationMs = time.Since(start).Milliseconds()
	p.log.Info("cache populated",
		"species", sp.ID,
		"proteins", res.Proteins,
		"psm_entries", res.PSMEntries,
		"failed", res.Failed,
		"duration_ms", res.DurationMs,
	)
	return res, nil
}

func (p *Populator) loadPage(ctx context.Context, prefix, after string) ([]*types.Protein, error) {
	page, err := p.proteins.ListAfter(dbctx.Of(ctx), prefix, after, p.pageSize)
	if err != nil && protrepo.IsRetryable(err) {
		p.log.Warn("retrying protein page", "after", after, "error", err)
		page, err = p.proteins.ListAfter(dbctx.Of(ctx), prefix, after, p.pageSize)
	}
	return page, err
}

func (p *Populator) buildPage(ctx context.Context, page []*types.Protein) ([]types.ProteinSummary, map[string][]types.DatasetPSMCount, int) {
	rows := make([]types.ProteinSummary, len(page))
	counts := make([][]types.DatasetPSMCount, len(page))
	errs := make([]error, len(page))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, protein := range page {
		i, protein := i, protein
		g.Go(func() error {
			rows[i] = p.builder.Build(gctx, protein)
			counts[i], errs[i] = p.datasetCounts(gctx, protein.ID)
			return nil
		})
	}
	_ = g.Wait()

	psms := make(map[string][]types.DatasetPSMCount, len(page))
	failed := 0
	for i, protein := range page {
		if errs[i] != nil {
			failed++
			p.log.Warn("dataset counts failed", "protein_id", protein.ID, "error", errs[i])
			continue
		}
		if len(counts[i]) > 0 {
			psms[protein.ID] = counts[i]
		}
	}
	return rows, psms, failed
}

func (p *Populator) datasetCounts(ctx context.Context, proteinID string) ([]types.DatasetPSMCount, error) {
	out, err := p.builder.DatasetCounts(ctx, proteinID)
	if err != nil && protrepo.IsRetryable(err) {
		out, err = p.builder.DatasetCounts(ctx, proteinID)
	}
	return out, err
}
