package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/arcpp/proteome-backend/internal/cache"
	protrepo "github.com/arcpp/proteome-backend/internal/data/repos/proteomics"
	types "github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/modifications"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/species"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/summary"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

const (
	SourceCache         = "cache"
	SourceAuthoritative = "authoritative"

	DefaultPageSize = 25
	MaxPageSize     = 200

	DefaultListingConcurrency = 6
)

type ListRequest struct {
	Species  string
	Offset   int
	Limit    int
	Search   string
	Datasets []string
	Overlaps []int
}

// Normalize clamps limit to [1, MaxPageSize] (0 means default) and offset
// to >= 0, and drops blank dataset ids.
func (r ListRequest) Normalize() ListRequest {
	if r.Limit <= 0 {
		r.Limit = DefaultPageSize
	}
	if r.Limit > MaxPageSize {
		r.Limit = MaxPageSize
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
	r.Search = strings.TrimSpace(r.Search)
	ds := make([]string, 0, len(r.Datasets))
	for _, d := range r.Datasets {
		if d = strings.TrimSpace(d); d != "" {
			ds = append(ds, d)
		}
	}
	r.Datasets = ds
	return r
}

func (r ListRequest) filtered() bool {
	return len(r.Datasets) > 0 || len(r.Overlaps) > 0
}

type ListResult struct {
	SpeciesID string                 `json:"speciesId"`
	Total     int                    `json:"total"`
	Offset    int                    `json:"offset"`
	Limit     int                    `json:"limit"`
	Rows      []types.ProteinSummary `json:"rows"`
	Source    string                 `json:"source"`
}

type ListingService interface {
	List(ctx context.Context, req ListRequest) (ListResult, error)
}

type listingService struct {
	log         *logger.Logger
	species     *species.Registry
	proteins    protrepo.ProteinRepo
	peptides    protrepo.PeptideRepo
	builder     *summary.Builder
	cache       *cache.SummaryCache
	concurrency int
	tracer      trace.Tracer
}

// NewListingService wires the orchestrator. cache may be nil, in which case
// every request takes the authoritative path.
func NewListingService(
	baseLog *logger.Logger,
	registry *species.Registry,
	proteins protrepo.ProteinRepo,
	peptides protrepo.PeptideRepo,
	builder *summary.Builder,
	summaryCache *cache.SummaryCache,
	concurrency int,
) ListingService {
	if concurrency <= 0 {
		concurrency = DefaultListingConcurrency
	}
	return &listingService{
		log:         baseLog.With("service", "ListingService"),
		species:     registry,
		proteins:    proteins,
		peptides:    peptides,
		builder:     builder,
		cache:       summaryCache,
		concurrency: concurrency,
		tracer:      otel.Tracer("arcpp/listing"),
	}
}

func (s *listingService) List(ctx context.Context, req ListRequest) (ListResult, error) {
	req = req.Normalize()
	ctx, span := s.tracer.Start(ctx, "ListingService.List")
	defer span.End()

	out := ListResult{
		SpeciesID: req.Species,
		Offset:    req.Offset,
		Limit:     req.Limit,
		Rows:      []types.ProteinSummary{},
		Source:    SourceAuthoritative,
	}
	sp, ok := s.species.Lookup(req.Species)
	if !ok {
		s.log.Warn("unknown species; returning empty listing", "species", req.Species)
		span.SetAttributes(attribute.String("listing.source", "none"))
		return out, nil
	}

	if !req.filtered() && s.cache != nil {
		if total, rows, ok := s.fromCache(ctx, sp.Prefix, req); ok {
			out.Total, out.Rows, out.Source = total, rows, SourceCache
			span.SetAttributes(attribute.String("listing.source", SourceCache), attribute.Int("listing.total", total))
			return out, nil
		}
	}

	total, rows, err := s.fromStore(ctx, sp.Prefix, req)
	if err != nil {
		span.RecordError(err)
		return ListResult{}, err
	}
	out.Total, out.Rows = total, rows
	span.SetAttributes(attribute.String("listing.source", SourceAuthoritative), attribute.Int("listing.total", total))
	return out, nil
}

// fromCache answers from the summary cache. ok is false when the caller
// must fall back: cache errors, an unseeded cache, an empty unfiltered
// page, or a search with no cached match.
func (s *listingService) fromCache(ctx context.Context, prefix string, req ListRequest) (int, []types.ProteinSummary, bool) {
	seeded, err := s.cache.Seeded(ctx)
	if err != nil {
		s.log.Warn("cache unavailable; falling back", "error", err)
		return 0, nil, false
	}
	if !seeded {
		s.log.Debug("cache not seeded; falling back")
		return 0, nil, false
	}

	if req.Search == "" {
		total, rows, err := s.cache.Page(ctx, prefix, req.Offset, req.Limit)
		if err != nil {
			s.log.Warn("cache page failed; falling back", "error", err)
			return 0, nil, false
		}
		if total == 0 {
			return 0, nil, false
		}
		return total, rows, true
	}

	matches, err := s.cache.SearchAll(ctx, req.Search, prefix)
	if err != nil {
		s.log.Warn("cache search failed; falling back", "error", err)
		return 0, nil, false
	}
	if len(matches) == 0 {
		s.log.Debug("no cached search match; falling back", "search", req.Search)
		return 0, nil, false
	}
	return len(matches), pageOf(matches, req.Offset, req.Limit), true
}

func pageOf(rows []types.ProteinSummary, offset, limit int) []types.ProteinSummary {
	if offset >= len(rows) {
		return []types.ProteinSummary{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func (s *listingService) fromStore(ctx context.Context, prefix string, req ListRequest) (int, []types.ProteinSummary, error) {
	dbc := dbctx.Of(ctx)
	filter := protrepo.ProteinFilter{
		Prefix:   prefix,
		Search:   req.Search,
		Datasets: req.Datasets,
		Overlaps: req.Overlaps,
		Offset:   req.Offset,
		Limit:    req.Limit,
	}
	if req.Search != "" {
		ids, err := s.modificationMatches(dbc, prefix, req.Search)
		if err != nil {
			s.log.Warn("modification search failed; continuing without it", "error", err)
		}
		filter.ModificationMatches = ids
	}

	proteins, total, err := s.proteins.ListProteins(dbc, filter)
	if err != nil {
		return 0, nil, err
	}

	rows := make([]types.ProteinSummary, len(proteins))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range proteins {
		i, p := i, p
		g.Go(func() error {
			rows[i] = s.builder.Build(gctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return int(total), rows, nil
}

// modificationMatches returns protein ids whose peptides carry a
// modification type containing term.
func (s *listingService) modificationMatches(dbc dbctx.Context, prefix, term string) ([]string, error) {
	cands, err := s.peptides.ModificationsLike(dbc, prefix, term)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, c := range cands {
		if seen[c.ProteinID] || !modifications.TypeMatches(c.Modification, term) {
			continue
		}
		seen[c.ProteinID] = true
		out = append(out, c.ProteinID)
	}
	return out, nil
}
