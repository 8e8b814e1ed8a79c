package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	protrepo "github.com/arcpp/proteome-backend/internal/data/repos/proteomics"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/coverage"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/modifications"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/species"
	pkgerrors "github.com/arcpp/proteome-backend/internal/pkg/errors"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

const DefaultCoverageStatsTTL = 5 * time.Minute

type SpeciesCoverage struct {
	Species             string  `json:"species"`
	CoveragePercent     float64 `json:"coveragePercent"`
	TotalProteins       int     `json:"totalProteins"`
	ObservedProteins    int     `json:"observedProteins"`
	TotalLength         int     `json:"totalLength"`
	CoveredLength       int     `json:"coveredLength"`
	MeanProteinCoverage float64 `json:"meanProteinCoverage"`
	Error               string  `json:"error,omitempty"`
}

type ModificationStat struct {
	Modification   string `json:"modification"`
	Count          int    `json:"count"`
	UniqueProteins int    `json:"uniqueProteins"`
}

type ModificationStats struct {
	Modifications       []ModificationStat `json:"modifications"`
	TotalOccurrences    int                `json:"totalOccurrences"`
	TotalUniqueProteins int                `json:"totalUniqueProteins"`
}

type SpeciesStatsService interface {
	CoverageStats(ctx context.Context) ([]SpeciesCoverage, error)
	DatasetStats(ctx context.Context, speciesID string) ([]protrepo.DatasetCount, error)
	DatasetOverlap(ctx context.Context, speciesID string) ([]protrepo.OverlapCount, error)
	ModificationStats(ctx context.Context, speciesID string) (ModificationStats, error)
}

type speciesStatsService struct {
	log      *logger.Logger
	species  *species.Registry
	proteins protrepo.ProteinRepo
	peptides protrepo.PeptideRepo
	maxQ     float64
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	memo   []SpeciesCoverage
	memoAt time.Time
}

func NewSpeciesStatsService(
	baseLog *logger.Logger,
	registry *species.Registry,
	proteins protrepo.ProteinRepo,
	peptides protrepo.PeptideRepo,
	maxQ float64,
	ttl time.Duration,
) SpeciesStatsService {
	if maxQ <= 0 {
		maxQ = coverage.DefaultQValueThreshold
	}
	if ttl <= 0 {
		ttl = DefaultCoverageStatsTTL
	}
	return &speciesStatsService{
		log:      baseLog.With("service", "SpeciesStatsService"),
		species:  registry,
		proteins: proteins,
		peptides: peptides,
		maxQ:     maxQ,
		ttl:      ttl,
		now:      time.Now,
	}
}

// CoverageStats is memoised for ttl. Concurrent refreshes may both compute;
// the last writer wins with an equivalent value.
func (s *speciesStatsService) CoverageStats(ctx context.Context) ([]SpeciesCoverage, error) {
	s.mu.Lock()
	if s.memo != nil && s.now().Sub(s.memoAt) < s.ttl {
		out := s.memo
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	all := s.species.All()
	out := make([]SpeciesCoverage, 0, len(all))
	for _, sp := range all {
		row, err := s.speciesCoverage(ctx, sp)
		if err != nil {
			s.log.Error("species coverage failed", "species", sp.Name, "error", err)
			row = SpeciesCoverage{Species: sp.Name, Error: err.Error()}
		}
		out = append(out, row)
	}

	s.mu.Lock()
	s.memo, s.memoAt = out, s.now()
	s.mu.Unlock()
	return out, nil
}

func (s *speciesStatsService) speciesCoverage(ctx context.Context, sp species.Species) (SpeciesCoverage, error) {
	dbc := dbctx.Of(ctx)
	lengths, err := s.proteins.SequenceLengths(dbc, sp.Prefix)
	if err != nil {
		return SpeciesCoverage{}, err
	}
	spans, err := s.peptides.SpansByPrefix(dbc, sp.Prefix, s.maxQ)
	if err != nil {
		return SpeciesCoverage{}, err
	}
	byProtein := map[string][]coverage.Interval{}
	for _, sp := range spans {
		byProtein[sp.ProteinID] = append(byProtein[sp.ProteinID], coverage.Interval{Start: sp.StartIndex, End: sp.EndIndex})
	}

	totals := make([]float64, 0, len(lengths))
	covered := make([]float64, 0, len(lengths))
	perProtein := make([]float64, 0, len(lengths))
	observed := 0
	for _, l := range lengths {
		ivs := byProtein[l.ID]
		if len(ivs) > 0 {
			observed++
		}
		c := coverage.Covered(l.Length, ivs, nil)
		totals = append(totals, float64(l.Length))
		covered = append(covered, float64(c))
		perProtein = append(perProtein, float64(c)/float64(l.Length)*100)
	}

	row := SpeciesCoverage{
		Species:          sp.Name,
		TotalProteins:    len(lengths),
		ObservedProteins: observed,
		TotalLength:      int(floats.Sum(totals)),
		CoveredLength:    int(floats.Sum(covered)),
	}
	if row.TotalLength > 0 {
		row.CoveragePercent = round2(float64(row.CoveredLength) * 100 / float64(row.TotalLength))
	}
	if len(perProtein) > 0 {
		row.MeanProteinCoverage = round2(stat.Mean(perProtein, nil))
	}
	return row, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (s *speciesStatsService) lookup(speciesID string) (species.Species, bool) {
	return s.species.Lookup(speciesID)
}

// DatasetStats returns an empty list for unknown species.
func (s *speciesStatsService) DatasetStats(ctx context.Context, speciesID string) ([]protrepo.DatasetCount, error) {
	sp, ok := s.lookup(speciesID)
	if !ok {
		return []protrepo.DatasetCount{}, nil
	}
	return s.proteins.CountByDataset(dbctx.Of(ctx), sp.Prefix)
}

func (s *speciesStatsService) DatasetOverlap(ctx context.Context, speciesID string) ([]protrepo.OverlapCount, error) {
	sp, ok := s.lookup(speciesID)
	if !ok {
		return []protrepo.OverlapCount{}, nil
	}
	return s.proteins.OverlapHistogram(dbctx.Of(ctx), sp.Prefix)
}

func (s *speciesStatsService) ModificationStats(ctx context.Context, speciesID string) (ModificationStats, error) {
	sp, ok := s.lookup(speciesID)
	if !ok {
		return ModificationStats{}, fmt.Errorf("species %q: %w", speciesID, pkgerrors.ErrInvalidArgument)
	}
	rows, err := s.peptides.ModificationsByPrefix(dbctx.Of(ctx), sp.Prefix)
	if err != nil {
		return ModificationStats{}, err
	}
	return aggregateModifications(rows), nil
}

func aggregateModifications(rows []protrepo.PeptideModification) ModificationStats {
	counts := map[string]int{}
	proteinsByType := map[string]map[string]struct{}{}
	all := map[string]struct{}{}
	for _, r := range rows {
		for _, t := range modifications.Types(r.Modification) {
			if _, ok := modifications.Color(t); !ok {
				continue
			}
			counts[t]++
			if proteinsByType[t] == nil {
				proteinsByType[t] = map[string]struct{}{}
			}
			proteinsByType[t][r.ProteinID] = struct{}{}
			all[r.ProteinID] = struct{}{}
		}
	}
	out := ModificationStats{Modifications: make([]ModificationStat, 0, len(counts))}
	for t, n := range counts {
		out.Modifications = append(out.Modifications, ModificationStat{
			Modification:   t,
			Count:          n,
			UniqueProteins: len(proteinsByType[t]),
		})
		out.TotalOccurrences += n
	}
	sort.Slice(out.Modifications, func(i, j int) bool {
		a, b := out.Modifications[i], out.Modifications[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Modification < b.Modification
	})
	out.TotalUniqueProteins = len(all)
	return out
}
