package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/arcpp/proteome-backend/internal/cache"
	protrepo "github.com/arcpp/proteome-backend/internal/data/repos/proteomics"
	types "github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/coverage"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/modifications"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/summary"
	pkgerrors "github.com/arcpp/proteome-backend/internal/pkg/errors"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

var (
	hvoPattern     = regexp.MustCompile(`(?i)^HVO_\d{4}$`)
	uniProtPattern = regexp.MustCompile(`(?i)^(?:[A-Z][0-9][A-Z0-9]{3}[0-9]|[A-Z0-9]{10})(?:-\d+)?$`)
)

const (
	MatchProteinID = "protein_id"
	MatchUniProt   = "uniProt"
)

type SequenceView struct {
	ProteinID     string                         `json:"protein_id"`
	Sequence      string                         `json:"sequence"`
	Length        int                            `json:"length"`
	Modifications []types.ModificationAnnotation `json:"modifications"`
}

type PSMCount struct {
	ProteinID string `json:"protein_id"`
	PSMCount  int    `json:"psmCount"`
}

type ResolveResult struct {
	MatchType   string  `json:"matchType"`
	ProteinID   string  `json:"protein_id"`
	UniProtID   *string `json:"uniProtein_id"`
	Description *string `json:"description"`
}

type ProteinIDs struct {
	HVO     []string `json:"hvo"`
	UniProt []string `json:"uniprot"`
}

type PSMsByDataset struct {
	ProteinID string                  `json:"proteinId"`
	Data      []types.DatasetPSMCount `json:"data"`
	Source    string                  `json:"source"`
}

type SummaryView struct {
	types.ProteinSummary
	Source string `json:"source"`
}

type PlotPeptide struct {
	Start         int    `json:"start"`
	Stop          int    `json:"stop"`
	Sequence      string `json:"sequence"`
	Modifications string `json:"modifications,omitempty"`
}

type PlotTracks struct {
	Peptides      float64 `json:"peptides"`
	Modifications float64 `json:"modifications"`
	GluC          float64 `json:"gluc"`
	Trypsin       float64 `json:"trypsin"`
}

type PlotData struct {
	ProteinID         string                            `json:"proteinId"`
	SequenceLength    int                               `json:"sequenceLength"`
	Sequence          string                            `json:"sequence"`
	Tracks            PlotTracks                        `json:"tracks"`
	Peptides          []PlotPeptide                     `json:"peptides"`
	Trypsin           []int                             `json:"trypsin"`
	GluC              []int                             `json:"gluc"`
	Points            []types.ModificationPoint         `json:"modifications"`
	Legend            []types.ModificationLegendEntry   `json:"legend"`
	MultiModPositions map[int][]modifications.TypeColor `json:"multiModPositions"`
}

type ProteinService interface {
	Coverage(ctx context.Context, proteinID string) (types.CoverageResult, error)
	Sequence(ctx context.Context, proteinID string) (SequenceView, error)
	PSMCount(ctx context.Context, proteinID string) (PSMCount, error)
	Details(ctx context.Context, proteinID string) (*types.Protein, error)
	Resolve(ctx context.Context, q string) (ResolveResult, error)
	IDs(ctx context.Context) (ProteinIDs, error)
	Summary(ctx context.Context, proteinID string) (SummaryView, error)
	PSMsByDataset(ctx context.Context, proteinID string) (PSMsByDataset, error)
	PlotData(ctx context.Context, proteinID string) (PlotData, error)
}

type proteinService struct {
	log      *logger.Logger
	proteins protrepo.ProteinRepo
	peptides protrepo.PeptideRepo
	builder  *summary.Builder
	cache    *cache.SummaryCache
	maxQ     float64
}

func NewProteinService(
	baseLog *logger.Logger,
	proteins protrepo.ProteinRepo,
	peptides protrepo.PeptideRepo,
	builder *summary.Builder,
	summaryCache *cache.SummaryCache,
	maxQ float64,
) ProteinService {
	if maxQ <= 0 {
		maxQ = coverage.DefaultQValueThreshold
	}
	return &proteinService{
		log:      baseLog.With("service", "ProteinService"),
		proteins: proteins,
		peptides: peptides,
		builder:  builder,
		cache:    summaryCache,
		maxQ:     maxQ,
	}
}

// withSequence loads a protein and its peptides, treating a missing
// sequence as not found.
func (s *proteinService) withSequence(ctx context.Context, proteinID string) (*types.Protein, []*types.Peptide, error) {
	dbc := dbctx.Of(ctx)
	p, err := s.proteins.GetByID(dbc, proteinID)
	if err != nil {
		return nil, nil, err
	}
	if p.Sequence == "" {
		return nil, nil, fmt.Errorf("protein %s has no sequence: %w", proteinID, pkgerrors.ErrNotFound)
	}
	peps, err := s.peptides.FindByProtein(dbc, proteinID)
	if err != nil {
		return nil, nil, err
	}
	return p, peps, nil
}

func (s *proteinService) confident(peps []*types.Peptide) []*types.Peptide {
	out := make([]*types.Peptide, 0, len(peps))
	for _, p := range peps {
		if p != nil && p.QValue <= s.maxQ {
			out = append(out, p)
		}
	}
	return out
}

func (s *proteinService) Coverage(ctx context.Context, proteinID string) (types.CoverageResult, error) {
	p, peps, err := s.withSequence(ctx, proteinID)
	if err != nil {
		return types.CoverageResult{}, err
	}
	return coverage.Compute(p.ID, len(p.Sequence), coverage.FromPeptides(peps, s.maxQ), func(iv coverage.Interval) {
		s.log.Warn("inverted peptide interval", "protein_id", p.ID, "start", iv.Start, "end", iv.End)
	})
}

func (s *proteinService) Sequence(ctx context.Context, proteinID string) (SequenceView, error) {
	p, peps, err := s.withSequence(ctx, proteinID)
	if err != nil {
		return SequenceView{}, err
	}
	res := modifications.Map(len(p.Sequence), s.confident(peps))
	return SequenceView{
		ProteinID:     p.ID,
		Sequence:      p.Sequence,
		Length:        len(p.Sequence),
		Modifications: res.Annotations,
	}, nil
}

func (s *proteinService) PSMCount(ctx context.Context, proteinID string) (PSMCount, error) {
	dbc := dbctx.Of(ctx)
	if _, err := s.proteins.GetByID(dbc, proteinID); err != nil {
		return PSMCount{}, err
	}
	n, err := s.peptides.CountDistinctSequences(dbc, proteinID)
	if err != nil {
		return PSMCount{}, err
	}
	return PSMCount{ProteinID: proteinID, PSMCount: n}, nil
}

func (s *proteinService) Details(ctx context.Context, proteinID string) (*types.Protein, error) {
	return s.proteins.GetByID(dbctx.Of(ctx), proteinID)
}

func (s *proteinService) Resolve(ctx context.Context, q string) (ResolveResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return ResolveResult{}, fmt.Errorf("missing q: %w", pkgerrors.ErrInvalidArgument)
	}
	dbc := dbctx.Of(ctx)
	if hvoPattern.MatchString(q) {
		if p, err := s.proteins.GetByID(dbc, strings.ToUpper(q)); err == nil {
			return resolved(MatchProteinID, p), nil
		} else if protrepo.Classify(err) != protrepo.ClassNotFound {
			return ResolveResult{}, err
		}
	}
	if uniProtPattern.MatchString(q) {
		if p, err := s.proteins.GetByUniProtID(dbc, q); err == nil {
			return resolved(MatchUniProt, p), nil
		} else if protrepo.Classify(err) != protrepo.ClassNotFound {
			return ResolveResult{}, err
		}
	}
	return ResolveResult{}, fmt.Errorf("protein %q: %w", q, pkgerrors.ErrNotFound)
}

func resolved(matchType string, p *types.Protein) ResolveResult {
	out := ResolveResult{MatchType: matchType, ProteinID: p.ID}
	if p.UniProtID != "" {
		u := p.UniProtID
		out.UniProtID = &u
	}
	if p.Description != "" {
		d := p.Description
		out.Description = &d
	}
	return out
}

func (s *proteinService) IDs(ctx context.Context) (ProteinIDs, error) {
	ids, uni, err := s.proteins.ListIDs(dbctx.Of(ctx))
	if err != nil {
		return ProteinIDs{}, err
	}
	return ProteinIDs{HVO: cleanIDs(ids, hvoPattern), UniProt: cleanIDs(uni, uniProtPattern)}, nil
}

// cleanIDs upper-cases, validates, dedupes and sorts.
func cleanIDs(in []string, re *regexp.Regexp) []string {
	set := map[string]struct{}{}
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || !re.MatchString(s) {
			continue
		}
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Summary reads one protein's summary through the cache. On a miss the
// summary is built from the store and written back.
func (s *proteinService) Summary(ctx context.Context, proteinID string) (SummaryView, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, proteinID)
		switch {
		case err != nil:
			s.log.Warn("summary cache read failed; falling back", "protein_id", proteinID, "error", err)
		case cached != nil:
			return SummaryView{ProteinSummary: *cached, Source: SourceCache}, nil
		}
	}
	p, err := s.proteins.GetByID(dbctx.Of(ctx), proteinID)
	if err != nil {
		return SummaryView{}, err
	}
	built := s.builder.Build(ctx, p)
	if s.cache != nil {
		if err := s.cache.Set(ctx, built); err != nil {
			s.log.Warn("summary cache write failed", "protein_id", proteinID, "error", err)
		}
	}
	return SummaryView{ProteinSummary: built, Source: SourceAuthoritative}, nil
}

// PSMsByDataset reads the cached breakdown and falls back to the store,
// writing the store's answer back.
func (s *proteinService) PSMsByDataset(ctx context.Context, proteinID string) (PSMsByDataset, error) {
	if s.cache != nil {
		data, ok, err := s.cache.PSMsByDataset(ctx, proteinID)
		switch {
		case err != nil:
			s.log.Warn("psms cache read failed; falling back", "protein_id", proteinID, "error", err)
		case ok && len(data) > 0:
			return PSMsByDataset{ProteinID: proteinID, Data: data, Source: SourceCache}, nil
		}
	}
	data, err := s.builder.DatasetCounts(ctx, proteinID)
	if err != nil {
		return PSMsByDataset{}, err
	}
	if len(data) == 0 {
		return PSMsByDataset{}, fmt.Errorf("no PSM data for %s: %w", proteinID, pkgerrors.ErrNotFound)
	}
	if s.cache != nil {
		if err := s.cache.SetPSMsByDataset(ctx, proteinID, data); err != nil {
			s.log.Warn("psms cache write failed", "protein_id", proteinID, "error", err)
		}
	}
	return PSMsByDataset{ProteinID: proteinID, Data: data, Source: SourceAuthoritative}, nil
}

func (s *proteinService) PlotData(ctx context.Context, proteinID string) (PlotData, error) {
	p, peps, err := s.withSequence(ctx, proteinID)
	if err != nil {
		return PlotData{}, err
	}
	length := len(p.Sequence)
	peps = distinctPeptides(s.confident(peps))

	out := PlotData{
		ProteinID:      p.ID,
		SequenceLength: length,
		Sequence:       p.Sequence,
		Tracks: PlotTracks{
			Peptides:      modifications.TrackPeptides,
			Modifications: modifications.TrackModifications,
			GluC:          modifications.TrackGluC,
			Trypsin:       modifications.TrackTrypsin,
		},
		Peptides: make([]PlotPeptide, 0, len(peps)),
	}
	for _, pep := range peps {
		iv, ok := coverage.Clip(length, coverage.Interval{Start: pep.StartIndex, End: pep.EndIndex})
		if !ok {
			continue
		}
		out.Peptides = append(out.Peptides, PlotPeptide{
			Start:         iv.Start,
			Stop:          iv.End,
			Sequence:      pep.Sequence,
			Modifications: pep.Modification,
		})
	}
	out.Trypsin, out.GluC = modifications.CleavageSites(p.Sequence)

	res := modifications.Map(length, peps)
	out.Points = res.Points
	out.Legend = res.Legend
	out.MultiModPositions = res.MultiModPositions
	return out, nil
}

type peptideKey struct {
	sequence     string
	start, end   int
	modification string
}

// distinctPeptides drops repeated PSMs of the same peptide span and
// modification string, keeping the first.
func distinctPeptides(peps []*types.Peptide) []*types.Peptide {
	seen := make(map[peptideKey]struct{}, len(peps))
	out := make([]*types.Peptide, 0, len(peps))
	for _, p := range peps {
		k := peptideKey{p.Sequence, p.StartIndex, p.EndIndex, p.Modification}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
