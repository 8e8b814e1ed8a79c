package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/arcpp/proteome-backend/internal/cache"
	protrepo "github.com/arcpp/proteome-backend/internal/data/repos/proteomics"
	"github.com/arcpp/proteome-backend/internal/data/repos/testutil"
	types "github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/coverage"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/species"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/summary"
	"github.com/arcpp/proteome-backend/internal/platform/dbctx"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

const haloferax = "haloferax_volcanii"

type testEnv struct {
	db       *gorm.DB
	log      *logger.Logger
	registry *species.Registry
	proteins protrepo.ProteinRepo
	peptides protrepo.PeptideRepo
	datasets protrepo.DatasetRepo
	builder  *summary.Builder
	kv       *cache.MemoryKV
	cache    *cache.SummaryCache
}

// newTestEnv uses SQLite directly: listing enrichment queries concurrently,
// which a single shared Postgres transaction cannot serve.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.SQLite(t)
	peptides := protrepo.NewPeptideRepo(db, log)
	kv := cache.NewMemoryKV()
	return &testEnv{
		db:       db,
		log:      log,
		registry: species.Default(log),
		proteins: protrepo.NewProteinRepo(db, log),
		peptides: peptides,
		datasets: protrepo.NewDatasetRepo(db, log),
		builder:  summary.NewBuilder(summary.NewRepoStore(peptides), log, coverage.DefaultQValueThreshold),
		kv:       kv,
		cache:    cache.NewSummaryCache(kv, log, cache.DefaultBatchSize),
	}
}

// seedCorpus writes three proteins:
//
//	HVO_0001  len 40, PXD000001+PXD000002, peptides [1,10] Oxidation:3, [5,20]
//	HVO_0002  len 30, PXD000001, peptides [1,15] Acetyl:1, [10,30] above the q cutoff
//	HVO_0003  len 20, no datasets, no peptides
func (e *testEnv) seedCorpus(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	testutil.SeedProtein(t, ctx, e.db, "HVO_0001", "D4GVE5", "Pyruvate kinase",
		"MKRDELAGTVKAAEDLRKGSEVAPTKLLDDAGRKQEWVRE", "PXD000001", "PXD000002")
	testutil.SeedProtein(t, ctx, e.db, "HVO_0002", "D4GSZ1", "Ribosomal protein L2",
		"MSEQKARGTVDLAEKRNPLSGADEWRKLVK", "PXD000001")
	testutil.SeedProtein(t, ctx, e.db, "HVO_0003", "", "Hypothetical protein",
		"MAAAAAAAAAAAAAAAAAAA")
	testutil.SeedPeptide(t, ctx, e.db, "HVO_0001", "PXD000001", "MKRDELAGTV", 1, 10, 0.001, "Oxidation:3")
	testutil.SeedPeptide(t, ctx, e.db, "HVO_0001", "PXD000002", "ELAGTVKAAEDLRKGS", 5, 20, 0.001, "")
	testutil.SeedPeptide(t, ctx, e.db, "HVO_0002", "PXD000001", "MSEQKARGTVDLAEK", 1, 15, 0.001, "Acetyl:1")
	testutil.SeedPeptide(t, ctx, e.db, "HVO_0002", "PXD000001", "VDLAEKRNPLSGADEWRKLVK", 10, 30, 0.02, "")
}

// populate fills the summary cache from the store and marks it seeded.
func (e *testEnv) populate(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	proteins, err := e.proteins.ListAfter(dbctx.Of(ctx), "HVO_", "", 1000)
	if err != nil {
		t.Fatalf("ListAfter: %v", err)
	}
	rows := make([]types.ProteinSummary, 0, len(proteins))
	for _, p := range proteins {
		rows = append(rows, e.builder.Build(ctx, p))
	}
	if err := e.cache.SetMany(ctx, rows); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	if err := e.cache.MarkSeeded(ctx); err != nil {
		t.Fatalf("MarkSeeded: %v", err)
	}
}

func (e *testEnv) listing(withCache bool) ListingService {
	c := e.cache
	if !withCache {
		c = nil
	}
	return NewListingService(e.log, e.registry, e.proteins, e.peptides, e.builder, c, 4)
}

func (e *testEnv) proteinService() ProteinService {
	return NewProteinService(e.log, e.proteins, e.peptides, e.builder, e.cache, coverage.DefaultQValueThreshold)
}
