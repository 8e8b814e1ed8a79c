package populate

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arcpp/proteome-backend/internal/cache"
	protrepo "github.com/arcpp/proteome-backend/internal/data/repos/proteomics"
	"github.com/arcpp/proteome-backend/internal/data/repos/testutil"
	types "github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/species"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/summary"
)

type harness struct {
	kv    *cache.MemoryKV
	cache *cache.SummaryCache
	pop   *Populator
	sp    species.Species
}

func newHarness(t *testing.T, pageSize int) *harness {
	t.Helper()
	ctx := context.Background()
	log := testutil.Logger(t)
	db := testutil.SQLite(t)

	testutil.SeedProtein(t, ctx, db, "HVO_0001", "D4GVE5", "Pyruvate kinase", "MKRDELAGTVKAAEDLRKGS", "PXD000001", "PXD000002")
	testutil.SeedProtein(t, ctx, db, "HVO_0002", "", "Ribosomal protein", "MSEQKARGTV", "PXD000001")
	testutil.SeedProtein(t, ctx, db, "HVO_0003", "", "Hypothetical protein", "MAAAAAAAAA")
	testutil.SeedPeptide(t, ctx, db, "HVO_0001", "PXD000001", "MKRDELAGTV", 1, 10, 0.001, "Oxidation:3")
	testutil.SeedPeptide(t, ctx, db, "HVO_0001", "PXD000002", "KAAEDLRKGS", 11, 20, 0.001, "")
	testutil.SeedPeptide(t, ctx, db, "HVO_0001", "PXD000002", "KAAEDLR", 11, 17, 0.001, "")
	testutil.SeedPeptide(t, ctx, db, "HVO_0002", "PXD000001", "MSEQK", 1, 5, 0.001, "Acetyl:1")

	kv := cache.NewMemoryKV()
	sc := cache.NewSummaryCache(kv, log, cache.DefaultBatchSize)
	proteins := protrepo.NewProteinRepo(db, log)
	builder := summary.NewBuilder(summary.NewRepoStore(protrepo.NewPeptideRepo(db, log)), log, 0)
	sp, ok := species.Default(log).Lookup("haloferax_volcanii")
	if !ok {
		t.Fatalf("default registry lacks haloferax_volcanii")
	}
	return &harness{kv: kv, cache: sc, pop: New(log, proteins, builder, sc, pageSize, 2), sp: sp}
}

func TestRunWritesEveryPageThenSentinel(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()

	var progress []int
	res, err := h.pop.Run(ctx, h.sp, func(done int) { progress = append(progress, done) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Proteins != 3 || res.PSMEntries != 2 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if diff := cmp.Diff([]int{2, 3}, progress); diff != "" {
		t.Fatalf("progress (-want +got):\n%s", diff)
	}

	st := h.cache.Stats(ctx)
	if !st.Seeded || st.TotalSummaries != 3 || st.TotalProteinsCached != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}

	got, err := h.cache.Get(ctx, "HVO_0001")
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	want := types.ProteinSummary{
		HvoID:           "HVO_0001",
		UniProtID:       "D4GVE5",
		Description:     "Pyruvate kinase",
		PSMCount:        3,
		CoveragePercent: 100,
		Datasets:        []string{"PXD000001", "PXD000002"},
		Modifications:   []string{"Oxidation"},
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}

	psms, ok, err := h.cache.PSMsByDataset(ctx, "HVO_0001")
	if err != nil || !ok {
		t.Fatalf("PSMsByDataset: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff([]types.DatasetPSMCount{{Dataset: "PXD000002", PSMCount: 2}, {Dataset: "PXD000001", PSMCount: 1}}, psms); diff != "" {
		t.Fatalf("psms (-want +got):\n%s", diff)
	}
}

func TestRunLeavesSentinelUnsetWhenCacheDown(t *testing.T) {
	h := newHarness(t, 50)
	h.kv.SetDown(true)
	if _, err := h.pop.Run(context.Background(), h.sp, nil); err == nil {
		t.Fatalf("expected error with cache down")
	}
	h.kv.SetDown(false)
	seeded, err := h.cache.Seeded(context.Background())
	if err != nil || seeded {
		t.Fatalf("seeded=%v err=%v", seeded, err)
	}
}

func TestRunWithoutProteinsLeavesSentinelUnset(t *testing.T) {
	h := newHarness(t, 50)
	res, err := h.pop.Run(context.Background(), species.Species{ID: "empty", Prefix: "NOPE_"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Proteins != 0 {
		t.Fatalf("unexpected %+v", res)
	}
	if seeded, _ := h.cache.Seeded(context.Background()); seeded {
		t.Fatalf("sentinel written without any protein")
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	h := newHarness(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.pop.Run(ctx, h.sp, nil); err == nil {
		t.Fatalf("expected context error")
	}
}
