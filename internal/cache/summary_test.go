package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

func seedSummaries(t *testing.T, c *SummaryCache, rows ...proteomics.ProteinSummary) {
	t.Helper()
	if err := c.SetMany(context.Background(), rows); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
}

func sampleRows() []proteomics.ProteinSummary {
	return []proteomics.ProteinSummary{
		{HvoID: "HVO_0003", UniProtID: "D4GU70", Description: "ferredoxin", Datasets: []string{"PXD000002"}, Modifications: []string{}},
		{HvoID: "HVO_0001", UniProtID: "D4GYZ4", Description: "Cell division protein FtsZ", Datasets: []string{"PXD000001"}, Modifications: []string{"Acetyl"}},
		{HvoID: "HVO_0002", UniProtID: "", Description: "hypothetical", Datasets: []string{"PXD000001", "PXD000002"}, Modifications: []string{}},
		{HvoID: "OTH_0001", Description: "other species"},
	}
}

func TestPageOrdersByIDWithinPrefix(t *testing.T) {
	t.Parallel()
	c := NewSummaryCache(NewMemoryKV(), logger.Nop(), 2)
	seedSummaries(t, c, sampleRows()...)

	total, rows, err := c.Page(context.Background(), "HVO_", 1, 5)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if total != 3 {
		t.Fatalf("total=%d want 3", total)
	}
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.HvoID)
	}
	if diff := cmp.Diff([]string{"HVO_0002", "HVO_0003"}, ids); diff != "" {
		t.Fatalf("page ids mismatch (-want +got):\n%s", diff)
	}

	total, rows, err = c.Page(context.Background(), "HVO_", 10, 5)
	if err != nil || total != 3 || len(rows) != 0 {
		t.Fatalf("past-end page: total=%d rows=%d err=%v", total, len(rows), err)
	}
}

func TestSearchAllMatchesFields(t *testing.T) {
	t.Parallel()
	c := NewSummaryCache(NewMemoryKV(), logger.Nop(), 500)
	seedSummaries(t, c, sampleRows()...)

	cases := map[string][]string{
		"ftsz":      {"HVO_0001"},
		"d4gu":      {"HVO_0003"},
		"pxd000002": {"HVO_0002", "HVO_0003"},
		"hvo_000":   {"HVO_0001", "HVO_0002", "HVO_0003"},
		"acetyl":    {"HVO_0001"},
		"species":   nil,
	}
	for q, want := range cases {
		got, err := c.SearchAll(context.Background(), q, "HVO_")
		if err != nil {
			t.Fatalf("SearchAll(%q): %v", q, err)
		}
		var ids []string
		for _, r := range got {
			ids = append(ids, r.HvoID)
		}
		if diff := cmp.Diff(want, ids); diff != "" {
			t.Fatalf("SearchAll(%q) mismatch (-want +got):\n%s", q, diff)
		}
	}
}

func TestSearchAllSkipsUndecodable(t *testing.T) {
	t.Parallel()
	kv := NewMemoryKV()
	c := NewSummaryCache(kv, logger.Nop(), 500)
	seedSummaries(t, c, sampleRows()[:2]...)
	if err := kv.Set(context.Background(), SummaryKey("HVO_9999"), "{not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.SearchAll(context.Background(), "", "HVO_")
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 decodable rows, got %d", len(got))
	}
}

func TestUnavailableStoreSurfacesError(t *testing.T) {
	t.Parallel()
	kv := NewMemoryKV()
	kv.SetDown(true)
	c := NewSummaryCache(kv, logger.Nop(), 500)
	if _, _, err := c.Page(context.Background(), "HVO_", 0, 10); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if st := c.Stats(context.Background()); st.RedisConnected {
		t.Fatalf("expected disconnected stats, got %+v", st)
	}
}

func TestSentinelAndPSMs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewSummaryCache(NewMemoryKV(), logger.Nop(), 500)
	if ok, err := c.Seeded(ctx); err != nil || ok {
		t.Fatalf("fresh cache seeded=%v err=%v", ok, err)
	}
	if err := c.MarkSeeded(ctx); err != nil {
		t.Fatalf("MarkSeeded: %v", err)
	}
	if ok, _ := c.Seeded(ctx); !ok {
		t.Fatalf("expected seeded")
	}

	counts := []proteomics.DatasetPSMCount{{Dataset: "PXD000001", PSMCount: 4}}
	if err := c.SetPSMsByDataset(ctx, "HVO_0001", counts); err != nil {
		t.Fatalf("SetPSMsByDataset: %v", err)
	}
	got, ok, err := c.PSMsByDataset(ctx, "HVO_0001")
	if err != nil || !ok {
		t.Fatalf("PSMsByDataset ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(counts, got); diff != "" {
		t.Fatalf("PSMsByDataset mismatch (-want +got):\n%s", diff)
	}
	if _, ok, _ := c.PSMsByDataset(ctx, "HVO_0002"); ok {
		t.Fatalf("expected miss")
	}

	st := c.Stats(ctx)
	if !st.RedisConnected || !st.Seeded || st.TotalProteinsCached != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}
