package services

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arcpp/proteome-backend/internal/data/repos/testutil"
)

func TestNormalizeDatasetIDs(t *testing.T) {
	got := NormalizeDatasetIDs([]string{
		"PXD000001",
		"pxd000002; RPXD000003",
		"PRXD000004,PXD000001",
		"PXD12345",
		"not a dataset",
		"",
	})
	want := []string{"PRXD000004", "PXD000001", "PXD000002", "RPXD000003"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("NormalizeDatasetIDs (-want +got):\n%s", diff)
	}
}

func TestDatasetServiceIDs(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)
	testutil.SeedProtein(t, context.Background(), env.db, "HVO_0010", "", "", "MK", "PXD000003 PXD000004")

	got, err := NewDatasetService(env.log, env.datasets).IDs(context.Background())
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	want := []string{"PXD000001", "PXD000002", "PXD000003", "PXD000004"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("IDs (-want +got):\n%s", diff)
	}
}
