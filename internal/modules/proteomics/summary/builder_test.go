package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arcpp/proteome-backend/internal/domain/proteomics"
	"github.com/arcpp/proteome-backend/internal/platform/logger"
)

type fakeStore struct {
	count    int
	countErr error
	peps     []*proteomics.Peptide
	pepsErr  error
	mods     []string
	modsErr  error
}

func (f *fakeStore) CountDistinctSequences(context.Context, string) (int, error) {
	return f.count, f.countErr
}

func (f *fakeStore) FindPeptidesByProtein(context.Context, string) ([]*proteomics.Peptide, error) {
	return f.peps, f.pepsErr
}

func (f *fakeStore) ListModificationStrings(context.Context, string) ([]string, error) {
	return f.mods, f.modsErr
}

func strp(s string) *string { return &s }

func protein() *proteomics.Protein {
	return &proteomics.Protein{
		ID:          "HVO_0001",
		UniProtID:   "D4GYZ4",
		Description: "cell division protein",
		Sequence:    string(make([]byte, 30)),
		DatasetIDs:  []string{"PXD000001", " ", "PXD000002"},
	}
}

func TestBuildComposesFields(t *testing.T) {
	t.Parallel()
	store := &fakeStore{
		count: 3,
		peps: []*proteomics.Peptide{
			{StartIndex: 1, EndIndex: 10, QValue: 0.001},
			{StartIndex: 21, EndIndex: 30, QValue: 0.9},
		},
		mods: []string{"Oxidation:3;Acetyl:1", "N/A", "Acetyl:2"},
	}
	b := NewBuilder(store, logger.Nop(), 0)
	got := b.Build(context.Background(), protein())
	want := proteomics.ProteinSummary{
		HvoID:           "HVO_0001",
		UniProtID:       "D4GYZ4",
		Description:     "cell division protein",
		PSMCount:        3,
		CoveragePercent: 33.3,
		Datasets:        []string{"PXD000001", "PXD000002"},
		Modifications:   []string{"Acetyl", "Oxidation"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDefaultsFailedFields(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	b := NewBuilder(&fakeStore{countErr: boom, pepsErr: boom, modsErr: boom}, logger.Nop(), 0)
	got := b.Build(context.Background(), protein())
	if got.PSMCount != 0 || got.CoveragePercent != 0 {
		t.Fatalf("expected zero defaults, got %+v", got)
	}
	if got.Modifications == nil || len(got.Modifications) != 0 {
		t.Fatalf("expected empty modification list, got %#v", got.Modifications)
	}
	if got.HvoID != "HVO_0001" {
		t.Fatalf("summary must still be emitted, got %+v", got)
	}
}

func TestBuildEmptySequenceDefaultsCoverage(t *testing.T) {
	t.Parallel()
	p := protein()
	p.Sequence = ""
	b := NewBuilder(&fakeStore{count: 1, peps: []*proteomics.Peptide{{StartIndex: 1, EndIndex: 2}}}, logger.Nop(), 0)
	if got := b.Build(context.Background(), p); got.CoveragePercent != 0 || got.PSMCount != 1 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestDatasetCountsSorted(t *testing.T) {
	t.Parallel()
	store := &fakeStore{peps: []*proteomics.Peptide{
		{DatasetID: strp("PXD000002")},
		{DatasetID: strp("PXD000001")},
		{DatasetID: strp("PXD000002")},
		{DatasetID: strp("PXD000003")},
		{DatasetID: nil},
		{DatasetID: strp("")},
	}}
	got, err := NewBuilder(store, logger.Nop(), 0).DatasetCounts(context.Background(), "HVO_0001")
	if err != nil {
		t.Fatalf("DatasetCounts: %v", err)
	}
	want := []proteomics.DatasetPSMCount{
		{Dataset: "PXD000002", PSMCount: 2},
		{Dataset: "PXD000001", PSMCount: 1},
		{Dataset: "PXD000003", PSMCount: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("DatasetCounts mismatch (-want +got):\n%s", diff)
	}
}
