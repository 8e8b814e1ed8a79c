package coverage

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arcpp/proteome-backend/internal/domain/proteomics"
)

func TestCoveredScenarios(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		length    int
		intervals []Interval
		want      int
	}{
		{"empty", 100, nil, 0},
		{"overlapping", 100, []Interval{{1, 10}, {5, 20}}, 20},
		{"past sequence end", 100, []Interval{{90, 150}}, 11},
		{"overlap plus clipped tail", 100, []Interval{{1, 10}, {5, 20}, {90, 150}}, 31},
		{"adjacent merge", 50, []Interval{{1, 5}, {6, 10}}, 10},
		{"contained", 50, []Interval{{1, 30}, {10, 12}, {2, 3}}, 30},
		{"duplicate", 50, []Interval{{4, 8}, {4, 8}, {4, 8}}, 5},
		{"fully outside", 10, []Interval{{20, 30}}, 0},
		{"starts before one", 10, []Interval{{-3, 2}}, 2},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Covered(tc.length, tc.intervals, nil); got != tc.want {
				t.Fatalf("Covered: got=%d want=%d", got, tc.want)
			}
		})
	}
}

func TestCoveredSwapsInvertedIntervals(t *testing.T) {
	var seen []Interval
	got := Covered(100, []Interval{{20, 11}, {1, 5}}, func(iv Interval) { seen = append(seen, iv) })
	if got != 15 {
		t.Fatalf("Covered: got=%d want=15", got)
	}
	if diff := cmp.Diff([]Interval{{20, 11}}, seen); diff != "" {
		t.Fatalf("inverted callback mismatch (-want +got):\n%s", diff)
	}
}

func TestCoveredDoesNotMutateInput(t *testing.T) {
	in := []Interval{{30, 40}, {1, 5}, {9, 2}}
	orig := append([]Interval(nil), in...)
	_ = Covered(100, in, nil)
	if diff := cmp.Diff(orig, in); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestCoveredNonOverlappingEqualsSumOfLengths(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		var intervals []Interval
		sum := 0
		pos := 1
		for pos < 900 {
			start := pos + rng.Intn(5)
			end := start + rng.Intn(20)
			if end > 1000 {
				break
			}
			intervals = append(intervals, Interval{start, end})
			sum += end - start + 1
			pos = end + 1 + rng.Intn(3)
		}
		rng.Shuffle(len(intervals), func(i, j int) { intervals[i], intervals[j] = intervals[j], intervals[i] })
		if got := Covered(1000, intervals, nil); got != sum {
			t.Fatalf("trial %d: got=%d want=%d", trial, got, sum)
		}
	}
}

func TestCoveredIdempotentUnderDuplication(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(15)
		intervals := make([]Interval, n)
		for i := range intervals {
			s := 1 + rng.Intn(180)
			intervals[i] = Interval{s, s + rng.Intn(40)}
		}
		base := Covered(200, intervals, nil)
		doubled := append(append([]Interval(nil), intervals...), intervals...)
		if got := Covered(200, doubled, nil); got != base {
			t.Fatalf("trial %d: duplicated=%d base=%d", trial, got, base)
		}
		if base < 0 || base > 200 {
			t.Fatalf("trial %d: covered %d outside [0,200]", trial, base)
		}
	}
}

func TestComputeRejectsEmptySequence(t *testing.T) {
	_, err := Compute("HVO_0001", 0, []Interval{{1, 3}}, nil)
	if !errors.Is(err, ErrEmptySequence) {
		t.Fatalf("expected ErrEmptySequence, got %v", err)
	}
}

func TestComputePercent(t *testing.T) {
	got, err := Compute("HVO_0001", 200, []Interval{{1, 50}}, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := proteomics.CoverageResult{ProteinID: "HVO_0001", TotalLength: 200, CoveredLength: 50, CoveragePercent: 25}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Compute mismatch (-want +got):\n%s", diff)
	}
}

func TestFromPeptidesFiltersByQValue(t *testing.T) {
	peps := []*proteomics.Peptide{
		{StartIndex: 1, EndIndex: 5, QValue: 0.001},
		{StartIndex: 10, EndIndex: 12, QValue: 0.005},
		{StartIndex: 20, EndIndex: 30, QValue: 0.02},
		nil,
	}
	got := FromPeptides(peps, DefaultQValueThreshold)
	if diff := cmp.Diff([]Interval{{1, 5}, {10, 12}}, got); diff != "" {
		t.Fatalf("FromPeptides mismatch (-want +got):\n%s", diff)
	}
}
