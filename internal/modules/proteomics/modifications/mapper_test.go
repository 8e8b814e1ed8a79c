package modifications

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arcpp/proteome-backend/internal/domain/proteomics"
)

func pep(start, end int, seq, mod string) *proteomics.Peptide {
	return &proteomics.Peptide{StartIndex: start, EndIndex: end, Sequence: seq, Modification: mod}
}

func TestParseSkipsMalformedSegments(t *testing.T) {
	t.Parallel()
	got := Parse(" Oxidation:5 ; bogus; Acetyl:x;Acetyl:1;:3 ")
	want := []Site{{"Oxidation", 5}, {"Acetyl", 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestTypesIgnoresPlaceholders(t *testing.T) {
	t.Parallel()
	if got := Types("N/A"); len(got) != 0 {
		t.Fatalf("expected no types for N/A, got %v", got)
	}
	got := DistinctTypes([]string{"Oxidation:5;Acetyl:1", "Unmodified", "Acetyl", "Phospho:3"})
	want := []string{"Acetyl", "Oxidation", "Phospho"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("DistinctTypes mismatch (-want +got):\n%s", diff)
	}
	if !TypeMatches("Oxidation:5;Acetyl:1", "acet") {
		t.Fatalf("expected acet to match")
	}
	if TypeMatches("Oxidation:5", "5") {
		t.Fatalf("positions must not match search terms")
	}
}

func TestMapCoincidentModifications(t *testing.T) {
	t.Parallel()
	res := Map(100, []*proteomics.Peptide{pep(10, 30, "AAAAAAAAAAAAAAAAAAAAA", "Oxidation:5;Acetyl:5")})

	if len(res.Annotations) != 2 {
		t.Fatalf("expected 2 annotations, got %d", len(res.Annotations))
	}
	for _, a := range res.Annotations {
		if a.Position == nil || *a.Position != 14 {
			t.Fatalf("expected position 14, got %v", a.Position)
		}
		if a.RelativePosition == nil || *a.RelativePosition != 5 {
			t.Fatalf("expected relative position 5, got %v", a.RelativePosition)
		}
	}
	if len(res.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(res.Points))
	}
	a, b := res.Points[0], res.Points[1]
	if a.OffsetX == 0 && a.OffsetY == 0 || b.OffsetX == 0 && b.OffsetY == 0 {
		t.Fatalf("expected non-zero offsets, got %+v %+v", a, b)
	}
	if a.OffsetX == b.OffsetX && a.OffsetY == b.OffsetY {
		t.Fatalf("expected distinct offsets, got %+v %+v", a, b)
	}
	if a.Type != "Oxidation" || b.Type != "Acetyl" {
		t.Fatalf("expected first-appearance order, got %s,%s", a.Type, b.Type)
	}
	if diff := cmp.Diff([]string{"Acetyl"}, a.With); diff != "" {
		t.Fatalf("With mismatch (-want +got):\n%s", diff)
	}
	if got := res.MultiModPositions[14]; len(got) != 2 {
		t.Fatalf("expected multi-mod entry at 14, got %v", got)
	}
}

func TestMapDropsUnknownTypesAndOutOfRange(t *testing.T) {
	t.Parallel()
	res := Map(20, []*proteomics.Peptide{
		pep(1, 10, "MKKKKKKKKK", "Phospho:3"),
		pep(15, 25, "AAAAAAAAAAA", "Oxidation:9"),
		pep(2, 6, "KKKKK", ""),
	})
	if len(res.Points) != 0 {
		t.Fatalf("expected no points, got %+v", res.Points)
	}
	if len(res.Annotations) != 3 {
		t.Fatalf("expected one covered entry per peptide, got %+v", res.Annotations)
	}
	for _, a := range res.Annotations {
		if a.Type != TypeCovered || a.Position != nil || a.Color != nil {
			t.Fatalf("expected covered entry, got %+v", a)
		}
	}
	for _, l := range res.Legend {
		if l.Visible || l.Count != 0 {
			t.Fatalf("expected hidden legend entry, got %+v", l)
		}
	}
	if len(res.Legend) != len(AllowedTypes()) {
		t.Fatalf("legend must list every allowed type")
	}
}

func TestMapCollapsesOverlappingPeptides(t *testing.T) {
	t.Parallel()
	res := Map(100, []*proteomics.Peptide{
		pep(10, 20, "AAAAAAAAAAA", "Acetyl:1"),
		pep(10, 25, "AAAAAAAAAAAAAAAA", "Acetyl:1"),
	})
	if len(res.Points) != 1 {
		t.Fatalf("expected collapsed point, got %+v", res.Points)
	}
	if res.Points[0].OffsetX != 0 || res.Points[0].OffsetY != 0 || res.Points[0].Y != TrackModifications {
		t.Fatalf("single point must sit on the track, got %+v", res.Points[0])
	}
	if len(res.Annotations) != 2 {
		t.Fatalf("annotations keep one entry per peptide, got %d", len(res.Annotations))
	}
}

func TestMapDeterministic(t *testing.T) {
	t.Parallel()
	peps := []*proteomics.Peptide{
		pep(5, 40, "X", "Acetyl:3;Oxidation:3;SO3Hex(1)Hex(2)dHex(1):3;Hex(1)HexA(2)MeHexA(1):3"),
		pep(1, 10, "Y", "Oxidation:2"),
		pep(30, 50, "Z", "Hex(1)HexA(2)MeHexA(1)Hex(1):1;Acetyl:7"),
	}
	first := Map(60, peps)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, Map(60, peps)); diff != "" {
			t.Fatalf("Map not deterministic (-first +got):\n%s", diff)
		}
	}
	for i := 1; i < len(first.Points); i++ {
		if first.Points[i-1].Position > first.Points[i].Position {
			t.Fatalf("points not ordered by position")
		}
	}
}

func TestOffsetsPairwiseDistinct(t *testing.T) {
	t.Parallel()
	for n := 1; n <= 12; n++ {
		offs := Offsets(n)
		if len(offs) != n {
			t.Fatalf("n=%d: got %d offsets", n, len(offs))
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := offs[i][0] - offs[j][0]
				dy := offs[i][1] - offs[j][1]
				if math.Hypot(dx, dy) < 1e-9 {
					t.Fatalf("n=%d: offsets %d and %d coincide", n, i, j)
				}
			}
		}
	}
	if diff := cmp.Diff([][2]float64{{-0.15, 0}, {0.15, 0}}, Offsets(2)); diff != "" {
		t.Fatalf("pair offsets mismatch (-want +got):\n%s", diff)
	}
}

func TestCleavageSites(t *testing.T) {
	t.Parallel()
	tryp, gluc := CleavageSites("MKDERA")
	if diff := cmp.Diff([]int{2, 5}, tryp); diff != "" {
		t.Fatalf("trypsin mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3, 4}, gluc); diff != "" {
		t.Fatalf("gluc mismatch (-want +got):\n%s", diff)
	}
}
