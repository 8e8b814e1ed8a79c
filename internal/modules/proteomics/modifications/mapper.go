package modifications

import (
	"math"
	"sort"

	"github.com/arcpp/proteome-backend/internal/domain/proteomics"
)

const (
	// TrackPeptides etc. are the y coordinates of the plot tracks.
	TrackPeptides      = 4.0
	TrackModifications = 3.0
	TrackGluC          = 2.0
	TrackTrypsin       = 1.0

	pairOffset   = 0.15
	circleRadius = 0.2
)

type TypeColor struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

type Result struct {
	Annotations       []proteomics.ModificationAnnotation
	Points            []proteomics.ModificationPoint
	Legend            []proteomics.ModificationLegendEntry
	MultiModPositions map[int][]TypeColor
}

type placed struct {
	position int
	typ      string
}

// Map converts peptide-relative modification offsets into absolute
// positions for a protein of the given length and lays out coincident
// modifications so that no two markers overlap.
func Map(length int, peptides []*proteomics.Peptide) Result {
	res := Result{
		Annotations:       []proteomics.ModificationAnnotation{},
		Points:            []proteomics.ModificationPoint{},
		MultiModPositions: map[int][]TypeColor{},
	}

	// byPos keeps types per position in first-appearance order.
	byPos := map[int][]string{}
	seen := map[placed]bool{}

	for _, p := range peptides {
		if p == nil {
			continue
		}
		recognized := false
		for _, site := range Parse(p.Modification) {
			color, ok := Color(site.Type)
			if !ok {
				continue
			}
			abs := p.StartIndex + site.RelativePosition - 1
			if abs < 1 || abs > length {
				continue
			}
			pos, rel, c := abs, site.RelativePosition, color
			res.Annotations = append(res.Annotations, proteomics.ModificationAnnotation{
				Position:         &pos,
				Type:             site.Type,
				RelativePosition: &rel,
				PeptideStart:     p.StartIndex,
				PeptideEnd:       p.EndIndex,
				PeptideSequence:  p.Sequence,
				Color:            &c,
			})
			recognized = true

			key := placed{position: abs, typ: site.Type}
			if !seen[key] {
				seen[key] = true
				byPos[abs] = append(byPos[abs], site.Type)
			}
		}
		if !recognized {
			res.Annotations = append(res.Annotations, proteomics.ModificationAnnotation{
				Type:            TypeCovered,
				PeptideStart:    p.StartIndex,
				PeptideEnd:      p.EndIndex,
				PeptideSequence: p.Sequence,
			})
		}
	}

	positions := make([]int, 0, len(byPos))
	for pos := range byPos {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	counts := map[string]int{}
	for _, pos := range positions {
		types := byPos[pos]
		offsets := Offsets(len(types))
		for i, typ := range types {
			color, _ := Color(typ)
			res.Points = append(res.Points, proteomics.ModificationPoint{
				Position: pos,
				Type:     typ,
				Color:    color,
				X:        float64(pos) + offsets[i][0],
				Y:        TrackModifications + offsets[i][1],
				OffsetX:  offsets[i][0],
				OffsetY:  offsets[i][1],
				With:     others(types, typ),
			})
			counts[typ]++
		}
		if len(types) > 1 {
			tc := make([]TypeColor, len(types))
			for i, typ := range types {
				color, _ := Color(typ)
				tc[i] = TypeColor{Type: typ, Color: color}
			}
			res.MultiModPositions[pos] = tc
		}
	}

	for _, tc := range allowList {
		res.Legend = append(res.Legend, proteomics.ModificationLegendEntry{
			Type:    tc.Type,
			Color:   tc.Color,
			Count:   counts[tc.Type],
			Visible: counts[tc.Type] > 0,
		})
	}
	return res
}

// Offsets returns the (dx, dy) marker offsets for n coincident
// modifications. The result is deterministic and pairwise distinct.
func Offsets(n int) [][2]float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return [][2]float64{{0, 0}}
	case n == 2:
		return [][2]float64{{-pairOffset, 0}, {pairOffset, 0}}
	case n == 3:
		return [][2]float64{{0, pairOffset}, {-pairOffset, -0.1}, {pairOffset, -0.1}}
	}
	out := make([][2]float64, n)
	step := 2 * math.Pi / float64(n)
	for i := range out {
		angle := float64(i) * step
		out[i] = [2]float64{circleRadius * math.Cos(angle), circleRadius * math.Sin(angle)}
	}
	return out
}

func others(types []string, self string) []string {
	if len(types) < 2 {
		return nil
	}
	out := make([]string, 0, len(types)-1)
	for _, t := range types {
		if t != self {
			out = append(out, t)
		}
	}
	return out
}
