package coverage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/arcpp/proteome-backend/internal/domain/proteomics"
)

// DefaultQValueThreshold is the inclusion cutoff for peptides counted
// towards coverage.
const DefaultQValueThreshold = 0.005

// ErrEmptySequence is returned when the protein has no sequence to cover.
var ErrEmptySequence = errors.New("protein sequence is empty")

// Interval is a 1-based inclusive residue range.
type Interval struct {
	Start int
	End   int
}

func (iv Interval) Len() int { return iv.End - iv.Start + 1 }

// Covered returns the number of distinct residues covered by intervals.
// Each interval is clipped to [1, length] before merging, so coordinates
// past the sequence end never count. Inverted intervals are swapped and
// reported through onInverted when it is non-nil. The input slice is not
// modified.
func Covered(length int, intervals []Interval, onInverted func(Interval)) int {
	if len(intervals) == 0 || length <= 0 {
		return 0
	}
	sorted := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End < iv.Start {
			if onInverted != nil {
				onInverted(iv)
			}
			iv.Start, iv.End = iv.End, iv.Start
		}
		if clipped, ok := Clip(length, iv); ok {
			sorted = append(sorted, clipped)
		}
	}
	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	total := 0
	cur := sorted[0]
	for _, iv := range sorted[1:] {
		if iv.Start <= cur.End+1 {
			if iv.End > cur.End {
				cur.End = iv.End
			}
			continue
		}
		total += cur.Len()
		cur = iv
	}
	total += cur.Len()

	if total > length {
		total = length
	}
	return total
}

// Compute builds the CoverageResult for one protein.
func Compute(proteinID string, length int, intervals []Interval, onInverted func(Interval)) (proteomics.CoverageResult, error) {
	if length <= 0 {
		return proteomics.CoverageResult{}, fmt.Errorf("coverage %s: %w", proteinID, ErrEmptySequence)
	}
	covered := Covered(length, intervals, onInverted)
	return proteomics.CoverageResult{
		ProteinID:       proteinID,
		TotalLength:     length,
		CoveredLength:   covered,
		CoveragePercent: float64(covered) / float64(length) * 100,
	}, nil
}

// FromPeptides collects the ranges of peptides at or below maxQ.
func FromPeptides(peptides []*proteomics.Peptide, maxQ float64) []Interval {
	out := make([]Interval, 0, len(peptides))
	for _, p := range peptides {
		if p == nil || p.QValue > maxQ {
			continue
		}
		out = append(out, Interval{Start: p.StartIndex, End: p.EndIndex})
	}
	return out
}

// Clip restricts iv to [1, length]. ok is false when nothing remains.
func Clip(length int, iv Interval) (Interval, bool) {
	if iv.End < iv.Start {
		iv.Start, iv.End = iv.End, iv.Start
	}
	if iv.Start < 1 {
		iv.Start = 1
	}
	if iv.End > length {
		iv.End = length
	}
	return iv, iv.Start <= iv.End
}
