package enhance

import "sort"

var confidenceRank = map[SpanKind]int{
	SpanFuzzy:    0,
	SpanPartial:  1,
	SpanCompound: 2,
	SpanExact:    3,
}

// MergeSpans sorts spans by start and collapses any that overlap the
// running span into their union, keeping the kind/confidence of
// whichever input had higher confidence (ties prefer the earlier span,
// i.e. the one already accumulated). After merging, no two returned
// spans overlap (spec.md §8 invariant 7).
func MergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}

	sorted := append([]Span{}, spans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Start < last.End {
			if s.End > last.End {
				last.End = s.End
			}
			if higherConfidence(s, *last) {
				last.Kind = s.Kind
				last.Confidence = s.Confidence
				last.Surface = s.Surface
				last.MatchedQuery = s.MatchedQuery
			}
			continue
		}
		merged = append(merged, s)
	}

	return merged
}

// higherConfidence reports whether candidate strictly outranks current,
// first by SpanKind's confidence tier and then by numeric confidence.
func higherConfidence(candidate, current Span) bool {
	if confidenceRank[candidate.Kind] != confidenceRank[current.Kind] {
		return confidenceRank[candidate.Kind] > confidenceRank[current.Kind]
	}
	return candidate.Confidence > current.Confidence
}
