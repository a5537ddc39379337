package enhance

import (
	"context"
	"testing"

	"github.com/thai-tokenizer/sidecar/internal/query"
	"github.com/thai-tokenizer/sidecar/internal/segment"
)

type stubBackend struct {
	name   string
	tokens []string
}

func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) Segment(_ context.Context, _ string, _ segment.Options) ([]string, error) {
	return s.tokens, nil
}

func TestMergeSpans_S7Scenario(t *testing.T) {
	spans := []Span{
		{Start: 0, End: 5, Kind: SpanExact, Confidence: 1.0},
		{Start: 3, End: 8, Kind: SpanCompound, Confidence: 0.8},
		{Start: 10, End: 15, Kind: SpanExact, Confidence: 1.0},
	}
	merged := MergeSpans(spans)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged spans, got %d: %+v", len(merged), merged)
	}
	if merged[0].Start != 0 || merged[0].End != 8 || merged[0].Kind != SpanExact {
		t.Errorf("first merged span = %+v, want {0,8,Exact,1.0}", merged[0])
	}
	if merged[1].Start != 10 || merged[1].End != 15 {
		t.Errorf("second merged span = %+v, want {10,15,...}", merged[1])
	}
}

func TestMergeSpans_NoOverlapLeavesSpansUntouched(t *testing.T) {
	spans := []Span{
		{Start: 0, End: 3, Kind: SpanExact, Confidence: 1.0},
		{Start: 5, End: 8, Kind: SpanFuzzy, Confidence: 0.6},
	}
	merged := MergeSpans(spans)
	if len(merged) != 2 {
		t.Fatalf("expected 2 spans untouched, got %d", len(merged))
	}
}

func TestMergeSpans_ResultNeverOverlaps(t *testing.T) {
	spans := []Span{
		{Start: 0, End: 10, Kind: SpanFuzzy, Confidence: 0.6},
		{Start: 2, End: 4, Kind: SpanExact, Confidence: 1.0},
		{Start: 6, End: 12, Kind: SpanPartial, Confidence: 0.7},
	}
	merged := MergeSpans(spans)
	for i := 1; i < len(merged); i++ {
		if merged[i].Start < merged[i-1].End {
			t.Errorf("overlap detected between %+v and %+v", merged[i-1], merged[i])
		}
	}
}

func TestExtractMarkupSpans_RecognizesAllForms(t *testing.T) {
	formatted := "this is <em>seaweed</em> and <mark>nori</mark> and [HIGHLIGHT]wakame[/HIGHLIGHT]"
	spans := ExtractMarkupSpans(formatted)
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d: %+v", len(spans), spans)
	}
}

func TestFindAllOccurrences_MultipleMatches(t *testing.T) {
	spans := findAllOccurrences("abcabc", "abc", SpanCompound, 1.0, "abc")
	if len(spans) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(spans))
	}
}

func TestEnhanceAll_FailSafeReturnsOriginalOnNoFields(t *testing.T) {
	e := NewEnhancer(nil)
	hits := []Hit{{Fields: nil, Score: 2.0}}
	out := e.EnhanceAll(context.Background(), hits, nil, false)
	if len(out) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(out))
	}
	if out[0].EnhancedScore == 0 {
		t.Error("expected a non-zero enhanced score even with no fields")
	}
}

func TestEnhanceAll_ScoreCapInvariant(t *testing.T) {
	primary := &stubBackend{name: segment.EngineNewmm, tokens: []string{"สาหร่าย"}}
	seg := segment.New(primary, nil, nil)
	e := NewEnhancer(seg)

	hits := []Hit{{
		Fields:        map[string]string{"title": "สาหร่ายวากาเมะ", "content": "สาหร่ายวากาเมะ"},
		FormattedView: map[string]string{"title": "<em>สาหร่าย</em>วากาเมะ"},
		Score:         1.0,
	}}
	tokens := []query.Token{
		{Original: "สาหร่าย", Kind: query.KindCompound, CompoundParts: []string{"สาหร่าย", "วากาเมะ"}},
	}
	out := e.EnhanceAll(context.Background(), hits, tokens, false)
	if out[0].EnhancedScore > 4.0*1.0 {
		t.Errorf("enhanced score %v exceeds 4.0x engine score cap", out[0].EnhancedScore)
	}
}

func TestEnhanceAll_SortsByEnhancedScoreDescendingWhenEnabled(t *testing.T) {
	e := NewEnhancer(nil)
	hits := []Hit{
		{Fields: map[string]string{"title": "a"}, Score: 1.0},
		{Fields: map[string]string{"title": "b"}, Score: 3.0},
	}
	out := e.EnhanceAll(context.Background(), hits, nil, true)
	if out[0].EnhancedScore < out[1].EnhancedScore {
		t.Error("expected descending enhanced score order")
	}
}

func TestFuzzyRatio_SubstringMatch(t *testing.T) {
	ratio, ok := fuzzyRatio("สาหร่าย", "สาหร่ายวากาเมะ")
	if !ok {
		t.Fatal("expected substring match to be detected")
	}
	if ratio <= 0 || ratio > 1 {
		t.Errorf("ratio out of range: %v", ratio)
	}
}

func TestFuzzyRatio_NoRelationReturnsFalse(t *testing.T) {
	_, ok := fuzzyRatio("abc", "xyz")
	if ok {
		t.Error("expected no match for unrelated strings")
	}
}
