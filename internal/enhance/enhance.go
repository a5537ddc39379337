// Package enhance post-processes search-engine hits: extracts and
// merges highlight spans, re-scores by Thai-aware boosts, and attaches
// a tokenized view of each field for UI display.
package enhance

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/thai-tokenizer/sidecar/internal/classify"
	"github.com/thai-tokenizer/sidecar/internal/query"
	"github.com/thai-tokenizer/sidecar/internal/segment"
)

// SpanKind is the provenance/confidence tier of a HighlightSpan.
type SpanKind string

const (
	SpanExact    SpanKind = "Exact"
	SpanPartial  SpanKind = "Partial"
	SpanCompound SpanKind = "Compound"
	SpanFuzzy    SpanKind = "Fuzzy"
)

// Span is a half-open highlight range over code-point positions of a
// field's plain text.
type Span struct {
	Start        int      `json:"start"`
	End          int      `json:"end"`
	Surface      string   `json:"surface"`
	Kind         SpanKind `json:"kind"`
	Confidence   float64  `json:"confidence"`
	MatchedQuery string   `json:"matched_query,omitempty"`
}

// Hit is a single search-engine result row going through enhancement.
type Hit struct {
	Fields        map[string]string `json:"fields"`
	FormattedView map[string]string `json:"formatted_view,omitempty"`
	Score         float64           `json:"score"`
}

// EnhancedHit is a Hit augmented with merged spans, a re-scored value,
// and a per-field tokenized view.
type EnhancedHit struct {
	Hit
	Spans         map[string][]Span `json:"spans"`
	EnhancedScore float64           `json:"enhanced_score"`
	TokenizedView map[string]string `json:"tokenized_view"`
}

var (
	markupTag       = regexp.MustCompile(`(?i)<(em|strong|mark)>(.*?)</(?:em|strong|mark)>`)
	customHighlight = regexp.MustCompile(`\[HIGHLIGHT\](.*?)\[/HIGHLIGHT\]`)
)

const (
	fuzzyMinRatio     = 0.6
	compoundBoostCap  = 2.0
	thaiExactBoostCap = 1.8
	fieldImportance   = 1.4
	totalBoostCap     = 4.0
)

// Enhancer runs the per-hit enhancement pipeline of spec.md §4.8.
type Enhancer struct {
	segmenter *segment.Segmenter
}

// NewEnhancer binds an Enhancer to the segmenter used for fuzzy matching
// and tokenized-view construction.
func NewEnhancer(segmenter *segment.Segmenter) *Enhancer {
	return &Enhancer{segmenter: segmenter}
}

// EnhanceAll enhances every hit, sorting by enhanced score descending
// when relevanceBoost is enabled; otherwise the engine's order is
// preserved.
func (e *Enhancer) EnhanceAll(ctx context.Context, hits []Hit, tokens []query.Token, relevanceBoost bool) []EnhancedHit {
	out := make([]EnhancedHit, len(hits))
	for i, h := range hits {
		out[i] = e.enhanceOne(ctx, h, tokens)
	}
	if relevanceBoost {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].EnhancedScore > out[j].EnhancedScore
		})
	}
	return out
}

// enhanceOne runs the per-hit pipeline; any internal failure returns the
// original hit unmodified with an empty span list, per spec.md §4.8's
// fail-safe contract.
func (e *Enhancer) enhanceOne(ctx context.Context, hit Hit, tokens []query.Token) (result EnhancedHit) {
	result = EnhancedHit{Hit: hit, Spans: map[string][]Span{}, EnhancedScore: scoreOrDefault(hit.Score), TokenizedView: map[string]string{}}

	defer func() {
		if r := recover(); r != nil {
			result = EnhancedHit{Hit: hit, Spans: map[string][]Span{}, EnhancedScore: scoreOrDefault(hit.Score), TokenizedView: map[string]string{}}
		}
	}()

	for field, text := range hit.Fields {
		var spans []Span

		if formatted, ok := hit.FormattedView[field]; ok {
			spans = append(spans, ExtractMarkupSpans(formatted)...)
		}

		for _, tok := range tokens {
			if tok.Kind == query.KindCompound {
				spans = append(spans, matchCompoundSpans(text, tok)...)
			}
			if tok.IsPartial || tok.Kind == query.KindPartial {
				spans = append(spans, e.fuzzySpans(ctx, text, tok)...)
			}
		}

		result.Spans[field] = MergeSpans(spans)
		result.TokenizedView[field] = e.tokenizedView(ctx, text)
	}

	result.EnhancedScore = rescore(scoreOrDefault(hit.Score), hit, result.Spans, tokens)
	return result
}

func scoreOrDefault(score float64) float64 {
	if score == 0 {
		return 1.0
	}
	return score
}

// ExtractMarkupSpans recognizes <em>/<strong>/<mark> and
// [HIGHLIGHT]...[/HIGHLIGHT] markup in a formatted field view and
// returns the corresponding spans over the plain-text (markup-stripped)
// positions.
func ExtractMarkupSpans(formatted string) []Span {
	var spans []Span

	plain, ranges := stripMarkupTracking(formatted, markupTag, 2)
	spans = append(spans, buildSpansFromRanges(plain, ranges)...)

	plain2, ranges2 := stripMarkupTracking(formatted, customHighlight, 1)
	spans = append(spans, buildSpansFromRanges(plain2, ranges2)...)

	return spans
}

type codePointRange struct {
	start, end int
}

// stripMarkupTracking removes all matches of re from formatted and
// records the code-point range of each match's captured inner text
// (capture group matchGroup) in the resulting plain string.
func stripMarkupTracking(formatted string, re *regexp.Regexp, matchGroup int) (string, []codePointRange) {
	var sb strings.Builder
	var ranges []codePointRange
	pos := 0
	cpPos := 0

	matches := re.FindAllSubmatchIndex([]byte(formatted), -1)
	for _, m := range matches {
		sb.WriteString(formatted[pos:m[0]])
		cpPos += utf8.RuneCountInString(formatted[pos:m[0]])

		innerStart := m[2*matchGroup]
		innerEnd := m[2*matchGroup+1]
		inner := formatted[innerStart:innerEnd]

		start := cpPos
		sb.WriteString(inner)
		cpPos += utf8.RuneCountInString(inner)
		ranges = append(ranges, codePointRange{start: start, end: cpPos})

		pos = m[1]
	}
	sb.WriteString(formatted[pos:])

	return sb.String(), ranges
}

func buildSpansFromRanges(plain string, ranges []codePointRange) []Span {
	runes := []rune(plain)
	spans := make([]Span, 0, len(ranges))
	for _, r := range ranges {
		if r.start < 0 || r.end > len(runes) || r.start >= r.end {
			continue
		}
		spans = append(spans, Span{
			Start:      r.start,
			End:        r.end,
			Surface:    string(runes[r.start:r.end]),
			Kind:       SpanExact,
			Confidence: 1.0,
		})
	}
	return spans
}

// matchCompoundSpans scans text for exact occurrences of a Compound
// token (kind Compound, confidence 1.0) and for its individual
// components (kind Partial, confidence 0.7).
func matchCompoundSpans(text string, tok query.Token) []Span {
	var spans []Span
	spans = append(spans, findAllOccurrences(text, tok.Original, SpanCompound, 1.0, tok.Original)...)
	for _, part := range tok.CompoundParts {
		if part == tok.Original {
			continue
		}
		spans = append(spans, findAllOccurrences(text, part, SpanPartial, 0.7, tok.Original)...)
	}
	return spans
}

func findAllOccurrences(text, needle string, kind SpanKind, confidence float64, matchedQuery string) []Span {
	if needle == "" {
		return nil
	}
	var spans []Span
	runes := []rune(text)
	needleRunes := []rune(needle)
	textStr := string(runes)

	byteIdx := 0
	for {
		rel := strings.Index(textStr[byteIdx:], needle)
		if rel < 0 {
			break
		}
		absByte := byteIdx + rel
		startCP := utf8.RuneCountInString(textStr[:absByte])
		endCP := startCP + len(needleRunes)
		spans = append(spans, Span{
			Start:        startCP,
			End:          endCP,
			Surface:      needle,
			Kind:         kind,
			Confidence:   confidence,
			MatchedQuery: matchedQuery,
		})
		byteIdx = absByte + len(needle)
	}
	return spans
}

// fuzzySpans segments text and, for each resulting Thai word, emits a
// Fuzzy span when the query token is a substring of the word or vice
// versa with a length ratio >= fuzzyMinRatio.
func (e *Enhancer) fuzzySpans(ctx context.Context, text string, tok query.Token) []Span {
	if e.segmenter == nil {
		return nil
	}
	result, err := e.segmenter.Segment(ctx, text, segment.Options{})
	if err != nil {
		return nil
	}

	var spans []Span
	for _, t := range result.Tokens {
		if t.ContentType != classify.Thai {
			continue
		}
		startCP := utf8.RuneCountInString(text[:t.StartByte])
		endCP := startCP + utf8.RuneCountInString(t.Surface)

		ratio, ok := fuzzyRatio(tok.Original, t.Surface)
		if ok && ratio >= fuzzyMinRatio {
			spans = append(spans, Span{
				Start:        startCP,
				End:          endCP,
				Surface:      t.Surface,
				Kind:         SpanFuzzy,
				Confidence:   ratio,
				MatchedQuery: tok.Original,
			})
		}
	}
	return spans
}

// fuzzyRatio reports the length(shorter)/length(longer) ratio when one
// string is a substring of the other, or ok=false otherwise.
func fuzzyRatio(a, b string) (float64, bool) {
	if a == "" || b == "" {
		return 0, false
	}
	if !strings.Contains(a, b) && !strings.Contains(b, a) {
		return 0, false
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	shorter, longer := la, lb
	if lb < la {
		shorter, longer = lb, la
	}
	if longer == 0 {
		return 0, false
	}
	return float64(shorter) / float64(longer), true
}

// tokenizedView segments text and joins token surfaces with a visible
// pipe separator, for UI display only.
func (e *Enhancer) tokenizedView(ctx context.Context, text string) string {
	if e.segmenter == nil {
		return text
	}
	result, err := e.segmenter.Segment(ctx, text, segment.Options{})
	if err != nil {
		return text
	}
	surfaces := make([]string, 0, len(result.Tokens))
	for _, t := range result.Tokens {
		surfaces = append(surfaces, t.Surface)
	}
	return strings.Join(surfaces, "|")
}
