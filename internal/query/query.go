// Package query tokenizes and classifies search queries, producing
// variant and completion candidates for downstream search-engine
// expansion.
package query

import (
	"context"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/thai-tokenizer/sidecar/internal/classify"
	"github.com/thai-tokenizer/sidecar/internal/segment"
)

// Kind is the classification assigned to a single query token.
type Kind string

const (
	KindSimple   Kind = "Simple"
	KindCompound Kind = "Compound"
	KindPartial  Kind = "Partial"
	KindMixed    Kind = "Mixed"
	KindPhrase   Kind = "Phrase"
)

// thaiQueryThreshold is the permissive Thai-ratio threshold used for
// query-side detection, deliberately lower than C2's 50% so that short
// mixed queries don't misclassify as Latin (spec.md §4.7).
const thaiQueryThreshold = 0.3

const partialMaxLen = 2
const compoundMinExtraLen = 1
const maxCompletions = 10

var compoundPrefixes = []string{"การ", "ความ", "นัก", "ผู้"}
var compoundSuffixes = []string{"ศาสตร์", "วิทยา", "กรรม", "ภาพ"}

// Token is the processed form of a single query token.
type Token struct {
	Original      string   `json:"original"`
	Processed     string   `json:"processed"`
	Kind          Kind     `json:"kind"`
	IsPartial     bool     `json:"is_partial"`
	CompoundParts []string `json:"compound_parts,omitempty"`
	Variants      []string `json:"variants"`
	Boost         float64  `json:"boost"`
}

// Metadata carries query-level facts alongside the processed result.
type Metadata struct {
	ThaiDetected bool    `json:"thai_detected"`
	ThaiRatio    float64 `json:"thai_ratio"`
	TokenCount   int     `json:"token_count"`
}

// Result is the full output of processing one query string.
type Result struct {
	Original    string   `json:"original"`
	Processed   string   `json:"processed"`
	Tokens      []Token  `json:"tokens"`
	Variants    []string `json:"variants"`
	Completions []string `json:"completions"`
	Metadata    Metadata `json:"metadata"`

	// CacheHit is true when Process served this result from the LRU
	// cache instead of re-running the pipeline. Not part of the wire
	// payload; callers that care (e.g. the /metrics counters) read it
	// off the in-memory value directly.
	CacheHit bool `json:"-"`
}

// Options configures a single Process call.
type Options struct {
	ExpandVariants    bool
	AllowPartialMatch bool
}

// Processor tokenizes queries via a Segmenter and caches results by
// (query, options) since query traffic is highly repetitive. Grounded
// on the LRU-cached classify-then-fallback shape used elsewhere in this
// codebase for repeated classification work.
type Processor struct {
	segmenter *segment.Segmenter
	cache     *lru.Cache[string, Result]
}

// NewProcessor creates a Processor with the given segmenter and LRU
// cache size (0 disables caching).
func NewProcessor(segmenter *segment.Segmenter, cacheSize int) *Processor {
	p := &Processor{segmenter: segmenter}
	if cacheSize > 0 {
		cache, err := lru.New[string, Result](cacheSize)
		if err == nil {
			p.cache = cache
		}
	}
	return p
}

// Process runs the six-step query pipeline of spec.md §4.7.
func (p *Processor) Process(ctx context.Context, query string, opts Options) (Result, error) {
	key := cacheKey(query, opts)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			cached.CacheHit = true
			return cached, nil
		}
	}

	normalized := normalizeWhitespace(query)

	segResult, err := p.segmenter.Segment(ctx, normalized, segment.Options{})
	if err != nil {
		return Result{}, err
	}

	tokens := make([]Token, 0, len(segResult.Tokens))
	allVariants := make([]string, 0)
	seenVariants := make(map[string]struct{})
	var completions []string

	for _, segTok := range segResult.Tokens {
		tok := classifyToken(segTok.Surface, opts)
		tokens = append(tokens, tok)

		for _, v := range tok.Variants {
			if _, ok := seenVariants[v]; ok {
				continue
			}
			seenVariants[v] = struct{}{}
			allVariants = append(allVariants, v)
		}

		if tok.IsPartial && len(completions) < maxCompletions {
			completions = append(completions, generateCompletions(tok.Original, maxCompletions-len(completions))...)
		}
	}

	processedParts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		processedParts = append(processedParts, t.Processed)
	}

	result := Result{
		Original:  query,
		Processed: strings.Join(processedParts, " "),
		Tokens:    tokens,
		Metadata: Metadata{
			ThaiDetected: classify.ThaiRatio(normalized) >= thaiQueryThreshold,
			ThaiRatio:    classify.ThaiRatio(normalized),
			TokenCount:   len(tokens),
		},
	}
	if opts.ExpandVariants {
		result.Variants = allVariants
	}
	result.Completions = completions

	if p.cache != nil {
		p.cache.Add(key, result)
	}
	return result, nil
}

func cacheKey(query string, opts Options) string {
	if opts.ExpandVariants && opts.AllowPartialMatch {
		return "ve:pm:" + query
	}
	if opts.ExpandVariants {
		return "ve:" + query
	}
	if opts.AllowPartialMatch {
		return "pm:" + query
	}
	return query
}

func normalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// classifyToken determines kind, is_partial, variants, and boost for a
// single token surface per the classification rules of spec.md §4.7.
func classifyToken(surface string, opts Options) Token {
	tok := Token{Original: surface, Processed: surface}

	if strings.ContainsAny(surface, " \t\n") {
		tok.Kind = KindPhrase
		tok.Boost = boostFor(tok.Kind, surface)
		tok.Variants = variantsFor(tok, opts)
		return tok
	}

	ct := classify.Classify(surface)
	runeCount := utf8.RuneCountInString(surface)

	hasThai, hasLatin := false, false
	for _, r := range surface {
		if classify.IsThaiRune(r) {
			hasThai = true
		} else if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			hasLatin = true
		}
	}

	switch {
	case ct == classify.Mixed || (hasThai && hasLatin):
		tok.Kind = KindMixed
	case ct != classify.Thai:
		tok.Kind = KindSimple
	case runeCount <= partialMaxLen:
		tok.Kind = KindPartial
		tok.IsPartial = true
	default:
		if prefix, suffix, ok := matchCompoundPattern(surface); ok {
			tok.Kind = KindCompound
			tok.CompoundParts = []string{prefix, suffix}
		} else if endsWithKnownPrefix(surface) || startsWithKnownSuffix(surface) {
			tok.Kind = KindPartial
			tok.IsPartial = true
		} else {
			tok.Kind = KindSimple
		}
	}

	tok.Boost = boostFor(tok.Kind, surface)
	tok.Variants = variantsFor(tok, opts)
	return tok
}

// matchCompoundPattern reports whether surface has a Thai prefix or
// suffix pattern with more than one additional character beyond the
// matched affix, returning the split components.
func matchCompoundPattern(surface string) (string, string, bool) {
	runes := []rune(surface)
	for _, prefix := range compoundPrefixes {
		pr := []rune(prefix)
		if len(runes) > len(pr) && strings.HasPrefix(surface, prefix) {
			remainder := string(runes[len(pr):])
			if utf8.RuneCountInString(remainder) > compoundMinExtraLen {
				return prefix, remainder, true
			}
		}
	}
	for _, suffix := range compoundSuffixes {
		sr := []rune(suffix)
		if len(runes) > len(sr) && strings.HasSuffix(surface, suffix) {
			head := string(runes[:len(runes)-len(sr)])
			if utf8.RuneCountInString(head) > compoundMinExtraLen {
				return head, suffix, true
			}
		}
	}
	return "", "", false
}

func endsWithKnownPrefix(surface string) bool {
	for _, prefix := range compoundPrefixes {
		if strings.HasSuffix(surface, prefix) {
			return true
		}
	}
	return false
}

func startsWithKnownSuffix(surface string) bool {
	for _, suffix := range compoundSuffixes {
		if strings.HasPrefix(surface, suffix) {
			return true
		}
	}
	return false
}

func boostFor(kind Kind, surface string) float64 {
	boost := 1.0
	if kind == KindCompound {
		boost *= 1.2
	}
	n := utf8.RuneCountInString(surface)
	switch {
	case n > 6:
		boost *= 1.1
	case n <= 2:
		boost *= 0.8
	}
	return boost
}

func variantsFor(tok Token, opts Options) []string {
	variants := []string{tok.Original}
	if opts.AllowPartialMatch {
		variants = append(variants, tok.Original+"*", "*"+tok.Original, "*"+tok.Original+"*")
	}
	if tok.Kind == KindCompound {
		variants = append(variants, tok.CompoundParts...)
	}
	return variants
}

// generateCompletions builds completion candidates for a partial token:
// every configured prefix prepended to it, then every configured suffix
// appended to it, stopping at limit candidates. The affixes are not
// chosen by what the token starts or ends with.
func generateCompletions(token string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	var out []string
	for _, prefix := range compoundPrefixes {
		out = append(out, prefix+token)
		if len(out) >= limit {
			return out
		}
	}
	for _, suffix := range compoundSuffixes {
		out = append(out, token+suffix)
		if len(out) >= limit {
			return out
		}
	}
	return out
}
