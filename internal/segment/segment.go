// Package segment splits Thai (and mixed Thai/Latin) text into word
// tokens using a pluggable segmentation backend, with a deterministic
// character-level fallback and a compound-aware second pass.
package segment

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/thai-tokenizer/sidecar/internal/classify"
)

// EngineNewmm, EngineAttacut and EngineDeepcut are the three pluggable
// segmentation backends named in spec.md §4.1. Their engine-label
// strings are part of the observable surface and must stay stable.
const (
	EngineNewmm    = "newmm"
	EngineAttacut  = "attacut"
	EngineDeepcut  = "deepcut"
	EngineFallback = "fallback_char"
)

// compoundCandidateMinLen is the Thai token length (in code points) that
// a token must exceed to be considered for compound re-segmentation.
const compoundCandidateMinLen = 6

// Options configures a single Segment call.
type Options struct {
	// KeepWhitespace preserves whitespace tokens in the output instead
	// of dropping them; affects Reconstruction invariant semantics.
	KeepWhitespace bool

	// CustomDictionary, when non-empty, is used as the sole vocabulary
	// for a "custom" variant of the engine rather than the engine's
	// built-in dictionary.
	CustomDictionary []string
}

// Backend is the capability contract for a Thai segmentation engine:
// given a string, return an ordered list of surface tokens whose
// concatenation reproduces the input (whitespace handling per Options).
type Backend interface {
	// Name returns the engine tag used in SegmentationResult.EngineLabel.
	Name() string

	// Segment splits text into tokens. Implementations must be safe for
	// concurrent use; they hold no per-call mutable state.
	Segment(ctx context.Context, text string, opts Options) ([]string, error)
}

// Token is a single segmentation result element, positioned over the
// original input's byte offsets.
type Token struct {
	Surface     string
	StartByte   int
	EndByte     int
	ContentType classify.ContentType
}

// SegmentationResult is the immutable output of a Segment/SegmentCompound
// call.
type SegmentationResult struct {
	Input       string
	Tokens      []Token
	Boundaries  []int
	EngineLabel string
	ElapsedMs   float64

	// FallbackUsed is true when the primary backend failed and the
	// character-level fallback produced this result.
	FallbackUsed bool
}

// Segmenter owns one primary Backend, an ordered list of fallback
// Backends, and the current custom-dictionary snapshot. It is safe for
// concurrent use after construction: readers acquire the current
// dictionary snapshot once per call and hold it for the call's duration.
type Segmenter struct {
	primary  Backend
	fallback []Backend
	dict     *Dictionary

	// candidateCache memoizes SegmentCompound's per-candidate
	// resegmentation attempts, keyed by primary-engine-name + candidate
	// surface. nil disables caching.
	candidateCache *lru.Cache[string, []string]
}

// New creates a Segmenter with the given primary backend, an ordered
// fallback chain (tried in order if primary fails before the
// deterministic character fallback is used), and a dictionary (may be
// nil, in which case no custom dictionary is applied).
func New(primary Backend, fallback []Backend, dict *Dictionary) *Segmenter {
	return &Segmenter{primary: primary, fallback: fallback, dict: dict}
}

// WithCandidateCache attaches a bounded LRU cache of size entries for
// SegmentCompound's candidate resegmentation results. size<=0 leaves
// caching disabled (the default for a Segmenter built with New).
func (s *Segmenter) WithCandidateCache(size int) *Segmenter {
	if size <= 0 {
		return s
	}
	cache, err := lru.New[string, []string](size)
	if err != nil {
		return s
	}
	s.candidateCache = cache
	return s
}

// Segment splits text using the primary backend, falling back through
// the configured chain and finally to the deterministic character-level
// fallback on failure. Empty or whitespace-only input returns an empty
// token list without invoking any backend.
func (s *Segmenter) Segment(ctx context.Context, text string, opts Options) (*SegmentationResult, error) {
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return &SegmentationResult{
			Input:       text,
			Tokens:      nil,
			Boundaries:  []int{0},
			EngineLabel: s.primaryName(),
			ElapsedMs:   elapsedMs(start),
		}, nil
	}

	opts = s.withDictionary(opts)

	surfaces, engineLabel, fallbackUsed, err := s.segmentWithFallback(ctx, text, opts)
	if err != nil {
		return nil, err
	}

	tokens, boundaries := buildTokens(text, surfaces)

	return &SegmentationResult{
		Input:        text,
		Tokens:       tokens,
		Boundaries:   boundaries,
		EngineLabel:  engineLabel,
		ElapsedMs:    elapsedMs(start),
		FallbackUsed: fallbackUsed,
	}, nil
}

// segmentWithFallback tries the primary backend, then each configured
// fallback backend in order, then the deterministic character-level
// fallback. It never returns an error: the character fallback always
// succeeds.
func (s *Segmenter) segmentWithFallback(ctx context.Context, text string, opts Options) (surfaces []string, engineLabel string, fallbackUsed bool, err error) {
	if s.primary != nil {
		if out, perr := s.primary.Segment(ctx, text, opts); perr == nil {
			return out, s.primary.Name(), false, nil
		}
	}

	for _, b := range s.fallback {
		if out, ferr := b.Segment(ctx, text, opts); ferr == nil {
			return out, b.Name(), true, nil
		}
	}

	out := charFallbackSegment(text)
	return out, EngineFallback, true, nil
}

func (s *Segmenter) withDictionary(opts Options) Options {
	if len(opts.CustomDictionary) > 0 || s.dict == nil {
		return opts
	}
	if words := s.dict.Words(); len(words) > 0 {
		opts.CustomDictionary = words
	}
	return opts
}

func (s *Segmenter) primaryName() string {
	if s.primary == nil {
		return EngineFallback
	}
	return s.primary.Name()
}

// buildTokens assigns byte-offset boundaries to a list of surface
// tokens by left-to-right scanning of the original text, per spec.md
// §4.1's boundary computation algorithm: for each token, the next
// occurrence at or after the cursor is located and the cursor advanced.
// If a token cannot be located, its boundary is estimated by cumulative
// token length (flagged via a negative-length marker is avoided here;
// callers don't need the flag, only a consistent boundary).
func buildTokens(input string, surfaces []string) ([]Token, []int) {
	tokens := make([]Token, 0, len(surfaces))
	boundaries := make([]int, 0, len(surfaces)+1)
	boundaries = append(boundaries, 0)

	cursor := 0
	for _, surface := range surfaces {
		if surface == "" {
			continue
		}

		start := cursor
		idx := strings.Index(input[cursor:], surface)
		if idx >= 0 {
			start = cursor + idx
		}

		end := start + len(surface)
		if end > len(input) {
			end = len(input)
		}

		tokens = append(tokens, Token{
			Surface:     surface,
			StartByte:   start,
			EndByte:     end,
			ContentType: classify.Classify(surface),
		})
		boundaries = append(boundaries, end)
		cursor = end
	}

	if len(boundaries) > 0 && boundaries[len(boundaries)-1] < len(input) && len(tokens) == 0 {
		boundaries[len(boundaries)-1] = len(input)
	}

	return tokens, boundaries
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// charFallbackSegment is the deterministic character-level fallback used
// when all backends fail: it groups runs of Thai code points into one
// token and emits every non-Thai, non-whitespace character as its own
// token, dropping whitespace runs.
func charFallbackSegment(text string) []string {
	var out []string
	var thaiRun strings.Builder

	flush := func() {
		if thaiRun.Len() > 0 {
			out = append(out, thaiRun.String())
			thaiRun.Reset()
		}
	}

	for _, r := range text {
		switch {
		case classify.IsThaiRune(r):
			thaiRun.WriteRune(r)
		case isSpaceRune(r):
			flush()
		default:
			flush()
			out = append(out, string(r))
		}
	}
	flush()

	return out
}

func isSpaceRune(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// runeLen returns the number of code points in s.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
