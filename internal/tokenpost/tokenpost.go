// Package tokenpost converts a segment.SegmentationResult into a stream
// of ProcessedTokens carrying explicit word-boundary markers, per
// spec.md §4.3.
package tokenpost

import (
	"strings"
	"unicode/utf8"

	"github.com/thai-tokenizer/sidecar/internal/classify"
	"github.com/thai-tokenizer/sidecar/internal/segment"
)

// WordMarker is the zero-width word boundary marker (U+200B) appended
// after every Thai token.
const WordMarker = "​"

// CompoundMarker separates sub-tokens inside a split compound: two
// consecutive zero-width markers.
const CompoundMarker = WordMarker + WordMarker

// compoundMinLen is the rune length a Thai token must exceed to be
// considered potentially compound.
const compoundMinLen = 6

// compoundPrefixes and compoundSuffixes are the fixed, ordered compound
// patterns from spec.md §4.3: Thai prefixes การ/ความ/นัก/ผู้ and
// suffixes ศาสตร์/วิทยา/กรรม/ภาพ.
var compoundPrefixes = []string{"การ", "ความ", "นัก", "ผู้"}
var compoundSuffixes = []string{"ศาสตร์", "วิทยา", "กรรม", "ภาพ"}

// ProcessedToken is the output of post-processing a single segmented
// token, ready for inclusion in a search-engine-facing token stream.
type ProcessedToken struct {
	Original    string
	Processed   string
	ContentType classify.ContentType
	IsCompound  bool
	SubTokens   []string
}

// Options configures post-processing.
type Options struct {
	// HandleCompounds enables compound sub-splitting for rule 2.
	HandleCompounds bool

	// KnownLongWords is an allowlist of Thai tokens that are never
	// treated as compound candidates even if long enough.
	KnownLongWords map[string]struct{}
}

// Process converts a single segment.Token into a ProcessedToken,
// applying the appropriate rule for its content type (rules 1-4 of
// spec.md §4.3). Mixed tokens should be passed through ProcessStream
// instead, which splits them into maximal single-category runs first.
func Process(surface string, opts Options) ProcessedToken {
	ct := classify.Classify(surface)

	switch ct {
	case classify.Thai:
		return processThai(surface, opts)
	case classify.Latin, classify.Numeric:
		return ProcessedToken{
			Original:    surface,
			Processed:   " " + surface + " ",
			ContentType: ct,
		}
	case classify.Mixed:
		return processMixed(surface, opts)
	default: // Punctuation, Whitespace
		return ProcessedToken{
			Original:    surface,
			Processed:   surface,
			ContentType: ct,
		}
	}
}

// ProcessStream applies Process to every token produced by a
// segment.SegmentationResult, in left-to-right order, preserving that
// order in the returned slice (spec.md §5 ordering guarantee).
func ProcessStream(tokens []segment.Token, opts Options) []ProcessedToken {
	out := make([]ProcessedToken, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, Process(tok.Surface, opts))
	}
	return out
}

func processThai(surface string, opts Options) ProcessedToken {
	pt := ProcessedToken{
		Original:    surface,
		ContentType: classify.Thai,
	}

	if opts.HandleCompounds && isPotentiallyCompound(surface, opts) {
		if subTokens, ok := splitCompound(surface); ok {
			pt.IsCompound = true
			pt.SubTokens = subTokens
			pt.Processed = strings.Join(subTokens, CompoundMarker) + WordMarker
			return pt
		}
	}

	pt.Processed = surface + WordMarker
	return pt
}

// processMixed routes a mixed-category token through a sub-pipeline: it
// scans the string, splits it into maximal single-category runs, and
// processes each run with the Thai/Latin/Numeric/Punctuation rule,
// concatenating the results (spec.md §4.3 rule 5).
func processMixed(surface string, opts Options) ProcessedToken {
	runs := splitRuns(surface)

	var sb strings.Builder
	for _, run := range runs {
		sub := Process(run, opts)
		sb.WriteString(sub.Processed)
	}

	return ProcessedToken{
		Original:    surface,
		Processed:   sb.String(),
		ContentType: classify.Mixed,
	}
}

// splitRuns splits s into maximal runs where every rune in a run shares
// the same single-rune classification (Thai, Latin, Numeric, or
// "other", grouping whitespace/punctuation together as their own runs).
func splitRuns(s string) []string {
	var runs []string
	var current strings.Builder
	var currentCat classify.ContentType
	first := true

	flush := func() {
		if current.Len() > 0 {
			runs = append(runs, current.String())
			current.Reset()
		}
	}

	for _, r := range s {
		cat := runeCategory(r)
		if first {
			currentCat = cat
			first = false
		}
		if cat != currentCat {
			flush()
			currentCat = cat
		}
		current.WriteRune(r)
	}
	flush()

	return runs
}

func runeCategory(r rune) classify.ContentType {
	switch {
	case classify.IsThaiRune(r):
		return classify.Thai
	case isASCIIDigit(r):
		return classify.Numeric
	case isASCIILetter(r):
		return classify.Latin
	default:
		return classify.Punctuation
	}
}

func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }
func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// isPotentiallyCompound reports whether a Thai token is a candidate for
// compound sub-splitting: longer than compoundMinLen code points and not
// in the known-long-word allowlist.
func isPotentiallyCompound(token string, opts Options) bool {
	if utf8.RuneCountInString(token) <= compoundMinLen {
		return false
	}
	if opts.KnownLongWords != nil {
		if _, known := opts.KnownLongWords[token]; known {
			return false
		}
	}
	return true
}

// splitCompound attempts to split a compound candidate using the fixed
// ordered list of prefix/suffix patterns; if none match, it falls back
// to a midpoint split (always available for tokens long enough to be
// candidates in the first place).
func splitCompound(token string) ([]string, bool) {
	runes := []rune(token)

	for _, prefix := range compoundPrefixes {
		pr := []rune(prefix)
		if len(runes) > len(pr) && strings.HasPrefix(token, prefix) {
			remainder := string(runes[len(pr):])
			if utf8.RuneCountInString(remainder) > 1 {
				return []string{prefix, remainder}, true
			}
		}
	}

	for _, suffix := range compoundSuffixes {
		sr := []rune(suffix)
		if len(runes) > len(sr) && strings.HasSuffix(token, suffix) {
			head := string(runes[:len(runes)-len(sr)])
			if utf8.RuneCountInString(head) > 1 {
				return []string{head, suffix}, true
			}
		}
	}

	mid := len(runes) / 2
	return []string{string(runes[:mid]), string(runes[mid:])}, true
}
