// Package classify labels runs of text by Unicode content category:
// Thai, Latin, Numeric, Punctuation, Whitespace, or Mixed.
package classify

import (
	"unicode"

	"github.com/rivo/uniseg"
)

// ContentType is the category assigned to a token or run of text.
type ContentType string

const (
	Thai        ContentType = "Thai"
	Latin       ContentType = "Latin"
	Numeric     ContentType = "Numeric"
	Punctuation ContentType = "Punctuation"
	Whitespace  ContentType = "Whitespace"
	Mixed       ContentType = "Mixed"
)

// thaiThreshold is the fraction of non-whitespace code points that must
// belong to a single category for it to win outright; spec.md §3.
const thaiThreshold = 0.5

// IsThaiRune reports whether r falls in the Thai Unicode block
// (U+0E00-U+0E7F inclusive).
func IsThaiRune(r rune) bool {
	return r >= 0x0E00 && r <= 0x0E7F
}

// Classify returns the ContentType of s by counting code-point
// categories over grapheme clusters; the category covering more than
// thaiThreshold of non-whitespace code points wins, otherwise Mixed.
// An empty or whitespace-only string classifies as Whitespace.
func Classify(s string) ContentType {
	if s == "" {
		return Whitespace
	}

	counts := make(map[ContentType]int)
	total := 0

	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		for _, r := range gr.Runes() {
			cat := categorize(r)
			if cat == Whitespace {
				continue
			}
			counts[cat]++
			total++
		}
	}

	if total == 0 {
		return Whitespace
	}

	var winner ContentType
	best := 0
	for cat, n := range counts {
		if n > best {
			best = n
			winner = cat
		}
	}

	if float64(best)/float64(total) > thaiThreshold {
		return winner
	}
	return Mixed
}

// categorize classifies a single rune, ignoring whitespace detection
// nuances that Classify handles at the aggregate level. Combining marks
// attach to the category of Thai when in the Thai combining-mark range,
// since they only ever modify Thai base characters in practice.
func categorize(r rune) ContentType {
	switch {
	case unicode.IsSpace(r):
		return Whitespace
	case IsThaiRune(r):
		return Thai
	case unicode.IsDigit(r):
		return Numeric
	case unicode.Is(unicode.Latin, r):
		return Latin
	case unicode.IsPunct(r) || unicode.IsSymbol(r):
		return Punctuation
	default:
		// Unassigned or script we don't special-case: treat as Mixed
		// contribution by counting it under Punctuation-like "other",
		// never as the Thai/Latin/Numeric winners.
		return Punctuation
	}
}

// IsThaiText reports whether s has any Thai code point at all, used by
// callers that need presence detection rather than category dominance.
func IsThaiText(s string) bool {
	for _, r := range s {
		if IsThaiRune(r) {
			return true
		}
	}
	return false
}

// ThaiRatio returns the fraction of code points in s (ignoring
// whitespace) that fall in the Thai range. Used by query-side detection,
// which applies a more permissive threshold than Classify's 50%.
func ThaiRatio(s string) float64 {
	total := 0
	thai := 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if IsThaiRune(r) {
			thai++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(thai) / float64(total)
}
