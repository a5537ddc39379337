package enhance

import (
	"strings"

	"github.com/thai-tokenizer/sidecar/internal/classify"
	"github.com/thai-tokenizer/sidecar/internal/query"
)

// rescore multiplies the engine's score by the compound, Thai-exact and
// field-importance boosts, each individually capped, with the combined
// multiplier capped at totalBoostCap (spec.md §4.8 step 5, §8 invariant
// 8: enhanced score <= 4.0 x engine score).
func rescore(engineScore float64, hit Hit, spans map[string][]Span, tokens []query.Token) float64 {
	multiplier := compoundBoost(tokens, hit.Fields) *
		thaiExactBoost(tokens, hit.Fields) *
		fieldImportanceBoost(spans)

	if multiplier > totalBoostCap {
		multiplier = totalBoostCap
	}
	return engineScore * multiplier
}

// compoundBoost scales with how many Compound query tokens appear
// exactly vs. partially anywhere in the hit's searchable text, capped
// at compoundBoostCap.
func compoundBoost(tokens []query.Token, fields map[string]string) float64 {
	var exact, partial int
	for _, tok := range tokens {
		if tok.Kind != query.KindCompound {
			continue
		}
		if containsInAnyField(fields, tok.Original) {
			exact++
			continue
		}
		for _, part := range tok.CompoundParts {
			if containsInAnyField(fields, part) {
				partial++
				break
			}
		}
	}
	boost := 1.0 + 0.3*float64(exact) + 0.1*float64(partial)
	if boost > compoundBoostCap {
		return compoundBoostCap
	}
	return boost
}

// thaiExactBoost scales with the count of Thai query tokens found
// verbatim in the hit's searchable text, capped at thaiExactBoostCap.
func thaiExactBoost(tokens []query.Token, fields map[string]string) float64 {
	var exact int
	for _, tok := range tokens {
		if !classify.IsThaiText(tok.Original) {
			continue
		}
		if containsInAnyField(fields, tok.Original) {
			exact++
		}
	}
	boost := 1.0 + 0.2*float64(exact)
	if boost > thaiExactBoostCap {
		return thaiExactBoostCap
	}
	return boost
}

// fieldImportanceBoost applies a flat boost when the title field has
// any highlight span at all.
func fieldImportanceBoost(spans map[string][]Span) float64 {
	if len(spans["title"]) > 0 {
		return fieldImportance
	}
	return 1.0
}

func containsInAnyField(fields map[string]string, needle string) bool {
	if needle == "" {
		return false
	}
	for _, v := range fields {
		if strings.Contains(v, needle) {
			return true
		}
	}
	return false
}
