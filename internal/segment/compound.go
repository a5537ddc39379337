package segment

import (
	"context"

	"github.com/thai-tokenizer/sidecar/internal/classify"
)

// compoundAttemptOrder is the fixed order {attacut, deepcut, newmm} in
// which engines are tried; SegmentCompound skips whichever one is
// currently primary.
// The fixed order is part of the observable contract (spec.md §4.1):
// re-segmentation is attempted in this order regardless of which engine
// produced the original candidate.
var compoundAttemptOrder = []string{EngineAttacut, EngineDeepcut, EngineNewmm}

// SegmentCompound calls Segment, then re-examines every resulting Thai
// token longer than compoundCandidateMinLen code points as a "compound
// candidate": it is re-segmented with each of the other two engines (in
// the fixed order above, skipping the primary engine). The first engine
// that splits the candidate into two or more tokens wins and its split
// replaces the candidate in the output; otherwise the candidate is kept
// unchanged. The result's EngineLabel becomes "{primary}_compound".
func (s *Segmenter) SegmentCompound(ctx context.Context, text string, opts Options, others map[string]Backend) (*SegmentationResult, error) {
	base, err := s.Segment(ctx, text, opts)
	if err != nil {
		return nil, err
	}

	if len(base.Tokens) == 0 {
		return base, nil
	}

	primaryName := base.EngineLabel

	var rebuiltSurfaces []string
	changed := false

	for _, tok := range base.Tokens {
		if tok.ContentType != classify.Thai || runeLen(tok.Surface) <= compoundCandidateMinLen {
			rebuiltSurfaces = append(rebuiltSurfaces, tok.Surface)
			continue
		}

		split := s.tryCompoundSplit(ctx, tok.Surface, opts, primaryName, others)
		if len(split) >= 2 {
			rebuiltSurfaces = append(rebuiltSurfaces, split...)
			changed = true
		} else {
			rebuiltSurfaces = append(rebuiltSurfaces, tok.Surface)
		}
	}

	if !changed {
		base.EngineLabel = primaryName + "_compound"
		return base, nil
	}

	tokens, boundaries := buildTokens(text, rebuiltSurfaces)
	return &SegmentationResult{
		Input:        text,
		Tokens:       tokens,
		Boundaries:   boundaries,
		EngineLabel:  primaryName + "_compound",
		ElapsedMs:    base.ElapsedMs,
		FallbackUsed: base.FallbackUsed,
	}, nil
}

// tryCompoundSplit re-segments a single compound candidate with each
// engine in the fixed attempt order (skipping the primary engine and any
// engine missing from others), returning the first split producing at
// least two tokens, or nil if none does.
func (s *Segmenter) tryCompoundSplit(ctx context.Context, candidate string, opts Options, primaryName string, others map[string]Backend) []string {
	// A per-call custom dictionary makes the result request-specific, so
	// it bypasses the cache rather than poisoning it for later calls that
	// don't carry one.
	cacheable := s.candidateCache != nil && len(opts.CustomDictionary) == 0
	cacheKey := primaryName + "\x00" + candidate
	if cacheable {
		if cached, ok := s.candidateCache.Get(cacheKey); ok {
			return cached
		}
	}

	for _, name := range compoundAttemptOrder {
		if name == primaryName {
			continue
		}
		backend, ok := others[name]
		if !ok || backend == nil {
			continue
		}
		out, err := backend.Segment(ctx, candidate, opts)
		if err == nil && len(out) >= 2 {
			if cacheable {
				s.candidateCache.Add(cacheKey, out)
			}
			return out
		}
	}
	if cacheable {
		s.candidateCache.Add(cacheKey, nil)
	}
	return nil
}
