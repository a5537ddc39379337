package segment

import "context"

// CharFallbackBackend is a dependency-free Backend implementing the
// deterministic character-level fallback of spec.md §4.1. It never
// fails and requires no network or container dependency, so it is
// always available as the last link in a Segmenter's fallback chain.
type CharFallbackBackend struct{}

// NewCharFallbackBackend constructs the character-level fallback
// backend.
func NewCharFallbackBackend() *CharFallbackBackend {
	return &CharFallbackBackend{}
}

// Name returns the fallback engine tag.
func (CharFallbackBackend) Name() string { return EngineFallback }

// Segment groups runs of Thai code points into single tokens and emits
// every other non-whitespace character as its own token.
func (CharFallbackBackend) Segment(_ context.Context, text string, _ Options) ([]string, error) {
	return charFallbackSegment(text), nil
}
