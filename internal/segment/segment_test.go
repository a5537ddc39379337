package segment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/thai-tokenizer/sidecar/internal/classify"
)

type stubBackend struct {
	name   string
	tokens []string
	err    error
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Segment(_ context.Context, _ string, _ Options) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tokens, nil
}

func TestSegment_EmptyInput(t *testing.T) {
	seg := New(&stubBackend{name: EngineNewmm}, nil, nil)
	res, err := seg.Segment(context.Background(), "", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Tokens) != 0 {
		t.Errorf("expected no tokens for empty input, got %d", len(res.Tokens))
	}
	if len(res.Boundaries) != 1 || res.Boundaries[0] != 0 {
		t.Errorf("expected boundaries [0], got %v", res.Boundaries)
	}
}

func TestSegment_WhitespaceOnlyInput(t *testing.T) {
	seg := New(&stubBackend{name: EngineNewmm}, nil, nil)
	res, err := seg.Segment(context.Background(), "   ", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Tokens) != 0 {
		t.Errorf("expected no tokens for whitespace-only input, got %d", len(res.Tokens))
	}
}

func TestSegment_PrimaryBackendUsed(t *testing.T) {
	seg := New(&stubBackend{name: EngineNewmm, tokens: []string{"สวัสดี"}}, nil, nil)
	res, err := seg.Segment(context.Background(), "สวัสดี", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EngineLabel != EngineNewmm {
		t.Errorf("EngineLabel = %q, want %q", res.EngineLabel, EngineNewmm)
	}
	if res.FallbackUsed {
		t.Error("FallbackUsed should be false when primary succeeds")
	}
	if len(res.Tokens) != 1 || res.Tokens[0].Surface != "สวัสดี" {
		t.Errorf("unexpected tokens: %+v", res.Tokens)
	}
}

func TestSegment_FallsBackToCharLevelOnPrimaryFailure(t *testing.T) {
	failing := &stubBackend{name: EngineNewmm, err: errors.New("backend down")}
	seg := New(failing, nil, nil)

	res, err := seg.Segment(context.Background(), "Apple ราคา", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EngineLabel != EngineFallback {
		t.Errorf("EngineLabel = %q, want %q", res.EngineLabel, EngineFallback)
	}
	if !res.FallbackUsed {
		t.Error("FallbackUsed should be true")
	}
}

func TestSegment_FallbackChainBeforeCharLevel(t *testing.T) {
	failing := &stubBackend{name: EngineNewmm, err: errors.New("down")}
	working := &stubBackend{name: EngineAttacut, tokens: []string{"ราคา"}}
	seg := New(failing, []Backend{working}, nil)

	res, err := seg.Segment(context.Background(), "ราคา", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EngineLabel != EngineAttacut {
		t.Errorf("EngineLabel = %q, want %q", res.EngineLabel, EngineAttacut)
	}
	if !res.FallbackUsed {
		t.Error("FallbackUsed should be true when primary failed even though a configured fallback succeeded")
	}
}

func TestSegment_BoundaryInvariants(t *testing.T) {
	seg := New(&stubBackend{name: EngineNewmm, tokens: []string{"Apple", " ", "iPhone"}}, nil, nil)
	res, err := seg.Segment(context.Background(), "Apple iPhone", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Boundaries[0] != 0 {
		t.Errorf("boundaries[0] = %d, want 0", res.Boundaries[0])
	}
	last := res.Boundaries[len(res.Boundaries)-1]
	if last > len(res.Input) {
		t.Errorf("last boundary %d exceeds input length %d", last, len(res.Input))
	}
	if len(res.Boundaries) != len(res.Tokens)+1 {
		t.Errorf("len(boundaries) = %d, want len(tokens)+1 = %d", len(res.Boundaries), len(res.Tokens)+1)
	}
	for i := 1; i < len(res.Boundaries); i++ {
		if res.Boundaries[i] < res.Boundaries[i-1] {
			t.Errorf("boundaries not non-decreasing at index %d: %v", i, res.Boundaries)
		}
	}
}

func TestCharFallbackSegment_GroupsThaiRuns(t *testing.T) {
	tokens := charFallbackSegment("Apple iPhone 15 Pro Max ราคา 45,900 บาท")
	var thaiTokens []string
	for _, tok := range tokens {
		if classify.IsThaiText(tok) {
			thaiTokens = append(thaiTokens, tok)
		}
	}
	if len(thaiTokens) == 0 {
		t.Error("expected at least one Thai token from the fallback segmenter")
	}
	joined := strings.Join(tokens, "")
	if strings.Contains(joined, " ") {
		t.Error("fallback segmenter should not retain whitespace as part of any token")
	}
}

func TestCharFallbackSegment_EmitsEachNonThaiCharSeparately(t *testing.T) {
	tokens := charFallbackSegment("a!1")
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d: %v", len(tokens), tokens)
	}
}

func TestSegmentCompound_SplitsLongThaiToken(t *testing.T) {
	primary := &stubBackend{name: EngineNewmm, tokens: []string{"เทคโนโลยีสารสนเทศ"}}
	seg := New(primary, nil, nil)

	attacut := &stubBackend{name: EngineAttacut, tokens: []string{"เทคโนโลยี", "สารสนเทศ"}}
	others := map[string]Backend{EngineAttacut: attacut}

	res, err := seg.SegmentCompound(context.Background(), "เทคโนโลยีสารสนเทศ", Options{}, others)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EngineLabel != EngineNewmm+"_compound" {
		t.Errorf("EngineLabel = %q, want %q", res.EngineLabel, EngineNewmm+"_compound")
	}
	if len(res.Tokens) < 2 {
		t.Errorf("expected compound split into >= 2 tokens, got %d", len(res.Tokens))
	}
}

func TestSegmentCompound_KeepsShortTokenUnsplit(t *testing.T) {
	primary := &stubBackend{name: EngineNewmm, tokens: []string{"บาท"}}
	seg := New(primary, nil, nil)

	res, err := seg.SegmentCompound(context.Background(), "บาท", Options{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Tokens) != 1 || res.Tokens[0].Surface != "บาท" {
		t.Errorf("expected candidate kept unsplit, got %+v", res.Tokens)
	}
}

func TestSegmentCompound_NoSplitWhenNoEngineAgrees(t *testing.T) {
	primary := &stubBackend{name: EngineNewmm, tokens: []string{"เทคโนโลยีสารสนเทศ"}}
	seg := New(primary, nil, nil)

	attacut := &stubBackend{name: EngineAttacut, tokens: []string{"เทคโนโลยีสารสนเทศ"}} // no split
	others := map[string]Backend{EngineAttacut: attacut}

	res, err := seg.SegmentCompound(context.Background(), "เทคโนโลยีสารสนเทศ", Options{}, others)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Tokens) != 1 {
		t.Errorf("expected candidate kept when no engine splits it, got %d tokens", len(res.Tokens))
	}
}
