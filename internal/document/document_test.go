package document

import (
	"context"
	"testing"
	"time"

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

func fixedNow() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func newTestProcessor(tokens []string) *Processor {
	primary := &stubBackend{name: segment.EngineNewmm, tokens: tokens}
	seg := segment.New(primary, nil, nil)
	return NewProcessor(seg, nil)
}

func TestProcess_MissingIDFails(t *testing.T) {
	p := newTestProcessor(nil)
	doc := p.Process(context.Background(), Input{ID: "", Fields: map[string]any{"title": "x"}}, Options{Now: fixedNow})
	if doc.Status != StatusFailed {
		t.Fatalf("status = %v, want Failed", doc.Status)
	}
}

func TestProcess_NoThaiContentSkips(t *testing.T) {
	p := newTestProcessor(nil)
	doc := p.Process(context.Background(), Input{ID: "doc1", Fields: map[string]any{"title": "Apple iPhone", "content": "the latest phone"}}, Options{Now: fixedNow})
	if doc.Status != StatusSkipped {
		t.Fatalf("status = %v, want Skipped", doc.Status)
	}
	if doc.Metadata.ThaiDetected {
		t.Error("thai_detected should be false")
	}
	if doc.OriginalFields["title"] != "Apple iPhone" {
		t.Error("original fields should be preserved verbatim")
	}
}

func TestProcess_ThaiContentCompletes(t *testing.T) {
	p := newTestProcessor([]string{"สาหร่าย", "วากาเมะ"})
	doc := p.Process(context.Background(), Input{ID: "doc2", Fields: map[string]any{"title": "สาหร่ายวากาเมะ", "content": ""}}, Options{Now: fixedNow})
	if doc.Status != StatusCompleted {
		t.Fatalf("status = %v, want Completed", doc.Status)
	}
	if !doc.Metadata.ThaiDetected {
		t.Error("thai_detected should be true")
	}
	if doc.Metadata.TokenCount == 0 {
		t.Error("token_count should be > 0 for a completed document")
	}
	if doc.TokenizedFields["tokenized_content"] == "" {
		t.Error("tokenized_content should be populated")
	}
}

func TestProcess_OriginalFieldsPreservedAlongsideTokenized(t *testing.T) {
	p := newTestProcessor([]string{"สาหร่าย"})
	fields := map[string]any{"title": "สาหร่าย", "price": 120}
	doc := p.Process(context.Background(), Input{ID: "doc3", Fields: fields}, Options{Now: fixedNow})
	if doc.OriginalFields["price"] != 120 {
		t.Error("non-string fields must be preserved verbatim")
	}
	if _, ok := doc.TokenizedFields["tokenized_content"]; !ok {
		t.Error("expected tokenized_content to be present")
	}
}

func TestProcess_Idempotent(t *testing.T) {
	p := newTestProcessor([]string{"สาหร่าย", "วากาเมะ"})
	in := Input{ID: "doc4", Fields: map[string]any{"title": "สาหร่ายวากาเมะ"}}
	doc1 := p.Process(context.Background(), in, Options{Now: fixedNow})
	doc2 := p.Process(context.Background(), in, Options{Now: fixedNow})
	if doc1.TokenizedFields["tokenized_content"] != doc2.TokenizedFields["tokenized_content"] {
		t.Error("processing the same document twice should yield identical tokenized_content")
	}
}

func TestSplitThaiRuns_SeparatesScriptRuns(t *testing.T) {
	runs := splitThaiRuns("Apple สาหร่าย Max")
	var thaiCount, otherCount int
	for _, r := range runs {
		if r.isThai {
			thaiCount++
		} else {
			otherCount++
		}
	}
	if thaiCount == 0 {
		t.Error("expected at least one Thai run")
	}
	if otherCount == 0 {
		t.Error("expected at least one non-Thai run")
	}
}

func TestComposeScanText_DefaultsToTitleAndContent(t *testing.T) {
	text := composeScanText(map[string]any{"title": "A", "content": "B", "other": "C"}, defaultScanFields)
	if text != "A B" {
		t.Errorf("composeScanText = %q, want %q", text, "A B")
	}
}
