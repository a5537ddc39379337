package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thai-tokenizer/sidecar/internal/document"
	sidecarerrors "github.com/thai-tokenizer/sidecar/internal/errors"
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

func newTestProcessor() *document.Processor {
	primary := &stubBackend{name: segment.EngineNewmm, tokens: []string{"สาหร่าย"}}
	seg := segment.New(primary, nil, nil)
	return document.NewProcessor(seg, nil)
}

type recordingAdder struct {
	mu    sync.Mutex
	calls [][]document.ProcessedDocument
}

func (r *recordingAdder) BulkAdd(_ context.Context, docs []document.ProcessedDocument) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, docs)
	return "task-1", nil
}

func TestRun_PreservesInputOrder(t *testing.T) {
	e := NewEngine(newTestProcessor(), &recordingAdder{})
	inputs := []document.Input{
		{ID: "a", Fields: map[string]any{"title": "สาหร่าย"}},
		{ID: "b", Fields: map[string]any{"title": "no thai here"}},
		{ID: "c", Fields: map[string]any{"title": "สาหร่าย"}},
	}
	res := e.Run(context.Background(), inputs, Options{MaxConcurrent: 2, ChunkSize: 10})
	if len(res.Documents) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(res.Documents))
	}
	for i, id := range []string{"a", "b", "c"} {
		if res.Documents[i].ID != id {
			t.Errorf("index %d: got id %q, want %q", i, res.Documents[i].ID, id)
		}
	}
}

func TestRun_AccountingInvariant(t *testing.T) {
	e := NewEngine(newTestProcessor(), &recordingAdder{})
	inputs := []document.Input{
		{ID: "a", Fields: map[string]any{"title": "สาหร่าย"}},
		{ID: "", Fields: map[string]any{"title": "สาหร่าย"}},
		{ID: "c", Fields: map[string]any{"title": "no thai"}},
	}
	res := e.Run(context.Background(), inputs, Options{MaxConcurrent: 2, ChunkSize: 10})
	if res.Total != res.Completed+res.Failed+res.Skipped {
		t.Errorf("total=%d completed=%d failed=%d skipped=%d: accounting invariant violated", res.Total, res.Completed, res.Failed, res.Skipped)
	}
}

func TestRun_PushesCompletedAndSkippedInChunks(t *testing.T) {
	adder := &recordingAdder{}
	e := NewEngine(newTestProcessor(), adder)
	var inputs []document.Input
	for i := 0; i < 25; i++ {
		inputs = append(inputs, document.Input{ID: "doc", Fields: map[string]any{"title": "สาหร่าย"}})
	}
	res := e.Run(context.Background(), inputs, Options{MaxConcurrent: 4, ChunkSize: 10})
	if len(adder.calls) != 3 {
		t.Fatalf("expected 3 chunks (10+10+5), got %d", len(adder.calls))
	}
	if len(res.TaskIDs) != 3 {
		t.Errorf("expected 3 task ids, got %d", len(res.TaskIDs))
	}
}

func TestRun_CancellationSkipsRemainder(t *testing.T) {
	e := NewEngine(newTestProcessor(), &recordingAdder{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var inputs []document.Input
	for i := 0; i < 5; i++ {
		inputs = append(inputs, document.Input{ID: "doc", Fields: map[string]any{"title": "สาหร่าย"}})
	}
	res := e.Run(ctx, inputs, Options{MaxConcurrent: 2, ChunkSize: 10})
	if res.Skipped == 0 {
		t.Error("expected cancelled batch to mark remainder as skipped")
	}
}

type failingAdder struct {
	attempts int32
}

func (f *failingAdder) BulkAdd(_ context.Context, _ []document.ProcessedDocument) (string, error) {
	atomic.AddInt32(&f.attempts, 1)
	return "", errors.New("transient failure")
}

func TestRun_RetriesFailedChunkAndRecordsError(t *testing.T) {
	adder := &failingAdder{}
	e := NewEngine(newTestProcessor(), adder)
	inputs := []document.Input{{ID: "a", Fields: map[string]any{"title": "สาหร่าย"}}}

	res := e.Run(context.Background(), inputs, Options{
		MaxConcurrent: 1,
		ChunkSize:     10,
		Retry: sidecarerrors.RetryConfig{
			MaxRetries:   2,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond * 4,
			Multiplier:   2,
		},
	})
	if atomic.LoadInt32(&adder.attempts) != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", adder.attempts)
	}
	if len(res.Errors) == 0 {
		t.Error("expected a recorded error for the permanently failing chunk")
	}
}
