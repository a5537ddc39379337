// Package batch fans a sequence of documents out over bounded-concurrency
// per-document processing, chunks completed work into bulk-add calls to
// the search engine, and aggregates the results.
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/thai-tokenizer/sidecar/internal/document"
	sidecarerrors "github.com/thai-tokenizer/sidecar/internal/errors"
)

// BulkAdder is the outbound capability a batch needs: push one chunk of
// completed/skipped documents to the search engine and report a task id
// (if the engine is async) or an error.
type BulkAdder interface {
	BulkAdd(ctx context.Context, docs []document.ProcessedDocument) (taskID string, err error)
}

// ItemError records a single document's failure. Index is the
// document's position in the input for per-document pipeline failures;
// errors from a failed bulk-add chunk carry only the document ID and
// leave Index at 0.
type ItemError struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Result is the aggregate outcome of a Run call.
type Result struct {
	Total     int                          `json:"total"`
	Completed int                          `json:"completed"`
	Failed    int                          `json:"failed"`
	Skipped   int                          `json:"skipped"`
	ElapsedMs float64                      `json:"elapsed_ms"`
	Documents []document.ProcessedDocument `json:"documents"`
	Errors    []ItemError                  `json:"errors"`
	TaskIDs   []string                     `json:"task_ids,omitempty"`
}

// Options configures a single Run call.
type Options struct {
	// MaxConcurrent bounds parallel per-document processing.
	MaxConcurrent int

	// ChunkSize bounds how many documents go into a single bulk-add call.
	ChunkSize int

	// Retry configures the per-chunk exponential backoff applied to
	// transient search-engine failures.
	Retry sidecarerrors.RetryConfig

	DocumentOptions document.Options
}

// Engine runs the bounded-concurrency batch pipeline of spec.md §4.6.
type Engine struct {
	processor *document.Processor
	adder     BulkAdder
}

// NewEngine binds an Engine to the document processor and the outbound
// bulk-add capability.
func NewEngine(processor *document.Processor, adder BulkAdder) *Engine {
	return &Engine{processor: processor, adder: adder}
}

// Run processes every input document under a semaphore of weight
// opts.MaxConcurrent, coordinated through an errgroup, preserving input
// order in Result.Documents, then chunks completed+skipped documents
// into opts.ChunkSize groups and bulk-adds each chunk with retry.
//
// Cancellation: if ctx is cancelled mid-run, in-flight per-document work
// is allowed to finish; no new per-document work starts; any input not
// yet started is marked Skipped in the returned partial Result.
func (e *Engine) Run(ctx context.Context, inputs []document.Input, opts Options) Result {
	start := time.Now()

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}

	docs := make([]document.ProcessedDocument, len(inputs))
	sem := semaphore.NewWeighted(int64(maxConcurrent))
	g, gctx := errgroup.WithContext(ctx)

	for i, in := range inputs {
		idx, input := i, in

		if ctx.Err() != nil {
			docs[idx] = skippedDueToCancellation(input)
			continue
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			docs[idx] = skippedDueToCancellation(input)
			continue
		}

		g.Go(func() error {
			defer sem.Release(1)
			docs[idx] = e.processor.Process(ctx, input, opts.DocumentOptions)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{
		Total:     len(inputs),
		Documents: docs,
	}

	var toPush []document.ProcessedDocument
	for i, d := range docs {
		switch d.Status {
		case document.StatusCompleted:
			result.Completed++
			toPush = append(toPush, d)
		case document.StatusSkipped:
			result.Skipped++
			toPush = append(toPush, d)
		case document.StatusFailed:
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Index: i, ID: d.ID, Message: d.Metadata.Error})
		}
	}

	if e.adder != nil && len(toPush) > 0 {
		e.pushChunks(ctx, toPush, opts, &result)
	}

	result.ElapsedMs = float64(time.Since(start)) / float64(time.Millisecond)
	return result
}

func (e *Engine) pushChunks(ctx context.Context, docs []document.ProcessedDocument, opts Options, result *Result) {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 100
	}
	retryCfg := opts.Retry
	if retryCfg.MaxRetries == 0 && retryCfg.InitialDelay == 0 {
		retryCfg = sidecarerrors.DefaultRetryConfig()
	}

	for start := 0; start < len(docs); start += chunkSize {
		end := start + chunkSize
		if end > len(docs) {
			end = len(docs)
		}
		chunk := docs[start:end]

		taskID, err := sidecarerrors.RetryWithResult(ctx, retryCfg, func() (string, error) {
			return e.adder.BulkAdd(ctx, chunk)
		})
		if err != nil {
			for _, d := range chunk {
				result.Errors = append(result.Errors, ItemError{ID: d.ID, Message: "bulk add failed: " + err.Error()})
			}
			continue
		}
		if taskID != "" {
			result.TaskIDs = append(result.TaskIDs, taskID)
		}
	}
}

func skippedDueToCancellation(in document.Input) document.ProcessedDocument {
	return document.ProcessedDocument{
		ID:             in.ID,
		OriginalFields: in.Fields,
		Status:         document.StatusSkipped,
		Metadata: document.Metadata{
			Error: "skipped: batch cancelled before this document started",
		},
	}
}
