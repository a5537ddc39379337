// Package document implements the per-document processing pipeline:
// Thai-run detection and splitting, segmentation, token
// post-processing, and metadata/status bookkeeping for a single
// document on its way into the search engine.
package document

import (
	"context"
	"strings"
	"time"

	"github.com/thai-tokenizer/sidecar/internal/classify"
	"github.com/thai-tokenizer/sidecar/internal/segment"
	"github.com/thai-tokenizer/sidecar/internal/tokenpost"
)

// Status is the lifecycle state of a ProcessedDocument.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
	StatusSkipped    Status = "Skipped"
	StatusFailed     Status = "Failed"
)

// Metadata carries the processing facts attached to every document,
// regardless of outcome.
type Metadata struct {
	Language        string  `json:"language"`
	TokenizerVersion string `json:"tokenizer_version"`
	ProcessedAt      string  `json:"processed_at"`
	ElapsedMs        float64 `json:"elapsed_ms"`
	TokenCount       int     `json:"token_count"`
	ThaiDetected     bool    `json:"thai_detected"`
	MixedContent     bool    `json:"mixed_content"`
	Error            string  `json:"error,omitempty"`
	EngineLabel      string  `json:"engine_label,omitempty"`
}

// ProcessedDocument is the output of Process: original fields preserved
// verbatim, tokenized fields added alongside, plus metadata and status.
type ProcessedDocument struct {
	ID              string                 `json:"id"`
	OriginalFields  map[string]any         `json:"original_fields"`
	TokenizedFields map[string]string      `json:"tokenized_fields,omitempty"`
	Metadata        Metadata               `json:"metadata"`
	Status          Status                 `json:"status"`
}

// Input is the raw document handed to Process.
type Input struct {
	ID     string
	Fields map[string]any
}

// Options configures Process.
type Options struct {
	// ScanFields lists the fields concatenated to build the scanning
	// text; defaults to {"title", "content"} when empty.
	ScanFields []string

	// TokenizerVersion is stamped into every document's metadata.
	TokenizerVersion string

	// HandleCompounds is forwarded to the token post-processor.
	HandleCompounds bool

	// KnownLongWords is forwarded to the token post-processor's
	// compound-candidate allowlist.
	KnownLongWords map[string]struct{}

	// Now returns the current time; overridable for deterministic tests.
	Now func() time.Time
}

var defaultScanFields = []string{"title", "content"}

// Processor runs the per-document pipeline using a compound-aware
// segmenter and the engine lookup SegmentCompound needs for its second
// pass.
type Processor struct {
	segmenter  *segment.Segmenter
	others     map[string]segment.Backend
}

// NewProcessor binds a Processor to a segmenter and the named-engine
// lookup used for compound re-segmentation.
func NewProcessor(segmenter *segment.Segmenter, others map[string]segment.Backend) *Processor {
	return &Processor{segmenter: segmenter, others: others}
}

// Process runs the seven-step pipeline of spec.md §4.5. It never
// returns an error: any internal failure is captured as a Failed
// ProcessedDocument instead, per the "never throw" contract.
func (p *Processor) Process(ctx context.Context, in Input, opts Options) ProcessedDocument {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	start := now()

	doc := ProcessedDocument{
		ID:             in.ID,
		OriginalFields: in.Fields,
		Metadata: Metadata{
			TokenizerVersion: opts.TokenizerVersion,
		},
	}

	defer func() {
		if r := recover(); r != nil {
			doc.Status = StatusFailed
			doc.Metadata.Error = "internal error during document processing"
		}
	}()

	if strings.TrimSpace(in.ID) == "" {
		doc.Status = StatusFailed
		doc.Metadata.Error = "document id is missing or empty"
		return doc
	}

	scanFields := opts.ScanFields
	if len(scanFields) == 0 {
		scanFields = defaultScanFields
	}
	scanText := composeScanText(in.Fields, scanFields)

	doc.Metadata.ProcessedAt = now().Format(time.RFC3339)

	if !classify.IsThaiText(scanText) {
		doc.Metadata.ThaiDetected = false
		doc.Status = StatusSkipped
		doc.Metadata.ElapsedMs = elapsedMs(start, now)
		return doc
	}

	runs := splitThaiRuns(scanText)

	var processedRuns []string
	var thaiRuns []string
	tokenCount := 0
	mixed := false
	engineLabel := ""

	for _, run := range runs {
		if !run.isThai {
			continue
		}
		thaiRuns = append(thaiRuns, run.text)

		result, err := p.segmenter.SegmentCompound(ctx, run.text, segment.Options{}, p.others)
		if err != nil {
			doc.Status = StatusFailed
			doc.Metadata.Error = "segmentation failed: " + err.Error()
			return doc
		}
		engineLabel = result.EngineLabel

		processed := tokenpost.ProcessStream(result.Tokens, tokenpost.Options{
			HandleCompounds: opts.HandleCompounds,
			KnownLongWords:  opts.KnownLongWords,
		})

		var sb strings.Builder
		for _, pt := range processed {
			sb.WriteString(pt.Processed)
			if pt.ContentType == classify.Mixed {
				mixed = true
			}
		}
		processedRuns = append(processedRuns, sb.String())
		tokenCount += len(result.Tokens)
	}

	doc.TokenizedFields = map[string]string{
		"tokenized_content": strings.Join(processedRuns, " "),
		"thai_content":      strings.Join(thaiRuns, ""),
	}

	doc.Metadata.ThaiDetected = true
	doc.Metadata.MixedContent = mixed
	doc.Metadata.TokenCount = tokenCount
	doc.Metadata.EngineLabel = engineLabel
	doc.Metadata.Language = "th"
	doc.Metadata.ElapsedMs = elapsedMs(start, now)
	doc.Status = StatusCompleted

	return doc
}

func elapsedMs(start time.Time, now func() time.Time) float64 {
	return float64(now().Sub(start)) / float64(time.Millisecond)
}

// composeScanText concatenates the designated fields (in the given
// order) with a space separator, coercing non-string field values to
// their default string form.
func composeScanText(fields map[string]any, scanFields []string) string {
	var parts []string
	for _, name := range scanFields {
		v, ok := fields[name]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			if s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

type run struct {
	text   string
	isThai bool
}

// splitThaiRuns splits text into maximal runs of Thai code points and
// maximal runs of everything else, preserving order.
func splitThaiRuns(text string) []run {
	var runs []run
	var current strings.Builder
	currentIsThai := false
	first := true

	flush := func() {
		if current.Len() > 0 {
			runs = append(runs, run{text: current.String(), isThai: currentIsThai})
			current.Reset()
		}
	}

	for _, r := range text {
		isThai := classify.IsThaiRune(r)
		if first {
			currentIsThai = isThai
			first = false
		}
		if isThai != currentIsThai {
			flush()
			currentIsThai = isThai
		}
		current.WriteRune(r)
	}
	flush()

	return runs
}
