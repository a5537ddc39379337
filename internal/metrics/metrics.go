// Package metrics tracks a small set of process counters for the
// /metrics endpoint. It deliberately does not pull in a metrics
// library: the surface is five plain counters, so sync/atomic plus a
// text/template-free manual dump is the whole job.
package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Counters holds the sidecar's operational counters. Zero value is
// ready to use.
type Counters struct {
	documentsProcessed atomic.Int64
	batchesRun         atomic.Int64
	segmenterFallbacks atomic.Int64
	queryCacheHits     atomic.Int64
	queryCacheMisses   atomic.Int64
}

// AddDocumentsProcessed records n documents completing the pipeline
// (successful or not; callers distinguish via the batch result).
func (c *Counters) AddDocumentsProcessed(n int) {
	c.documentsProcessed.Add(int64(n))
}

// IncBatchesRun records one call to the batch engine.
func (c *Counters) IncBatchesRun() {
	c.batchesRun.Add(1)
}

// IncSegmenterFallback records one segmentation call that fell back
// off its primary backend.
func (c *Counters) IncSegmenterFallback() {
	c.segmenterFallbacks.Add(1)
}

// RecordQueryCache records whether a query.Processor.Process call was
// served from cache.
func (c *Counters) RecordQueryCache(hit bool) {
	if hit {
		c.queryCacheHits.Add(1)
		return
	}
	c.queryCacheMisses.Add(1)
}

// WriteText dumps the counters as plain text/plain lines, one metric
// per line ("name value"), the way an operator would grep or
// copy-paste into a dashboard without a scrape format.
func (c *Counters) WriteText(w io.Writer) error {
	hits := c.queryCacheHits.Load()
	misses := c.queryCacheMisses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	lines := []struct {
		name  string
		value string
	}{
		{"documents_processed_total", fmt.Sprintf("%d", c.documentsProcessed.Load())},
		{"batches_run_total", fmt.Sprintf("%d", c.batchesRun.Load())},
		{"segmenter_fallback_total", fmt.Sprintf("%d", c.segmenterFallbacks.Load())},
		{"query_cache_hit_total", fmt.Sprintf("%d", hits)},
		{"query_cache_miss_total", fmt.Sprintf("%d", misses)},
		{"query_cache_hit_rate", fmt.Sprintf("%.4f", hitRate)},
	}

	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%s %s\n", l.name, l.value); err != nil {
			return err
		}
	}
	return nil
}
