package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thai-tokenizer/sidecar/internal/batch"
	"github.com/thai-tokenizer/sidecar/internal/config"
	"github.com/thai-tokenizer/sidecar/internal/document"
	"github.com/thai-tokenizer/sidecar/internal/output"
	"github.com/thai-tokenizer/sidecar/internal/store"
)

func batchRunRecordFrom(r batch.Result) store.BatchRunRecord {
	return store.BatchRunRecord{
		Total:      r.Total,
		Completed:  r.Completed,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
		ElapsedMs:  r.ElapsedMs,
		TaskIDs:    r.TaskIDs,
		FinishedAt: time.Now(),
	}
}

func newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <file.jsonl>",
		Short: "Tokenize and index a batch of documents from a newline-delimited JSON file",
		Long: `Reads newline-delimited JSON documents ({"id": "...", "<field>": "..."}
per line) from the given file, runs them through the tokenization
pipeline in bounded-concurrency batches, and pushes completed
documents to the search engine.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocuments(cmd.Context(), cmd, args[0])
		},
	}

	return cmd
}

func readJSONLDocuments(filePath string) ([]map[string]any, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open documents file: %w", err)
	}
	defer f.Close()

	var docs []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, fmt.Errorf("parse line %d: %w", lineNo, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read documents file: %w", err)
	}
	return docs, nil
}

func runDocuments(ctx context.Context, cmd *cobra.Command, filePath string) error {
	out := output.New(cmd.OutOrStdout())

	raw, err := readJSONLDocuments(filePath)
	if err != nil {
		return err
	}

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := buildApp(cfg)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = a.Close() }()

	inputs := make([]document.Input, 0, len(raw))
	for _, d := range raw {
		id, _ := d["id"].(string)
		inputs = append(inputs, document.Input{ID: id, Fields: d})
	}

	result := a.batchEngine.Run(ctx, inputs, a.batchOptions())

	if _, err := a.store.RecordBatchRun(batchRunRecordFrom(result)); err != nil {
		out.Warningf("failed to record batch run: %v", err)
	}

	out.Successf("total=%d completed=%d failed=%d skipped=%d elapsed=%.1fms",
		result.Total, result.Completed, result.Failed, result.Skipped, result.ElapsedMs)
	for _, e := range result.Errors {
		out.Errorf("document %s (index %d): %s", e.ID, e.Index, e.Message)
	}
	return nil
}
