package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thai-tokenizer/sidecar/internal/config"
	"github.com/thai-tokenizer/sidecar/internal/output"
	"github.com/thai-tokenizer/sidecar/internal/query"
	"github.com/thai-tokenizer/sidecar/internal/segment"
)

func newTokenizeQueryCmd() *cobra.Command {
	var jsonOutput bool
	var allowPartial bool

	cmd := &cobra.Command{
		Use:   "tokenize-query <query>",
		Short: "Classify and tokenize a search query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenizeQuery(cmd.Context(), cmd, args[0], allowPartial, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&allowPartial, "allow-partial", true, "Allow partial-match variant expansion")

	return cmd
}

func runTokenizeQuery(ctx context.Context, cmd *cobra.Command, q string, allowPartial, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	engines, err := segment.BuildFromConfig(cfg.Segmenter)
	if err != nil {
		return fmt.Errorf("build segmenter: %w", err)
	}

	proc := query.NewProcessor(engines.Segmenter, cfg.Query.CacheSize)
	result, err := proc.Process(ctx, q, query.Options{ExpandVariants: true, AllowPartialMatch: allowPartial})
	if err != nil {
		return fmt.Errorf("tokenize query: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	out.Statusf("", "thai ratio: %.2f, tokens: %d", result.Metadata.ThaiRatio, result.Metadata.TokenCount)
	for _, tok := range result.Tokens {
		out.Statusf("", "%q -> %s (boost %.2f)", tok.Original, tok.Kind, tok.Boost)
	}
	if len(result.Completions) > 0 {
		out.Status("", "completions:")
		for _, c := range result.Completions {
			out.Status("", "  "+c)
		}
	}
	return nil
}
