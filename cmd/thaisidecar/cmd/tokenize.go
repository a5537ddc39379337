package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thai-tokenizer/sidecar/internal/config"
	"github.com/thai-tokenizer/sidecar/internal/output"
	"github.com/thai-tokenizer/sidecar/internal/segment"
)

func newTokenizeCmd() *cobra.Command {
	var compound bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "tokenize <text>",
		Short: "Tokenize Thai or mixed Thai/Latin text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenize(cmd.Context(), cmd, args[0], compound, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&compound, "compound", false, "Run the compound-word segmentation pass")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runTokenize(ctx context.Context, cmd *cobra.Command, text string, compound, jsonOutput bool) error {
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

	var result *segment.SegmentationResult
	if compound {
		result, err = engines.Segmenter.SegmentCompound(ctx, text, segment.Options{}, engines.ByName)
	} else {
		result, err = engines.Segmenter.Segment(ctx, text, segment.Options{})
	}
	if err != nil {
		return fmt.Errorf("tokenize: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	out.Statusf("", "engine: %s (fallback used: %v)", result.EngineLabel, result.FallbackUsed)
	for i, tok := range result.Tokens {
		out.Statusf("", "%d. %q [%s]", i+1, tok.Surface, tok.ContentType)
	}
	return nil
}
