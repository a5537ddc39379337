package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thai-tokenizer/sidecar/internal/config"
	"github.com/thai-tokenizer/sidecar/internal/output"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the configured search engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealth(cmd.Context(), cmd)
		},
	}
}

func runHealth(ctx context.Context, cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

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

	resp, err := a.searchClient.Health(ctx)
	if err != nil {
		out.Errorf("search engine unreachable: %v", err)
		return err
	}

	out.Successf("search engine status: %s", resp.Status)
	return nil
}
