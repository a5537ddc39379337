package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thai-tokenizer/sidecar/internal/config"
	"github.com/thai-tokenizer/sidecar/internal/output"
	"github.com/thai-tokenizer/sidecar/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Build, validate, export, and import search-engine settings",
	}

	cmd.AddCommand(newSettingsBuildCmd())
	cmd.AddCommand(newSettingsValidateCmd())
	cmd.AddCommand(newSettingsExportCmd())
	cmd.AddCommand(newSettingsImportCmd())

	return cmd
}

func newSettingsBuildCmd() *cobra.Command {
	var push bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the default settings bundle, optionally pushing it to the search engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSettingsBuild(cmd.Context(), cmd, push)
		},
	}

	cmd.Flags().BoolVar(&push, "push", false, "Validate and push the built settings to the search engine")

	return cmd
}

func runSettingsBuild(ctx context.Context, cmd *cobra.Command, push bool) error {
	out := output.New(cmd.OutOrStdout())

	s := settings.NewBuilder().Build()
	data, err := settings.Export(s)
	if err != nil {
		return fmt.Errorf("export settings: %w", err)
	}
	if _, err := cmd.OutOrStdout().Write(append(data, '\n')); err != nil {
		return err
	}

	if !push {
		return nil
	}

	if errs := settings.Validate(s); len(errs) > 0 {
		for _, e := range errs {
			out.Errorf("%v", e)
		}
		return fmt.Errorf("settings failed validation: %d error(s)", len(errs))
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

	taskUID, err := a.searchClient.ReplaceSettings(ctx, s)
	if err != nil {
		return fmt.Errorf("push settings: %w", err)
	}

	if _, err := a.store.SaveSettingsSnapshot(data); err != nil {
		out.Warningf("failed to save settings snapshot: %v", err)
	}

	out.Successf("settings pushed, task uid %d", taskUID)
	return nil
}

func newSettingsValidateCmd() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a settings bundle (the default bundle, or one read from --file)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSettingsValidate(cmd, filePath)
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to a settings JSON file (defaults to the built-in bundle)")

	return cmd
}

func runSettingsValidate(cmd *cobra.Command, filePath string) error {
	out := output.New(cmd.OutOrStdout())

	s, err := loadOrBuildSettings(filePath)
	if err != nil {
		return err
	}

	errs := settings.Validate(s)
	if len(errs) == 0 {
		out.Success("settings are valid")
		return nil
	}

	for _, e := range errs {
		out.Errorf("%v", e)
	}
	return fmt.Errorf("settings failed validation: %d error(s)", len(errs))
}

func newSettingsExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the default settings bundle as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSettingsExport(cmd, outPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to this path instead of stdout")

	return cmd
}

func runSettingsExport(cmd *cobra.Command, outPath string) error {
	data, err := settings.Export(settings.NewBuilder().Build())
	if err != nil {
		return fmt.Errorf("export settings: %w", err)
	}
	data = append(data, '\n')

	if outPath == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

func newSettingsImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Validate a settings JSON file exported with 'settings export'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsImport(cmd, args[0])
		},
	}
	return cmd
}

func runSettingsImport(cmd *cobra.Command, filePath string) error {
	out := output.New(cmd.OutOrStdout())

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}

	s, err := settings.Import(data)
	if err != nil {
		return fmt.Errorf("parse settings file: %w", err)
	}

	if errs := settings.Validate(s); len(errs) > 0 {
		for _, e := range errs {
			out.Errorf("%v", e)
		}
		return fmt.Errorf("imported settings failed validation: %d error(s)", len(errs))
	}

	out.Successf("imported settings from %s are valid", filePath)
	return nil
}

func loadOrBuildSettings(filePath string) (settings.Settings, error) {
	if filePath == "" {
		return settings.NewBuilder().Build(), nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	return settings.Import(data)
}
