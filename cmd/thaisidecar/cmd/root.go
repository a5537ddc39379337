// Package cmd provides the CLI commands for the Thai tokenization sidecar.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thai-tokenizer/sidecar/internal/logging"
	"github.com/thai-tokenizer/sidecar/pkg/version"
)

// UsageError wraps an error that cobra raised before a command body ever
// ran (an unknown flag, a missing required argument). main distinguishes
// it from a runtime failure so it can exit 2 instead of 1, per the CLI's
// exit code contract.
type UsageError struct {
	err error
}

func (e *UsageError) Error() string { return e.err.Error() }
func (e *UsageError) Unwrap() error { return e.err }

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the thaisidecar CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thaisidecar",
		Short: "Thai-aware tokenization and indexing sidecar",
		Long: `thaisidecar segments Thai text into words, handles compound words and
mixed Thai/Latin content, and feeds tokenized documents into a
Meilisearch-shaped search engine.

Run 'thaisidecar serve' to start the HTTP API.`,
		Version: version.Version,
		// Left false: flag/argument validation errors should still print
		// usage. startLogging (our PersistentPreRunE) flips this to true
		// once a command's args have actually validated, so a failure from
		// here on is a runtime error, not a usage error.
		SilenceUsage:  false,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("thaisidecar version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.thaisidecar/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTokenizeCmd())
	cmd.AddCommand(newTokenizeQueryCmd())
	cmd.AddCommand(newDocumentsCmd())
	cmd.AddCommand(newSettingsCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(cmd *cobra.Command, _ []string) error {
	// cobra runs ParseFlags/ValidateArgs before PersistentPreRunE, so
	// reaching here means the invocation was well-formed; any error from
	// this point on belongs to the command body, not to usage.
	cmd.SilenceUsage = true

	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command. An error raised before the invoked
// command's PersistentPreRunE ran (a usage error) is wrapped in
// *UsageError so main can map it to exit code 2 instead of 1.
func Execute() error {
	root := NewRootCmd()
	invoked, err := root.ExecuteC()
	if err == nil {
		return nil
	}
	if invoked != nil && !invoked.SilenceUsage {
		return &UsageError{err: err}
	}
	return err
}
