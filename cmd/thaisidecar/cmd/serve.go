package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thai-tokenizer/sidecar/internal/config"
	"github.com/thai-tokenizer/sidecar/internal/httpapi"
	"github.com/thai-tokenizer/sidecar/internal/output"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the sidecar's HTTP API, exposing /api/v1/tokenize,
/api/v1/tokenize/query, /api/v1/documents, /api/v1/search/enhance and
/health.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host to bind (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to bind (overrides config)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, host string, port int) error {
	out := output.New(cmd.OutOrStdout())

	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	a, err := buildApp(cfg)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = a.Close() }()

	server := httpapi.NewServer(a.engines, a.batchEngine, a.queryProc, a.enhancer, a.searchClient)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: server}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	out.Successf("listening on %s", addr)
	slog.Info("server_started", slog.String("addr", addr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		out.Status("", "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
