package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pdfconvert/internal/config"
	"pdfconvert/internal/converter"
	"pdfconvert/internal/pipeline"
	"pdfconvert/internal/types"
	"pdfconvert/internal/validator"
	"pdfconvert/internal/webserver"
	"pdfconvert/internal/workspace"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the conversion web service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}

	c.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides config)")

	return c
}

// newOrchestrator builds the conversion pipeline with the MuPDF engine
func newOrchestrator(cfg config.Config) (*pipeline.Orchestrator, *workspace.Manager, error) {
	ws, err := workspace.New(cfg.Storage.UploadDir, cfg.Storage.ConvertedDir)
	if err != nil {
		return nil, nil, err
	}

	src := converter.FitzSource{}
	v := validator.New(cfg.Limits.MaxUploadSize, validator.WithPageCounter(src))

	var converters []converter.Converter

	for _, mode := range []types.Mode{types.ModeDocx, types.ModeSpreadsheet} {
		c, err := converter.New(mode, src)
		if err != nil {
			return nil, nil, err
		}

		converters = append(converters, c)
	}

	return pipeline.New(v, ws, converters...), ws, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	if cfg.InsecureSecret() {
		slog.Warn("Using the built-in session secret; set SESSION_SECRET in production")
	}

	o, ws, err := newOrchestrator(cfg)
	if err != nil {
		return fmt.Errorf("failed to prepare workspace: %w", err)
	}

	srv, err := webserver.NewServer(cfg, o, ws)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go ws.RunSweeper(ctx, cfg.Storage.SweepInterval, cfg.Storage.Retention)

	errCh := make(chan error, 1)

	go func() {
		slog.Info("Server started", "addr", cfg.Server.Addr,
			"upload_dir", ws.UploadDir(), "converted_dir", ws.ConvertedDir(),
			"max_upload_size", cfg.Limits.MaxUploadSize)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server startup error: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
