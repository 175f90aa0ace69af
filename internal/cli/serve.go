package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/antoniostano/aria/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web UI and the session API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := app.Build(cfg, app.BuildOptions{SpeechOutput: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	logger := b.Logger

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           b.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	b.Sessions.StartJanitor(ctx, 5*time.Second)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", cfg.BindAddr),
			slog.String("speech", b.Speech.Detail),
			slog.Bool("live_preset", cfg.OpenAIAPIKey != ""),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("listen error: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.String("error", err.Error()))
		_ = httpServer.Close()
	}
	logger.Info("shutdown complete")
	return nil
}
