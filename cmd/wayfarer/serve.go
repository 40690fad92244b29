package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/solenne/wayfarer/internal/assistant"
	"github.com/solenne/wayfarer/internal/external"
	"github.com/solenne/wayfarer/internal/llm"
	"github.com/solenne/wayfarer/internal/metrics"
	"github.com/solenne/wayfarer/internal/server"
	"github.com/solenne/wayfarer/internal/store"
	"github.com/solenne/wayfarer/internal/tracing"
	"github.com/solenne/wayfarer/shared/httpclient"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the Wayfarer HTTP API server.

The server provides REST endpoints for conversation management and chat
turns grounded in live weather and country data.

Required configuration:
  - Ollama endpoint (WAYFARER_OLLAMA_URL)

Optional:
  - OpenWeatherMap key (WAYFARER_OPENWEATHER_API_KEY); without it,
    weather augmentation is disabled and turns proceed without it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	slog.Info("starting wayfarer api server",
		"addr", cfg.Server.Host, "port", cfg.Server.Port,
		"llm", cfg.LLM.BaseURL, "model", cfg.LLM.Model)

	shutdown, err := tracing.InitTracer("wayfarer-api")
	if err != nil {
		slog.Warn("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				slog.Error("tracer shutdown failed", "error", err)
			}
		}()
	}

	st := store.New(store.WithMaxHistory(cfg.Conversations.MaxHistory))

	llmClient := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.Model,
		llm.WithHTTPClient(httpclient.New(httpclient.WithTimeout(cfg.LLM.Timeout))))

	dataClient := external.NewClient(cfg.External.WeatherAPIKey,
		external.WithHTTPClient(httpclient.New(httpclient.WithTimeout(cfg.External.LookupTimeout))))
	if cfg.External.WeatherAPIKey == "" {
		slog.Warn("weather API key not configured, weather augmentation disabled")
	}

	svc := assistant.New(st, llmClient, dataClient,
		assistant.WithSamplingOptions(llm.Options{
			Temperature: cfg.LLM.Temperature,
			TopP:        cfg.LLM.TopP,
			MaxTokens:   cfg.LLM.MaxTokens,
		}))

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Conversations.SweepSpec, func() {
		removed := st.SweepExpired(cfg.Conversations.TTL)
		if removed > 0 {
			metrics.SweptConversationsTotal.Add(float64(removed))
			slog.Info("swept expired conversations", "removed", removed)
		}
	}); err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := server.NewServer(cfg, svc)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
