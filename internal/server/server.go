// Package server exposes the conversation pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solenne/wayfarer/internal/assistant"
	"github.com/solenne/wayfarer/internal/config"
	"github.com/solenne/wayfarer/internal/domain"
)

const ReadTimeout = 30 * time.Second

// Assistant is the orchestration surface the handlers depend on.
type Assistant interface {
	StartConversation(ownerID string) assistant.StartResult
	Chat(ctx context.Context, convID, userMessage string) (assistant.TurnResult, error)
	History(convID string) (assistant.HistoryResult, error)
	Reset(convID string) error
	Delete(convID string) bool
	ListConversations(ownerID string) []domain.ConversationSummary
	Health(ctx context.Context) assistant.HealthStatus
}

type Server struct {
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

func NewServer(cfg *config.Config, svc Assistant) *Server {
	router := chi.NewRouter()

	router.Use(Recovery)
	router.Use(Logger)
	router.Use(Metrics)
	router.Use(CORS)

	healthH := NewHealthHandler(svc)
	router.Get("/health", healthH.Health)
	router.Handle("/metrics", promhttp.Handler())

	convH := NewConversationHandler(svc)
	router.Post("/conversations", convH.Create)
	router.Get("/conversations", convH.List)
	router.Get("/conversations/{id}", convH.Get)
	router.Post("/conversations/{id}/messages", convH.SendMessage)
	router.Post("/conversations/{id}/reset", convH.Reset)
	router.Delete("/conversations/{id}", convH.Delete)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, "Not found", fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path), http.StatusNotFound)
	})

	return &Server{
		cfg:    cfg,
		router: router,
		server: &http.Server{
			Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:     router,
			ReadTimeout: ReadTimeout,
		},
	}
}

// Router exposes the mux for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
