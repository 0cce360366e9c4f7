package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reelscribe/reelscribe/internal/config"
	"github.com/reelscribe/reelscribe/internal/pipeline"
	"github.com/reelscribe/reelscribe/internal/storage/sqlite"
	"github.com/reelscribe/reelscribe/internal/websocket"
	"github.com/reelscribe/reelscribe/pkg/logger"
)

// NewRouter creates the HTTP router with all API routes
func NewRouter(
	pipelineService *pipeline.Service,
	cfg *config.Config,
	log *logger.Logger,
	wsServer *websocket.Server,
	transcriptionStorage *sqlite.TranscriptionStorage,
) http.Handler {
	handler := NewHandler(pipelineService, cfg, log, wsServer, transcriptionStorage)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware(cfg.Server.CORSAllowedOrigins))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.GetHealth)
		r.Get("/config", handler.GetConfig)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", handler.SubmitTranscription)
			r.Get("/", handler.GetJobs)
			r.Get("/{id}", handler.GetJobByID)
		})

		r.Route("/transcriptions", func(r chi.Router) {
			r.Get("/", handler.GetAllTranscriptions)
			r.Get("/job/{id}", handler.GetTranscriptionByJobID)
			r.Get("/source/{hash}", handler.GetTranscriptionsBySource)
		})

		r.Get("/ws", handler.HandleWebSocket)
	})

	return r
}

// corsMiddleware applies the configured CORS policy
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
