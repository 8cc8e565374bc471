package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Planter handles plant requests.
type Planter interface {
	Handle(ctx context.Context, req domain.PlantRequest) domain.SubmissionOutcome
}

// Requests reads and updates stored tree requests.
type Requests interface {
	List(ctx context.Context) ([]domain.TreeRequest, error)
	MarkPlanted(ctx context.Context, id int64, confirmed bool) (domain.TreeRequest, error)
}

// Server exposes the tree-request API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	planter    Planter
	requests   Requests
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer wires routes, CORS, and request logging.
func NewServer(addr string, planter Planter, requests Requests, ready ReadinessChecker, allowedOrigins []string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		planter:  planter,
		requests: requests,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}

	mux.HandleFunc("POST /tree-requests", s.handlePlant)
	mux.HandleFunc("POST /plant-tree", s.handlePlant)
	mux.HandleFunc("GET /tree-requests", s.handleList)
	mux.HandleFunc("PATCH /tree-requests/{id}/planted", s.handleConfirmPlanted)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      withRequestID(withAccessLog(c.Handler(mux), logger)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Minute, // a 311 submission drives a real browser session
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
