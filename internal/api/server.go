package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/morsecast/morsecast/internal/api/middleware"
	"github.com/morsecast/morsecast/internal/config"
	"github.com/morsecast/morsecast/internal/database"
	"github.com/morsecast/morsecast/internal/pipeline"
)

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router    *chi.Mux
	pipeline  *pipeline.Service
	clips     database.ClipRepository
	cfg       *config.Config
	metrics   http.Handler
	limiter   *middleware.ClientRateLimiter
	jwtSecret []byte
	startTime time.Time
}

// NewServer creates the HTTP handler with all routes mounted. metrics may be
// nil to leave /metrics unmounted. Background work such as rate limiter
// cleanup stops when ctx is done.
func NewServer(ctx context.Context, cfg *config.Config, svc *pipeline.Service, clips database.ClipRepository, metrics http.Handler) (*Server, error) {
	secret, err := cfg.JWTSecretBytes()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    chi.NewRouter(),
		pipeline:  svc,
		clips:     clips,
		cfg:       cfg,
		metrics:   metrics,
		limiter:   middleware.NewClientRateLimiter(ctx, middleware.NewRateLimitConfig(cfg.RateLimit)),
		jwtSecret: secret,
		startTime: time.Now(),
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes configures all middleware and mounts all route groups.
func (s *Server) routes() {
	r := s.router

	// Global middleware stack.
	r.Use(chimw.RequestID)
	// Forwarding headers are client-controlled unless a proxy rewrites them.
	if s.cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.StructuredLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecurityHeaders(s.cfg.TLSEnabled()))
	r.Use(middleware.CORS(middleware.ParseCORSOrigins(s.cfg.CORSOrigins)))

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated routes.
		r.Get("/health", s.handleHealth)
		r.Get("/alphabet", s.handleAlphabet)

		// Authenticated when a jwt secret is configured, always rate limited.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.jwtSecret))
			r.Use(middleware.RateLimit(s.limiter))

			r.Post("/translate", s.handleTranslate)
			r.Post("/synthesize", s.handleSynthesize)

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", s.handleCreateMessage)
				r.Get("/", s.handleListMessages)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetMessage)
					r.Get("/audio", s.handleGetMessageAudio)
					r.Delete("/", s.handleDeleteMessage)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	slog.Info("api routes mounted", "auth", s.jwtSecret != nil, "metrics", s.metrics != nil)
}

// healthResponse is the shape returned by GET /health.
type healthResponse struct {
	Status    string `json:"status"`
	UptimeSec int64  `json:"uptime_sec"`
}

// handleHealth returns basic health status. Unauthenticated.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		UptimeSec: int64(time.Since(s.startTime).Seconds()),
	})
}
