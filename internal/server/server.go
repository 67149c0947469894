// Package server provides the HTTP REST API for the test writer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/test-writer/internal/agents"
	"github.com/jonathan/test-writer/internal/config"
	"github.com/jonathan/test-writer/internal/db"
	"github.com/jonathan/test-writer/internal/extraction"
	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/schemas"
	"github.com/jonathan/test-writer/internal/server/middleware"
	"github.com/jonathan/test-writer/internal/server/ratelimit"
	"github.com/jonathan/test-writer/internal/storage"
)

// DocumentStore is the document persistence the handlers need. *db.DB
// implements it; db.MemoryDocumentStore backs database-less dev mode.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *db.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*db.Document, error)
	ListDocuments(ctx context.Context, filters db.DocumentFilters) ([]db.Document, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	SaveDocumentContent(ctx context.Context, content *db.DocumentContent) error
	GetDocumentContent(ctx context.Context, documentID uuid.UUID) (*db.DocumentContent, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	docs        DocumentStore
	database    *db.DB // nil without DATABASE_URL; run history and users need it
	store       storage.Store
	extractor   *extraction.Extractor
	coordinator *pipeline.Coordinator
	llmClient   llm.Client
	useBrowser  bool
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler
	authEnabled bool
}

// Config holds server configuration
type Config struct {
	Port          int
	MaxConcurrent int64 // simultaneously executing pipelines
	UseBrowser    bool  // headless-browser fallback for URL ingestion
}

// Deps are the server's external collaborators, built by the caller.
// Database is optional: without it documents live in memory and neither
// run history nor user accounts are available. Storage defaults to an
// in-memory blob store.
type Deps struct {
	Database *db.DB
	Storage  storage.Store
	LLM      llm.Client
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.LLM == nil {
		return nil, fmt.Errorf("llm client is required")
	}

	store := deps.Storage
	if store == nil {
		store = storage.NewMemoryStore()
	}

	var docs DocumentStore
	if deps.Database != nil {
		docs = deps.Database
	} else {
		docs = db.NewMemoryDocumentStore()
	}

	s := &Server{
		docs:       docs,
		database:   deps.Database,
		store:      store,
		llmClient:  deps.LLM,
		useBrowser: cfg.UseBrowser,
	}
	s.extractor = extraction.New(store, deps.LLM)

	// Pipeline coordinator with the full agent roster. Stage outputs are
	// re-validated at the coordinator boundary before the next stage
	// consumes them.
	opts := pipeline.Options{
		MaxConcurrent: cfg.MaxConcurrent,
		Validator:     schemas.NewStageValidator(),
	}
	if deps.Database != nil {
		opts.Recorder = db.NewRecorder(deps.Database)
	}
	coordinator, err := pipeline.NewCoordinator(
		docResolver{docs: docs},
		agents.Roster(deps.LLM, s.extractor, docs),
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build coordinator: %w", err)
	}
	s.coordinator = coordinator

	// Initialize rate limiter
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	// Authentication is optional: it needs a database for user records and
	// a JWT secret for tokens. Without either the API runs open (dev mode).
	if deps.Database != nil && os.Getenv("JWT_SECRET") != "" {
		passwordConfig, err := config.NewPasswordConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create password config: %w", err)
		}
		s.userService = NewUserService(deps.Database, passwordConfig)

		jwtConfig, err := config.NewJWTConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT config: %w", err)
		}
		s.jwtService = NewJWTService(jwtConfig)
		s.authHandler = NewAuthHandler(s.userService, s.jwtService)
		s.authEnabled = true
	} else {
		log.Printf("Auth disabled: set DATABASE_URL and JWT_SECRET to enable user accounts")
	}

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Document endpoints
	mux.Handle("POST /api/v1/documents", s.protected(s.handleUploadDocument))
	mux.Handle("POST /api/v1/documents/from-url", s.protected(s.handleIngestURL))
	mux.Handle("GET /api/v1/documents", s.protected(s.handleListDocuments))
	mux.Handle("GET /api/v1/documents/{id}", s.protected(s.handleGetDocument))
	mux.Handle("GET /api/v1/documents/{id}/content", s.protected(s.handleGetDocumentContent))
	mux.Handle("DELETE /api/v1/documents/{id}", s.protected(s.handleDeleteDocument))

	// Pipeline endpoints
	mux.Handle("POST /api/v1/pipelines", s.protected(s.handleStartPipeline))
	mux.Handle("GET /api/v1/pipelines", s.protected(s.handleListPipelines))
	mux.Handle("GET /api/v1/pipelines/{id}", s.protected(s.handleGetPipeline))
	mux.Handle("GET /api/v1/pipelines/{id}/results", s.protected(s.handleGetPipelineResults))
	mux.Handle("GET /api/v1/pipelines/{id}/stream", s.protected(s.handleStreamPipeline))
	mux.Handle("GET /api/v1/pipelines/{id}/download", s.protected(s.handleDownloadResults))
	mux.Handle("POST /api/v1/pipelines/{id}/cancel", s.protected(s.handleCancelPipeline))
	mux.Handle("DELETE /api/v1/pipelines/{id}", s.protected(s.handleCleanupPipeline))

	// Discovery endpoints
	mux.HandleFunc("GET /api/v1/agents", s.handleListAgents)
	mux.HandleFunc("GET /api/v1/quick-start", s.handleQuickStart)

	// Auth endpoints stay open so clients can obtain a token
	mux.HandleFunc("POST /api/v1/users", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	if s.authEnabled {
		mux.Handle("PUT /api/v1/users/password", s.protected(s.handleUpdatePassword))
	}

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // SSE streams outlive normal requests
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// docResolver answers the coordinator's document existence checks from
// the document store.
type docResolver struct {
	docs DocumentStore
}

func (r docResolver) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	doc, err := r.docs.GetDocument(ctx, id)
	if err != nil {
		return false, err
	}
	return doc != nil, nil
}

// protected wraps a handler with JWT validation when auth is enabled.
// Without a configured secret and database the API runs open.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	if !s.authEnabled {
		return h
	}
	return middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(h)
}

// Start begins listening and blocks until an interrupt or SIGTERM
// arrives, then drains in-flight work before returning.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("API listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Let in-flight pipelines wind down before the process exits
	if err := s.coordinator.Close(ctx); err != nil {
		log.Printf("Coordinator shutdown incomplete: %v", err)
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.database != nil {
		s.database.Close()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers and short-circuits preflight requests.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit throttles by client IP, path and method.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientAddr(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging records one line per completed request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s from %s in %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}

// handleHealth returns server health status along with the state of the
// optional collaborators.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status": "ok",
		"model":  s.llmClient.GetModel(llm.TierStandard),
	}

	if s.database != nil {
		if err := s.database.Ping(r.Context()); err != nil {
			health["database"] = "unreachable"
			health["status"] = "degraded"
		} else {
			health["database"] = "ok"
		}
	} else {
		health["database"] = "disabled"
	}

	if oc, ok := s.llmClient.(*llm.OllamaClient); ok {
		if oc.IsAvailable(r.Context()) {
			health["llm"] = "ok"
		} else {
			health["llm"] = "unreachable"
			health["status"] = "degraded"
		}
	}

	s.jsonResponse(w, http.StatusOK, health)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// handleRegister handles user registration requests.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled {
		s.errorResponse(w, http.StatusServiceUnavailable, "user accounts require DATABASE_URL and JWT_SECRET")
		return
	}
	s.authHandler.Register(w, r)
}

// handleLogin handles user login requests.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled {
		s.errorResponse(w, http.StatusServiceUnavailable, "user accounts require DATABASE_URL and JWT_SECRET")
		return
	}
	s.authHandler.Login(w, r)
}

// handleUpdatePassword handles password update requests for the
// authenticated user.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}
	s.authHandler.UpdatePasswordWithUserID(w, r, userID)
}

// clientAddr keys rate limiting by client IP. X-Forwarded-For is not
// consulted; without a trusted proxy in front it is spoofable.
func clientAddr(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
// Unlimited endpoints (Limit 0) carry no headers.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit <= 0 {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
}

// rateLimitResponse writes a 429 with the window details in the body.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	body := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if retry := int(info.RetryAfter.Seconds()); retry > 0 {
		body["retry_after"] = retry
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}

	log.Printf("[rate-limit] client throttled: limit=%d remaining=%d reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))
	s.jsonResponse(w, http.StatusTooManyRequests, body)
}
