package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/config"
	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/scoring"
	"github.com/jonathan/resume-matcher/internal/server/middleware"
	"github.com/jonathan/resume-matcher/internal/server/ratelimit"
	"github.com/jonathan/resume-matcher/internal/workflow"
)

// Server represents the HTTP server
type Server struct {
	httpServer   *http.Server
	store        Store
	db           *db.DB
	log          *zap.Logger
	rateLimiter  *ratelimit.Limiter
	jwtService   *JWTService
	userService  *UserService
	authHandler  *AuthHandler
	scorer       scoring.Scorer
	orchestrator *workflow.Orchestrator
	projector    *workflow.StatusProjector
	validate     *validator.Validate
}

// New creates a new server instance wired to Postgres and the configured
// scoring provider.
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	database, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	scorer, err := scoring.New(context.Background(), cfg.Scoring, log)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}

	s := &Server{
		store:    database,
		db:       database,
		log:      log,
		scorer:   scorer,
		validate: validator.New(),
	}

	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	s.userService = NewUserService(database, &cfg.Password)
	s.jwtService = NewJWTService(&cfg.JWT)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService)
	s.orchestrator = workflow.NewOrchestrator(database, scorer, cfg.BatchResumeLimit, cfg.DefaultResumeCap, log)
	s.projector = workflow.NewStatusProjector(database, log)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.routes()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // batch matching runs synchronously
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes builds the request mux. Everything except /health and /auth/*
// sits behind JWT auth.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	mux.HandleFunc("GET /health", s.handleHealth)

	// Authentication
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	mux.Handle("PUT /auth/password", protected(s.handleUpdatePassword))

	// Resumes
	mux.Handle("POST /resumes", protected(s.handleCreateResume))
	mux.Handle("GET /resumes", protected(s.handleListResumes))
	mux.Handle("GET /resumes/search/text", protected(s.handleSearchResumes))
	mux.Handle("GET /resumes/stats/count", protected(s.handleResumeCount))
	mux.Handle("GET /resumes/{id}", protected(s.handleGetResume))
	mux.Handle("PUT /resumes/{id}", protected(s.handleUpdateResume))
	mux.Handle("DELETE /resumes/{id}", protected(s.handleDeleteResume))

	// Job descriptions
	mux.Handle("POST /jds", protected(s.handleCreateJD))
	mux.Handle("GET /jds", protected(s.handleListJDs))
	mux.Handle("GET /jds/{id}", protected(s.handleGetJD))
	mux.Handle("DELETE /jds/{id}", protected(s.handleDeleteJD))

	// Matching
	mux.Handle("POST /matching/match", protected(s.handleMatchSingle))
	mux.Handle("POST /matching/batch", protected(s.handleBatchMatch))
	mux.Handle("GET /matching/results/{jd_id}", protected(s.handleJDResults))
	mux.Handle("GET /matching/top-matches/{jd_id}", protected(s.handleTopMatches))
	mux.Handle("GET /matching/result/{result_id}", protected(s.handleGetResult))
	mux.Handle("DELETE /matching/result/{result_id}", protected(s.handleDeleteResult))

	// Workflow
	mux.Handle("GET /workflow/status", protected(s.handleWorkflowStatus))
	mux.Handle("GET /workflow/executions", protected(s.handleListExecutions))
	mux.Handle("GET /workflow/executions/stats/count", protected(s.handleExecutionCount))
	mux.Handle("GET /workflow/executions/{workflow_id}", protected(s.handleGetExecution))
	mux.Handle("PUT /workflow/executions/{workflow_id}/status", protected(s.handleUpdateExecutionStatus))
	mux.Handle("DELETE /workflow/executions/{workflow_id}", protected(s.handleDeleteExecution))

	return mux
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.scorer != nil {
		_ = s.scorer.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	s.log.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpdatePassword handles password update requests for the
// authenticated user.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s.authHandler.UpdatePasswordWithUserID(w, r, userID)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// messageResponse writes the standard {success, message} body used by
// mutation endpoints.
func (s *Server) messageResponse(w http.ResponseWriter, message string) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}

// audit records an API action on the audit trail. Audit writes are
// best-effort; failures are logged and never fail the request.
func (s *Server) audit(r *http.Request, action, resourceType, resourceID string) {
	var userID *uuid.UUID
	if id, err := middleware.GetUserID(r); err == nil {
		userID = &id
	}

	ip := s.extractClientID(r)
	if ip == "" {
		ip = "0.0.0.0"
	}
	userAgent := r.UserAgent()
	if userAgent == "" {
		userAgent = "Unknown"
	}

	err := s.store.CreateAuditLog(r.Context(), &db.AuditLogInput{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ip,
		UserAgent:    userAgent,
		Success:      true,
	})
	if err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.Error(err))
	}
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is ignored
// because the server is not expected to sit behind a trusted proxy.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(int(info.RetryAfter.Seconds())))
	}

	s.log.Warn("rate limit exceeded",
		zap.Int("limit", info.Limit),
		zap.Int("remaining", info.Remaining))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// queryInt parses an integer query parameter with a default and an
// upper bound. max <= 0 means unbounded.
func queryInt(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
