package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/design-coach/internal/coach"
	"github.com/jonathan/design-coach/internal/drafts"
	"github.com/jonathan/design-coach/internal/server/middleware"
	"github.com/jonathan/design-coach/internal/server/ratelimit"
	"github.com/jonathan/design-coach/internal/stages"
	"github.com/jonathan/design-coach/internal/types"
)

// maxBodyBytes bounds request bodies; draw.io documents with embedded images are large.
const maxBodyBytes = 8 << 20

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	service     *coach.Service
	drafts      drafts.Store
	sessions    *JWTService
	rateLimiter *ratelimit.Limiter
	metrics     *Metrics
	logger      *zap.Logger
	corsOrigins []string
}

// Config holds server configuration
type Config struct {
	Port               int
	CORSAllowedOrigins []string
}

// Deps are the collaborators the server routes requests to. Service is required. Draft
// routes are registered only when Drafts is set, and then Sessions is required too.
type Deps struct {
	Service  *coach.Service
	Drafts   drafts.Store
	Sessions *JWTService
	Limiter  *ratelimit.Limiter
	Metrics  *Metrics
	Logger   *zap.Logger
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Service == nil {
		return nil, fmt.Errorf("server: validation service is required")
	}
	if deps.Drafts != nil && deps.Sessions == nil {
		return nil, fmt.Errorf("server: draft routes need a session service")
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Server{
		service:     deps.Service,
		drafts:      deps.Drafts,
		sessions:    deps.Sessions,
		rateLimiter: deps.Limiter,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		corsOrigins: cfg.CORSAllowedOrigins,
	}

	mux := http.NewServeMux()

	// Stage validation
	mux.HandleFunc("POST /validate", stageHandler(s, stages.Requirements, s.service.Requirements))
	mux.HandleFunc("POST /validate-apis", stageHandler(s, stages.APIDesign, s.service.APIs))
	mux.HandleFunc("POST /validate-diagram", stageHandler(s, stages.HighLevelDiagram, s.service.Diagram))
	mux.HandleFunc("POST /validate-estimation", stageHandler(s, stages.BackOfEnvelope, s.service.Estimation))
	mux.HandleFunc("POST /validate-data-model", stageHandler(s, stages.DataModel, s.service.DataModel))
	mux.HandleFunc("POST /validate-flow", stageHandler(s, stages.EndToEndFlow, s.service.Flow))
	mux.HandleFunc("POST /validate-deep-dives", stageHandler(s, stages.DeepDives, s.service.DeepDives))
	mux.HandleFunc("POST /validate-detailed-diagram", stageHandler(s, stages.DetailedDiagram, s.service.DetailedDiagram))
	mux.HandleFunc("POST /merge", s.handleMerge)

	// Catalog
	mux.HandleFunc("GET /topics", s.handleListTopics)
	mux.HandleFunc("GET /topics/{topic}", s.handleGetTopic)
	mux.HandleFunc("GET /stages", s.handleListStages)
	mux.HandleFunc("GET /stages/{stage}", s.handleGetStage)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Session-scoped drafts
	if s.drafts != nil {
		auth := middleware.RequireSession(s.sessions.AsTokenValidator())
		mux.HandleFunc("POST /sessions", s.handleCreateSession)
		mux.Handle("GET /drafts/{topic}", auth(http.HandlerFunc(s.handleGetDraft)))
		mux.Handle("PUT /drafts/{topic}", auth(http.HandlerFunc(s.handleSaveDraft)))
		mux.Handle("DELETE /drafts/{topic}", auth(http.HandlerFunc(s.handleClearDraft)))
		mux.Handle("GET /drafts/{topic}/stages", auth(http.HandlerFunc(s.handleDraftStages)))
		mux.Handle("POST /drafts/{topic}/editor-events", auth(http.HandlerFunc(s.handleEditorEvent)))
	}

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second, // Detailed diagram reviews can be slow
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-stop:
	}

	s.logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops accepting requests and releases the limiter and draft store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.rateLimiter.Stop()
	if s.drafts != nil {
		if cerr := s.drafts.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// validatable is a request type with a Validate method on its pointer.
type validatable[T any] interface {
	*T
	Validate() error
}

// stageHandler decodes and validates a stage request, runs it, and records the outcome.
func stageHandler[Req any, PReq validatable[Req], Resp any](s *Server, stage string, run func(context.Context, PReq) (*Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		req := PReq(new(Req))
		if err := s.decodeJSON(w, r, req); err != nil {
			s.metrics.ObserveValidation(stage, OutcomeInvalid, time.Since(start))
			s.writeError(w, r, err)
			return
		}
		if err := req.Validate(); err != nil {
			s.metrics.ObserveValidation(stage, OutcomeInvalid, time.Since(start))
			s.writeError(w, r, validationError(err))
			return
		}

		resp, err := run(r.Context(), req)
		if err != nil {
			s.metrics.ObserveValidation(stage, OutcomeFailed, time.Since(start))
			s.writeError(w, r, err)
			return
		}

		s.metrics.ObserveValidation(stage, OutcomeOK, time.Since(start))
		s.jsonResponse(w, http.StatusOK, resp)
	}
}

// handleMerge runs the requirement matcher on two lists.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req types.MergeRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.service.Merge(&req))
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON decodes a bounded request body into dst.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &ErrValidation{Message: "request body too large"}
		}
		return &ErrValidation{Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to a status and writes it. Server errors are logged and answered
// with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	s.errorResponse(w, status, ErrorMessage(err))
}

// withCORS answers preflight requests and sets CORS headers for allowed origins
func (s *Server) withCORS(next http.Handler) http.Handler {
	allowAll := slices.Contains(s.corsOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || slices.Contains(s.corsOrigins, origin)) {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientID uses the IP address from RemoteAddr.
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

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error": "rate limit exceeded",
		"tier":  info.Tier,
		"limit": info.Limit,
	}
	if info.RetryAfter > 0 {
		seconds := max(1, int(info.RetryAfter.Seconds()))
		response["retryAfter"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("rate limit exceeded",
		zap.String("client", s.extractClientID(r)),
		zap.String("path", r.URL.Path),
		zap.String("tier", info.Tier),
	)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
