package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tradecrawl/screenerd/internal/events"
	"github.com/tradecrawl/screenerd/internal/metrics"
	"github.com/tradecrawl/screenerd/internal/screener"
)

// defaultScreener is fetched when a request names none.
const defaultScreener = "btst"

const defaultRequestTimeout = 2 * time.Minute

// Fetcher runs one screener acquisition against the live site.
type Fetcher interface {
	Fetch(ctx context.Context, screenerKey, indexFilter string) screener.FetchResult
}

// Session is the slice of the browser session the HTTP surface drives.
type Session interface {
	IsAlive(ctx context.Context) bool
	Restart(ctx context.Context) error
	Status() screener.SessionStatus
}

// ConfigCache is the slice of the configuration cache the HTTP surface reads.
type ConfigCache interface {
	FetchActive(ctx context.Context, forceRefresh bool) map[string]screener.Descriptor
	Refresh(ctx context.Context) map[string]screener.Descriptor
	Status() screener.CacheStatus
}

// Options tunes the HTTP surface. The zero value serves unauthenticated
// requests with the default timeout.
type Options struct {
	// APIKey gates the mutating routes when non-empty. Read-only routes
	// stay open either way.
	APIKey string
	// RequestTimeout bounds every request, fetches included.
	RequestTimeout time.Duration
}

func (o *Options) defaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
}

// Server wires HTTP handlers to the pipeline, session, and config cache.
type Server struct {
	router  chi.Router
	fetcher Fetcher
	session Session
	cache   ConfigCache
	hub     *events.Hub
	ids     screener.Identifier
	clock   screener.Clock
	opts    Options
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	fetcher Fetcher,
	session Session,
	cache ConfigCache,
	hub *events.Hub,
	ids screener.Identifier,
	clock screener.Clock,
	opts Options,
	logger *zap.Logger,
) *Server {
	opts.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		fetcher: fetcher,
		session: session,
		cache:   cache,
		hub:     hub,
		ids:     ids,
		clock:   clock,
		opts:    opts,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(opts.RequestTimeout))

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/status", s.status)
	r.Get("/config", s.getConfig)

	// Only mutating routes sit behind the optional API key.
	r.Group(func(r chi.Router) {
		if opts.APIKey != "" {
			r.Use(apiKeyMiddleware(opts.APIKey))
		}
		r.Post("/fetch", s.fetch)
		r.Post("/restart", s.restart)
		r.Post("/refresh_config", s.refreshConfig)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

type fetchRequest struct {
	ScreenerType string `json:"screener_type"`
	IndexFilter  string `json:"index_filter"`
}

// fetchResponse is a FetchResult plus the textual status clients switch on.
type fetchResponse struct {
	Status string                 `json:"status"`
	Rows   []screener.Row         `json:"rows,omitempty"`
	Err    *screener.FetchError   `json:"error,omitempty"`
	Filter *screener.FilterReport `json:"filter,omitempty"`
	Meta   screener.FetchMetadata `json:"metadata"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type statusResponse struct {
	Status        string  `json:"status"`
	UptimeMinutes float64 `json:"session_uptime_minutes"`
	RequestCount  int64   `json:"request_count"`
	LastRequest   *string `json:"last_request"`
	BrowserAlive  bool    `json:"browser_alive"`
}

type restartResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type refreshConfigResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Screeners []string `json:"screeners"`
}

type configResponse struct {
	Status      string                         `json:"status"`
	Screeners   map[string]screener.Descriptor `json:"screeners"`
	Cache       screener.CacheStatus           `json:"cache"`
	ActiveCount int                            `json:"active_count"`
}

// health reports browser liveness: 200 "healthy" when the session answers
// the probe, 503 "unhealthy" otherwise.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if !s.session.IsAlive(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

// fetch runs one acquisition. An empty body fetches the default screener;
// malformed JSON is a 400. The response carries the full fetch result and a
// status derived from its error kind.
func (s *Server) fetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, fetchResponse{
			Status: statusError,
			Err:    &screener.FetchError{Kind: screener.KindBadRequest, Message: "invalid JSON"},
		})
		return
	}
	if req.ScreenerType == "" {
		req.ScreenerType = defaultScreener
	}
	result := s.fetcher.Fetch(r.Context(), req.ScreenerType, req.IndexFilter)
	status := statusSuccess
	if !result.OK() {
		status = statusError
	}
	writeJSON(w, statusForResult(result), fetchResponse{
		Status: status,
		Rows:   result.Rows,
		Err:    result.Err,
		Filter: result.Filter,
		Meta:   result.Meta,
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st := s.session.Status()
	resp := statusResponse{
		Status:       "stopped",
		RequestCount: st.RequestCount,
		BrowserAlive: s.session.IsAlive(r.Context()),
	}
	if st.Running {
		resp.Status = "running"
		if !st.StartedAt.IsZero() {
			resp.UptimeMinutes = round2(s.clock.Now().Sub(st.StartedAt).Minutes())
		}
	}
	if !st.LastRequestAt.IsZero() {
		last := st.LastRequestAt.UTC().Format(time.RFC3339)
		resp.LastRequest = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// restart tears down and relaunches the browser session. The restart is
// counted and announced before the attempt so failed relaunches still show
// up in metrics and events.
func (s *Server) restart(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("session restart requested")
	metrics.ObserveSessionRestart("api")
	s.emitEvent(events.StageSessionRestart, "api")
	if err := s.session.Restart(r.Context()); err != nil {
		s.logger.Error("session restart failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, restartResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, restartResponse{Success: true})
}

func (s *Server) refreshConfig(w http.ResponseWriter, r *http.Request) {
	entries := s.cache.Refresh(r.Context())
	s.emitEvent(events.StageConfigRefresh, "api")
	writeJSON(w, http.StatusOK, refreshConfigResponse{
		Status:    statusSuccess,
		Message:   "Configuration refreshed",
		Screeners: screener.DescriptorKeys(entries),
	})
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	entries := s.cache.FetchActive(r.Context(), false)
	writeJSON(w, http.StatusOK, configResponse{
		Status:      statusSuccess,
		Screeners:   entries,
		Cache:       s.cache.Status(),
		ActiveCount: len(entries),
	})
}

// statusForResult maps a fetch outcome to an HTTP status.
func statusForResult(result screener.FetchResult) int {
	if result.OK() {
		return http.StatusOK
	}
	switch result.Err.Kind {
	case screener.KindUnknownScreener:
		return http.StatusNotFound
	case screener.KindSessionUnavailable:
		return http.StatusServiceUnavailable
	case screener.KindScrapeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) emitEvent(stage events.Stage, note string) {
	id, err := s.ids.NewID()
	if err != nil {
		id = "unidentified"
	}
	s.hub.Emit(events.Event{ID: id, TS: s.clock.Now().UTC(), Stage: stage, Note: note})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			if id, err := s.ids.NewID(); err == nil {
				reqID = id
			}
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
