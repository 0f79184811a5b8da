package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"bizday/internal/calendar"
	"bizday/internal/config"
	"bizday/internal/engine"
	appLog "bizday/internal/log"
	"bizday/internal/model"
	"bizday/internal/service"
)

const (
	calendarsCacheTTL = 30 * time.Second
	maxBodyBytes      = 1 << 20
	shutdownTimeout   = 10 * time.Second
)

// Calculator is the request orchestrator behind the API.
type Calculator interface {
	ListCalendars(ctx context.Context) ([]model.Region, error)
	Calendar(ctx context.Context, id string, years []int) (model.RuleSet, error)
	Calculate(ctx context.Context, req service.CalculateRequest) (service.CalculateResponse, error)
	ReloadOverrides(ctx context.Context) error
	OverridesGeneration() uint64
}

// Server provides the business-day HTTP API and the bundled web page.
type Server struct {
	cfg *config.Config
	svc Calculator
	mux *http.ServeMux

	// In-memory cache for /api/calendars. Building the list touches every
	// provider, and it only changes when overrides are reloaded.
	calendarsMu    sync.RWMutex
	calendarsCache *calendarsCache
}

// calendarsCache holds a cached /api/calendars response, its timestamp and
// the override generation it was built from.
type calendarsCache struct {
	regions    []model.Region
	generation uint64
	updatedAt  time.Time
}

// embeddedStatic contains the single-page calculator UI.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc Calculator) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server with request ids, CORS
// and (when configured) basic auth applied.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return requestIDMiddleware(corsMiddleware(h))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="bizday", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is cancelled, then
// shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, svc Calculator) error {
	s := NewServer(cfg, svc)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLog.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/calendars", s.handleCalendars)
	s.mux.HandleFunc("GET /api/calendar/{id}", s.handleCalendar)
	s.mux.HandleFunc("POST /api/calculate", s.handleCalculate)
	s.mux.HandleFunc("POST /api/overrides/reload", s.handleReload)

	// Everything else falls back to the embedded UI.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCalendars lists every calendar identifier with its display name.
//
// GET /api/calendars
func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	gen := s.svc.OverridesGeneration()

	// Fast path: cached list is fresh and built from the current overrides.
	s.calendarsMu.RLock()
	cc := s.calendarsCache
	s.calendarsMu.RUnlock()
	if cc != nil && cc.generation == gen && now.Sub(cc.updatedAt) < calendarsCacheTTL {
		writeJSON(w, http.StatusOK, cc.regions)
		return
	}

	regions, err := s.svc.ListCalendars(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.calendarsMu.Lock()
	s.calendarsCache = &calendarsCache{
		regions:    regions,
		generation: gen,
		updatedAt:  time.Now(),
	}
	s.calendarsMu.Unlock()

	writeJSON(w, http.StatusOK, regions)
}

// handleCalendar returns the resolved rules of one calendar.
//
// GET /api/calendar/{id}?years=2024,2025
//   - years: comma-separated list (default: current year and next)
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	years, err := service.ParseYears(r.URL.Query().Get("years"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules, err := s.svc.Calendar(r.Context(), id, years)
	if errors.Is(err, calendar.ErrUnknownCalendar) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// handleCalculate runs a business-day calculation.
//
// POST /api/calculate
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req service.CalculateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be JSON")
		return
	}

	resp, err := s.svc.Calculate(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReload re-reads the override store. The calendars cache notices the
// new generation on its next use.
//
// POST /api/overrides/reload
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ReloadOverrides(r.Context()); err != nil {
		appLog.Error("api reload failed", err, "request_id", requestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "failed to reload overrides")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// staticFileServer serves the embedded UI from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Unknown /api/* paths must 404 with JSON, never HTML.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// userError reports whether err is caused by the request itself.
func userError(err error) bool {
	for _, target := range []error{
		calendar.ErrUnknownCalendar,
		engine.ErrInvalidRange,
		engine.ErrInvalidCount,
		engine.ErrInvalidOperation,
		engine.ErrMissingField,
		engine.ErrNoBusinessDays,
		model.ErrInvalidDateFormat,
		service.ErrInvalidYears,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeServiceError maps request errors to 400 with their message and
// everything else to a logged 5xx with a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case userError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		appLog.Error("api request timed out", err, "path", r.URL.Path, "request_id", requestIDFrom(r.Context()))
		writeError(w, http.StatusGatewayTimeout, "holiday provider timed out")
	default:
		appLog.Error("api request failed", err, "path", r.URL.Path, "request_id", requestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
