// Package api provides the HTTP REST API server for stockscore.
//
// It exposes endpoints for analysis, comparison, backtesting, analysis
// history and alert management, plus a WebSocket stream of analysis and
// alert events.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"

	"github.com/seenimoa/stockscore/internal/alerts"
	"github.com/seenimoa/stockscore/internal/config"
	"github.com/seenimoa/stockscore/internal/datasource"
	"github.com/seenimoa/stockscore/internal/report"
	"github.com/seenimoa/stockscore/internal/service"
	"github.com/seenimoa/stockscore/pkg/models"
)

// Version is reported by /health. cmd/stockscore sets it at startup.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	svc    *service.Service
	wsHub  *WSHub
}

// NewServer creates a configured API server with all routes and middleware.
// Analysis and alert events of svc are streamed to WebSocket clients.
func NewServer(svc *service.Service) *Server {
	srv := &Server{
		cfg:   svc.Config(),
		svc:   svc,
		wsHub: NewWSHub(),
	}
	svc.Subscribe(func(ev service.Event) {
		srv.wsHub.Broadcast(WSMessage{Type: string(ev.Type), Data: ev})
	})
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server and the WebSocket hub, and shuts
// both down on SIGINT/SIGTERM or when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()
	defer s.wsHub.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("component", "api").Str("addr", addr).Msg("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Str("component", "api").Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(bearerAuth(s.cfg.API.Token))

		r.Get("/health", s.handleHealth)

		// WebSocket stream; long-lived, so outside the request timeout.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(120 * time.Second))

			// Analysis
			r.Get("/analyze/{symbol}", s.handleAnalyze)
			r.Post("/compare", s.handleCompare)

			// Backtest
			r.Get("/backtest/{symbol}", s.handleBacktest)

			// History
			r.Get("/history/{symbol}", s.handleHistory)

			// Alerts
			r.Get("/alerts", s.handleAlerts)
			r.Post("/alerts", s.handleCreateAlert)
			r.Post("/alerts/check", s.handleCheckAlerts)
			r.Delete("/alerts/{id}", s.handleDeleteAlert)

			// Configuration
			r.Get("/config", s.handleGetConfig)
			r.Get("/config/keys", s.handleGetConfigKeys)
		})
	})

	return r
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("component", "api").
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// bearerAuth requires "Authorization: Bearer <token>" when token is set.
// Browsers cannot set headers on WebSocket upgrades, so a "token" query
// parameter is accepted as well.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got == "" {
				got = r.URL.Query().Get("token")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "missing or invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CompareRequest is the body for POST /api/v1/compare.
type CompareRequest struct {
	Symbols   []string `json:"symbols"`
	Benchmark string   `json:"benchmark,omitempty"`
	Period    string   `json:"period,omitempty"`
}

// CreateAlertRequest is the body for POST /api/v1/alerts.
type CreateAlertRequest struct {
	Symbol    string                `json:"symbol"`
	Type      models.AlertType      `json:"type"`
	Condition models.AlertCondition `json:"condition"`
	Target    float64               `json:"target"`
}

// AlertsResponse is returned by GET /api/v1/alerts.
type AlertsResponse struct {
	Active  []models.Alert `json:"active"`
	History []models.Alert `json:"history,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":     "ok",
			"version":    Version,
			"ws_clients": s.wsHub.ClientCount(),
			"time":       time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// handleAnalyze runs one analysis. ?format=csv|xlsx downloads the flattened
// report instead of the JSON envelope.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := report.FormatJSON
	if f := q.Get("format"); f != "" {
		var err error
		if format, err = report.ParseFormat(f); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	noNews, err := boolParam(q.Get("no_news"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "no_news: "+err.Error())
		return
	}

	a, err := s.svc.Analyze(r.Context(), service.AnalyzeRequest{
		Symbol:    chi.URLParam(r, "symbol"),
		Benchmark: q.Get("benchmark"),
		Period:    q.Get("period"),
		NoNews:    noNews,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if format == report.FormatJSON {
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: a})
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.DefaultFileName(a.Result, format)))
	if err := report.Write(w, format, a.Result, a.Snapshot.Series, s.cfg.Analysis.Periods); err != nil {
		log.Error().Str("component", "api").Err(err).Msg("failed to write report")
	}
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Symbols) < 2 {
		writeError(w, http.StatusBadRequest, "at least two symbols are required")
		return
	}

	cmp, err := s.svc.Compare(r.Context(), service.CompareRequest{
		Symbols:   req.Symbols,
		Benchmark: req.Benchmark,
		Period:    req.Period,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == string(report.FormatCSV) {
		w.Header().Set("Content-Type", contentType(report.FormatCSV))
		if err := report.WriteComparisonCSV(w, cmp); err != nil {
			log.Error().Str("component", "api").Err(err).Msg("failed to write comparison")
		}
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: cmp})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.BacktestRequest{
		Symbol:    chi.URLParam(r, "symbol"),
		Benchmark: q.Get("benchmark"),
		Period:    q.Get("period"),
		Strategy:  q.Get("strategy"),
	}
	var err error
	if req.Warmup, err = intParam(q.Get("warmup")); err != nil {
		writeError(w, http.StatusBadRequest, "warmup: "+err.Error())
		return
	}
	if req.Step, err = intParam(q.Get("step")); err != nil {
		writeError(w, http.StatusBadRequest, "step: "+err.Error())
		return
	}
	if c := q.Get("capital"); c != "" {
		if req.InitialCapital, err = strconv.ParseFloat(c, 64); err != nil || req.InitialCapital <= 0 {
			writeError(w, http.StatusBadRequest, "capital must be a positive number")
			return
		}
	}

	res, err := s.svc.Backtest(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	entries, err := s.svc.History(r.Context(), chi.URLParam(r, "symbol"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: entries})
}

// handleAlerts lists active alerts, filtered by ?symbol=. ?history=true
// adds the triggered ones.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	withHistory, err := boolParam(q.Get("history"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "history: "+err.Error())
		return
	}

	active, err := s.svc.Alerts().Active(datasource.NormalizeSymbol(q.Get("symbol")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := AlertsResponse{Active: active}
	if resp.Active == nil {
		resp.Active = []models.Alert{}
	}
	if withHistory {
		if resp.History, err = s.svc.Alerts().History(); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	alert, err := alerts.New(req.Symbol, req.Type, req.Condition, req.Target, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.svc.Alerts().Add(alert); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: alert})
}

func (s *Server) handleCheckAlerts(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.CheckAlerts(r.Context())
	if events == nil {
		events = []models.AlertEvent{}
	}
	if err != nil {
		log.Warn().Str("component", "api").Err(err).Msg("alert check incomplete")
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: events, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: events})
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.Alerts().Remove(id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]string{"deleted": id},
	})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Str("component", "api").Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Str("component", "api").Err(err).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, datasource.ErrTickerNotFound), errors.Is(err, alerts.ErrAlertNotFound):
		return http.StatusNotFound
	case errors.Is(err, datasource.ErrInvalidPeriod), errors.Is(err, alerts.ErrInvalidAlert),
		errors.Is(err, service.ErrNoSymbols), errors.Is(err, service.ErrUnknownStrategy):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, datasource.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func contentType(f report.Format) string {
	switch f {
	case report.FormatCSV:
		return "text/csv; charset=utf-8"
	case report.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case report.FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer, got %q", s)
	}
	return n, nil
}

func boolParam(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
