package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"forecast-dashboard/dashboard"
	"forecast-dashboard/datasource"
)

// Server represents the API server
type Server struct {
	source datasource.ForecastSource
	logger *slog.Logger
	server *http.Server
}

// NewServer creates a new API server backed by source
func NewServer(source datasource.ForecastSource, port int, logger *slog.Logger) *Server {
	s := &Server{
		source: source,
		logger: logger.With("component", "api"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Routes returns the router serving the dashboard and the JSON API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog(s.logger))
	r.Use(middleware.Recoverer)

	// Dashboard
	r.Get("/", s.handleDashboard)
	r.Get("/charts", s.handleCharts)

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Get("/forecast", s.handleGetForecast)
		r.Get("/health", s.handleHealthCheck)
	})

	return r
}

// Start begins the API server
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// forecastQuery is the validated place/days pair of a request.
type forecastQuery struct {
	place string
	days  int
}

// parseQuery reads place and days. days must lie within the slider range.
func parseQuery(r *http.Request) (forecastQuery, error) {
	q := forecastQuery{
		place: strings.TrimSpace(r.URL.Query().Get("place")),
		days:  dashboard.DefaultDays,
	}
	if q.place == "" {
		return q, errors.New("place not specified")
	}
	if v := r.URL.Query().Get("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < dashboard.MinDays || d > dashboard.MaxDays {
			return q, fmt.Errorf("days must be an integer between %d and %d", dashboard.MinDays, dashboard.MaxDays)
		}
		q.days = d
	}
	return q, nil
}

// handleGetForecast returns the forecast for a place as JSON
func (s *Server) handleGetForecast(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "kind": "bad_input"})
		return
	}

	forecast, err := s.source.FetchForecast(r.Context(), q.place, q.days)
	if err != nil {
		s.logFetchError(r, q, err)
		kind := datasource.KindOf(err)
		msg, _ := dashboard.Message(err)
		writeJSON(w, statusFor(kind), map[string]string{"error": msg, "kind": string(kind)})
		return
	}

	writeJSON(w, http.StatusOK, forecast)
}

// handleDashboard renders the dashboard page, fetching when a place is given
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view := dashboard.ParseView(r.URL.Query().Get("view"))

	if r.URL.Query().Get("place") == "" {
		s.renderPage(w, http.StatusOK, dashboard.FormPage(view, dashboard.DefaultDays))
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		page := dashboard.FormPage(view, dashboard.DefaultDays)
		page.Place = q.place
		page.Error = err.Error()
		s.renderPage(w, http.StatusBadRequest, page)
		return
	}

	forecast, err := s.source.FetchForecast(r.Context(), q.place, q.days)
	if err != nil {
		s.logFetchError(r, q, err)
		s.renderPage(w, statusFor(datasource.KindOf(err)), dashboard.ErrorPage(q.place, view, q.days, err))
		return
	}

	page := dashboard.Build(forecast, view, q.days)
	if len(forecast.Records) > 0 {
		if page.Charts, err = dashboard.ChartsDocument(forecast, view); err != nil {
			s.logger.Error("render charts", "error", err, "request_id", RequestIDFrom(r.Context()))
		}
	}
	s.renderPage(w, http.StatusOK, page)
}

// handleCharts renders the charts as a standalone page; the dashboard
// embeds its own copy and does not call this
func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	forecast, err := s.source.FetchForecast(r.Context(), q.place, q.days)
	if err != nil {
		s.logFetchError(r, q, err)
		msg, hint := dashboard.Message(err)
		http.Error(w, msg+" "+hint, statusFor(datasource.KindOf(err)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboard.RenderCharts(w, forecast, dashboard.ParseView(r.URL.Query().Get("view"))); err != nil {
		s.logger.Error("render charts", "error", err, "request_id", RequestIDFrom(r.Context()))
	}
}

// handleHealthCheck provides a simple health check endpoint
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) renderPage(w http.ResponseWriter, status int, page dashboard.Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := dashboard.Render(w, page); err != nil {
		s.logger.Error("render dashboard", "error", err)
	}
}

func (s *Server) logFetchError(r *http.Request, q forecastQuery, err error) {
	s.logger.Warn("forecast fetch failed",
		"place", q.place,
		"days", q.days,
		"kind", datasource.KindOf(err),
		"error", err,
		"request_id", RequestIDFrom(r.Context()),
	)
}

// statusFor maps a failure kind to the status returned to our own clients.
func statusFor(kind datasource.Kind) int {
	if kind == datasource.KindNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
