// Package api provides the read-only REST API behind the flight dashboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"flight_explorer/internal/logging"
	"flight_explorer/internal/normalize"
	"flight_explorer/internal/storage"
)

// allFilter disables a flights filter.
const allFilter = "All"

// DashboardStore is the query surface the server reads from.
// *storage.Dashboard implements it.
type DashboardStore interface {
	Summary(ctx context.Context) (*storage.Summary, error)
	Airlines(ctx context.Context) ([]string, error)
	RecentFlights(ctx context.Context, f storage.FlightFilter) ([]storage.FlightRow, error)
	DelayPercentages(ctx context.Context) ([]storage.DelayPercentage, error)
}

// DashboardServer provides REST API access to the loaded flight data.
type DashboardServer struct {
	store       DashboardStore
	port        int
	authEnabled bool
	apiKeys     map[string]bool // Simple API key auth (when enabled).
	log         *zap.Logger
}

// Config holds configuration for the dashboard API server.
type Config struct {
	Port        int
	AuthEnabled bool
	APIKeys     []string // List of valid API keys.
	Logger      *zap.Logger
}

// NewDashboardServer creates a new dashboard API server.
func NewDashboardServer(store DashboardStore, cfg Config) *DashboardServer {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys[k] = true
		}
	}

	return &DashboardServer{
		store:       store,
		port:        cfg.Port,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
		log:         logging.OrNop(cfg.Logger),
	}
}

// Handler returns the full HTTP handler with middleware and the /api/v1
// prefix.
func (s *DashboardServer) Handler() http.Handler {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for browser access.
	r.Use(corsMiddleware)

	r.Mount("/api/v1", s.Router())
	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *DashboardServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("dashboard API starting",
		zap.String("addr", "http://localhost"+srv.Addr),
		zap.Bool("auth", s.authEnabled))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the API routes without the prefix, for embedding in other
// servers.
func (s *DashboardServer) Router() chi.Router {
	r := chi.NewRouter()

	// Health check (no auth required).
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.authEnabled {
			r.Use(s.authMiddleware)
		}
		r.Get("/summary", s.handleSummary)
		r.Get("/airlines", s.handleAirlines)
		r.Get("/flights", s.handleFlights)
		r.Get("/delays", s.handleDelays)
	})

	return r
}

func (s *DashboardServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *DashboardServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			if key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				apiKey = key
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *DashboardServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *DashboardServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.Summary(r.Context())
	if err != nil {
		s.internalError(w, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *DashboardServer) handleAirlines(w http.ResponseWriter, r *http.Request) {
	airlines, err := s.store.Airlines(r.Context())
	if err != nil {
		s.internalError(w, "airlines", err)
		return
	}
	writeJSON(w, http.StatusOK, airlines)
}

// FlightsResponse is the JSON response for flight listings.
type FlightsResponse struct {
	Airline string              `json:"airline"`
	Status  string              `json:"status"`
	Limit   int                 `json:"limit"`
	Flights []storage.FlightRow `json:"flights"`
}

func (s *DashboardServer) handleFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.FlightFilter{
		Airline: strings.ToUpper(strings.TrimSpace(q.Get("airline"))),
		Status:  strings.TrimSpace(q.Get("status")),
	}
	if filter.Airline == strings.ToUpper(allFilter) {
		filter.Airline = allFilter
	}
	if filter.Status != "" && filter.Status != allFilter && !slices.Contains(normalize.Statuses, filter.Status) {
		writeError(w, http.StatusBadRequest,
			"Invalid status (use All, "+strings.Join(normalize.Statuses, ", ")+")")
		return
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}
	filter.Limit = storage.ClampLimit(filter.Limit)

	flights, err := s.store.RecentFlights(r.Context(), filter)
	if err != nil {
		s.internalError(w, "flights", err)
		return
	}

	resp := FlightsResponse{
		Airline: orAll(filter.Airline),
		Status:  orAll(filter.Status),
		Limit:   filter.Limit,
		Flights: flights,
	}
	if resp.Flights == nil {
		resp.Flights = []storage.FlightRow{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *DashboardServer) handleDelays(w http.ResponseWriter, r *http.Request) {
	delays, err := s.store.DelayPercentages(r.Context())
	if err != nil {
		s.internalError(w, "delays", err)
		return
	}
	writeJSON(w, http.StatusOK, delays)
}

func (s *DashboardServer) internalError(w http.ResponseWriter, what string, err error) {
	s.log.Error("query failed", zap.String("query", what), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "query failed")
}

func orAll(v string) string {
	if v == "" {
		return allFilter
	}
	return v
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
