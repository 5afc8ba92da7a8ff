package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"keramika/internal/availability"
	"keramika/internal/config"
	"keramika/internal/database"
	"keramika/internal/domain"
	"keramika/internal/export"
	"keramika/internal/giftcard"
	"keramika/internal/metrics"
	"keramika/internal/override"

	"github.com/rs/zerolog"
)

// scheduleInvalidator drops cached schedule data after admin mutations.
type scheduleInvalidator interface {
	Invalidate(ctx context.Context)
}

// HTTPServer exposes the booking core as a JSON API.
type HTTPServer struct {
	cfg          *config.APIConfig
	db           *database.DB
	availability *availability.Service
	giftcards    *giftcard.Service
	authorizer   *override.Authorizer
	exporter     *export.Exporter
	schedCache   scheduleInvalidator
	bus          domain.EventPublisher
	logger       *zerolog.Logger
	server       *http.Server
	auth         *HTTPAuth
}

func NewHTTPServer(
	cfg *config.APIConfig,
	db *database.DB,
	availabilitySvc *availability.Service,
	giftcards *giftcard.Service,
	authorizer *override.Authorizer,
	exporter *export.Exporter,
	schedCache scheduleInvalidator,
	bus domain.EventPublisher,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:          cfg,
		db:           db,
		availability: availabilitySvc,
		giftcards:    giftcards,
		authorizer:   authorizer,
		exporter:     exporter,
		schedCache:   schedCache,
		bus:          bus,
		logger:       logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/availability/check", srv.handleAvailabilityCheck)
	mux.HandleFunc("/api/v1/availability/slots", srv.handleAvailabilitySlots)
	mux.HandleFunc("/api/v1/sessions", srv.handleSessions)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/giftcards", srv.handleGiftcards)
	mux.HandleFunc("/api/v1/giftcards/holds", srv.handleGiftcardHolds)
	mux.HandleFunc("/api/v1/giftcards/consume", srv.handleGiftcardConsume)
	mux.HandleFunc("/api/v1/giftcards/release", srv.handleGiftcardRelease)
	mux.HandleFunc("/api/v1/admin/validate", srv.handleAdminValidate)
	mux.HandleFunc("/api/v1/admin/overrides", srv.handleAdminOverrides)
	mux.HandleFunc("/api/v1/admin/schedule/rules", srv.handleScheduleRules)
	mux.HandleFunc("/api/v1/admin/schedule/overrides", srv.handleScheduleOverrides)
	mux.HandleFunc("/api/v1/admin/courses", srv.handleCourses)
	mux.HandleFunc("/api/v1/admin/export/bookings", srv.handleExportBookings)
	mux.HandleFunc("/api/v1/admin/export/audit", srv.handleExportAudit)
	mux.HandleFunc("/healthz", srv.handleHealthz)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		metrics.IncHTTP(r.URL.Path)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *HTTPServer) invalidateScheduleCache(ctx context.Context) {
	if s.schedCache != nil {
		s.schedCache.Invalidate(ctx)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{"success": false, "error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
