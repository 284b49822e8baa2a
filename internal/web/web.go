package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"churchconnect/internal/config"
	"churchconnect/internal/dashboard"
	"churchconnect/internal/ics"
	appLog "churchconnect/internal/log"
	"churchconnect/internal/share"
)

// Server exposes the dashboard commands as a JSON API.
type Server struct {
	cfg    *config.Config
	svc    *dashboard.Service
	loc    *time.Location
	router chi.Router
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *dashboard.Service) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg: cfg,
		svc: svc,
		loc: resolveLocationOrLocal(cfg.Timezone),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler, wrapped with basic auth when
// credentials are configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards every route except /health.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="ChurchConnect", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
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

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/calendar", s.handleCalendar)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleCreateEvent)
			r.Get("/export.ics", s.handleExportAll)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEvent)
				r.Delete("/", s.handleDeleteEvent)
				r.Put("/status", s.handleEventStatus)
				r.Post("/volunteers/{volunteerID}", s.handleToggleVolunteer)
				r.Post("/register", s.handleRegister)
				r.Post("/reminders", s.handleReminders)
				r.Get("/ics", s.handleEventICS)
				r.Get("/links", s.handleEventLinks)
				r.Get("/qr.png", s.handleEventQR)
			})
		})

		r.Post("/export/ics", s.handleExportICS)
		r.Post("/export/links", s.handleExportLinks)
		r.Post("/import", s.handleImport)

		r.Get("/volunteers", s.handleListVolunteers)
		r.Post("/volunteers", s.handleAddVolunteer)

		r.Get("/attendees", s.handleListAttendees)
		r.Put("/attendees/{id}", s.handleUpdateAttendee)
		r.Post("/attendees/{id}/checkin", s.handleCheckIn)

		r.Get("/communications", s.handleListCommunications)
		r.Post("/messages", s.handleSendMessage)

		r.Get("/payments", s.handleListPayments)
		r.Post("/payments/{id}/refund", s.handleRefund)
		r.Get("/donations", s.handleListDonations)
		r.Post("/donations", s.handleRecordDonation)
		r.Post("/donations/{id}/thank-you", s.handleThankYou)
		r.Get("/finance/summary", s.handleFinanceSummary)

		r.Get("/reports/payments.csv", s.handlePaymentsCSV)
		r.Get("/reports/donations.csv", s.handleDonationsCSV)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

type errResp struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg, Code: codeFor(status)})
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable"
	case http.StatusBadGateway:
		return "upstream_failed"
	default:
		return "internal"
	}
}

// writeServiceError maps dashboard and export errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		verr *dashboard.ValidationError
		serr *ics.SerializationError
		cerr *dashboard.CapacityError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errResp{
			Error:  err.Error(),
			Code:   "validation_failed",
			Fields: verr.Fields,
		})
	case errors.As(err, &serr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cerr):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, dashboard.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrInvalidStatus),
		errors.Is(err, dashboard.ErrInvalidMember),
		errors.Is(err, dashboard.ErrUnknownTemplate),
		errors.Is(err, ics.ErrUnknownService),
		errors.Is(err, share.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dashboard.ErrNoRecipients),
		errors.Is(err, dashboard.ErrNoVolunteers),
		errors.Is(err, dashboard.ErrNotExportable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, dashboard.ErrSendFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		appLog.Error("request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
