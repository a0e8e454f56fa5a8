package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
	"github.com/JakeFAU/annual-report-harvester/internal/metrics"
	"github.com/JakeFAU/annual-report-harvester/internal/pipeline"
)

const (
	maxBodyBytes      = 1 << 20
	successMessage    = "files uploaded successfully"
	genericRunFailure = "some error occurred"
)

// Harvester is the pipeline surface the handlers drive.
type Harvester interface {
	Industries(ctx context.Context) []harvest.Industry
	Companies(ctx context.Context, industry harvest.Industry) []harvest.Company
	Contacts(ctx context.Context, profileURL string) harvest.ContactRecord
	NotifyCompany(ctx context.Context, companyName, profileURL string) (harvest.NotificationResponse, error)
	Run(ctx context.Context, mode pipeline.Mode, batches []pipeline.IndustryBatch) (*pipeline.Report, error)
	RunIndustry(ctx context.Context, industry harvest.Industry) (*pipeline.Report, error)
	RunEntries(ctx context.Context, runID string) ([]harvest.ArchiveEntry, error)
}

// Options configures a Server.
type Options struct {
	// APIKey enables key checking when non-empty.
	APIKey string
	// RequestTimeout bounds every request, including runs. Zero disables it.
	RequestTimeout time.Duration
	// RunContext parents every run so shutdown cancels them. Defaults to
	// context.Background.
	RunContext context.Context
	// RequestIDs generates X-Request-ID values.
	RequestIDs func() string
}

// Server wires HTTP handlers to the harvester.
type Server struct {
	router    chi.Router
	harvester Harvester
	logger    *zap.Logger
	runCtx    context.Context
	timeout   time.Duration
}

// NewServer constructs a Server with middleware and routes.
func NewServer(h Harvester, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	runCtx := opts.RunContext
	if runCtx == nil {
		runCtx = context.Background()
	}
	s := &Server{
		harvester: h,
		logger:    logger.Named("api"),
		runCtx:    runCtx,
		timeout:   opts.RequestTimeout,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(opts.RequestIDs))
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Run-ID"},
		MaxAge:         300,
	}))
	r.Use(bodyLimitMiddleware(maxBodyBytes))
	if opts.RequestTimeout > 0 {
		r.Use(timeoutMiddleware(opts.RequestTimeout))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if opts.APIKey != "" {
			r.Use(apiKeyMiddleware(opts.APIKey))
		}
		r.Get("/industries", s.listIndustries)
		r.Post("/companies", s.listCompanies)
		r.Post("/companypdfurl", s.notifyCompany)
		r.Post("/emails", s.companyContacts)
		r.Post("/company", s.archiveCompanies)
		r.Post("/industries_data", s.harvestIndustry)
		r.Get("/runs/{run_id}", s.runEntries)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.harvester == nil {
		s.writeError(w, http.StatusServiceUnavailable, "harvester not configured")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listIndustries(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, toIndustryViews(s.harvester.Industries(r.Context())))
}

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	var req industryRequest
	if !s.decode(w, r, &req) {
		return
	}
	industry, err := req.resolve()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.harvester.Companies(r.Context(), industry))
}

func (s *Server) companyContacts(w http.ResponseWriter, r *http.Request) {
	var req emailsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.harvester.Contacts(r.Context(), req.CompanyID))
}

func (s *Server) notifyCompany(w http.ResponseWriter, r *http.Request) {
	var req companyPDFRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.harvester.NotifyCompany(r.Context(), req.CompanyName, req.CompanyID)
	if err != nil {
		s.logger.Warn("company notification failed", zap.String("company", req.CompanyName), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(resp.Raw) > 0 && json.Valid(resp.Raw) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(resp.Raw); err != nil {
			s.logger.Error("write response failed", zap.Error(err))
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": resp.Message})
}

func (s *Server) archiveCompanies(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	batches, err := req.toBatches()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := s.runContext()
	defer cancel()
	report, err := s.harvester.Run(ctx, pipeline.ModeArchiveOnly, batches)
	s.writeRunOutcome(w, report, err)
}

func (s *Server) harvestIndustry(w http.ResponseWriter, r *http.Request) {
	var req industryRequest
	if !s.decode(w, r, &req) {
		return
	}
	industry, err := req.resolve()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := s.runContext()
	defer cancel()
	report, err := s.harvester.RunIndustry(ctx, industry)
	s.writeRunOutcome(w, report, err)
}

func (s *Server) runEntries(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	entries, err := s.harvester.RunEntries(r.Context(), runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch run entries")
		return
	}
	if len(entries) == 0 {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "entries": entries})
}

// runContext detaches runs from the client connection: a run keeps going if
// the caller disconnects, and stops on server shutdown or timeout.
func (s *Server) runContext() (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(s.runCtx, s.timeout)
	}
	return context.WithCancel(s.runCtx)
}

func (s *Server) writeRunOutcome(w http.ResponseWriter, report *pipeline.Report, err error) {
	if report != nil && report.RunID != "" {
		w.Header().Set("X-Run-ID", report.RunID)
	}
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"message": successMessage})
	case errors.Is(err, pipeline.ErrNoIndustries):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrGrantFailed):
		s.logger.Error("run failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, genericRunFailure)
	default:
		s.logger.Error("run failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
