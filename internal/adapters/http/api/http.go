// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/types"
	"github.com/okian/verdict/pkg/metrics"
)

// requestTimeout bounds every request; engine operations are single-shot
// store reads and writes.
const requestTimeout = 30 * time.Second

// Engine bundles the judging operations the handlers depend on. Using an
// interface keeps the handler layer loosely coupled to the service package.
type Engine interface {
	NextAssignment(ctx context.Context, eventID, judgeID string) (model.Assignment, error)
	RecordVote(ctx context.Context, req service.VoteRequest) (service.VoteReceipt, error)
	SkipAssignment(ctx context.Context, judgeID, assignmentID string) error
	SubmitCriteriaResult(ctx context.Context, req service.ResultRequest) (service.ResultReceipt, error)
	TeamStandings(ctx context.Context, eventID string, limit int) ([]types.StandingEntry, error)
	Stats(ctx context.Context) map[string]interface{}
}

// Server wires HTTP routes for the judging API.
type Server struct {
	engine       Engine
	maxStandings int
}

// NewServer creates an API server. maxStandings caps the standings limit
// query parameter.
func NewServer(engine Engine, maxStandings int) *Server {
	if maxStandings <= 0 {
		maxStandings = 200
	}
	return &Server{engine: engine, maxStandings: maxStandings}
}

// Router builds the chi router with base middlewares and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/healthz", withMetrics("healthz", s.handleHealth))
	r.Get("/stats", withMetrics("stats", s.handleStats))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Post("/events/{eventID}/judges/{judgeID}/assignment", withMetrics("next_assignment", s.handleNextAssignment))
		v1.Post("/votes", withMetrics("record_vote", s.handleRecordVote))
		v1.Post("/assignments/{assignmentID}/skip", withMetrics("skip_assignment", s.handleSkipAssignment))
		v1.Post("/results", withMetrics("submit_result", s.handleSubmitResult))
		v1.Get("/events/{eventID}/standings", withMetrics("standings", s.handleStandings))
	})

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromError(err), errorResponse{
		Code:    codeFromError(err),
		Message: err.Error(),
	})
}

// statusFromError maps engine error kinds to HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func codeFromError(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "not_found"
	case errors.Is(err, service.ErrForbidden):
		return "forbidden"
	case errors.Is(err, service.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, service.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
