package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rostersync/internal/platform/middleware"
	"rostersync/internal/roster/models"
	"rostersync/internal/roster/service"
	dErrors "rostersync/pkg/domain-errors"
	"rostersync/pkg/platform/httputil"
)

const ingestTimeout = 3 * time.Minute

// Service is the ingestion surface the handler needs.
type Service interface {
	Ingest(ctx context.Context, req service.IngestRequest) (*service.IngestResult, error)
}

// Handler serves roster ingestion.
type Handler struct {
	logger     *slog.Logger
	service    Service
	adminToken string
}

func New(svc Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{logger: logger, service: svc, adminToken: adminToken}
}

// Register mounts the roster routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(ingestTimeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		r.Post("/rosters/ingest", h.handleIngest)
	})
}

type ingestRequest struct {
	VenueID  string `json:"venueId"`
	FileURL  string `json:"fileUrl"`
	WeekHint string `json:"weekHint,omitempty"`
}

type ingestResponse struct {
	Success        bool          `json:"success"`
	RosterID       string        `json:"rosterId,omitempty"`
	Version        int           `json:"version,omitempty"`
	WeekStart      string        `json:"weekStart,omitempty"`
	Duplicate      bool          `json:"duplicate,omitempty"`
	Stats          service.Stats `json:"stats"`
	UnmatchedNames []string      `json:"unmatchedNames"`
}

type errorResponse struct {
	Success          bool   `json:"success"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var body ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.WarnContext(ctx, "invalid ingest request",
			"request_id", requestID,
			"error", err.Error(),
		)
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	req, err := body.toService()
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.service.Ingest(ctx, req)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "roster ingestion failed",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		writeError(w, err)
		return
	}

	names := res.UnmatchedNames
	if names == nil {
		names = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, ingestResponse{
		Success:        true,
		RosterID:       res.RosterID.String(),
		Version:        res.Version,
		WeekStart:      res.WeekStart.String(),
		Duplicate:      res.Duplicate,
		Stats:          res.Stats,
		UnmatchedNames: names,
	})
}

func (b ingestRequest) toService() (service.IngestRequest, error) {
	if b.VenueID == "" || b.FileURL == "" {
		return service.IngestRequest{}, dErrors.New(dErrors.CodeValidation, "Missing required fields: venueId, fileUrl")
	}
	venueID, err := uuid.Parse(b.VenueID)
	if err != nil {
		return service.IngestRequest{}, dErrors.New(dErrors.CodeBadRequest, "venueId must be a UUID")
	}
	req := service.IngestRequest{VenueID: venueID, FileURL: b.FileURL}
	if b.WeekHint != "" {
		hint, err := models.ParseDate(b.WeekHint)
		if err != nil {
			return service.IngestRequest{}, dErrors.New(dErrors.CodeBadRequest, "weekHint must be YYYY-MM-DD")
		}
		req.WeekHint = &hint
	}
	return req, nil
}

// writeError keeps the success flag on failures so callers always read one shape.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	status := httputil.StatusFor(code)
	if de, ok := dErrors.As(err); ok {
		if status != http.StatusInternalServerError {
			resp.ErrorDescription = de.Message
		}
		if de.Retryable {
			w.Header().Set("Retry-After", "30")
		}
	}
	httputil.WriteJSON(w, status, resp)
}
