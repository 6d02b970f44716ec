package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rostersync/internal/notification/service"
	"rostersync/internal/platform/middleware"
	dErrors "rostersync/pkg/domain-errors"
	"rostersync/pkg/platform/httputil"
)

const sweepTimeout = 2 * time.Minute

// Service is the sweep surface the handler needs.
type Service interface {
	Sweep(ctx context.Context) (*service.Result, error)
}

// Handler lets a scheduler trigger a notification sweep over HTTP.
type Handler struct {
	logger     *slog.Logger
	service    Service
	adminToken string
}

func New(svc Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{logger: logger, service: svc, adminToken: adminToken}
}

// Register mounts the notification routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(sweepTimeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		r.Post("/notifications/sweep", h.handleSweep)
	})
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := h.service.Sweep(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "notification sweep failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		code := dErrors.CodeOf(err)
		status := httputil.StatusFor(code)
		resp := errorResponse{Error: string(code)}
		if de, ok := dErrors.As(err); ok && status != http.StatusInternalServerError {
			resp.ErrorDescription = de.Message
		}
		httputil.WriteJSON(w, status, resp)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
