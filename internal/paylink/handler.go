package paylink

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

// Handler is the public pay surface. Token is the only credential, so the
// routes are rate limited per client IP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the pay handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches the public pay routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(httprate.LimitByIP(30, time.Minute))
	r.Get("/{token}", h.Show)
	r.Post("/{token}/redeem", h.Redeem)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.Lookup(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, link)
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Redeem(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.logger.Warn("redeem payment link", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
