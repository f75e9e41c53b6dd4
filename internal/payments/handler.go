package payments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freightdesk/freightdesk/internal/auth"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

// Handler exposes payment recording under the order routes. Operator-only;
// customers settle through payment links instead.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the payment handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches payment routes under /orders/{number}. Callers mount
// these behind the operator guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{number}/payments", h.Record)
	r.Get("/{number}/payments", h.List)
}

func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	payment, err := h.service.Record(r.Context(), chi.URLParam(r, "number"), req, auth.ActorName(r.Context()))
	if err != nil {
		h.logger.Warn("record payment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListByOrder(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.ListResponse{Items: list, Total: len(list)})
}
