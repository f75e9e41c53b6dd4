package documents

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

// Handler serves billing PDFs. Operator-only.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the documents handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches document routes under /orders/{number}. Callers
// mount these behind the operator guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{number}/documents/{kind}", h.Issue)
}

func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Issue(r.Context(), chi.URLParam(r, "number"), Kind(chi.URLParam(r, "kind")))
	if err != nil {
		h.logger.Warn("issue document", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", doc.Number))
	w.Header().Set("X-Document-Number", doc.Number)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(doc.PDF)
}
