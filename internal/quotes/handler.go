package quotes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freightdesk/freightdesk/internal/auth"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

// Handler exposes the quote ledger over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the quote handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches quote routes. Creation is open to customers; the rest
// is operator-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireOperator)
		r.Get("/", h.List)
		r.Get("/{number}", h.Show)
		r.Put("/{number}", h.Update)
		r.Post("/{number}/send", h.Send)
		r.Post("/{number}/accept", h.Accept)
		r.Post("/{number}/convert", h.Convert)
		r.Post("/{number}/reject", h.Reject)
		r.Post("/{number}/expire", h.Expire)
		r.Post("/{number}/reopen", h.Reopen)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	quote, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Warn("create quote", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := httpx.ParsePage(r)
	req := ListQuotesRequest{
		Search: r.URL.Query().Get("q"),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := Status(raw)
		req.Status = &status
	}
	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list quotes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.ListResponse{Items: items, Total: total})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.Get(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	quote, err := h.service.Update(r.Context(), chi.URLParam(r, "number"), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	quote, token, err := h.service.Send(r.Context(), chi.URLParam(r, "number"), auth.ActorName(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"quote":              quote,
		"payment_link_token": token,
	})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.Accept(r.Context(), chi.URLParam(r, "number"), auth.ActorName(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	ord, err := h.service.Convert(r.Context(), chi.URLParam(r, "number"), auth.ActorName(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"order_number": ord.Number})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.Reject(r.Context(), chi.URLParam(r, "number"), auth.ActorName(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Expire(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.Expire(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Reopen(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.Reopen(r.Context(), chi.URLParam(r, "number"), auth.ActorName(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}
