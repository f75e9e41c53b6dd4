package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

// Handler issues and revokes operator tokens. Issuance is guarded by the
// bootstrap key, which stays in the deployment environment.
type Handler struct {
	logger       *slog.Logger
	resolver     *Resolver
	bootstrapKey string
}

// NewHandler builds the auth handler.
func NewHandler(logger *slog.Logger, resolver *Resolver, bootstrapKey string) *Handler {
	return &Handler{logger: logger, resolver: resolver, bootstrapKey: bootstrapKey}
}

// MountRoutes attaches auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/token", h.IssueToken)
	r.Post("/revoke", h.Revoke)
}

type issueTokenRequest struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if h.bootstrapKey == "" || subtle.ConstantTimeCompare([]byte(req.Key), []byte(h.bootstrapKey)) != 1 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid bootstrap key")
		return
	}
	name := req.Name
	if name == "" {
		name = "operator"
	}
	token, err := h.resolver.IssueToken(r.Context(), Actor{ID: uuid.NewString(), Name: name, Role: RoleOperator})
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing bearer token")
		return
	}
	if err := h.resolver.Revoke(r.Context(), token); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
