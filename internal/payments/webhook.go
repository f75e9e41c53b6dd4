package payments

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freightdesk/freightdesk/internal/observability"
	"github.com/freightdesk/freightdesk/internal/platform/httpx"
	"github.com/freightdesk/freightdesk/internal/provider"
)

const signatureHeader = "X-Provider-Signature"

// WebhookHandler receives provider callbacks. Signature failures are the
// only 4xx; everything applied (or safely discarded) acknowledges with 200
// so the provider stops retrying.
type WebhookHandler struct {
	logger  *slog.Logger
	service *Service
	metrics *observability.Metrics
	secret  string
}

// NewWebhookHandler builds the provider webhook endpoint.
func NewWebhookHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics, secret string) *WebhookHandler {
	return &WebhookHandler{logger: logger, service: service, metrics: metrics, secret: secret}
}

// MountRoutes attaches the webhook route.
func (h *WebhookHandler) MountRoutes(r chi.Router) {
	r.Post("/provider", h.Receive)
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unreadable body")
		return
	}
	verified := provider.VerifySignature(h.secret, body, r.Header.Get(signatureHeader))

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		h.metrics.ObserveWebhook("unparseable", "rejected")
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed event payload")
		return
	}

	if err := h.service.ApplyProviderEvent(r.Context(), evt, verified); err != nil {
		if errors.Is(err, httpx.ErrExternal) {
			h.metrics.ObserveWebhook(evt.Type, "rejected")
			h.logger.Warn("webhook rejected", slog.String("event", evt.Type), slog.Any("error", err))
			httpx.Problem(w, http.StatusBadRequest, "Invalid Signature", "webhook signature verification failed")
			return
		}
		h.metrics.ObserveWebhook(evt.Type, "error")
		h.logger.Error("webhook apply failed", slog.String("event", evt.Type), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "event could not be applied")
		return
	}

	h.metrics.ObserveWebhook(evt.Type, "applied")
	httpx.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
