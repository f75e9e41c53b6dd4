package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk/internal/observability"
	"github.com/freightdesk/freightdesk/internal/orders"
	"github.com/freightdesk/freightdesk/internal/provider"
)

const webhookSecret = "whsec_test"

func webhookServer(t *testing.T) (*httptest.Server, *memRepo, *memOrders, *orders.Order) {
	t.Helper()
	payRepo := newMemRepo()
	orderRepo := newMemOrders()
	order := seedOrder(t, orderRepo, 5000)
	svc := newTestService(payRepo, orderRepo, nil)

	r := chi.NewRouter()
	handler := NewWebhookHandler(slog.Default(), svc, observability.NewMetrics(), webhookSecret)
	r.Route("/webhooks", handler.MountRoutes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, payRepo, orderRepo, order
}

func postEvent(t *testing.T, srv *httptest.Server, evt Event, sign bool) *http.Response {
	t.Helper()
	body, err := json.Marshal(evt)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/provider", bytes.NewReader(body))
	require.NoError(t, err)
	if sign {
		req.Header.Set(signatureHeader, provider.Signature(webhookSecret, body))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestWebhookAppliesSignedEvent(t *testing.T) {
	srv, payRepo, orderRepo, order := webhookServer(t)

	svc := newTestService(payRepo, orderRepo, nil)
	pending, err := svc.CreatePending(context.Background(), order.ID, 1500, "CNY", TypeDeposit, "sbx_w1")
	require.NoError(t, err)

	resp := postEvent(t, srv, Event{ID: "evt_1", Type: EventSucceeded, ProviderRef: "sbx_w1"}, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	after, err := payRepo.Get(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, after.Status)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	srv, payRepo, orderRepo, order := webhookServer(t)

	svc := newTestService(payRepo, orderRepo, nil)
	pending, err := svc.CreatePending(context.Background(), order.ID, 1500, "CNY", TypeDeposit, "sbx_w2")
	require.NoError(t, err)

	resp := postEvent(t, srv, Event{ID: "evt_1", Type: EventSucceeded, ProviderRef: "sbx_w2"}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	after, err := payRepo.Get(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, after.Status)
}

func TestWebhookAcknowledgesUnknownRef(t *testing.T) {
	srv, _, _, _ := webhookServer(t)

	resp := postEvent(t, srv, Event{ID: "evt_1", Type: EventSucceeded, ProviderRef: "ghost"}, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	srv, _, _, _ := webhookServer(t)

	body := []byte("{not json")
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/provider", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(signatureHeader, provider.Signature(webhookSecret, body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
