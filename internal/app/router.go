package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/freightdesk/freightdesk/internal/auth"
	"github.com/freightdesk/freightdesk/internal/documents"
	"github.com/freightdesk/freightdesk/internal/observability"
	"github.com/freightdesk/freightdesk/internal/orders"
	"github.com/freightdesk/freightdesk/internal/paylink"
	"github.com/freightdesk/freightdesk/internal/payments"
	"github.com/freightdesk/freightdesk/internal/quotes"
	"github.com/freightdesk/freightdesk/internal/rates"
	"github.com/freightdesk/freightdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Resolver         *auth.Resolver
	AuthHandler      *auth.Handler
	RatesHandler     *rates.Handler
	QuotesHandler    *quotes.Handler
	OrdersHandler    *orders.Handler
	PaymentsHandler  *payments.Handler
	WebhookHandler   *payments.WebhookHandler
	PayHandler       *paylink.Handler
	DocumentsHandler *documents.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Resolver: params.Resolver,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/rates", params.RatesHandler.MountRoutes)
		r.Route("/quotes", params.QuotesHandler.MountRoutes)
		r.Route("/orders", func(r chi.Router) {
			r.Use(auth.RequireOperator)
			params.OrdersHandler.MountRoutes(r)
			params.PaymentsHandler.MountRoutes(r)
			params.DocumentsHandler.MountRoutes(r)
		})
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	r.Route("/pay", params.PayHandler.MountRoutes)
	r.Route("/webhooks", params.WebhookHandler.MountRoutes)

	return r
}
