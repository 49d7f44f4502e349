package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/harmonia-shop/harmonia/internal/audit"
	"github.com/harmonia-shop/harmonia/internal/catalog"
	"github.com/harmonia-shop/harmonia/internal/inventory"
	"github.com/harmonia-shop/harmonia/internal/observability"
	"github.com/harmonia-shop/harmonia/internal/orders"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	InventoryHandler *inventory.Handler
	AuditHandler     *audit.Handler
	OrdersHandler    *orders.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Harmonia defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Webhooks are exempt from rate limiting: throttling the gateway
	// would only cause redeliveries of already-paid events.
	r.Route("/webhooks", params.OrdersHandler.MountWebhookRoutes)

	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(60, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Route("/products", params.CatalogHandler.MountRoutes)
		r.Route("/checkout", params.InventoryHandler.MountCheckoutRoutes)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Route("/inventory", func(r chi.Router) {
			params.InventoryHandler.MountAdminRoutes(r)
			params.AuditHandler.MountRoutes(r)
		})
		r.Route("/orders", params.OrdersHandler.MountAdminRoutes)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
