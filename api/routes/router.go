package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haggleport/haggleport-backend/api/controllers"
	webhookcontrollers "github.com/haggleport/haggleport-backend/api/controllers/webhooks"
	"github.com/haggleport/haggleport-backend/api/middleware"
	checkoutsvc "github.com/haggleport/haggleport-backend/internal/checkout"
	onboardingsvc "github.com/haggleport/haggleport-backend/internal/onboarding"
	ordersvc "github.com/haggleport/haggleport-backend/internal/orders"
	"github.com/haggleport/haggleport-backend/pkg/config"
	"github.com/haggleport/haggleport-backend/pkg/db"
	"github.com/haggleport/haggleport-backend/pkg/logger"
	"github.com/haggleport/haggleport-backend/pkg/redis"
	"github.com/haggleport/haggleport-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      *redis.Client
	Stripe     *stripe.Client
	Checkout   *checkoutsvc.Service
	Orders     *ordersvc.Service
	Onboarding *onboardingsvc.Service
	Webhooks   webhookcontrollers.StripeWebhookService
	Registry   *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(params.Webhooks, params.Stripe, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/checkout", controllers.Checkout(params.Checkout, logg))
		r.Get("/orders", controllers.ListOrders(params.Orders, logg))
		r.Post("/sellers/onboarding", controllers.SellerOnboarding(params.Onboarding, logg))
	})

	return r
}
