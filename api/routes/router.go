package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/alexandria-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/alexandria-backend/api/controllers/webhooks"
	"github.com/angelmondragon/alexandria-backend/api/middleware"
	"github.com/angelmondragon/alexandria-backend/internal/cart"
	"github.com/angelmondragon/alexandria-backend/internal/catalog"
	checkoutsvc "github.com/angelmondragon/alexandria-backend/internal/checkout"
	"github.com/angelmondragon/alexandria-backend/internal/newsletter"
	"github.com/angelmondragon/alexandria-backend/internal/orders"
	"github.com/angelmondragon/alexandria-backend/internal/reviews"
	stripewebhook "github.com/angelmondragon/alexandria-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/alexandria-backend/pkg/config"
	"github.com/angelmondragon/alexandria-backend/pkg/db"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"github.com/angelmondragon/alexandria-backend/pkg/metrics"
	"github.com/angelmondragon/alexandria-backend/pkg/redis"
	"github.com/angelmondragon/alexandria-backend/pkg/stripe"
)

// Dependencies is everything the HTTP surface is wired against.
type Dependencies struct {
	DB    *db.Client
	Redis *redis.Client

	Catalog    catalog.Service
	Cart       cart.Service
	Orders     orders.Service
	Checkout   checkoutsvc.Service
	Reviews    *reviews.Service
	Newsletter *newsletter.Service

	StripeClient  *stripe.Client
	StripeWebhook *stripewebhook.Service
	WebhookGuard  *stripewebhook.EventGuard

	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, pingers(deps), logg))
	})

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// Stripe calls the webhook without a browser session.
	r.Post("/api/v1/webhooks/stripe", webhookcontrollers.StripeWebhook(webhookService(deps), stripeParser(deps), eventGuard(deps), logg))

	signupPolicy := middleware.NewRateLimitPolicy(
		"newsletter",
		cfg.Newsletter.SignupWindow,
		cfg.Newsletter.SignupIPLimit,
		0,
	)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(middleware.SessionOptions{
			CookieName: cfg.Checkout.SessionCookie,
			TTL:        cfg.Checkout.SessionTTL,
			Secure:     cfg.App.IsProd(),
		}, logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/books", controllers.BooksList(deps.Catalog, logg))
			r.Get("/books/{bookID}", controllers.BookDetail(deps.Catalog, logg))
			r.Get("/books/{bookID}/reviews", controllers.ReviewsList(reviewService(deps), logg))
			r.Post("/books/{bookID}/reviews", controllers.ReviewsSubmit(reviewService(deps), logg))
			r.Get("/genres", controllers.BookGenres(deps.Catalog, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Cart, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
				r.Patch("/items/{itemID}", controllers.CartUpdateItem(deps.Cart, logg))
				r.Delete("/items/{itemID}", controllers.CartRemoveItem(deps.Cart, logg))
			})

			r.Post("/checkout/payment-intent", controllers.CheckoutPaymentIntent(deps.Checkout, logg))

			r.Get("/orders", controllers.OrderHistory(deps.Orders, logg))
			r.Get("/orders/{orderID}", controllers.OrderDetail(deps.Orders, logg))

			signup := controllers.NewsletterSubscribe(newsletterService(deps), logg)
			if deps.Redis != nil {
				r.With(middleware.RateLimit(signupPolicy, deps.Redis, logg)).Post("/newsletter", signup)
			} else {
				r.Post("/newsletter", signup)
			}
		})

		r.Route("/api/admin/v1", func(r chi.Router) {
			r.Use(middleware.AdminToken(cfg.Admin.Token, logg))
			r.Get("/orders", controllers.AdminOrdersByCustomer(deps.Orders, logg))
			r.Get("/orders/{orderID}", controllers.AdminOrderDetail(deps.Orders, logg))
			r.Post("/orders/{orderID}/status", controllers.AdminOrderStatus(deps.Orders, logg))
		})
	})

	return r
}

func pingers(deps Dependencies) map[string]controllers.Pinger {
	out := map[string]controllers.Pinger{}
	if deps.DB != nil {
		out["db"] = deps.DB
	}
	if deps.Redis != nil {
		out["redis"] = deps.Redis
	}
	return out
}

// The helpers below keep typed nil pointers from turning into non-nil interfaces, so
// controllers can report a missing dependency instead of panicking.

func reviewService(deps Dependencies) controllers.ReviewService {
	if deps.Reviews == nil {
		return nil
	}
	return deps.Reviews
}

func newsletterService(deps Dependencies) controllers.NewsletterService {
	if deps.Newsletter == nil {
		return nil
	}
	return deps.Newsletter
}

func webhookService(deps Dependencies) webhookcontrollers.StripeWebhookService {
	if deps.StripeWebhook == nil {
		return nil
	}
	return deps.StripeWebhook
}

func stripeParser(deps Dependencies) webhookcontrollers.EventParser {
	if deps.StripeClient == nil {
		return nil
	}
	return deps.StripeClient
}

func eventGuard(deps Dependencies) webhookcontrollers.StripeWebhookGuard {
	if deps.WebhookGuard == nil {
		return nil
	}
	return deps.WebhookGuard
}
