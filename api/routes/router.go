package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/catalogbrowser/api/controllers"
	"github.com/angelmondragon/catalogbrowser/api/middleware"
	"github.com/angelmondragon/catalogbrowser/internal/shop"
	"github.com/angelmondragon/catalogbrowser/pkg/config"
	"github.com/angelmondragon/catalogbrowser/pkg/db"
	"github.com/angelmondragon/catalogbrowser/pkg/logger"
	"github.com/angelmondragon/catalogbrowser/pkg/metrics"
	"github.com/angelmondragon/catalogbrowser/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	shopService shop.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	readiness := map[string]controllers.Pinger{"db": dbP}
	var (
		idempotencyStore redis.IdempotencyStore
		rateLimitStore   redis.RateLimitStore
	)
	if redisClient != nil {
		readiness["redis"] = redisClient
		idempotencyStore = redisClient
		rateLimitStore = redisClient
	} else {
		readiness["redis"] = nil
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	cartPolicy := middleware.NewRateLimitPolicy("cart", cfg.RateLimit.Window, cfg.RateLimit.Limit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg))

		r.Get("/products", controllers.BrowseProducts(shopService, logg))
		r.Get("/categories", controllers.ListCategories(shopService, logg))
		r.Get("/price-range", controllers.PriceRange(shopService, logg))
		r.Get("/search-history", controllers.SearchHistory(shopService, logg))
		r.Get("/cart", controllers.GetCart(shopService, logg))
		r.Get("/purchases", controllers.ListPurchases(shopService, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.RateLimit(cartPolicy, rateLimitStore, logg),
				middleware.Idempotency(idempotencyStore, cfg.Idempotency.TTL, logg),
			)
			r.Post("/cart/items", controllers.AddCartItem(shopService, logg))
			r.Delete("/cart/items/{name}", controllers.RemoveCartItem(shopService, logg))
			r.Post("/checkout", controllers.Checkout(shopService, logg))
		})
	})

	return r
}
