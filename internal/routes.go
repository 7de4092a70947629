package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	"pocketlytics/internal/analytics"
	"pocketlytics/internal/config"
	"pocketlytics/internal/http"
	"pocketlytics/internal/http/middleware"
)

// apiCORSConfig is shared by the read-only analytics API so dashboards on
// other origins can query it.
var apiCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization",
}

// Routes holds what the route handlers depend on.
type Routes struct {
	Analytics *analytics.Service
	Store     http.Pinger
}

// Mount mounts all application routes using cartridge's route API
func (r Routes) Mount(srv *cartridge.Server) {
	cfg := config.GetConfig()
	logger := srv.GetLogger()

	// Rate limiting would interfere with testing, so it only applies in production
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	apiRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(300),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	siteAPIConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CORSConfig:         apiCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware: []fiber.Handler{
			apiRateLimiter,
			middleware.SiteScope(r.Analytics, logger),
		},
	}

	// === ROOT ROUTES ===
	srv.Get("/_health", http.HealthIndexAction(r.Store))
	srv.Head("/_health", http.HealthIndexAction(r.Store))
	srv.Get("/metrics", http.MetricsAction)

	// === SITE ANALYTICS API ===
	h := http.NewAnalyticsHandler(r.Analytics)
	srv.Get("/api/sites/:site/events/series", h.EventSeriesAction, siteAPIConfig)
	srv.Get("/api/sites/:site/overview-bucketed", h.OverviewBucketedAction, siteAPIConfig)
	srv.Get("/api/sites/:site/overview", h.OverviewAction, siteAPIConfig)
	srv.Get("/api/sites/:site/metric", h.MetricAction, siteAPIConfig)
	srv.Get("/api/sites/:site/sessions", h.SessionsAction, siteAPIConfig)
	srv.Get("/api/sites/:site/users", h.UsersAction, siteAPIConfig)
	srv.Get("/api/sites/:site/live-user-count", h.LiveUserCountAction, siteAPIConfig)
}
