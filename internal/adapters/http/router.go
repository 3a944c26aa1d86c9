package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/karabomaleka/tshwanebus/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1, 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/routes", timeout.NewWithContext(ListRoutesHandler(deps), 15*time.Second))
	v1.Get("/routes/search", timeout.NewWithContext(SearchRoutesHandler(deps), 15*time.Second))
	v1.Get("/routes/plan", timeout.NewWithContext(PlanRouteHandler(deps), 15*time.Second))
	v1.Get("/routes/:id", timeout.NewWithContext(GetRouteHandler(deps), 15*time.Second))
	v1.Get("/routes/:id/schedules", timeout.NewWithContext(RouteSchedulesHandler(deps), 15*time.Second))
	v1.Get("/bus-stops/nearby", timeout.NewWithContext(NearbyStopsHandler(deps), 15*time.Second))
	v1.Get("/bus-schedules", timeout.NewWithContext(ListSchedulesHandler(deps), 15*time.Second))

	// Authenticated wallet and ticket endpoints
	authed := v1.Group("", AuthMiddleware(deps.Auth))
	authed.Get("/wallet", timeout.NewWithContext(GetWalletHandler(deps), 15*time.Second))
	authed.Post("/wallet/topup", timeout.NewWithContext(TopUpWalletHandler(deps), 15*time.Second))
	authed.Post("/tickets/purchase", timeout.NewWithContext(PurchaseTicketHandler(deps), 15*time.Second))
	authed.Get("/tickets/active", timeout.NewWithContext(ActiveTicketsHandler(deps), 15*time.Second))
	authed.Post("/tickets/:id/refund", timeout.NewWithContext(RefundTicketHandler(deps), 15*time.Second))

	// Administrative CRUD
	admin := v1.Group("/admin", AuthMiddleware(deps.Auth))
	admin.Post("/routes", timeout.NewWithContext(CreateRouteHandler(deps), 15*time.Second))
	admin.Put("/routes/:id", timeout.NewWithContext(UpdateRouteHandler(deps), 15*time.Second))
	admin.Delete("/routes/:id", timeout.NewWithContext(DeleteRouteHandler(deps), 15*time.Second))
	admin.Post("/schedules", timeout.NewWithContext(CreateScheduleHandler(deps), 15*time.Second))
	admin.Delete("/schedules/:id", timeout.NewWithContext(DeleteScheduleHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
