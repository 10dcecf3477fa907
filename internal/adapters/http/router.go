package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/terramind/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Script runs are expensive: 30 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        30,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodGet
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited",
				"too many requests, please try again later", nil)
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware(legacyRoutes))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	scripts := deps.scriptTimeout()

	v1 := app.Group("/v1")
	v1.Post("/scripts/execute", timeout.NewWithContext(ExecuteScriptHandler(deps), scripts))
	v1.Post("/scripts/generate", timeout.NewWithContext(GenerateScriptHandler(deps), 60*time.Second))
	v1.Post("/classify", ClassifyHandler(deps))

	v1.Post("/sessions/:id/runs", timeout.NewWithContext(RunHandler(deps), scripts))
	v1.Get("/sessions/:id/map", GetMapHandler(deps))
	v1.Delete("/sessions/:id/map", ClearMapHandler(deps))

	v1.Post("/polygons/border", timeout.NewWithContext(BorderHandler(deps), 30*time.Second))
	v1.Get("/boundaries", timeout.NewWithContext(BoundariesHandler(deps), 15*time.Second))
	v1.Get("/regions", timeout.NewWithContext(RegionNamesHandler(deps), 15*time.Second))

	// Unversioned routes of the first web app, kept for existing clients
	legacy := app.Group("/api")
	legacy.Post("/gee-run", timeout.NewWithContext(ExecuteScriptHandler(deps), scripts))
	legacy.Post("/generate-script", timeout.NewWithContext(GenerateScriptHandler(deps), 60*time.Second))
	legacy.Post("/nlq-polygon", timeout.NewWithContext(BorderHandler(deps), 30*time.Second))
	legacy.Get("/test-env", ReadyHandler(deps))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, deps.OpenAPIPath)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.RunEvents)))
}
