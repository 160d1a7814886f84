// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/utm-tracker/app/dto"
	"github.com/amirphl/utm-tracker/app/handlers"
	"github.com/amirphl/utm-tracker/app/middleware"
	"github.com/amirphl/utm-tracker/config"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// Handlers groups every endpoint handler the router mounts
type Handlers struct {
	TrackClick handlers.TrackClickHandlerInterface
	ShortLink  handlers.ShortLinkHandlerInterface
	UTMLink    handlers.UTMLinkHandlerInterface
	BulkImport handlers.BulkImportHandlerInterface
	Dashboard  handlers.DashboardHandlerInterface
	UserEmail  handlers.UserEmailHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	handlers       Handlers
	authMiddleware *middleware.AuthMiddleware
	cfg            *config.ProductionConfig
	logger         *zap.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(h Handlers, authMiddleware *middleware.AuthMiddleware, cfg *config.ProductionConfig, logger *zap.Logger) Router {
	logger = utils.OrNop(logger)

	r := &FiberRouter{
		handlers:       h,
		authMiddleware: authMiddleware,
		cfg:            cfg,
		logger:         logger,
	}

	r.app = fiber.New(fiber.Config{
		AppName:      "UTM Tracker API",
		ServerHeader: "utm-tracker",
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ProxyHeader:  cfg.Server.ProxyHeader,
		TrustProxy:   cfg.Server.ProxyHeader != "", // c.IP() reads ProxyHeader only from trusted peers
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies:  cfg.Server.TrustedProxies,
			Loopback: true,
			Private:  cfg.Server.TrustPrivateProxies,
		},
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})

	return r
}

// isPublicCORSPath reports whether the route answers its own CORS headers
func isPublicCORSPath(path string) bool {
	return path == utils.TrackPath || path == utils.LegacyTrackPath || path == "/api/v1/shorten"
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.logger.Info("Setting up routes")

	// Global middleware
	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Tracker: public, limited per visitor address
	trackLimiter := r.rateLimiter(r.cfg.Security.TrackerRateLimit, nil)
	r.app.Get(utils.TrackPath, trackLimiter, r.handlers.TrackClick.Track)
	r.app.Options(utils.TrackPath, r.handlers.TrackClick.Preflight)
	r.app.Get(utils.LegacyTrackPath, trackLimiter, r.handlers.TrackClick.Track)
	r.app.Options(utils.LegacyTrackPath, r.handlers.TrackClick.Preflight)

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	api.Use(r.rateLimiter(r.cfg.Security.GlobalRateLimit, func(c fiber.Ctx) bool {
		// health checks and the tracker have their own rules
		return c.Path() == "/api/v1/health" || c.Path() == utils.TrackPath
	}))

	// Public endpoints
	api.Post("/shorten", r.handlers.ShortLink.Shorten)
	api.Options("/shorten", r.handlers.ShortLink.Preflight)
	api.Get("/catalog", r.handlers.Dashboard.Catalog)

	// Authenticated endpoints
	auth := r.authMiddleware.Authenticate()

	links := api.Group("/utm-links", auth)
	links.Post("/", r.handlers.UTMLink.CreateUTMLink)
	links.Get("/", r.handlers.Dashboard.ListUTMLinks)
	links.Get("/export/csv", r.handlers.Dashboard.ExportCSV)
	links.Get("/export/xlsx", r.handlers.Dashboard.ExportXLSX)
	links.Get("/:id", r.handlers.UTMLink.GetUTMLink)

	bulk := api.Group("/bulk-import", auth)
	bulk.Post("/", r.handlers.BulkImport.Import)
	bulk.Post("/xlsx", r.handlers.BulkImport.ImportXLSX)
	bulk.Post("/fix", r.handlers.BulkImport.FixBulkLinks)

	api.Post("/user-emails", auth, r.handlers.UserEmail.GetUserEmails)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured successfully")
}

// rateLimiter limits requests per client address within the configured window
func (r *FiberRouter) rateLimiter(max int, next func(c fiber.Ctx) bool) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: next,
	})
}

// SetupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	// Security headers middleware; redirects must stay embeddable from any origin
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		HSTSExcludeSubdomains:     false,
		ReferrerPolicy:            "no-referrer-when-downgrade",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS for the dashboard; public endpoints answer with their own wildcard headers
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           utils.CORSMaxAge,
		Next: func(c fiber.Ctx) bool {
			return isPublicCORSPath(c.Path())
		},
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// redirects carry no body worth compressing
			return isPublicCORSPath(c.Path()) && c.Method() == fiber.MethodGet
		},
	}))

	// Access log
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			// Skip logging for health checks and scrapes
			return c.Path() == "/api/v1/health" || c.Path() == r.cfg.Metrics.Path
		},
	}))

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("Panic recovered",
				zap.String("request_id", c.GetRespHeader("X-Request-ID")),
				zap.String("error", fmt.Sprint(e)),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
	return r.app.Listen(address)
}

// Shutdown drains in-flight requests until ctx expires
func (r *FiberRouter) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":      "ok",
			"timestamp":   utils.UTCNow().Unix(),
			"version":     r.cfg.Deployment.Version,
			"commit":      r.cfg.Deployment.CommitHash,
			"environment": r.cfg.Deployment.Environment,
			"service":     "utm-tracker-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.GetRespHeader("X-Request-ID"),
			},
		},
	})
}

// Global error handler
func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	// Default error code
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errCode = "REQUEST_ERROR"
		}
	}

	requestID := c.GetRespHeader("X-Request-ID")
	r.logger.Error("Request failed",
		zap.Int("status", code),
		zap.String("request_id", requestID),
		zap.String("path", c.Path()),
		zap.Error(err),
	)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
