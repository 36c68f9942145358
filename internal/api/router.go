package api

import (
	"log/slog"
	"net/http"
	"time"

	"tellme/internal/api/handlers"
	"tellme/internal/api/middleware"
	"tellme/internal/sandbox"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds dependencies for the sandbox router
type RouterConfig struct {
	Store  *sandbox.Store
	Issuer *sandbox.Issuer
	Logger *slog.Logger

	// RejectProvider makes POST /bookings/ refuse a provider field
	RejectProvider bool
	GatewayKey     string
	GatewaySecret  string
	// ExposeMetrics serves the default Prometheus registry on /metrics
	ExposeMetrics  bool
	// AllowedOrigins enables CORS for browser storefronts; empty disables it
	AllowedOrigins []string
}

// NewRouter creates and configures the Gin router. Routes mirror the
// storefront backend under /api, trailing slashes included.
func NewRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()

	// Apply global middleware
	if len(config.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  config.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", middleware.RequestIDKey},
			ExposeHeaders: []string{"Content-Length", middleware.RequestIDKey},
			MaxAge:        12 * time.Hour,
		}))
	}
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.ContentType())

	// Health check (no auth)
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.GetHealth)
	if config.ExposeMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	accounts := handlers.NewAccountsHandler(config.Store, config.Issuer, logger)
	catalog := handlers.NewCatalogHandler(config.Store)
	bookings := handlers.NewBookingsHandler(config.Store, config.RejectProvider, logger)
	saved := handlers.NewSavedHandler(config.Store)
	barcodes := handlers.NewBarcodesHandler(config.Store, config.GatewayKey, config.GatewaySecret, logger)
	vendors := handlers.NewVendorsHandler(config.Store, logger)

	// Public routes
	public := router.Group("/api")
	{
		public.POST("/accounts/register/", accounts.Register)
		public.POST("/accounts/login/", accounts.Login)
		public.POST("/accounts/refresh/", accounts.Refresh)
		public.POST("/accounts/password-reset/", accounts.PasswordReset)
		public.GET("/categories/", vendors.Categories)
		public.GET("/services/providers/by-service/", catalog.ProvidersByService)
		public.GET("/bookings/slots/", catalog.Slots)
	}

	// Authenticated routes
	authed := router.Group("/api")
	authed.Use(middleware.BearerAuth(config.Issuer))
	{
		authed.GET("/accounts/profile/", accounts.GetProfile)
		authed.PUT("/accounts/profile/", accounts.UpdateProfile)

		authed.POST("/bookings/", bookings.Create)
		authed.GET("/bookings/", bookings.List)

		authed.GET("/saved/profile/saved-services/", saved.List)
		authed.POST("/saved/save-service/", saved.Toggle)

		authed.POST("/barcodes/orders/", barcodes.CreateOrder)
		authed.POST("/barcodes/orders/:id/create_razorpay_order/", barcodes.StartPayment)
		authed.POST("/barcodes/orders/:id/verify_payment/", barcodes.VerifyPayment)

		authed.POST("/providers/create/", vendors.CreateProvider)
	}

	return router
}
