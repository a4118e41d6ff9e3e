package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	checkoutapp "github.com/streamvault/backend/internal/application/checkout"
	"github.com/streamvault/backend/internal/domain/checkout"
	"github.com/streamvault/backend/internal/domain/shared"
	"github.com/streamvault/backend/internal/infrastructure/access"
	"github.com/streamvault/backend/internal/infrastructure/cache"
	"github.com/streamvault/backend/internal/infrastructure/config"
	"github.com/streamvault/backend/internal/infrastructure/logger"
	"github.com/streamvault/backend/internal/infrastructure/notification"
	"github.com/streamvault/backend/internal/infrastructure/payment"
	"github.com/streamvault/backend/internal/infrastructure/persistence"
	"github.com/streamvault/backend/internal/interfaces/http/handler"
	"github.com/streamvault/backend/internal/interfaces/http/middleware"
	"github.com/streamvault/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting StreamVault Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB, cfg.Checkout.OrderCodePrefix)

	// Idempotency store for webhook event replay suppression. Redis is
	// preferred; the in-memory store only protects a single process.
	var idempotencyStore shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory idempotency store", zap.Error(err))
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
	} else {
		idempotencyStore = redisStore
		log.Info("Redis idempotency store connected", zap.String("addr", cfg.Redis.Addr()))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Payment gateway
	var gateway checkout.PaymentGateway
	if cfg.Stripe.Enabled {
		stripeAdapter, err := payment.NewStripeAdapter(&payment.StripeConfig{
			SecretKey:       cfg.Stripe.SecretKey,
			WebhookSecret:   cfg.Stripe.WebhookSecret,
			IsTestMode:      cfg.App.Env != "production",
			DefaultCurrency: "usd",
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize Stripe gateway", zap.Error(err))
		}
		gateway = stripeAdapter
		log.Info("Stripe gateway initialized")
	} else {
		if cfg.App.Env == "production" {
			log.Fatal("Stripe must be enabled in production")
		}
		gateway = payment.NewOfflineGateway(log)
		log.Warn("Stripe disabled, using offline gateway (development only)")
	}

	// Notification dispatch
	var notifier checkout.Notifier
	if cfg.Mailer.Enabled {
		mailer, err := notification.NewMailerAdapter(&notification.MailerConfig{
			APIBaseURL:  cfg.Mailer.APIBaseURL,
			APIKey:      cfg.Mailer.APIKey,
			FromAddress: cfg.Mailer.FromAddress,
			FromName:    cfg.Mailer.FromName,
			Timeout:     cfg.Mailer.Timeout,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize mailer", zap.Error(err))
		}
		notifier = mailer
		log.Info("Mailer initialized", zap.String("from", cfg.Mailer.FromAddress))
	} else {
		notifier = notification.NewLogNotifier(log)
		log.Warn("Mailer disabled, notifications will only be logged")
	}

	// Initialize application services
	issuer := access.NewIssuer()
	fulfillmentService := checkoutapp.NewFulfillmentService(
		orderRepo, productRepo, issuer, notifier,
		checkoutapp.FulfillmentConfig{
			ServiceURL:    cfg.Checkout.ServiceURL,
			TrialDuration: cfg.Checkout.TrialDuration,
			OperatorEmail: cfg.Checkout.OperatorEmail,
		}, log)
	checkoutService := checkoutapp.NewCheckoutService(productRepo, orderRepo, gateway, fulfillmentService, log)
	webhookService := checkoutapp.NewWebhookService(checkoutapp.WebhookServiceConfig{
		Gateway:          gateway,
		OrderRepo:        orderRepo,
		Fulfillment:      fulfillmentService,
		IdempotencyStore: idempotencyStore,
		IdempotencyCfg:   shared.DefaultIdempotencyConfig(),
		Logger:           log,
	})

	// Initialize HTTP handlers
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)
	webhookHandler := handler.NewPaymentWebhookHandler(webhookService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Storefront endpoints are mounted at the root: the checkout funnel is
	// the public face of this service, and the gateway calls the webhook
	// path directly.
	engine.POST("/checkout", checkoutHandler.Checkout)
	engine.POST("/free-trial", checkoutHandler.StartFreeTrial)
	engine.POST("/webhook/payment", webhookHandler.HandlePaymentWebhook)

	// Versioned API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(checkoutHandler).
		Register(systemHandler)
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
