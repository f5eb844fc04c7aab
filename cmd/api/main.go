package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slabdesk/internal/activity"
	"slabdesk/internal/auth"
	"slabdesk/internal/backend"
	"slabdesk/internal/cache"
	"slabdesk/internal/commands"
	"slabdesk/internal/config"
	"slabdesk/internal/events"
	"slabdesk/internal/handlers"
	"slabdesk/internal/outreach"
	"slabdesk/internal/quote"
	"slabdesk/internal/repository"
	"slabdesk/internal/slug"
	"slabdesk/internal/workflow"
	"slabdesk/pkg/logger"
	"slabdesk/pkg/metrics"
	"slabdesk/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "slabdesk/docs" // Import docs for Swagger
)

// @title           Slabdesk API
// @version         1.0
// @description     Backend for slab inventory, sales link composition and client outreach.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	appLogger.Info("🚀 Starting Slabdesk API",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)
	appLogger.Info("🔗 Inventory API",
		zap.String("url", cfg.BackendURL),
		zap.Duration("timeout", cfg.BackendTimeout),
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	appMetrics := metrics.New(metrics.DefaultConfig("slabdesk-api"))

	appLogger.Info("🔧 Initializing cache...")
	cacheClient := cache.NewCache(cfg, appLogger)
	requestIDStore := cache.NewRequestIDStore(cacheClient)
	appLogger.Info("✅ Cache initialized successfully", zap.Bool("redis", cfg.UseCache))

	inventoryClient := backend.NewClient(backend.NewServiceClient(
		cfg.BackendURL, "inventory-api", cfg.BackendTimeout, appLogger, appMetrics,
		backend.WithMetrics(appMetrics),
	))

	var publisher events.EventPublisher
	if cfg.UseKafka {
		appLogger.Info("📡 Initializing Kafka publisher...",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic_stock", cfg.KafkaTopicStock),
			zap.String("topic_links", cfg.KafkaTopicLinks),
		)
		kafkaPublisher, err := events.NewKafkaEventPublisher(cfg, appLogger, appMetrics)
		if err != nil {
			appLogger.Warn("Failed to initialize Kafka publisher, events stay in memory", zap.Error(err))
			publisher = events.NewInMemoryEventPublisher(appLogger)
		} else {
			defer kafkaPublisher.Close()
			publisher = kafkaPublisher
			appLogger.Info("✅ Kafka publisher initialized successfully")
		}
	} else {
		appLogger.Info("⏭️  Kafka disabled (USE_KAFKA=false), events stay in memory")
		publisher = events.NewInMemoryEventPublisher(appLogger)
	}

	quotes := quote.NewService(cfg.QuoteURL, cfg.QuoteTTL, cacheClient, appLogger)
	slugChecker := slug.NewChecker(inventoryClient, cfg.SlugDebounce, cfg.BackendTimeout, appLogger,
		slug.WithRetention(cfg.DraftTTL))
	defer slugChecker.Stop()

	drafts := repository.NewDraftRepository(cacheClient, cfg.DraftTTL)
	issuer := workflow.NewIssuer(inventoryClient, cfg.PublicLinkBaseURL, appLogger)
	ledger := commands.NewLedgerService(inventoryClient, publisher, appMetrics, appLogger)
	sender := outreach.NewService(inventoryClient, publisher, appMetrics, appLogger)

	inventoryHandler := handlers.NewInventoryHandler(appLogger, inventoryClient, ledger)
	compositionHandler := handlers.NewCompositionHandler(appLogger, drafts, inventoryClient, quotes, slugChecker, issuer, publisher, appMetrics)
	salesLinkHandler := handlers.NewSalesLinkHandler(appLogger, sender)
	directoryHandler := handlers.NewDirectoryHandler(appLogger, inventoryClient, drafts)
	quoteHandler := handlers.NewQuoteHandler(appLogger, quotes)

	checks := map[string]handlers.Check{
		"inventory": func(ctx context.Context) error {
			if inventoryClient.ServiceClient().State() == gobreaker.StateOpen {
				return backend.ErrUnavailable
			}
			return nil
		},
	}

	// The activity log is written by the listener; the API only reads it.
	var (
		activityHandler *handlers.ActivityHandler
		activityStats   handlers.StatsSource
	)
	activityDB, err := activity.Open(cfg.SQLitePath, appLogger)
	if err != nil {
		appLogger.Warn("Activity log unavailable, /activity disabled", zap.String("path", cfg.SQLitePath), zap.Error(err))
	} else {
		defer activityDB.Close()
		activityHandler = handlers.NewActivityHandler(appLogger, activityDB)
		activityStats = activityDB
		checks["activity"] = activityDB.Ping
		appLogger.Info("💾 Activity log opened", zap.String("path", cfg.SQLitePath))
	}
	monitoringHandler := handlers.NewMonitoringHandler("slabdesk-api", checks, activityStats, appLogger)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, appLogger)

	router := gin.New()

	// CORS middleware (must be first to handle preflight requests)
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RecoveryHandler(appLogger))
	router.Use(logger.GinMiddleware(appLogger))
	router.Use(appMetrics.GinMiddleware())
	router.Use(middleware.RequestIDMiddleware(appLogger))
	router.Use(middleware.ErrorHandler(appLogger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(appMetrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", monitoringHandler.Health)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, appLogger))
		// Replays are keyed by the authenticated user, so they run after auth.
		protected.Use(middleware.IdempotencyMiddleware(requestIDStore, appLogger))
		protected.Use(middleware.StoreResponseMiddleware(requestIDStore, appLogger, cfg.IdempotencyTTL))
		{
			batches := protected.Group("/batches")
			{
				batches.GET("", inventoryHandler.ListBatches)
				batches.GET("/:id", inventoryHandler.GetBatch)
				batches.POST("/:id/transfer", inventoryHandler.TransferBatch)
				batches.POST("/:id/sell", inventoryHandler.SellBatch)
			}
			protected.GET("/products", inventoryHandler.ListProducts)
			protected.GET("/broker/shared-inventory", middleware.RequireRole(auth.RoleBroker), inventoryHandler.ListSharedInventory)

			compositions := protected.Group("/compositions")
			{
				compositions.POST("", compositionHandler.CreateComposition)
				compositions.GET("/:id", compositionHandler.GetComposition)
				compositions.DELETE("/:id", compositionHandler.CancelComposition)
				compositions.POST("/:id/items", compositionHandler.AddItem)
				compositions.POST("/:id/items/move", compositionHandler.MoveItem)
				compositions.PATCH("/:id/items/:batchId", compositionHandler.UpdateItem)
				compositions.DELETE("/:id/items/:batchId", compositionHandler.RemoveItem)
				compositions.PUT("/:id/currency", compositionHandler.ChangeCurrency)
				compositions.GET("/:id/totals", compositionHandler.GetTotals)
				compositions.POST("/:id/next", compositionHandler.Next)
				compositions.POST("/:id/back", compositionHandler.Back)
				compositions.PUT("/:id/options", compositionHandler.Configure)
				compositions.PUT("/:id/slug", compositionHandler.CheckSlug)
				compositions.GET("/:id/slug", compositionHandler.GetSlugStatus)
				compositions.POST("/:id/submit", compositionHandler.SubmitComposition)
			}

			protected.POST("/sales-links/:id/send", salesLinkHandler.SendLink)
			protected.GET("/quotes/usd-brl", quoteHandler.GetUSDBRL)

			protected.GET("/clientes", directoryHandler.ListClientes)
			protected.POST("/clientes", directoryHandler.CreateCliente)

			admin := protected.Group("")
			admin.Use(middleware.RequireRole(auth.RoleAdmin))
			{
				admin.POST("/brokers/invite", directoryHandler.InviteBroker)
				admin.PATCH("/users/:id/status", directoryHandler.UpdateUserStatus)
				admin.POST("/users/:id/resend-invite", directoryHandler.ResendInvite)
			}

			if activityHandler != nil {
				protected.GET("/activity", activityHandler.ListActivity)
				protected.GET("/activity/batches/:id", activityHandler.GetBatchSnapshot)
				protected.GET("/activity/links/:id", activityHandler.GetLinkStats)
			}
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		appLogger.Info("🌐 Starting HTTP server",
			zap.String("address", ":"+cfg.Port),
			zap.String("swagger_url", "http://localhost:"+cfg.Port+"/swagger/index.html"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}
