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
	"slabdesk/internal/config"
	"slabdesk/internal/handlers"
	"slabdesk/internal/kafka"
	"slabdesk/pkg/logger"
	"slabdesk/pkg/metrics"
	"slabdesk/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// The listener is the single writer of the activity log. It consumes the
// stock and link topics and serves monitoring endpoints.
func main() {
	cfg := config.Load()

	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	appLogger.Info("🚀 Starting Slabdesk Listener",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.ListenerPort),
	)
	appLogger.Info("📡 Kafka Configuration",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic_stock", cfg.KafkaTopicStock),
		zap.String("topic_links", cfg.KafkaTopicLinks),
		zap.String("group_id", cfg.KafkaGroupID),
	)
	appLogger.Info("💾 Database Configuration", zap.String("sqlite_path", cfg.SQLitePath))

	appMetrics := metrics.New(metrics.DefaultConfig("slabdesk-listener"))

	appLogger.Info("🔧 Initializing database...")
	db, err := activity.Open(cfg.SQLitePath, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("✅ Database initialized successfully")

	processor := activity.NewProcessor(db, appLogger)

	appLogger.Info("🔧 Initializing Kafka consumer...")
	consumer, err := kafka.NewConsumer(cfg, processor, appMetrics, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()
	appLogger.Info("✅ Kafka consumer initialized successfully",
		zap.Strings("topics", []string{cfg.KafkaTopicStock, cfg.KafkaTopicLinks}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil {
			appLogger.Error("Kafka consumer stopped", zap.Error(err))
		}
	}()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryHandler(appLogger))
	router.Use(logger.GinMiddleware(appLogger))
	router.Use(middleware.ErrorHandler(appLogger))

	monitoringHandler := handlers.NewMonitoringHandler("slabdesk-listener",
		map[string]handlers.Check{"database": db.Ping}, db, appLogger)

	router.GET("/metrics", gin.WrapH(appMetrics.Handler()))
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", monitoringHandler.Health)

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/stats", monitoringHandler.GetStats)
			monitoring.GET("/database/status", monitoringHandler.GetDatabaseStatus)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ListenerPort,
		Handler: router,
	}

	go func() {
		appLogger.Info("🌐 Starting HTTP server", zap.String("address", ":"+cfg.ListenerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down listener...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		appLogger.Warn("Kafka consumer did not stop in time")
	}

	appLogger.Info("Listener exited")
}
