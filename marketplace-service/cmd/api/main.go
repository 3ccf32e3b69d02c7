package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmmarket/marketplace-service/internal/app/marketplace/config"
	"farmmarket/marketplace-service/internal/app/marketplace/database"
	"farmmarket/marketplace-service/internal/app/marketplace/handler"
	"farmmarket/marketplace-service/internal/app/marketplace/infrastructure"
	"farmmarket/marketplace-service/internal/app/marketplace/infrastructure/cache"
	"farmmarket/marketplace-service/internal/app/marketplace/infrastructure/messaging"
	"farmmarket/marketplace-service/internal/app/marketplace/processor"
	"farmmarket/marketplace-service/internal/app/marketplace/repository"
	"farmmarket/marketplace-service/internal/app/marketplace/service"
	"farmmarket/marketplace-service/migrations"
	"farmmarket/pkg/logger"
	"farmmarket/pkg/metrics"
	"farmmarket/pkg/tracing"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(metrics.ServiceName, cfg.Log.Level)
	if cfg.Log.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.Log.LogstashAddr, metrics.ServiceName, cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
		} else {
			logger.Info().Str("logstash_addr", cfg.Log.LogstashAddr).Msg("Connected to Logstash")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:    metrics.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up tracing")
	}

	// === POSTGRESQL ===
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(cfg.Database.URL(), migrations.FS); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	db, err := database.ConnectPostgres(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.ClosePostgres(db)
	logger.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.DBName).
		Msg("Connected to PostgreSQL")

	// === MONGODB (сообщения) ===
	mongoClient, err := database.ConnectMongo(ctx, cfg.MongoDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}()
	logger.Info().Str("database", cfg.MongoDB.Database).Msg("Connected to MongoDB")

	// === REDIS (кеш рейтингов) ===
	// Кеш необязателен: без Redis рейтинг читается из PostgreSQL
	var ratingCache infrastructure.RatingCache
	redisCache, err := cache.NewRedisRatingCache(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Address()).Msg("Redis unavailable, rating cache disabled")
	} else {
		ratingCache = redisCache
		defer redisCache.Close()
		logger.Info().Str("addr", cfg.Redis.Address()).Msg("Connected to Redis")
	}

	// === KAFKA ===
	kafkaProducer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer kafkaProducer.Close()
	logger.Info().Str("topic", cfg.Kafka.Topic).Msg("Initialized Kafka producer")

	// === РЕПОЗИТОРИИ ===
	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	farmerRepo := repository.NewFarmerRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	orderItemRepo := repository.NewOrderItemRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	messageRepo := repository.NewMessageRepository(mongoClient.Database(cfg.MongoDB.Database))

	// === СЕРВИСЫ ===
	ledger := service.NewInventoryLedger(productRepo)
	ratingService := service.NewRatingService(reviewRepo, farmerRepo, ratingCache, cfg.Rating.CacheTTL)
	orderService := service.NewOrderService(tx, orderRepo, orderItemRepo, productRepo, farmerRepo, ledger, kafkaProducer)
	reviewService := service.NewReviewService(tx, reviewRepo, orderRepo, farmerRepo, ratingService, kafkaProducer)
	messageService := service.NewMessageService(messageRepo, userRepo, kafkaProducer)
	productService := service.NewProductService(tx, productRepo, farmerRepo, ledger)

	// === ФОНОВЫЕ ЗАДАЧИ ===
	ratingConsumer := processor.NewRatingConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, ratingService)
	ratingConsumer.Start(ctx)

	scheduler := processor.NewCronScheduler(ratingService, database.PoolStats(db))
	if err := scheduler.Start(ctx, cfg.Rating.ReconcileSchedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start cron scheduler")
	}

	// === HTTP ===
	authMiddleware := handler.NewAuthMiddleware(cfg.JWT.Secret)
	router := handler.SetupRoutes(handler.Handlers{
		Orders:   handler.NewOrderHandler(orderService),
		Reviews:  handler.NewReviewHandler(reviewService),
		Farmers:  handler.NewFarmerHandler(ratingService, productService),
		Messages: handler.NewMessageHandler(messageService),
		Products: handler.NewProductHandler(productService),
	}, authMiddleware, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("address", cfg.Server.Address()).Msg("Starting Marketplace Service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down Marketplace Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Сначала HTTP, потом фон: запросы в полете еще могут публиковать события
	scheduler.Stop()
	ratingConsumer.Stop()

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to flush traces")
	}

	logger.Info().Msg("Marketplace Service stopped gracefully")
}
