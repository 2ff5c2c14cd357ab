package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ms-booking/internal/api"
	"ms-booking/internal/app"
	"ms-booking/internal/config"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/order"
	"ms-booking/internal/order/db"
	rediswrap "ms-booking/internal/order/redis"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

// connectRedis returns nil when no address is configured; checkouts then run
// without the cross-process guard.
func connectRedis(ctx context.Context, cfg config.RedisConfig, l *logger.Logger) *redis.Client {
	if cfg.Addr == "" {
		l.Warn("REDIS", "REDIS_ADDR not set, checkout guard is process-local only")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		l.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	l.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

func connectKafka(cfg config.KafkaConfig, l *logger.Logger) (order.EventPublisher, func() error) {
	if !cfg.Enabled {
		l.Info("KAFKA", "Kafka disabled, domain events are not published")
		return kafka.NopPublisher{}, func() error { return nil }
	}
	topics := []string{cfg.Topics.OrderCreated, cfg.Topics.OrderStatusChanged, cfg.Topics.TransactionUpdated}
	if err := kafka.EnsureTopicsExist(cfg.Brokers, topics, l); err != nil {
		l.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		l.Info("KAFKA", "Required topics ensured successfully")
	}
	producer := kafka.NewProducer(cfg.Brokers, cfg.Topics, l)
	l.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Brokers))
	return producer, producer.Close
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log := logger.NewLogger(cfg.Log.Dir)
	defer log.Close()
	log.SetLevel(logger.ParseLevel(cfg.Log.Level))

	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	log.Info("APP", "Starting Booking Service initialization")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := app.OpenDatabase(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open database: %v", err))
	}
	defer bunDB.Close()

	var lock order.CheckoutLock = rediswrap.NewLocalLock()
	redisClient := connectRedis(ctx, cfg.Redis, log)
	if redisClient != nil {
		defer redisClient.Close()
		lock = rediswrap.NewRedis(redisClient, cfg.Checkout.LockTTL, log)
	}

	events, closeEvents := connectKafka(cfg.Kafka, log)
	defer closeEvents()

	state, err := app.New(cfg, log, app.Deps{
		DB:      &db.DB{Bun: bunDB},
		Lock:    lock,
		Events:  events,
		Settler: order.DelaySettler{Delay: cfg.Checkout.SettlementDelay},
	})
	if err != nil {
		log.Fatal("APP", fmt.Sprintf("Failed to initialize booking state: %v", err))
	}

	if redisClient != nil {
		rediswrap.EnableExpiryEvents(ctx, redisClient, log)
		err := rediswrap.WatchExpiredGuards(ctx, redisClient, log, func(userID string) {
			state.Audit.Record(models.SystemActor, models.ActionPayment,
				fmt.Sprintf("Checkout guard for %s expired before settlement answered", userID), models.SeverityWarning)
		})
		if err != nil {
			log.Warn("REDIS", fmt.Sprintf("Expired guard watch disabled: %v", err))
		}
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      api.NewRouter(api.NewHandler(state)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Booking Service shutdown complete")
	}
}
