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

	"github.com/gin-gonic/gin"
	"github.com/hallbook/service-reservation/internal/application"
	"github.com/hallbook/service-reservation/internal/config"
	bookingDomain "github.com/hallbook/service-reservation/internal/domain/booking"
	catalogEvents "github.com/hallbook/service-reservation/internal/events"
	"github.com/hallbook/service-reservation/internal/handler"
	"github.com/hallbook/service-reservation/internal/platform/health"
	"github.com/hallbook/service-reservation/internal/platform/kafka"
	"github.com/hallbook/service-reservation/internal/platform/logger"
	"github.com/hallbook/service-reservation/internal/platform/middleware"
	"go.uber.org/zap"
)

const serviceName = "service-reservation"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
	)

	// Open the configured store
	st, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	// Initialize Kafka producer
	var publisher kafka.Publisher = kafka.NopPublisher{}
	if len(cfg.KafkaConfig.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = producer.Close() }()
		publisher = producer
	} else {
		log.Info("kafka disabled, events are not published")
	}

	// Initialize application services
	roomService := application.NewRoomService(st.rooms, publisher, cfg.KafkaConfig.Topic, log)
	bookingService := application.NewBookingService(st.rooms, st.bookings, publisher, cfg.KafkaConfig.Topic, log)
	queryService := application.NewQueryService(st.rooms, st.bookings, bookingDomain.NewHourlyPricingStrategy(), log)

	var cache *middleware.ResponseCache
	if cfg.CacheEnabled() {
		cache = middleware.NewResponseCache(cfg.HTTPConfig.CacheTTL)
	} else if cfg.HTTPConfig.CacheTTL > 0 {
		log.Info("response cache disabled for shared store", zap.String("store", cfg.StoreDriver))
	}

	// Start the room catalog consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.KafkaConfig.Brokers) > 0 {
		var invalidate func()
		if cache != nil {
			invalidate = cache.Flush
		}
		catalogConsumer := catalogEvents.NewRoomCatalogConsumer(
			cfg.KafkaConfig.Brokers,
			cfg.KafkaConfig.GroupPrefix+serviceName,
			cfg.KafkaConfig.CatalogTopic,
			roomService,
			invalidate,
			log,
		)
		defer func() { _ = catalogConsumer.Close() }()

		go func() {
			log.Info("starting room catalog consumer")
			if err := catalogConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("room catalog consumer error", zap.Error(err))
			}
		}()
	}

	// Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(
		handler.RouterConfig{
			RateLimitPerSec: cfg.HTTPConfig.RateLimitPerSec,
			RateLimitBurst:  cfg.HTTPConfig.RateLimitBurst,
			RequestTimeout:  cfg.HTTPConfig.RequestTimeout,
			Cache:           cache,
		},
		log,
		health.NewHandler(st.pinger, serviceName),
		handler.NewRoomHandler(roomService, queryService),
		handler.NewBookingHandler(bookingService),
		handler.NewReportHandler(queryService),
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPConfig.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
