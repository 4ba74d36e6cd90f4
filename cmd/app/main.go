package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/apptbooking/api"
	"github.com/Domenick1991/apptbooking/config"
	"github.com/Domenick1991/apptbooking/internal/cache"
	appkafka "github.com/Domenick1991/apptbooking/internal/kafka"
	"github.com/Domenick1991/apptbooking/internal/logger"
	"github.com/Domenick1991/apptbooking/internal/repository"
	"github.com/Domenick1991/apptbooking/internal/service/booking"
	"github.com/Domenick1991/apptbooking/internal/service/schedule"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	location, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		zl.Fatal("load timezone", zap.String("timezone", cfg.Schedule.Timezone), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		zl.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Schedule.SlotsCacheTTL)*time.Second)
	producer := appkafka.NewProducer(cfg.Kafka.Brokers, zl)
	defer producer.Close()

	slotRepo := repository.NewSlotRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	bookingService := booking.NewBookingService(bookingRepo, redisCache, producer, cfg.Kafka.ChangesTopic, zl)
	scheduleService := schedule.NewScheduleService(slotRepo, redisCache, producer, cfg.Kafka.ChangesTopic, location, zl)

	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	api.NewBookingHandler(bookingService).Register(v1.Group("/bookings"))
	api.NewSlotHandler(scheduleService).Register(v1.Group("/slots"))

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	zl.Info("api server started", zap.String("address", cfg.HTTP.Address))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zl.Error("shutdown http server", zap.Error(err))
		}
	}
}
