package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/apptbooking/config"
	"github.com/Domenick1991/apptbooking/internal/dispatch"
	"github.com/Domenick1991/apptbooking/internal/email"
	appkafka "github.com/Domenick1991/apptbooking/internal/kafka"
	"github.com/Domenick1991/apptbooking/internal/logger"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	producer := appkafka.NewProducer(cfg.Kafka.Brokers, zl)
	defer producer.Close()

	sender := email.NewSender(zl)
	dispatcher, err := dispatch.NewDispatcher(
		sender, producer, cfg.Kafka.DeadLetterTopic,
		cfg.Dispatcher.MaxRetries, cfg.Dispatcher.DedupSize, zl)
	if err != nil {
		zl.Fatal("init dispatcher", zap.Error(err))
	}

	consumer := appkafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ChangesTopic, zl)
	defer consumer.Close()

	zl.Info("notification dispatcher started",
		zap.String("topic", cfg.Kafka.ChangesTopic), zap.String("group", cfg.Kafka.GroupID))

	err = consumer.Consume(ctx, dispatcher.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("consumer stopped", zap.Error(err))
	}
}
