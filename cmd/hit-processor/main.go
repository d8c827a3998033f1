package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tagsight/tagsight/internal/config"
	"github.com/tagsight/tagsight/internal/consumer"
	"github.com/tagsight/tagsight/internal/processor"
	"github.com/tagsight/tagsight/internal/session"
	"github.com/tagsight/tagsight/internal/storage"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/processor.yaml"
	}

	cfg, err := config.LoadProcessor(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}

	log.Info().
		Strs("kafka_brokers", cfg.Kafka.Brokers).
		Str("clickhouse_addr", cfg.ClickHouse.Addr).
		Str("redis_addr", cfg.Redis.Addr).
		Int("batch_size", cfg.Batch.Size).
		Int64("flush_interval_ms", cfg.Batch.FlushIntervalMs).
		Msg("Configuration loaded")

	// Initialize ClickHouse
	ch, err := storage.NewClickHouse(cfg.ClickHouse)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to ClickHouse")
	}
	defer ch.Close()
	log.Info().Msg("Connected to ClickHouse")

	// Initialize capture profiler
	var profiler *session.Profiler
	if cfg.Redis.Addr != "" {
		profiler = session.NewProfiler(ch, cfg.Redis)
		defer profiler.Close()
		log.Info().Msg("Capture profiler initialized")
	}

	// Create hit processor
	hitProcessor := processor.NewHitProcessor(ch, profiler, cfg.Batch)

	// Create Kafka consumer
	kafkaConsumer, err := consumer.NewKafkaConsumer(cfg.Kafka, hitProcessor)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Kafka consumer")
	}

	// Start consuming
	ctx, cancel := context.WithCancel(context.Background())
	go kafkaConsumer.Start(ctx)

	log.Info().Msg("Hit processor started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	kafkaConsumer.Close()
	hitProcessor.Stop()

	// Flush remaining capture profiles
	if profiler != nil {
		if err := profiler.FlushAllProfiles(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to flush capture profiles")
		}
	}

	log.Info().Msg("Shutdown complete")
}
