package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tagsight/tagsight/internal/audit"
	"github.com/tagsight/tagsight/internal/config"
	"github.com/tagsight/tagsight/internal/consumer"
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
		Msg("Configuration loaded")

	// Initialize ClickHouse
	ch, err := storage.NewClickHouse(cfg.ClickHouse)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to ClickHouse")
	}
	defer ch.Close()
	log.Info().Msg("Connected to ClickHouse")

	// Initialize Redis
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		// Test connection
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis, some audits will be disabled")
			rdb = nil
		} else {
			defer rdb.Close()
			log.Info().Msg("Connected to Redis")
		}
	}

	// Enable all audits by default if not configured
	if !cfg.Audits.UnmigratedEvent.Enabled && !cfg.Audits.SchemaMismatch.Enabled &&
		!cfg.Audits.LegacyCheckout.Enabled && !cfg.Audits.IndexZeroItem.Enabled {
		log.Info().Msg("No audits enabled in config, enabling all by default")
		cfg.Audits.UnmigratedEvent.Enabled = true
		cfg.Audits.SchemaMismatch.Enabled = true
		cfg.Audits.LegacyCheckout.Enabled = true
		cfg.Audits.IndexZeroItem.Enabled = true
	}

	// Create audit processor with Kafka alert publishing
	auditProcessor := audit.NewProcessorWithKafka(ch, rdb, cfg.Audits, cfg.Kafka)

	// Override consumer group for audit processor
	cfg.Kafka.ConsumerGroup = "tagsight-audit-processor"

	// Create Kafka consumer
	kafkaConsumer, err := consumer.NewKafkaConsumer(cfg.Kafka, auditProcessor)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Kafka consumer")
	}

	// Start consuming
	ctx, cancel := context.WithCancel(context.Background())
	go kafkaConsumer.Start(ctx)

	log.Info().
		Bool("unmigrated_event", cfg.Audits.UnmigratedEvent.Enabled).
		Bool("schema_mismatch", cfg.Audits.SchemaMismatch.Enabled).
		Bool("legacy_checkout", cfg.Audits.LegacyCheckout.Enabled).
		Bool("index_zero_item", cfg.Audits.IndexZeroItem.Enabled).
		Msg("Audit processor started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	kafkaConsumer.Close()
	auditProcessor.Stop()

	log.Info().Msg("Shutdown complete")
}
