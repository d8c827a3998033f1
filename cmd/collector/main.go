package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tagsight/tagsight/internal/collector"
	"github.com/tagsight/tagsight/internal/config"
	"github.com/tagsight/tagsight/internal/enricher"
	"github.com/tagsight/tagsight/internal/producer"
	"github.com/tagsight/tagsight/internal/validation"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load()

	// Load config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/collector.yaml"
	}

	cfg, err := config.LoadCollector(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log.Info().Msg("Starting Tagsight Collector...")

	// Initialize dependencies
	kafkaProducer, err := producer.NewKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Kafka producer")
	}
	defer kafkaProducer.Close()
	log.Info().Msg("Kafka producer initialized")

	validator, err := validation.NewValidator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create validator")
	}
	defer validator.Close()
	log.Info().Msg("Validator initialized")

	hitEnricher := enricher.NewEnricher(cfg.GeoIP.DatabasePath)
	defer hitEnricher.Close()
	log.Info().Msg("Enricher initialized")

	// Create HTTP server
	httpHandler := collector.NewHTTPHandler(kafkaProducer, validator, hitEnricher)
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(collector.CORSMiddleware)

	r.Get("/health", collector.HealthCheck)
	r.Post("/v1/hits", httpHandler.HandleHits)
	r.Post("/v1/preview", httpHandler.HandlePreview)
	r.Post("/v1/har", httpHandler.HandleHAR)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: r,
	}

	go func() {
		log.Info().Int("port", cfg.Server.HTTPPort).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	httpServer.Shutdown(context.Background())
	log.Info().Msg("Server stopped")
}
