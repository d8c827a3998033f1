package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type CollectorConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	GeoIP     GeoIPConfig     `yaml:"geoip"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ProcessorConfig struct {
	Kafka      KafkaConfig      `yaml:"kafka"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Redis      RedisConfig      `yaml:"redis"`
	Batch      BatchConfig      `yaml:"batch"`
	Audits     AuditsConfig     `yaml:"audits"`
}

type AuditsConfig struct {
	UnmigratedEvent UnmigratedEventConfig `yaml:"unmigrated_event"`
	SchemaMismatch  SchemaMismatchConfig  `yaml:"schema_mismatch"`
	LegacyCheckout  LegacyCheckoutConfig  `yaml:"legacy_checkout"`
	IndexZeroItem   IndexZeroItemConfig   `yaml:"index_zero_item"`
}

type UnmigratedEventConfig struct {
	Enabled             bool  `yaml:"enabled"`
	ObservationWindowMs int64 `yaml:"observation_window_ms"`
}

type SchemaMismatchConfig struct {
	Enabled      bool  `yaml:"enabled"`
	SessionTTLMs int64 `yaml:"session_ttl_ms"`
}

type LegacyCheckoutConfig struct {
	Enabled bool `yaml:"enabled"`
}

type IndexZeroItemConfig struct {
	Enabled bool `yaml:"enabled"`
}

type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

type KafkaConfig struct {
	Brokers       []string          `yaml:"brokers"`
	Topics        map[string]string `yaml:"topics"`
	ConsumerGroup string            `yaml:"consumer_group"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type GeoIPConfig struct {
	DatabasePath string `yaml:"database_path"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

type ClickHouseConfig struct {
	Addr         string `yaml:"addr"`
	Database     string `yaml:"database"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type BatchConfig struct {
	Size            int   `yaml:"size"`
	FlushIntervalMs int64 `yaml:"flush_interval_ms"`
}

func LoadCollector(path string) (*CollectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg CollectorConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 100
	}

	return &cfg, nil
}

func LoadProcessor(path string) (*ProcessorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg ProcessorConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Batch.Size == 0 {
		cfg.Batch.Size = 1000
	}
	if cfg.Batch.FlushIntervalMs == 0 {
		cfg.Batch.FlushIntervalMs = 5000
	}
	if cfg.ClickHouse.MaxOpenConns == 0 {
		cfg.ClickHouse.MaxOpenConns = 10
	}
	if cfg.ClickHouse.MaxIdleConns == 0 {
		cfg.ClickHouse.MaxIdleConns = 5
	}

	// Set audit defaults
	if cfg.Audits.UnmigratedEvent.ObservationWindowMs == 0 {
		cfg.Audits.UnmigratedEvent.ObservationWindowMs = 10000
	}
	if cfg.Audits.SchemaMismatch.SessionTTLMs == 0 {
		cfg.Audits.SchemaMismatch.SessionTTLMs = 1800000
	}

	return &cfg, nil
}
