package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config for the whole application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	API       APIConfig       `mapstructure:"api"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Websocket WebsocketConfig `mapstructure:"websocket"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Store     StoreConfig     `mapstructure:"store"`
}

// General application configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// Configuration for the API server
type APIConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	CORS            CORSConfig      `mapstructure:"cors"`
}

// Rate limiting configuration for the API server
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`
	Burst   int     `mapstructure:"burst"`
}

// CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Configuration for the pricing engine pool
type PricingConfig struct {
	Workers          int `mapstructure:"workers"`
	RegressionDegree int `mapstructure:"regression_degree"`
	MaxBatchSize     int `mapstructure:"max_batch_size"`
	MaxSweepPoints   int `mapstructure:"max_sweep_points"`
}

// Configuration for Kafka
type KafkaConfig struct {
	Brokers  []string            `mapstructure:"brokers"`
	Consumer KafkaConsumerConfig `mapstructure:"consumer"`
	Producer KafkaProducerConfig `mapstructure:"producer"`
	Topics   KafkaTopicsConfig   `mapstructure:"topics"`
}

// Kafka consumer configuration
type KafkaConsumerConfig struct {
	GroupID        string        `mapstructure:"group_id"`
	MinBytes       int           `mapstructure:"min_bytes"`
	MaxBytes       int           `mapstructure:"max_bytes"`
	MaxWait        time.Duration `mapstructure:"max_wait"`
	CommitInterval time.Duration `mapstructure:"commit_interval"`
	StartOffset    string        `mapstructure:"start_offset"`
}

// Kafka producer configuration
type KafkaProducerConfig struct {
	RequiredAcks string        `mapstructure:"required_acks"`
	Compression  string        `mapstructure:"compression"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

// Kafka topics configuration
type KafkaTopicsConfig struct {
	PricingRequests string `mapstructure:"pricing_requests"`
	PricingResults  string `mapstructure:"pricing_results"`
}

// Configuration for the websocket hub
type WebsocketConfig struct {
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	WriteWait       time.Duration `mapstructure:"write_wait"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
}

// Configuration for metrics
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Interval   time.Duration    `mapstructure:"interval"`
}

// Configuration for Prometheus metrics
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Configuration for the result store
type StoreConfig struct {
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Load reads the configuration file and environment overrides. When no
// explicit path is given the usual locations are searched, and a file
// that simply does not exist is not an error; defaults plus PRICER_*
// environment variables apply in that case.
func Load(path string) (*Config, error) {
	setDefaults()

	if path == "" {
		path = os.Getenv("PRICER_CONFIG_PATH")
	}
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix("PRICER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "option-pricing-engine")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.log_level", "info")

	// API defaults
	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.read_timeout", "10s")
	viper.SetDefault("api.write_timeout", "30s")
	viper.SetDefault("api.shutdown_timeout", "30s")
	viper.SetDefault("api.rate_limit.enabled", true)
	viper.SetDefault("api.rate_limit.rate", 50.0)
	viper.SetDefault("api.rate_limit.burst", 100)
	viper.SetDefault("api.cors.allowed_origins", []string{"*"})
	viper.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("api.cors.allowed_headers", []string{"Authorization", "Content-Type"})

	// Pricing defaults
	viper.SetDefault("pricing.workers", 8)
	viper.SetDefault("pricing.regression_degree", 2)
	viper.SetDefault("pricing.max_batch_size", 256)
	viper.SetDefault("pricing.max_sweep_points", 1000)

	// Kafka defaults
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.consumer.group_id", "option-pricing-group")
	viper.SetDefault("kafka.consumer.min_bytes", 1)
	viper.SetDefault("kafka.consumer.max_bytes", 10485760)
	viper.SetDefault("kafka.consumer.max_wait", "500ms")
	viper.SetDefault("kafka.consumer.commit_interval", "1s")
	viper.SetDefault("kafka.consumer.start_offset", "earliest")
	viper.SetDefault("kafka.producer.required_acks", "all")
	viper.SetDefault("kafka.producer.compression", "snappy")
	viper.SetDefault("kafka.producer.batch_size", 100)
	viper.SetDefault("kafka.producer.batch_timeout", "5ms")
	viper.SetDefault("kafka.producer.max_attempts", 3)
	viper.SetDefault("kafka.topics.pricing_requests", "pricing.requests")
	viper.SetDefault("kafka.topics.pricing_results", "pricing.results")

	// Websocket defaults
	viper.SetDefault("websocket.read_buffer_size", 1024)
	viper.SetDefault("websocket.write_buffer_size", 1024)
	viper.SetDefault("websocket.max_message_size", 4096)
	viper.SetDefault("websocket.write_wait", "10s")
	viper.SetDefault("websocket.pong_wait", "60s")

	// Metrics defaults
	viper.SetDefault("metrics.prometheus.enabled", true)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.interval", "15s")

	// Store defaults
	viper.SetDefault("store.capacity", 10000)
	viper.SetDefault("store.ttl", "1h")
}
