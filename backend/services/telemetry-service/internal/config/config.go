package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "fleetpower/backend/libs/config"
	"fleetpower/backend/services/telemetry-service/internal/models"
	"fleetpower/backend/services/telemetry-service/internal/service"
)

const (
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"

	ProjectionBackendStore = "store"
	ProjectionBackendRedis = "redis"
)

// HTTPConfig controls the REST listener.
type HTTPConfig struct {
	Port               string  `yaml:"port" env:"TELEMETRY_HTTP_PORT"`
	RateLimitPerSecond float64 `yaml:"rateLimitPerSecond" env:"TELEMETRY_RATE_LIMIT"`
	RateLimitBurst     int     `yaml:"rateLimitBurst" env:"TELEMETRY_RATE_BURST"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" env:"TELEMETRY_STORAGE_BACKEND"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"TELEMETRY_POSTGRES_DSN"`
}

// ProjectionConfig selects where current status lives and how it is kept in step with the ledgers.
type ProjectionConfig struct {
	Backend     string `yaml:"backend" env:"TELEMETRY_PROJECTION_BACKEND"`
	Ordering    string `yaml:"ordering" env:"TELEMETRY_PROJECTION_ORDERING"`
	Consistency string `yaml:"consistency" env:"TELEMETRY_PROJECTION_CONSISTENCY"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"TELEMETRY_REDIS_ADDR"`
	Password string `yaml:"password" env:"TELEMETRY_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"TELEMETRY_REDIS_DB"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"TELEMETRY_KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"TELEMETRY_KAFKA_TOPIC"`
	GroupID string   `yaml:"groupId" env:"TELEMETRY_KAFKA_GROUP_ID"`
}

type OCPPConfig struct {
	Enabled             bool `yaml:"enabled" env:"TELEMETRY_OCPP_ENABLED"`
	PingIntervalSeconds int  `yaml:"pingIntervalSeconds" env:"TELEMETRY_OCPP_PING_INTERVAL_SECONDS"`
	WriteTimeoutSeconds int  `yaml:"writeTimeoutSeconds" env:"TELEMETRY_OCPP_WRITE_TIMEOUT_SECONDS"`
}

// MQTTConfig enables the vehicle telemetry subscriber when Broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker" env:"TELEMETRY_MQTT_BROKER"`
	Topic    string `yaml:"topic" env:"TELEMETRY_MQTT_TOPIC"`
	ClientID string `yaml:"clientId" env:"TELEMETRY_MQTT_CLIENT_ID"`
	QoS      int    `yaml:"qos" env:"TELEMETRY_MQTT_QOS"`
}

// Config defines telemetry service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Projection ProjectionConfig `yaml:"projection"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	OCPP       OCPPConfig       `yaml:"ocpp"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
}

// Load configuration using shared helper.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:    HTTPConfig{Port: "8084"},
		Storage: StorageConfig{Backend: StorageBackendPostgres},
		Projection: ProjectionConfig{
			Backend:     ProjectionBackendStore,
			Ordering:    string(models.OrderingArrival),
			Consistency: string(service.ConsistencySequential),
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{Topic: "telemetry.readings", GroupID: "telemetry-projector"},
		OCPP:  OCPPConfig{PingIntervalSeconds: 30, WriteTimeoutSeconds: 15},
		MQTT:  MQTTConfig{Topic: "fleet/+/vehicle-readings", ClientID: "telemetry-service", QoS: 1},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects backend and mode combinations the service cannot run.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Projection.Backend = strings.ToLower(strings.TrimSpace(c.Projection.Backend))

	switch c.Storage.Backend {
	case StorageBackendPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("config: database dsn required")
		}
	case StorageBackendMemory:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Projection.Backend {
	case ProjectionBackendStore:
	case ProjectionBackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("config: redis addr required for redis projection")
		}
	default:
		return fmt.Errorf("config: unknown projection backend %q", c.Projection.Backend)
	}

	if _, err := c.Ordering(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	mode, err := c.ConsistencyMode()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch mode {
	case service.ConsistencyAtomic:
		if c.Projection.Backend == ProjectionBackendRedis {
			return errors.New("config: atomic consistency needs the projection in the ledger store")
		}
	case service.ConsistencyAsync:
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("config: async consistency needs kafka brokers")
		}
		if strings.TrimSpace(c.Kafka.Topic) == "" || strings.TrimSpace(c.Kafka.GroupID) == "" {
			return errors.New("config: async consistency needs kafka topic and group id")
		}
	}

	if c.HTTP.RateLimitPerSecond < 0 || c.HTTP.RateLimitBurst < 0 {
		return errors.New("config: rate limit must not be negative")
	}
	if c.OCPP.Enabled && (c.OCPP.PingIntervalSeconds <= 0 || c.OCPP.WriteTimeoutSeconds <= 0) {
		return errors.New("config: ocpp ping interval and write timeout must be positive")
	}
	if c.MQTTEnabled() {
		if strings.TrimSpace(c.MQTT.Topic) == "" {
			return errors.New("config: mqtt topic required")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("config: mqtt qos %d out of range", c.MQTT.QoS)
		}
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8084"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

func (c *Config) Ordering() (models.Ordering, error) {
	return models.ParseOrdering(c.Projection.Ordering)
}

func (c *Config) ConsistencyMode() (service.ConsistencyMode, error) {
	return service.ParseConsistencyMode(c.Projection.Consistency)
}

func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.OCPP.PingIntervalSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.OCPP.WriteTimeoutSeconds) * time.Second
}

func (c *Config) MQTTEnabled() bool {
	return strings.TrimSpace(c.MQTT.Broker) != ""
}
