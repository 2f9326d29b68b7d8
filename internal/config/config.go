package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Service holds the service-level settings
type Service struct {
	Environment     string `envconfig:"SERVICE_ENVIRONMENT" required:"true"`
	APIPort         string `envconfig:"SERVICE_API_PORT" default:"8080"`
	Host            string `envconfig:"SERVICE_HOST" default:"localhost:8080"`
	HealthCheckPort string `envconfig:"SERVICE_HEALTH_CHECK_PORT" default:"8081"`
}

// Kinesis holds the streaming transport settings
type Kinesis struct {
	Region     string `envconfig:"KINESIS_REGION" required:"true"`
	StreamName string `envconfig:"KINESIS_STREAM_NAME" required:"true"`
	Endpoint   string `envconfig:"KINESIS_ENDPOINT"`
}

// S3 holds the bulk store settings
type S3 struct {
	Region   string `envconfig:"S3_REGION" required:"true"`
	Bucket   string `envconfig:"S3_BUCKET" required:"true"`
	Prefix   string `envconfig:"S3_PREFIX" default:"bulk"`
	Endpoint string `envconfig:"S3_ENDPOINT"`
}

// ClickHouse holds the analytical store settings
type ClickHouse struct {
	Host            string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port            string `envconfig:"CLICKHOUSE_PORT" required:"true"`
	Database        string `envconfig:"CLICKHOUSE_DB" required:"true"`
	User            string `envconfig:"CLICKHOUSE_USER" default:""`
	Password        string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	UseTLS          bool   `envconfig:"CLICKHOUSE_USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CLICKHOUSE_CONN_MAX_LIFETIME_SEC" default:"3600"`
}

// Metastore holds the schema registry settings
type Metastore struct {
	DatabaseURL string `envconfig:"METASTORE_DATABASE_URL" required:"true"`
}

// Consumer holds the consumer pipeline settings
type Consumer struct {
	BatchSizeMax    int    `envconfig:"CONSUMER_BATCH_SIZE_MAX" default:"2000"`
	BatchTimeoutSec int    `envconfig:"CONSUMER_BATCH_TIMEOUT_SEC" default:"10"`
	PollIntervalMs  int    `envconfig:"CONSUMER_POLL_INTERVAL_MS" default:"1000"`
	IteratorType    string `envconfig:"CONSUMER_ITERATOR_TYPE" default:"TRIM_HORIZON"`
	HealthCheckPort string `envconfig:"CONSUMER_HEALTH_CHECK_PORT" default:"8082"`
}

// Config aggregates all configuration groups
type Config struct {
	Service    Service
	Kinesis    Kinesis
	S3         S3
	ClickHouse ClickHouse
	Metastore  Metastore
	Consumer   Consumer
}

// Load populates the configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	groups := []interface{}{
		&cfg.Service,
		&cfg.Kinesis,
		&cfg.S3,
		&cfg.ClickHouse,
		&cfg.Metastore,
		&cfg.Consumer,
	}
	for _, group := range groups {
		if err := envconfig.Process("", group); err != nil {
			return nil, fmt.Errorf("failed to process config: %w", err)
		}
	}

	return &cfg, nil
}
