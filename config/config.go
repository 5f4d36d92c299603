// Package config reads service settings from the environment.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
)

// Card store backends.
const (
	BackendTables   = "tables"
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Config holds every setting of the card store function and its tooling.
type Config struct {
	Debug bool   `env:"DEBUG"`
	Port  string `env:"FUNCTIONS_CUSTOMHANDLER_PORT" envDefault:"8080"`

	Backend string `env:"CARD_STORE_BACKEND" envDefault:"tables"`

	StorageConnectionString string `env:"STORAGE_CONNECTION_STRING"`
	CardsTable              string `env:"CARDS_TABLE"`
	CardsPartition          string `env:"CARDS_PARTITION"    envDefault:"cards"`
	ChangesQueue            string `env:"CHANGES_QUEUE"`

	DynamoTable                string `env:"DYNAMODB_TABLE_NAME"`
	AWSRegion                  string `env:"AWS_REGION"`
	DynamoSkipSchemaValidation bool   `env:"DYNAMODB_SKIP_SCHEMA_VALIDATION"`
	DynamoConsistentReads      bool   `env:"DYNAMODB_CONSISTENT_READS"`

	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING"`
	CacheTTL              time.Duration `env:"CARDS_CACHE_TTL" envDefault:"5m"`

	StrictCardFields bool  `env:"STRICT_CARD_FIELDS"`
	RequestBodyLimit int64 `env:"REQUEST_BODY_LIMIT" envDefault:"65536"`

	ServeBoard      bool   `env:"SERVE_BOARD"`
	BoardLayoutFile string `env:"BOARD_LAYOUT_FILE"`
	BoardAssetsDir  string `env:"BOARD_ASSETS_DIR"`

	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backend and optional features have what
// they need.
func (c Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendTables:
		if c.StorageConnectionString == "" || c.CardsTable == "" {
			errs = append(errs, errors.New("missing storage config: STORAGE_CONNECTION_STRING and CARDS_TABLE are required"))
		}
	case BackendDynamoDB:
		if c.DynamoTable == "" {
			errs = append(errs, errors.New("missing DynamoDB config: DYNAMODB_TABLE_NAME is required"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown CARD_STORE_BACKEND %q", c.Backend))
	}

	if c.ChangesQueue != "" && c.StorageConnectionString == "" {
		errs = append(errs, errors.New("CHANGES_QUEUE requires STORAGE_CONNECTION_STRING"))
	}
	if c.RedisConnectionString != "" && c.CacheTTL <= 0 {
		errs = append(errs, errors.New("invalid CARDS_CACHE_TTL: must be greater than zero"))
	}
	if c.RequestBodyLimit <= 0 {
		errs = append(errs, errors.New("invalid REQUEST_BODY_LIMIT: must be greater than zero"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("missing FUNCTIONS_CUSTOMHANDLER_PORT"))
	}
	return errors.Join(errs...)
}

// ListenAddr returns the address the HTTP server binds to.
func (c Config) ListenAddr() string {
	return ":" + c.Port
}

// ParseRedisConnectionString accepts a redis:// URL or the Azure form
// "host:port,password=...,ssl=true".
func ParseRedisConnectionString(conn string) (*redis.Options, error) {
	conn = strings.TrimSpace(conn)
	if conn == "" {
		return nil, errors.New("empty redis connection string")
	}
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}

	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	if opts.Addr == "" || strings.Contains(opts.Addr, "=") {
		return nil, fmt.Errorf("invalid redis connection string: missing host")
	}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(strings.TrimSpace(kv[1]), "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts, nil
}
