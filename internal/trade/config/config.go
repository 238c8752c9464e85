// Package config loads the service configuration from a YAML file, an
// optional .env file and the process environment, in increasing order of
// precedence. Keys are the same UPPER_SNAKE names in all three places.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the service looks for its YAML file, relative to the
// repository root.
var DefaultPath = filepath.Join("internal", "trade", "config", "config.yaml")

// Config struct for YAML configuration
type Config struct {
	GRPCPort int `yaml:"GRPC_PORT"`
	HTTPPort int `yaml:"HTTP_PORT"`
	AuthPort int `yaml:"AUTH_PORT"`

	DBDriver   string `yaml:"DB_DRIVER"`
	DBHost     string `yaml:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT"`
	DBUser     string `yaml:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME"`
	DBSSLMode  string `yaml:"DB_SSLMODE"`
	DBPath     string `yaml:"DB_PATH"`

	KafkaBrokers  []string `yaml:"KAFKA_BROKERS"`
	Topic         string   `yaml:"TOPIC"`
	ConsumerGroup string   `yaml:"CONSUMER_GROUP"`

	JWTSecret        string `yaml:"JWT_SECRET"`
	LogLevel         string `yaml:"LOG_LEVEL"`
	MetricsNamespace string `yaml:"METRICS_NAMESPACE"`
}

func defaults() Config {
	return Config{
		GRPCPort:         50051,
		HTTPPort:         8080,
		AuthPort:         8081,
		DBDriver:         "postgres",
		DBPort:           5432,
		DBSSLMode:        "disable",
		Topic:            "trade.status-events",
		ConsumerGroup:    "trade-notifier",
		LogLevel:         "info",
		MetricsNamespace: "linktrade",
	}
}

// Load reads the YAML file at path, then .env, then the environment. A
// missing YAML file or .env file is not an error; the result is validated.
func Load(path string) (*Config, error) {
	cfg := defaults()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) fields() map[string]interface{} {
	return map[string]interface{}{
		"GRPC_PORT":         &c.GRPCPort,
		"HTTP_PORT":         &c.HTTPPort,
		"AUTH_PORT":         &c.AuthPort,
		"DB_DRIVER":         &c.DBDriver,
		"DB_HOST":           &c.DBHost,
		"DB_PORT":           &c.DBPort,
		"DB_USER":           &c.DBUser,
		"DB_PASSWORD":       &c.DBPassword,
		"DB_NAME":           &c.DBName,
		"DB_SSLMODE":        &c.DBSSLMode,
		"DB_PATH":           &c.DBPath,
		"KAFKA_BROKERS":     &c.KafkaBrokers,
		"TOPIC":             &c.Topic,
		"CONSUMER_GROUP":    &c.ConsumerGroup,
		"JWT_SECRET":        &c.JWTSecret,
		"LOG_LEVEL":         &c.LogLevel,
		"METRICS_NAMESPACE": &c.MetricsNamespace,
	}
}

// applyEnv overrides every key that is set in the environment. Broker lists
// are comma separated.
func (c *Config) applyEnv() error {
	for key, field := range c.fields() {
		value, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		switch ptr := field.(type) {
		case *string:
			*ptr = value
		case *int:
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("%s must be an integer: %w", key, err)
			}
			*ptr = n
		case *[]string:
			*ptr = splitList(value)
		}
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the keys every binary depends on.
func (c *Config) Validate() error {
	var problems []string
	if c.GRPCPort <= 0 || c.HTTPPort <= 0 {
		problems = append(problems, "GRPC_PORT and HTTP_PORT must be positive")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	switch strings.ToLower(c.DBDriver) {
	case "postgres":
		if c.DBHost == "" || c.DBName == "" {
			problems = append(problems, "DB_HOST and DB_NAME are required for postgres")
		}
	case "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("unknown DB_DRIVER %q", c.DBDriver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
