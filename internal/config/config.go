package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the POS terminal.
type Config struct {
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	HTTP     HTTPConfig
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// RabbitMQConfig holds RabbitMQ connection configuration.
type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// HTTPConfig holds the HTTP listener configuration.
type HTTPConfig struct {
	Port int
}

// Load reads configuration from the environment, consulting a .env file
// if one exists. Credentials for the database and the broker are required;
// the terminal refuses to start without them.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPort, err := envInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	mqPort, err := envInt("RABBITMQ_PORT", 5672)
	if err != nil {
		return nil, err
	}
	httpPort, err := envInt("HTTP_PORT", 3000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     envOr("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Database: os.Getenv("DB_NAME"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     envOr("RABBITMQ_HOST", "localhost"),
			Port:     mqPort,
			User:     os.Getenv("RABBITMQ_USER"),
			Password: os.Getenv("RABBITMQ_PASSWORD"),
		},
		HTTP: HTTPConfig{Port: httpPort},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.Database.User == "" {
		missing = append(missing, "DB_USER")
	}
	if c.Database.Password == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if c.Database.Database == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.RabbitMQ.User == "" {
		missing = append(missing, "RABBITMQ_USER")
	}
	if c.RabbitMQ.Password == "" {
		missing = append(missing, "RABBITMQ_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return n, nil
}

// DatabaseURL returns a PostgreSQL connection URL.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL.
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
