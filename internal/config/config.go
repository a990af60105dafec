package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MinJWTSecretLength is the shortest signing key the API accepts at startup.
const MinJWTSecretLength = 16

var ErrMissingJWTSecret = errors.New("JWT secret is not configured")

type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	LogLevel           string
	StaticDir          string
	CORSAllowedOrigins []string

	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	JWT      JWTConfig
	Worker   WorkerConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host          string
	Port          string
	RedisPassword string
	RedisDB       string
}

type RabbitMQConfig struct {
	URL string
}

type JWTConfig struct {
	Secret     string
	SecretFile string
}

type WorkerConfig struct {
	Count       int
	MetricsPort string
}

// Load reads the configuration from the environment and resolves the JWT
// signing key. It fails when the key is absent so the API never starts
// without one.
func Load() (*Config, error) {
	cfg := fromEnv()

	if err := cfg.resolveJWTSecret(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWorker reads the configuration of the event worker, which never
// issues or verifies tokens.
func LoadWorker() (*Config, error) {
	cfg := fromEnv()

	if cfg.RabbitMQ.URL == "" {
		return nil, errors.New("RABBITMQ_URL must be set for the worker")
	}
	if cfg.Worker.Count < 1 {
		return nil, errors.New("WORKER_COUNT must be positive")
	}

	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		AppName: getEnv("APP_NAME", "task-list"),
		AppEnv:  getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "8087"),

		LogLevel:           getEnv("LOG_LEVEL", "info"),
		StaticDir:          os.Getenv("STATIC_DIR"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "task_list"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Host:          getEnv("REDIS_HOST", "localhost"),
			Port:          getEnv("REDIS_PORT", "6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnv("REDIS_DB", "0"),
		},

		RabbitMQ: RabbitMQConfig{
			URL: os.Getenv("RABBITMQ_URL"),
		},

		JWT: JWTConfig{
			Secret:     os.Getenv("JWT_SECRET"),
			SecretFile: os.Getenv("JWT_SECRET_FILE"),
		},

		Worker: WorkerConfig{
			Count:       getEnvInt("WORKER_COUNT", 3),
			MetricsPort: getEnv("WORKER_METRICS_PORT", "8088"),
		},
	}
}

// Validate checks the settings the API needs before it opens any connection.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	if len(c.JWT.Secret) < MinJWTSecretLength {
		return fmt.Errorf("JWT secret must be at least %d bytes long", MinJWTSecretLength)
	}
	if c.AppPort == "" {
		return errors.New("APP_PORT must not be empty")
	}
	if c.Worker.Count < 1 {
		return errors.New("WORKER_COUNT must be positive")
	}
	return nil
}

// DSN builds the connection string understood by the pgx driver.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// resolveJWTSecret prefers the inline secret and falls back to the secret
// file, which is how container orchestrators usually mount keys.
func (c *Config) resolveJWTSecret() error {
	if c.JWT.Secret != "" || c.JWT.SecretFile == "" {
		return nil
	}

	data, err := os.ReadFile(c.JWT.SecretFile)
	if err != nil {
		return fmt.Errorf("failed to read JWT secret file: %w", err)
	}

	c.JWT.Secret = strings.TrimSpace(string(data))
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
