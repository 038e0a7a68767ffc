package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// BackendMode selects which store backs tasks and comments.
type BackendMode string

const (
	BackendLocal BackendMode = "local"
	BackendCloud BackendMode = "cloud"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPPort string
	GinMode  string

	BackendMode BackendMode

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	AWSRegion        string
	DynamoDBEndpoint string
	DDBTaskTable     string
	DDBCommentTable  string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	SessionSecret string

	OpenAIAPIKey string

	AdminUsername string
	AdminPassword string
}

// Load reads configuration from the environment, after loading .env when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		BackendMode: BackendMode(strings.ToLower(getEnv("BACKEND_MODE", string(BackendLocal)))),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "taskuser"),
		DBPassword: getEnv("DB_PASSWORD", "taskpassword"),
		DBName:     getEnv("DB_NAME", "task_tracker"),
		SQLitePath: getEnv("SQLITE_PATH", "task_tracker.db"),

		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		DDBTaskTable:     getEnv("DDB_TASK_TABLE", "tasks"),
		DDBCommentTable:  getEnv("DDB_COMMENT_TABLE", "comments"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),

		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.BackendMode {
	case BackendLocal, BackendCloud:
	default:
		return fmt.Errorf("invalid BACKEND_MODE %q: must be %q or %q", c.BackendMode, BackendLocal, BackendCloud)
	}

	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: must be mysql, postgres or sqlite", c.DBDriver)
	}

	if c.BackendMode == BackendCloud && (c.DDBTaskTable == "" || c.DDBCommentTable == "") {
		return fmt.Errorf("DDB_TASK_TABLE and DDB_COMMENT_TABLE must be set in cloud mode")
	}
	if c.AdminUsername != "" && c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD must be set together with ADMIN_USERNAME")
	}
	return nil
}

// IsProduction reports whether cookies should be marked secure.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
