// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is the process configuration, read from the environment. A .env file is loaded by
// the godotenv autoload import in each cmd.
type Config struct {
	Port string

	LogLevel  string
	LogFormat string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	RedisAddr string
	RedisDB   int
	QueueName string

	HistorianBatchSize  int
	HistorianFlush      time.Duration
	HistorianInactivity time.Duration

	TokenExpiry time.Duration
	// Raw ed25519 key files. When unset a fresh pair is generated at startup.
	PrivateKeyPath string
	PublicKeyPath  string

	TurnTimeout time.Duration
}

// Load reads every setting, falling back to development defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                GetEnv("PORT", "8080"),
		LogLevel:            GetEnv("LOG_LEVEL", "info"),
		LogFormat:           GetEnv("LOG_FORMAT", "text"),
		StoreDriver:         strings.ToLower(GetEnv("STORE_DRIVER", "memory")),
		DatabaseURL:         databaseURL(),
		SQLitePath:          GetEnv("SQLITE_PATH", "linot.db"),
		RedisAddr:           GetEnv("REDIS_ADDR", ""),
		RedisDB:             GetEnvInt("REDIS_DB", 0),
		QueueName:           GetEnv("HISTORIAN_QUEUE_NAME", "linot_actions"),
		HistorianBatchSize:  GetEnvInt("HISTORIAN_BATCH_SIZE", 100),
		HistorianFlush:      time.Duration(GetEnvInt("HISTORIAN_FLUSH_MS", 1000)) * time.Millisecond,
		HistorianInactivity: time.Duration(GetEnvInt("HISTORIAN_INACTIVITY_MIN", 10)) * time.Minute,
		PrivateKeyPath:      GetEnv("AUTH_PRIVATE_KEY_FILE", ""),
		PublicKeyPath:       GetEnv("AUTH_PUBLIC_KEY_FILE", ""),
	}

	var err error
	if cfg.TokenExpiry, err = GetEnvDuration("TOKEN_EXPIRE_TIME", 7*24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.TurnTimeout, err = GetEnvDuration("TURN_TIMEOUT", 0); err != nil {
		return cfg, err
	}

	switch cfg.StoreDriver {
	case "postgres", "sqlite", "memory":
	default:
		return cfg, fmt.Errorf("unknown STORE_DRIVER %q (want postgres, sqlite or memory)", cfg.StoreDriver)
	}
	if cfg.HistorianBatchSize <= 0 {
		return cfg, fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive")
	}
	return cfg, nil
}

// databaseURL prefers DATABASE_URL and otherwise assembles one from the POSTGRES_* variables.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		GetEnv("POSTGRES_USER", "postgres"),
		GetEnv("POSTGRES_PASSWORD", "postgres"),
		GetEnv("POSTGRES_HOST", "localhost"),
		GetEnv("POSTGRES_PORT", "5432"),
		GetEnv("POSTGRES_DB", "linot"),
	)
}

// DSN is the connection string for the selected store driver.
func (c Config) DSN() string {
	switch c.StoreDriver {
	case "postgres":
		return c.DatabaseURL
	case "sqlite":
		return c.SQLitePath
	default:
		return ""
	}
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// GetEnv reads an environment variable or returns def.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt parses an environment variable as an integer, else returns def.
func GetEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// GetEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func GetEnvDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
