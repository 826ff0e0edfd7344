package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            string
	DBDriver        string
	DBDSN           string
	JWTSecret       string
	TokenTTL        time.Duration
	CORSOrigins     []string
	LogLevel        string
	LogEncoding     string
	RedisAddr       string
	MQURL           string
	SweepSchedule   string
	ReminderDays    int
	ShutdownTimeout time.Duration
}

// fileConfig is the optional YAML file named by CONFIG_FILE. Environment
// variables override anything it sets.
type fileConfig struct {
	Port     string `yaml:"port"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	JWT struct {
		Secret   string `yaml:"secret"`
		TTLHours int    `yaml:"ttl_hours"`
	} `yaml:"jwt"`
	CORSOrigins []string `yaml:"cors_origins"`
	Log         struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"log"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	MQ struct {
		URL string `yaml:"url"`
	} `yaml:"mq"`
	Sweep struct {
		Schedule     string `yaml:"schedule"`
		ReminderDays int    `yaml:"reminder_days"`
	} `yaml:"sweep"`
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`
}

func Load() (Config, error) {
	_ = godotenv.Load(".env")

	file, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		Port:            getEnv("PORT", or(file.Port, "8080")),
		DBDriver:        getEnv("DB_DRIVER", or(file.Database.Driver, "sqlite3")),
		DBDSN:           getEnv("DB_DSN", getEnv("DB_PATH", or(file.Database.DSN, "./data/freelance.db"))),
		JWTSecret:       getEnv("JWT_SECRET", or(file.JWT.Secret, "change-this-secret")),
		TokenTTL:        time.Duration(getEnvInt("TOKEN_TTL_HOURS", orInt(file.JWT.TTLHours, 72))) * time.Hour,
		CORSOrigins:     getEnvList("CORS_ORIGINS", orList(file.CORSOrigins, []string{"http://localhost:5173", "http://127.0.0.1:5173"})),
		LogLevel:        getEnv("LOG_LEVEL", or(file.Log.Level, "info")),
		LogEncoding:     getEnv("LOG_ENCODING", or(file.Log.Encoding, "json")),
		RedisAddr:       getEnv("REDIS_ADDR", file.Redis.Addr),
		MQURL:           getEnv("MQ_URL", file.MQ.URL),
		SweepSchedule:   getEnv("SWEEP_SCHEDULE", or(file.Sweep.Schedule, "@every 1h")),
		ReminderDays:    getEnvInt("REMINDER_DAYS", orInt(file.Sweep.ReminderDays, 3)),
		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", orInt(file.ShutdownTimeoutSeconds, 10))) * time.Second,
	}, nil
}

func loadFile(path string) (fileConfig, error) {
	var file fileConfig
	if path == "" {
		return file, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parse config file: %w", err)
	}
	return file, nil
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func orInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}

func orList(value, fallback []string) []string {
	if len(value) > 0 {
		return value
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
