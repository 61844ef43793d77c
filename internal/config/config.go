package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Line     LineConfig
	Capacity CapacityConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type LineConfig struct {
	ChannelToken  string
	ChannelSecret string
	LIFFURL       string
}

type CapacityConfig struct {
	DefaultStoreID string
	// FailClosed rejects reservations while postgres or redis are
	// unreachable instead of admitting with a warning.
	FailClosed bool
	// CollaboratorTimeout bounds each rule store and counter call
	// during admission.
	CollaboratorTimeout time.Duration
	// DailyCeiling caps total reservations per store per day. Zero
	// disables the ceiling.
	DailyCeiling int
	// AtomicAdmission turns on redis slot counters so concurrent
	// requests cannot both take the last slot.
	AtomicAdmission bool
	// CommandLimit / CommandWindow throttle operator commands per user.
	CommandLimit  int
	CommandWindow time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
	if postgresSSLMode == "" {
		postgresSSLMode = "disable"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	storeID := os.Getenv("DEFAULT_STORE_ID")
	if storeID == "" {
		storeID = "restaurant-002"
	}

	collabTimeoutMs, err := intEnv("CAPACITY_TIMEOUT_MS", 3000)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dailyCeiling, err := intEnv("CAPACITY_DAILY_CEILING", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	commandLimit, err := intEnv("COMMAND_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	commandWindowSec, err := intEnv("COMMAND_RATE_WINDOW_SEC", 60)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server: ServerConfig{
			Host: serverHost,
			Port: serverPort,
		},
		Postgres: PostgresConfig{
			User:     postgresUser,
			Password: postgresPassword,
			Name:     postgresDB,
			Host:     postgresHost,
			Port:     postgresPort,
			SSLMode:  postgresSSLMode,
		},
		Redis: RedisConfig{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Line: LineConfig{
			ChannelToken:  os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
			ChannelSecret: os.Getenv("LINE_CHANNEL_SECRET"),
			LIFFURL:       os.Getenv("LIFF_URL"),
		},
		Capacity: CapacityConfig{
			DefaultStoreID:      storeID,
			FailClosed:          boolEnv("CAPACITY_FAIL_CLOSED"),
			CollaboratorTimeout: time.Duration(collabTimeoutMs) * time.Millisecond,
			DailyCeiling:        dailyCeiling,
			AtomicAdmission:     boolEnv("CAPACITY_ATOMIC_ADMISSION"),
			CommandLimit:        commandLimit,
			CommandWindow:       time.Duration(commandWindowSec) * time.Second,
		},
	}, nil
}

func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func boolEnv(name string) bool {
	v, _ := strconv.ParseBool(os.Getenv(name))
	return v
}
