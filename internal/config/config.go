package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	BusMemory = "memory"
	BusRedis  = "redis"
)

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev" validate:"oneof=dev prod"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8000" validate:"min=1000,max=65535"`

	MaxPlayersPerRoom int           `env:"MAX_PLAYERS_PER_ROOM" envDefault:"8"   validate:"min=2,max=64"`
	ChallengeTTL      time.Duration `env:"CHALLENGE_TTL"        envDefault:"2m"  validate:"min=1s"`
	RoomIdleTTL       time.Duration `env:"ROOM_IDLE_TTL"        envDefault:"6h"  validate:"min=1s"`
	JanitorInterval   time.Duration `env:"JANITOR_INTERVAL"     envDefault:"30s" validate:"min=1s"`

	WsSendBuffer int   `env:"WS_SEND_BUFFER" envDefault:"256"   validate:"min=1,max=65536"`
	WsReadLimit  int64 `env:"WS_READ_LIMIT"  envDefault:"65536" validate:"min=512"`

	BusBackend string `env:"BUS_BACKEND" envDefault:"memory" validate:"oneof=memory redis"`
	RedisHost  string `env:"REDIS_HOST"  envDefault:"localhost"`
	RedisPort  uint16 `env:"REDIS_PORT"  envDefault:"6379" validate:"min=1000,max=65535"`

	MatchLogEnabled       bool          `env:"MATCH_LOG_ENABLED"        envDefault:"false"`
	MatchLogFlushInterval time.Duration `env:"MATCH_LOG_FLUSH_INTERVAL" envDefault:"10s" validate:"min=1s"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT"     envDefault:"5432" validate:"min=1,max=65535"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"lobby_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"lobby_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"lobby_db"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE"  envDefault:"disable"`
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.PostgresPassword != "" {
		c.PostgresPassword = "***"
	}
	return c
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
