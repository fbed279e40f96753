package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Log struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"50"` // megabytes
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAge     int    `env:"LOG_MAX_AGE" envDefault:"28"` // days
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"false"`
}

type Config struct {
	Port           string        `env:"PORT" envDefault:"6969"`
	DBDriver       string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN          string        `env:"DB_DSN" envDefault:"attendance.db"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	DefaultRefreshSeconds int     `env:"DEFAULT_REFRESH_SECONDS" envDefault:"15"`
	SubmitRate            float64 `env:"SUBMIT_RATE" envDefault:"1"` // per second, per client IP
	SubmitBurst           int     `env:"SUBMIT_BURST" envDefault:"5"`

	Log Log
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return Config{}, errors.Wrap(err, "failed to load .env")
		}
		logrus.Debug("no .env file, using process environment")
	}
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse environment")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is not set")
	}
	if cfg.DefaultRefreshSeconds <= 0 {
		return Config{}, errors.Errorf("DEFAULT_REFRESH_SECONDS must be positive, got %d", cfg.DefaultRefreshSeconds)
	}
	return cfg, nil
}
