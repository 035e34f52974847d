// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/erazemk/totetrack/internal/mail"
)

// Config holds all server settings.
type Config struct {
	Addr     string `env:"TOTETRACK_ADDR" envDefault:":8080"`
	DBPath   string `env:"TOTETRACK_DB" envDefault:"totetrack.sqlite3"`
	MediaDir string `env:"TOTETRACK_MEDIA_DIR" envDefault:"media"`
	LogPath  string `env:"TOTETRACK_LOG"`

	// SecretKey signs access tokens. When empty, a secret persisted in the
	// database is used.
	SecretKey              string `env:"SECRET_KEY"`
	AccessTokenExpireMin   int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"60"`
	PasswordResetExpireMin int    `env:"PASSWORD_RESET_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	PublicURL              string `env:"TOTETRACK_PUBLIC_URL" envDefault:"http://localhost:8080"`

	SMTP mail.Config `envPrefix:"SMTP_"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`
}

// AccessTTL returns the access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMin) * time.Minute
}

// RecoveryTTL returns the recovery token lifetime.
func (c *Config) RecoveryTTL() time.Duration {
	return time.Duration(c.PasswordResetExpireMin) * time.Minute
}

// Load reads envFile, if it exists, and then parses the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.AccessTokenExpireMin <= 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.PasswordResetExpireMin <= 0 {
		return errors.New("PASSWORD_RESET_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.LoginRateLimit <= 0 {
		return errors.New("LOGIN_RATE_LIMIT must be positive")
	}
	if c.LoginRateWindow <= 0 {
		return errors.New("LOGIN_RATE_WINDOW must be positive")
	}
	return nil
}
