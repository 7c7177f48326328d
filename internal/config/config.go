package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Config is read from YAML first; environment variables win over file values.
type Config struct {
	Server   Server   `yaml:"server"`
	Log      Log      `yaml:"log"`
	Redis    Redis    `yaml:"redis"`
	Postgres Postgres `yaml:"postgres"`
	Quiz     Quiz     `yaml:"quiz"`
	Store    Store    `yaml:"store"`
	Auth     Auth     `yaml:"auth"`
}

type Server struct {
	Port string `yaml:"port" env:"PORT"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
	Env   string `yaml:"env" env:"APP_ENV"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	TTL      string `yaml:"ttl" env:"REDIS_TTL"`
}

type Postgres struct {
	URL string `yaml:"url" env:"POSTGRES_URL"`
}

type Quiz struct {
	TTL string `yaml:"ttl" env:"QUIZ_TTL"`
}

// Store bounds calls to the score store.
type Store struct {
	Timeout      string `yaml:"timeout" env:"STORE_TIMEOUT"`
	PollInterval string `yaml:"poll_interval" env:"STORE_POLL_INTERVAL"`
}

type Auth struct {
	JWTSecret  string `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL   string `yaml:"token_ttl" env:"TOKEN_TTL"`
	BcryptCost int    `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

// Load reads YAML config from path and applies environment overrides. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
