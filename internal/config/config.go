package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	GeneratorBackend = "backend"
	GeneratorOpenAI  = "openai"
)

type Config struct {
	Server struct {
		Port          string `yaml:"port" env:"PORT"`
		SessionSecret string `yaml:"session_secret" env:"BODHI_SESSION_SECRET"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level" env:"BODHI_LOG_LEVEL"`
	} `yaml:"log"`
	Generator struct {
		Mode       string `yaml:"mode" env:"BODHI_GENERATOR_MODE"`
		BackendURL string `yaml:"backend_url" env:"BODHI_BACKEND_URL"`
		Timeout    string `yaml:"timeout"`
		CacheTTL   string `yaml:"cache_ttl"`
		OpenAI     struct {
			APIKey    string `yaml:"api_key" env:"BODHI_OPENAI_API_KEY"`
			BaseURL   string `yaml:"base_url" env:"BODHI_OPENAI_BASE_URL"`
			Model     string `yaml:"model" env:"BODHI_OPENAI_MODEL"`
			Questions int    `yaml:"questions"`
		} `yaml:"openai"`
	} `yaml:"generator"`
	Quiz struct {
		QuestionSeconds int    `yaml:"question_seconds"`
		RevealDelay     string `yaml:"reveal_delay"`
	} `yaml:"quiz"`
	Redis struct {
		Addr     string `yaml:"addr" env:"BODHI_REDIS_ADDR"`
		Password string `yaml:"password" env:"BODHI_REDIS_PASSWORD"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"BODHI_POSTGRES_URL"`
	} `yaml:"postgres"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Generator.Mode = GeneratorBackend
	cfg.Generator.BackendURL = "http://localhost:5000"
	cfg.Generator.Timeout = "60s"
	cfg.Generator.CacheTTL = "10m"
	cfg.Quiz.QuestionSeconds = 30
	cfg.Quiz.RevealDelay = "1.5s"
	cfg.Redis.TTL = "10m"
	return cfg
}

// Load reads YAML config from path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
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
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c Config) Validate() error {
	switch c.Generator.Mode {
	case GeneratorBackend:
		if c.Generator.BackendURL == "" {
			return fmt.Errorf("generator.backend_url is required in backend mode")
		}
	case GeneratorOpenAI:
		if c.Generator.OpenAI.APIKey == "" {
			return fmt.Errorf("generator.openai.api_key is required in openai mode")
		}
	default:
		return fmt.Errorf("unknown generator mode %q", c.Generator.Mode)
	}
	return nil
}

// LogLevel parses log.level, defaulting to info.
func (c Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return slog.LevelInfo
	}
	return level
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
