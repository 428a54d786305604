package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"bodhiment-quiz/internal/app"
	"bodhiment-quiz/internal/config"
	"bodhiment-quiz/internal/infra/backend"
	"bodhiment-quiz/internal/infra/memory"
	"bodhiment-quiz/internal/infra/openai"
	rediscache "bodhiment-quiz/internal/infra/redis"
	"github.com/redis/go-redis/v9"
)

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel()}))
}

func quizSettings(cfg config.Config) app.Settings {
	return app.Settings{
		QuestionSeconds: cfg.Quiz.QuestionSeconds,
		RevealDelay:     config.TTLDuration(cfg.Quiz.RevealDelay, 0),
	}
}

// newQuestionSource picks the generator and wraps it in a cache. With a
// Redis client the cache is shared, otherwise it lives in process.
func newQuestionSource(cfg config.Config, rdb *redis.Client, logger *slog.Logger) (app.QuestionSource, error) {
	var source app.QuestionSource
	switch cfg.Generator.Mode {
	case config.GeneratorBackend:
		timeout := config.TTLDuration(cfg.Generator.Timeout, 60*time.Second)
		source = backend.NewClient(cfg.Generator.BackendURL, timeout)
	case config.GeneratorOpenAI:
		source = openai.NewGenerator(openai.Config{
			APIKey:    cfg.Generator.OpenAI.APIKey,
			BaseURL:   cfg.Generator.OpenAI.BaseURL,
			Model:     cfg.Generator.OpenAI.Model,
			Questions: cfg.Generator.OpenAI.Questions,
			Logger:    logger,
		})
	default:
		return nil, fmt.Errorf("unknown generator mode %q", cfg.Generator.Mode)
	}

	ttl := config.TTLDuration(cfg.Generator.CacheTTL, 10*time.Minute)
	if ttl <= 0 {
		return source, nil
	}
	if rdb != nil {
		return rediscache.NewCachedSource(rdb, source, ttl, logger), nil
	}
	return memory.NewCachedSource(source, ttl), nil
}

func openRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
