package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"bodhiment-quiz/internal/app"
	"bodhiment-quiz/internal/domain"
	"bodhiment-quiz/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CachedSource caches generated MCQs in Redis and falls back to the wrapped
// source on a miss. Entries are stored as:
//
//	SET mcqs:{sha256(input)} <json []RawMCQ> EX ttl
type CachedSource struct {
	client *redis.Client
	source app.QuestionSource
	ttl    time.Duration
	logger *slog.Logger
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewCachedSource(client *redis.Client, source app.QuestionSource, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{
		client: client,
		source: source,
		ttl:    ttl,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedSource) GenerateMCQs(ctx context.Context, inputText string) ([]domain.RawMCQ, error) {
	key := c.key(inputText)
	if mcqs, ok := c.lookup(ctx, key); ok {
		return mcqs, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if mcqs, ok := c.lookup(ctx, key); ok {
			return mcqs, nil
		}

		mcqs, err := c.source.GenerateMCQs(ctx, inputText)
		if err != nil {
			return nil, err
		}
		if len(mcqs) == 0 {
			return mcqs, nil
		}

		data, err := json.Marshal(mcqs)
		if err == nil {
			err = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		if err != nil {
			// best-effort: a cache write failure never fails generation
			c.logger.Warn("cache mcqs", "key", key, "error", err)
		}
		return mcqs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawMCQ), nil
}

func (c *CachedSource) lookup(ctx context.Context, key string) ([]domain.RawMCQ, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("read cached mcqs", "key", key, "error", err)
		}
		return nil, false
	}
	var mcqs []domain.RawMCQ
	if err := json.Unmarshal(data, &mcqs); err != nil || len(mcqs) == 0 {
		return nil, false
	}
	return mcqs, true
}

func (c *CachedSource) key(inputText string) string {
	return "mcqs:" + memory.CacheKey(inputText)
}

func (c *CachedSource) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
