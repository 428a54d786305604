package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"sync"
	"time"

	"bodhiment-quiz/internal/app"
	"bodhiment-quiz/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CachedSource caches generated MCQs per input text with a TTL so that
// "New Game" on the same text does not hit the generator again.
type CachedSource struct {
	source app.QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedMCQs
}

type cachedMCQs struct {
	mcqs      []domain.RawMCQ
	expiresAt time.Time
}

func NewCachedSource(source app.QuestionSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedMCQs),
	}
}

func (c *CachedSource) GenerateMCQs(ctx context.Context, inputText string) ([]domain.RawMCQ, error) {
	key := CacheKey(inputText)
	if mcqs, ok := c.lookup(key); ok {
		return mcqs, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if mcqs, ok := c.lookup(key); ok {
			return mcqs, nil
		}

		mcqs, err := c.source.GenerateMCQs(ctx, inputText)
		if err != nil {
			return nil, err
		}
		if len(mcqs) == 0 {
			return mcqs, nil
		}

		c.mu.Lock()
		c.cache[key] = cachedMCQs{
			mcqs:      mcqs,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return mcqs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.RawMCQ), nil
}

func (c *CachedSource) lookup(key string) ([]domain.RawMCQ, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		return entry.mcqs, true
	}
	return nil, false
}

func (c *CachedSource) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// CacheKey derives a stable cache key from the input text.
func CacheKey(inputText string) string {
	sum := sha256.Sum256([]byte(inputText))
	return hex.EncodeToString(sum[:])
}
