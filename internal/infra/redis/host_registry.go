package redis

import (
	"context"
	"sync"
	"time"

	"bodhiment-quiz/internal/app"
	"bodhiment-quiz/internal/domain"
	"bodhiment-quiz/internal/infra/memory"
	"github.com/redis/go-redis/v9"
)

// HostRegistry is a Redis-aware implementation of app.HostRegistry.
// Notes:
//   - Hosts own timers, so they stay in a local map; Redis only holds a
//     liveness marker per user that other instances can inspect.
//   - Markers are refreshed on every attach and on activity (Touch), and
//     expire on their own if the process dies without cleanup.
type HostRegistry struct {
	client  *redis.Client
	ttl     time.Duration
	factory memory.HostFactory
	mu      sync.RWMutex
	hosts   map[string]*app.Host
}

func NewHostRegistry(client *redis.Client, ttl time.Duration, factory memory.HostFactory) *HostRegistry {
	return &HostRegistry{
		client:  client,
		ttl:     ttl,
		factory: factory,
		hosts:   make(map[string]*app.Host),
	}
}

func (r *HostRegistry) GetOrCreate(userID string) *app.Host {
	r.mu.Lock()
	defer r.mu.Unlock()
	if host, ok := r.hosts[userID]; ok {
		r.touch(userID)
		return host
	}
	host := r.factory(userID)
	r.hosts[userID] = host
	r.touch(userID)
	return host
}

// Attach returns the user's host with a live subscription, created under the
// registry lock so DeleteIfIdle cannot close the host in between.
func (r *HostRegistry) Attach(userID string) (*app.Host, <-chan domain.View, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	host, ok := r.hosts[userID]
	if !ok {
		host = r.factory(userID)
		r.hosts[userID] = host
	}
	r.touch(userID)
	updates, cancel := host.Subscribe()
	return host, updates, cancel
}

// Touch extends the liveness marker of a registered host.
func (r *HostRegistry) Touch(userID string) {
	r.mu.RLock()
	_, ok := r.hosts[userID]
	r.mu.RUnlock()
	if ok {
		r.touch(userID)
	}
}

func (r *HostRegistry) Get(userID string) (*app.Host, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	host, ok := r.hosts[userID]
	return host, ok
}

func (r *HostRegistry) DeleteIfIdle(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	host, ok := r.hosts[userID]
	if !ok {
		return
	}
	if host.IsIdle() {
		host.Close()
		delete(r.hosts, userID)
		_ = r.client.Del(context.Background(), r.key(userID)).Err()
	}
}

// IsLive reports whether any instance holds a host for the user.
func (r *HostRegistry) IsLive(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// touch writes a best-effort liveness marker.
func (r *HostRegistry) touch(userID string) {
	_ = r.client.Set(context.Background(), r.key(userID), "1", r.ttl).Err()
}

func (r *HostRegistry) key(userID string) string {
	return "quiz:host:" + userID
}
