package memory

import (
	"sync"

	"bodhiment-quiz/internal/app"
	"bodhiment-quiz/internal/domain"
)

// HostFactory builds a fresh host for a user.
type HostFactory func(userID string) *app.Host

// HostRegistry is an in-memory implementation of app.HostRegistry.
type HostRegistry struct {
	factory HostFactory
	mu      sync.RWMutex
	hosts   map[string]*app.Host
}

func NewHostRegistry(factory HostFactory) *HostRegistry {
	return &HostRegistry{
		factory: factory,
		hosts:   make(map[string]*app.Host),
	}
}

func (r *HostRegistry) GetOrCreate(userID string) *app.Host {
	r.mu.Lock()
	defer r.mu.Unlock()
	if host, ok := r.hosts[userID]; ok {
		return host
	}
	host := r.factory(userID)
	r.hosts[userID] = host
	return host
}

// Attach returns the user's host with a live subscription. Holding the
// registry lock across both steps keeps DeleteIfIdle from closing the host
// before the subscription exists.
func (r *HostRegistry) Attach(userID string) (*app.Host, <-chan domain.View, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	host, ok := r.hosts[userID]
	if !ok {
		host = r.factory(userID)
		r.hosts[userID] = host
	}
	updates, cancel := host.Subscribe()
	return host, updates, cancel
}

// Touch is a no-op: in-memory hosts live until DeleteIfIdle.
func (r *HostRegistry) Touch(string) {}

func (r *HostRegistry) Get(userID string) (*app.Host, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	host, ok := r.hosts[userID]
	return host, ok
}

// DeleteIfIdle closes and forgets the user's host once nobody watches it.
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
	}
}
