package memory

import (
	"context"
	"sort"
	"sync"

	"bodhiment-quiz/internal/domain"
)

// ResultStore keeps completed games in memory (useful for tests/demos).
type ResultStore struct {
	mu      sync.RWMutex
	results map[string][]domain.GameResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string][]domain.GameResult)}
}

func (s *ResultStore) RecordResult(_ context.Context, result domain.GameResult) error {
	if result.UserID == "" {
		return domain.ErrUnknownIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.UserID] = append(s.results[result.UserID], result)
	return nil
}

// ListResults returns the user's games, newest first. A non-positive limit means all.
func (s *ResultStore) ListResults(_ context.Context, userID string, limit int) ([]domain.GameResult, error) {
	s.mu.RLock()
	out := append([]domain.GameResult(nil), s.results[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// StaticIdentity always resolves to the same user id; empty means anonymous.
type StaticIdentity struct {
	userID string
}

func NewStaticIdentity(userID string) StaticIdentity {
	return StaticIdentity{userID: userID}
}

func (s StaticIdentity) UserID(context.Context) (string, bool) {
	return s.userID, s.userID != ""
}
