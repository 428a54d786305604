package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"bodhiment-quiz/internal/domain"
)

func TestResultStoreListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, score := range []int{10, 30, 20} {
		err := store.RecordResult(ctx, domain.GameResult{
			UserID:      "u1",
			Score:       score,
			CompletedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	_ = store.RecordResult(ctx, domain.GameResult{UserID: "u2", Score: 99, CompletedAt: base})

	results, err := store.ListResults(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 2 || results[0].Score != 20 || results[1].Score != 30 {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestResultStoreRequiresUser(t *testing.T) {
	err := NewResultStore().RecordResult(context.Background(), domain.GameResult{Score: 10})
	if !errors.Is(err, domain.ErrUnknownIdentity) {
		t.Fatalf("expected identity error, got %v", err)
	}
}

func TestStaticIdentity(t *testing.T) {
	if id, ok := NewStaticIdentity("u1").UserID(context.Background()); !ok || id != "u1" {
		t.Fatalf("unexpected identity %q %v", id, ok)
	}
	if _, ok := NewStaticIdentity("").UserID(context.Background()); ok {
		t.Fatalf("empty identity must be anonymous")
	}
}
