package postgres

import (
	"context"
	"fmt"

	"bodhiment-quiz/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultStore persists completed games in the game_results table.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) RecordResult(ctx context.Context, result domain.GameResult) error {
	if result.UserID == "" {
		return domain.ErrUnknownIdentity
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO game_results (user_id, score, max_streak, accuracy, question_count, correct_count, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.UserID, result.Score, result.MaxStreak, result.Accuracy,
		result.QuestionCount, result.CorrectCount, result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

// ListResults returns the user's games, newest first. A non-positive limit means all.
func (s *ResultStore) ListResults(ctx context.Context, userID string, limit int) ([]domain.GameResult, error) {
	query := `SELECT user_id, score, max_streak, accuracy, question_count, correct_count, completed_at
		FROM game_results WHERE user_id=$1 ORDER BY completed_at DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query game results: %w", err)
	}
	defer rows.Close()

	var results []domain.GameResult
	for rows.Next() {
		var r domain.GameResult
		if err := rows.Scan(&r.UserID, &r.Score, &r.MaxStreak, &r.Accuracy, &r.QuestionCount, &r.CorrectCount, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan game result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game results: %w", err)
	}
	return results, nil
}
