package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"popquiz-service/internal/domain"
)

// QuizLoader loads question sets stored as JSONB in the quizzes table.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, categoryID string) (domain.QuizDefinition, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, categoryID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QuizDefinition{}, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, categoryID)
		}
		return domain.QuizDefinition{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.QuizDefinition
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("%w: unmarshal quiz %q: %v", domain.ErrMalformedQuizData, categoryID, err)
	}
	if quiz.ID == "" {
		quiz.ID = categoryID
	}
	return quiz, nil
}
