package memory

import (
	"context"
	"fmt"

	"popquiz-service/internal/domain"
)

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.QuizDefinition
}

func NewStaticQuizLoader(quizzes map[string]domain.QuizDefinition) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, categoryID string) (domain.QuizDefinition, error) {
	if quiz, ok := l.quizzes[categoryID]; ok {
		return quiz, nil
	}
	return domain.QuizDefinition{}, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, categoryID)
}
