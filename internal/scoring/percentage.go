// Package scoring holds the pure arithmetic behind quiz results.
package scoring

import (
	"math"
	"time"

	"popquiz-service/internal/domain"
)

// Percentage returns score as a whole percentage of total, rounded half up.
// A zero total yields 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(100*score)/float64(total) + 0.5))
}

// NewRecord builds the append-only record stored for one completed attempt.
func NewRecord(id, userID, quizName string, score, total int, at time.Time) domain.ScoreRecord {
	return domain.ScoreRecord{
		ID:             id,
		UserID:         userID,
		QuizName:       quizName,
		Score:          score,
		TotalQuestions: total,
		Percentage:     Percentage(score, total),
		Timestamp:      at.UTC(),
	}
}
