package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"popquiz-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID   string          `bun:"id,pk"`
	Data string `bun:"data,type:jsonb"`
}

// SeedQuizzes upserts defs into the quizzes table so QuizLoader serves the
// same question sets as the bundled catalog.
func SeedQuizzes(ctx context.Context, db bun.IDB, defs []domain.QuizDefinition) (int, error) {
	if len(defs) == 0 {
		return 0, nil
	}
	rows := make([]quizRow, 0, len(defs))
	for _, def := range defs {
		data, err := json.Marshal(def)
		if err != nil {
			return 0, fmt.Errorf("marshal quiz %q: %w", def.ID, err)
		}
		rows = append(rows, quizRow{ID: def.ID, Data: string(data)})
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed quizzes: %w", err)
	}
	return len(rows), nil
}
