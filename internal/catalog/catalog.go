// Package catalog is the static registry of quiz categories and their
// bundled question sets.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"popquiz-service/internal/domain"
)

//go:embed data/quizzes.json
var bundled []byte

// Catalog is immutable after construction and safe for concurrent reads.
type Catalog struct {
	order   []string
	quizzes map[string]domain.QuizDefinition
}

// New decodes the bundled question sets.
func New(logger zerolog.Logger) (*Catalog, error) {
	var defs []domain.QuizDefinition
	if err := json.Unmarshal(bundled, &defs); err != nil {
		return nil, fmt.Errorf("decode bundled quizzes: %w", err)
	}
	return NewFromDefinitions(defs, logger), nil
}

// NewFromDefinitions builds a catalog from definitions in listing order.
// Later duplicates of an ID are ignored.
func NewFromDefinitions(defs []domain.QuizDefinition, logger zerolog.Logger) *Catalog {
	logger = logger.With().Str("component", "catalog").Logger()
	c := &Catalog{
		order:   make([]string, 0, len(defs)),
		quizzes: make(map[string]domain.QuizDefinition, len(defs)),
	}
	for _, def := range defs {
		if _, dup := c.quizzes[def.ID]; dup {
			logger.Warn().Str("category_id", def.ID).Msg("duplicate category ignored")
			continue
		}
		for i, q := range def.Questions {
			if !slices.Contains(q.Options, q.CorrectOption) {
				logger.Warn().
					Str("category_id", def.ID).
					Int("question", i).
					Msg("correct answer is not among the options; question cannot be answered correctly")
			}
		}
		c.order = append(c.order, def.ID)
		c.quizzes[def.ID] = cloneDefinition(def)
	}
	return c
}

// Categories lists the catalog entries in display order.
func (c *Catalog) Categories() []domain.Category {
	out := make([]domain.Category, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.quizzes[id].Category())
	}
	return out
}

// GetQuestionSet returns a copy of the definition bound to categoryID.
func (c *Catalog) GetQuestionSet(_ context.Context, categoryID string) (domain.QuizDefinition, error) {
	def, ok := c.quizzes[categoryID]
	if !ok {
		return domain.QuizDefinition{}, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, categoryID)
	}
	return cloneDefinition(def), nil
}

// LoadQuiz lets the catalog back the caching quiz repositories.
func (c *Catalog) LoadQuiz(ctx context.Context, categoryID string) (domain.QuizDefinition, error) {
	return c.GetQuestionSet(ctx, categoryID)
}

// Definitions returns copies of every definition in display order.
func (c *Catalog) Definitions() []domain.QuizDefinition {
	out := make([]domain.QuizDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, cloneDefinition(c.quizzes[id]))
	}
	return out
}

func cloneDefinition(def domain.QuizDefinition) domain.QuizDefinition {
	questions := make([]domain.Question, len(def.Questions))
	for i, q := range def.Questions {
		q.Options = slices.Clone(q.Options)
		questions[i] = q
	}
	def.Questions = questions
	return def
}
