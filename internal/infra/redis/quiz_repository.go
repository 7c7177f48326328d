package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"popquiz-service/internal/domain"
)

// QuizLoader fetches question sets from a backing store (bundled catalog or Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, categoryID string) (domain.QuizDefinition, error)
}

// QuizRepository caches whole question sets in Redis as JSON and falls back
// to a loader on cache miss.
//
//	SET quiz:{categoryID} <json> EX ttl+jitter
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	logger zerolog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration, logger zerolog.Logger) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		logger: logger.With().Str("component", "redis_quiz_cache").Logger(),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, categoryID string) (domain.QuizDefinition, error) {
	if quiz, ok := r.cached(ctx, categoryID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(categoryID, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if quiz, ok := r.cached(ctx, categoryID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, categoryID)
		if err != nil {
			return domain.QuizDefinition{}, err
		}

		raw, err := json.Marshal(quiz)
		if err != nil {
			return domain.QuizDefinition{}, fmt.Errorf("encode quiz: %w", err)
		}
		if err := r.client.Set(ctx, quizKey(categoryID), raw, r.ttlWithJitter()).Err(); err != nil {
			r.logger.Warn().Err(err).Str("category_id", categoryID).Msg("failed to cache quiz")
		}
		return quiz, nil
	})
	if err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("get quiz: %w", err)
	}
	return result.(domain.QuizDefinition), nil
}

func (r *QuizRepository) cached(ctx context.Context, categoryID string) (domain.QuizDefinition, bool) {
	raw, err := r.client.Get(ctx, quizKey(categoryID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Str("category_id", categoryID).Msg("quiz cache read failed")
		}
		return domain.QuizDefinition{}, false
	}
	var quiz domain.QuizDefinition
	if err := json.Unmarshal(raw, &quiz); err != nil {
		r.logger.Warn().Err(err).Str("category_id", categoryID).Msg("dropping corrupt cached quiz")
		_ = r.client.Del(ctx, quizKey(categoryID)).Err()
		return domain.QuizDefinition{}, false
	}
	return quiz, true
}

func quizKey(categoryID string) string {
	return "quiz:" + categoryID
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
