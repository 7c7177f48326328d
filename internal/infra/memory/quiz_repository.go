package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"popquiz-service/internal/domain"
)

// QuizLoader fetches question sets from a backing store (bundled catalog or Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, categoryID string) (domain.QuizDefinition, error)
}

// QuizRepository caches question sets with TTL to avoid repeated loader hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.QuizDefinition
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, categoryID string) (domain.QuizDefinition, error) {
	if quiz, ok := r.cached(categoryID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(categoryID, func() (interface{}, error) {
		if quiz, ok := r.cached(categoryID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, categoryID)
		if err != nil {
			return domain.QuizDefinition{}, err
		}

		r.mu.Lock()
		r.cache[categoryID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("get quiz: %w", err)
	}
	return result.(domain.QuizDefinition), nil
}

func (r *QuizRepository) cached(categoryID string) (domain.QuizDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[categoryID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.QuizDefinition{}, false
	}
	return entry.quiz, true
}

// ttlWithJitterLocked adds up to 10% jitter to spread expirations.
func (r *QuizRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
