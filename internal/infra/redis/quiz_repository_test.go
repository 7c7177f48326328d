package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"popquiz-service/internal/domain"
	"popquiz-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.QuizDefinition{
			"1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute, zerolog.Nop())

	_, err = repo.GetQuiz(context.Background(), "1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("quiz:1") {
		t.Fatalf("expected quiz cached under quiz:1")
	}
	if ttl := mr.TTL("quiz:1"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with up to 10%% jitter, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	quiz, err := repo.GetQuiz(context.Background(), "1")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if quiz.Name != "Maths" || len(quiz.Questions) != 1 || quiz.Questions[0].CorrectOption != "4" {
		t.Fatalf("cached quiz lost data: %+v", quiz)
	}
}

func TestQuizRepositoryReloadsCorruptEntry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("quiz:1", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.QuizDefinition{"1": sampleQuiz()}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute, zerolog.Nop())

	if _, err := repo.GetQuiz(context.Background(), "1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected reload, got %d loads", loader.count())
	}
}

func TestQuizRepositoryUnknownCategoryNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuizRepository(newClient(mr), memory.NewStaticQuizLoader(nil), time.Minute, zerolog.Nop())
	_, err = repo.GetQuiz(context.Background(), "9")
	if !errors.Is(err, domain.ErrUnknownCategory) {
		t.Fatalf("expected unknown category, got %v", err)
	}
	if mr.Exists("quiz:9") {
		t.Fatalf("misses must not be cached")
	}
}

type countingLoader struct {
	memory.QuizLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, categoryID string) (domain.QuizDefinition, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuizLoader.LoadQuiz(ctx, categoryID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuiz() domain.QuizDefinition {
	return domain.QuizDefinition{
		ID:   "1",
		Name: "Maths",
		Questions: []domain.Question{
			{Text: "What is 2 + 2?", Options: []string{"3", "4"}, CorrectOption: "4"},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
