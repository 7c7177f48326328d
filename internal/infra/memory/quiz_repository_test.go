package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"popquiz-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.QuizDefinition{
			"1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	quiz, err := repo.GetQuiz(context.Background(), "1")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
	if quiz.Name != "Maths" || len(quiz.Questions) != 1 {
		t.Fatalf("unexpected cached quiz %+v", quiz)
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.QuizDefinition{"1": sampleQuiz()}),
	}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuiz(context.Background(), "1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), "1")

	if loader.count() != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.count())
	}
}

func TestQuizRepositoryUnknownCategory(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)

	_, err := repo.GetQuiz(context.Background(), "missing")
	if !errors.Is(err, domain.ErrUnknownCategory) {
		t.Fatalf("expected unknown category, got %v", err)
	}
}

func TestQuizRepositoryCollapsesConcurrentLoads(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.QuizDefinition{"1": sampleQuiz()}),
		gate:       release,
	}
	repo := NewQuizRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetQuiz(context.Background(), "1"); err != nil {
				t.Errorf("get quiz: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if loader.count() != 1 {
		t.Fatalf("expected a single load, got %d", loader.count())
	}
}

type countingLoader struct {
	QuizLoader
	gate  chan struct{}
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, categoryID string) (domain.QuizDefinition, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.gate != nil {
		<-l.gate
	}
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
