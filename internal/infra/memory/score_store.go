package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"popquiz-service/internal/domain"
	"popquiz-service/internal/scoring"
)

// ScoreStore is an append-only, in-process score store that pushes full
// snapshots to subscribers.
type ScoreStore struct {
	now func() time.Time

	mu          sync.RWMutex
	records     []domain.ScoreRecord
	subscribers map[chan []domain.ScoreRecord]struct{}
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		now:         time.Now,
		subscribers: make(map[chan []domain.ScoreRecord]struct{}),
	}
}

// NewScoreStoreWithClock is test-only for deterministic timestamps.
func NewScoreStoreWithClock(now func() time.Time) *ScoreStore {
	s := NewScoreStore()
	s.now = now
	return s
}

func (s *ScoreStore) SubmitScore(ctx context.Context, userID, quizName string, score, total int) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: "submit score", Err: err}
	}
	rec := scoring.NewRecord(uuid.NewString(), userID, quizName, score, total, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	s.broadcastLocked()
	return nil
}

func (s *ScoreStore) ListScores(ctx context.Context) ([]domain.ScoreRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StoreError{Op: "list scores", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records), nil
}

// Subscribe delivers the current records immediately and again after every
// submission. The caller must invoke cancel to avoid leaks.
func (s *ScoreStore) Subscribe(_ context.Context) (<-chan []domain.ScoreRecord, func(), error) {
	ch := make(chan []domain.ScoreRecord, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- slices.Clone(s.records)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// SubscriberCount reports live subscriptions.
func (s *ScoreStore) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

func (s *ScoreStore) broadcastLocked() {
	for ch := range s.subscribers {
		snapshot := slices.Clone(s.records)
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot so a slow reader never blocks submissions.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
