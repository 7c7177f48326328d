package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"popquiz-service/internal/domain"
	"popquiz-service/internal/scoring"
)

const (
	scoresKey     = "scores:records"
	scoresChannel = "scores:updates"
)

// ScoreStore appends score records to a Redis list and announces each one on
// a pub/sub channel so every instance can refresh its live leaderboards.
//
//	RPUSH scores:records <json>
//	PUBLISH scores:updates <record id>
type ScoreStore struct {
	client *redis.Client
	logger zerolog.Logger
	now    func() time.Time
}

func NewScoreStore(client *redis.Client, logger zerolog.Logger) *ScoreStore {
	return &ScoreStore{
		client: client,
		logger: logger.With().Str("component", "redis_score_store").Logger(),
		now:    time.Now,
	}
}

func (s *ScoreStore) SubmitScore(ctx context.Context, userID, quizName string, score, total int) error {
	rec := scoring.NewRecord(uuid.NewString(), userID, quizName, score, total, s.now())
	raw, err := json.Marshal(rec)
	if err != nil {
		return &domain.StoreError{Op: "submit score", Err: err}
	}
	if err := s.client.RPush(ctx, scoresKey, raw).Err(); err != nil {
		return &domain.StoreError{Op: "submit score", Err: err}
	}
	// The record is durable at this point; a lost announcement only delays
	// live views until the next one.
	if err := s.client.Publish(ctx, scoresChannel, rec.ID).Err(); err != nil {
		s.logger.Warn().Err(err).Str("record_id", rec.ID).Msg("failed to announce score")
	}
	return nil
}

func (s *ScoreStore) ListScores(ctx context.Context) ([]domain.ScoreRecord, error) {
	raws, err := s.client.LRange(ctx, scoresKey, 0, -1).Result()
	if err != nil {
		return nil, &domain.StoreError{Op: "list scores", Err: err}
	}
	records := make([]domain.ScoreRecord, 0, len(raws))
	for _, raw := range raws {
		var rec domain.ScoreRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Warn().Err(err).Msg("skipping undecodable score record")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Subscribe listens on the update channel and re-reads the list after every
// announcement. The caller must invoke cancel to avoid leaks.
func (s *ScoreStore) Subscribe(ctx context.Context) (<-chan []domain.ScoreRecord, func(), error) {
	pubsub := s.client.Subscribe(ctx, scoresChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, &domain.StoreError{Op: "subscribe scores", Err: err}
	}
	initial, err := s.ListScores(ctx)
	if err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan []domain.ScoreRecord, 1)
	out <- initial

	runCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-runCtx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				records, err := s.ListScores(runCtx)
				if err != nil {
					if runCtx.Err() == nil {
						s.logger.Warn().Err(err).Msg("refresh after score announcement failed")
					}
					continue
				}
				select {
				case out <- records:
				default:
					select {
					case <-out:
					default:
					}
					out <- records
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			if err := pubsub.Close(); err != nil {
				s.logger.Debug().Err(err).Msg("closing score subscription")
			}
			<-done
		})
	}
	return out, cancel, nil
}
