package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"popquiz-service/internal/domain"
	"popquiz-service/internal/scoring"
)

// DefaultPollInterval is how often subscriptions re-read the scores table.
const DefaultPollInterval = 2 * time.Second

// ScoreStore keeps score records in the append-only scores table. Postgres
// has no push channel here, so subscriptions poll.
type ScoreStore struct {
	pool     *pgxpool.Pool
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewScoreStore(pool *pgxpool.Pool, interval time.Duration, logger zerolog.Logger) *ScoreStore {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &ScoreStore{
		pool:     pool,
		interval: interval,
		logger:   logger.With().Str("component", "pg_score_store").Logger(),
		now:      time.Now,
	}
}

func (s *ScoreStore) SubmitScore(ctx context.Context, userID, quizName string, score, total int) error {
	rec := scoring.NewRecord(uuid.NewString(), userID, quizName, score, total, s.now())
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scores (id, user_id, quiz_name, score, total_questions, percentage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.UserID, rec.QuizName, rec.Score, rec.TotalQuestions, rec.Percentage, rec.Timestamp)
	if err != nil {
		return &domain.StoreError{Op: "submit score", Err: err}
	}
	return nil
}

func (s *ScoreStore) ListScores(ctx context.Context) ([]domain.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, quiz_name, score, total_questions, percentage, created_at
		FROM scores`)
	if err != nil {
		return nil, &domain.StoreError{Op: "list scores", Err: err}
	}
	defer rows.Close()

	var records []domain.ScoreRecord
	for rows.Next() {
		var rec domain.ScoreRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.QuizName, &rec.Score, &rec.TotalQuestions, &rec.Percentage, &rec.Timestamp); err != nil {
			return nil, &domain.StoreError{Op: "scan score", Err: err}
		}
		rec.Timestamp = rec.Timestamp.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "list scores", Err: err}
	}
	return records, nil
}

// Subscribe emits the current records, then again whenever the row count
// changes. Records are append-only, so the count is a sufficient change
// marker. The caller must invoke cancel to avoid leaks.
func (s *ScoreStore) Subscribe(ctx context.Context) (<-chan []domain.ScoreRecord, func(), error) {
	initial, err := s.ListScores(ctx)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan []domain.ScoreRecord, 1)
	out <- initial

	runCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		seen := len(initial)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				records, err := s.ListScores(runCtx)
				if err != nil {
					if runCtx.Err() == nil {
						s.logger.Warn().Err(err).Msg("score poll failed")
					}
					continue
				}
				if len(records) == seen {
					continue
				}
				seen = len(records)
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
			<-done
		})
	}
	return out, cancel, nil
}
