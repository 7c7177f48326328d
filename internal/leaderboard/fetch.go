package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"popquiz-service/internal/domain"
)

// DefaultTimeout bounds one-shot fetches when the caller passes zero.
const DefaultTimeout = 10 * time.Second

// Lister returns every stored score record, in no particular order.
type Lister interface {
	ListScores(ctx context.Context) ([]domain.ScoreRecord, error)
}

// Fetch lists all scores and ranks them. It gives up after timeout with
// domain.ErrNetworkTimeout even if the lister ignores its context.
func Fetch(ctx context.Context, lister Lister, timeout time.Duration, viewerID string) (domain.Leaderboard, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		records []domain.ScoreRecord
		err     error
	}
	done := make(chan result, 1)
	go func() {
		records, err := lister.ListScores(ctx)
		done <- result{records: records, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return domain.Leaderboard{}, fmt.Errorf("list scores: %w", domain.ErrNetworkTimeout)
			}
			return domain.Leaderboard{}, fmt.Errorf("list scores: %w", res.err)
		}
		return Build(res.records, viewerID, time.Now().UTC()), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Leaderboard{}, fmt.Errorf("list scores: %w", domain.ErrNetworkTimeout)
		}
		return domain.Leaderboard{}, ctx.Err()
	}
}
