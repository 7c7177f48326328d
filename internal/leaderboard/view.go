package leaderboard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"popquiz-service/internal/domain"
)

// Subscriber streams full snapshots of the score records. The first snapshot
// is delivered immediately; cancel releases the subscription and closes the
// channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan []domain.ScoreRecord, func(), error)
}

// View is a live leaderboard holding at most one store subscription.
type View struct {
	sub    Subscriber
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	cancel func()
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewView(sub Subscriber, logger zerolog.Logger) *View {
	return &View{
		sub:    sub,
		logger: logger.With().Str("component", "leaderboard_view").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Watch subscribes to the store and returns ranked snapshots for viewerID.
// Any earlier subscription is released first and its channel closed.
func (v *View) Watch(ctx context.Context, viewerID string) (<-chan domain.Leaderboard, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.stopLocked()

	records, cancel, err := v.sub.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	out := make(chan domain.Leaderboard, 1)
	v.cancel = cancel
	v.done = done

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		defer close(out)
		for {
			select {
			case snapshot, ok := <-records:
				if !ok {
					return
				}
				publishLatest(out, Build(snapshot, viewerID, v.now()))
			case <-done:
				return
			}
		}
	}()
	v.logger.Debug().Str("viewer", viewerID).Msg("leaderboard subscription started")
	return out, nil
}

// Stop releases the current subscription, if any.
func (v *View) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopLocked()
}

func (v *View) stopLocked() {
	if v.cancel == nil {
		return
	}
	close(v.done)
	v.cancel()
	v.cancel = nil
	v.done = nil
	v.wg.Wait()
}

// publishLatest replaces an unread snapshot so slow readers only see the
// newest board.
func publishLatest(ch chan domain.Leaderboard, lb domain.Leaderboard) {
	select {
	case ch <- lb:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- lb:
		default:
		}
	}
}
