package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"popquiz-service/internal/domain"
	"popquiz-service/internal/leaderboard"
	"popquiz-service/internal/metrics"
)

// SessionRepository tracks the engines of connected screens (in-memory, Redis, etc).
type SessionRepository interface {
	Put(sessionID string, engine *Engine)
	Get(sessionID string) (*Engine, bool)
	Delete(sessionID string)
	Count() int
}

// QuizRepository loads question sets (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, categoryID string) (domain.QuizDefinition, error)
}

// CategoryLister lists the quiz categories on offer.
type CategoryLister interface {
	Categories() []domain.Category
}

// ScoreStore is the append-only store of completed attempts.
type ScoreStore interface {
	ScoreSubmitter
	leaderboard.Lister
	leaderboard.Subscriber
}

// Options tune QuizService. Zero values pick the defaults.
type Options struct {
	SubmitTimeout time.Duration
	FetchTimeout  time.Duration
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
}

// QuizService contains the quiz use cases shared by every transport.
type QuizService struct {
	categories CategoryLister
	quizzes    QuizRepository
	scores     ScoreStore
	sessions   SessionRepository
	opts       Options
	logger     zerolog.Logger
}

func NewQuizService(categories CategoryLister, quizzes QuizRepository, scores ScoreStore, sessions SessionRepository, opts Options) *QuizService {
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = leaderboard.DefaultTimeout
	}
	return &QuizService{
		categories: categories,
		quizzes:    quizzes,
		scores:     scores,
		sessions:   sessions,
		opts:       opts,
		logger:     opts.Logger.With().Str("component", "quiz_service").Logger(),
	}
}

// Categories lists the quiz categories in display order.
func (s *QuizService) Categories() []domain.Category {
	return s.categories.Categories()
}

// Open registers a new engine bound to the given identity stream.
func (s *QuizService) Open(identity IdentityStream) (string, *Engine) {
	engine := NewEngine(EngineConfig{
		Store:         s.scores,
		Identity:      identity,
		SubmitTimeout: s.opts.SubmitTimeout,
		Logger:        s.opts.Logger,
		Metrics:       s.opts.Metrics,
	})
	id := uuid.NewString()
	s.sessions.Put(id, engine)
	s.opts.Metrics.SetOpenSessions(s.sessions.Count())
	return id, engine
}

// Start looks up the category's question set and begins a new attempt.
func (s *QuizService) Start(ctx context.Context, sessionID, categoryID string) (domain.SessionState, error) {
	engine, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionState{}, domain.ErrSessionNotFound
	}
	def, err := s.quizzes.GetQuiz(ctx, categoryID)
	if err != nil {
		s.logger.Warn().Err(err).Str("category_id", categoryID).Msg("quiz lookup failed")
		return engine.State(), fmt.Errorf("load quiz %q: %w", categoryID, err)
	}
	return engine.StartSession(def)
}

// Session returns the engine registered under sessionID.
func (s *QuizService) Session(sessionID string) (*Engine, error) {
	engine, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return engine, nil
}

// Close abandons any running attempt and forgets the session.
func (s *QuizService) Close(sessionID string) {
	engine, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	engine.Abandon()
	engine.Close()
	s.sessions.Delete(sessionID)
	s.opts.Metrics.SetOpenSessions(s.sessions.Count())
}

// Leaderboard fetches and ranks all scores once.
func (s *QuizService) Leaderboard(ctx context.Context, viewerID string) (domain.Leaderboard, error) {
	return leaderboard.Fetch(ctx, s.scores, s.opts.FetchTimeout, viewerID)
}

// NewLeaderboardView returns a live view over the score store. The caller
// owns the view and must Stop it.
func (s *QuizService) NewLeaderboardView() *leaderboard.View {
	return leaderboard.NewView(s.scores, s.opts.Logger)
}
