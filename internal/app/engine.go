package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"popquiz-service/internal/catalog"
	"popquiz-service/internal/domain"
	"popquiz-service/internal/metrics"
	"popquiz-service/internal/scoring"
)

// DefaultSubmitTimeout bounds a final score submission.
const DefaultSubmitTimeout = 10 * time.Second

// ScoreSubmitter appends one completed attempt to the score store.
type ScoreSubmitter interface {
	SubmitScore(ctx context.Context, userID, quizName string, score, total int) error
}

// IdentityStream publishes the signed-in identity (nil when signed out). The
// channel holds only the latest value; cancel releases the subscription.
type IdentityStream interface {
	Subscribe() (<-chan *domain.Identity, func())
}

// EngineConfig wires an Engine to its collaborators.
type EngineConfig struct {
	Store         ScoreSubmitter
	Identity      IdentityStream
	SubmitTimeout time.Duration
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
	Rand          *rand.Rand
}

// Engine runs one quiz attempt at a time for a single screen. All operations
// are serialized; score submission runs in the background.
type Engine struct {
	store         ScoreSubmitter
	submitTimeout time.Duration
	logger        zerolog.Logger
	metrics       *metrics.Metrics

	identityCh     <-chan *domain.Identity
	cancelIdentity func()
	closeOnce      sync.Once

	notices  chan domain.Notice
	inflight sync.WaitGroup

	mu          sync.Mutex
	rnd         *rand.Rand
	identity    *domain.Identity
	phase       domain.Phase
	quizID      string
	quizName    string
	questions   []domain.Question
	index       int
	selected    *string
	hasAnswered bool
	score       int
	answeredBy  string
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultSubmitTimeout
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e := &Engine{
		store:         cfg.Store,
		submitTimeout: cfg.SubmitTimeout,
		logger:        cfg.Logger.With().Str("component", "quiz_engine").Logger(),
		metrics:       cfg.Metrics,
		notices:       make(chan domain.Notice, 4),
		rnd:           cfg.Rand,
		phase:         domain.PhaseIdle,
	}
	if cfg.Identity != nil {
		e.identityCh, e.cancelIdentity = cfg.Identity.Subscribe()
	}
	return e
}

// StartSession shuffles a copy of the quiz's questions and begins play. A
// malformed question set leaves the engine Idle. Any attempt still running
// is dropped without submitting.
func (e *Engine) StartSession(def domain.QuizDefinition) (domain.SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	e.phase = domain.PhaseLoading

	if err := catalog.Validate(def.Questions); err != nil {
		e.phase = domain.PhaseIdle
		e.logger.Warn().Err(err).Str("quiz_id", def.ID).Msg("refusing malformed quiz")
		return e.snapshotLocked(), err
	}

	e.quizID = def.ID
	e.quizName = def.Name
	e.questions = shuffle(e.rnd, def.Questions)
	e.phase = domain.PhaseInProgress
	e.metrics.SessionStarted()
	e.logger.Debug().Str("quiz_id", def.ID).Int("questions", len(e.questions)).Msg("session started")
	return e.snapshotLocked(), nil
}

// SelectAnswer scores option against the current question. A second call on
// the same question is rejected with domain.ErrAlreadyAnswered and changes
// nothing.
func (e *Engine) SelectAnswer(option string) (domain.AnswerOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.phase {
	case domain.PhaseAnswered:
		return domain.AnswerOutcome{}, domain.ErrAlreadyAnswered
	case domain.PhaseInProgress:
	default:
		return domain.AnswerOutcome{}, fmt.Errorf("%w: answer in %s", domain.ErrInvalidPhase, e.phase)
	}

	who := e.identityLocked()
	if who == nil {
		return domain.AnswerOutcome{}, domain.ErrUnauthenticatedAction
	}

	current := e.questions[e.index]
	selected := option
	e.selected = &selected
	correct := option == current.CorrectOption
	if correct {
		e.score++
	}
	e.hasAnswered = true
	e.answeredBy = who.UserID
	e.phase = domain.PhaseAnswered
	e.metrics.Answer(correct)

	return domain.AnswerOutcome{
		IsCorrect:     correct,
		RunningScore:  e.score,
		CorrectOption: current.CorrectOption,
		IsLast:        e.index == len(e.questions)-1,
	}, nil
}

// Advance moves past an answered question. After the last question the
// session completes and exactly one score submission is dispatched.
func (e *Engine) Advance() (domain.Phase, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != domain.PhaseAnswered {
		return e.phase, fmt.Errorf("%w: advance in %s", domain.ErrInvalidPhase, e.phase)
	}

	if e.index+1 < len(e.questions) {
		e.index++
		e.selected = nil
		e.hasAnswered = false
		e.phase = domain.PhaseInProgress
		return e.phase, nil
	}

	e.phase = domain.PhaseCompleted
	e.metrics.SessionCompleted()

	userID := e.answeredBy
	if who := e.identityLocked(); who != nil {
		userID = who.UserID
	}
	e.inflight.Add(1)
	go e.submit(userID, e.quizName, e.score, len(e.questions))
	return e.phase, nil
}

// Abandon drops the current attempt without submitting. A submission that
// was already dispatched is left to finish.
func (e *Engine) Abandon() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == domain.PhaseIdle {
		return
	}
	if e.phase != domain.PhaseCompleted {
		e.metrics.SessionAbandoned()
	}
	e.resetLocked()
}

// State returns a snapshot of the current attempt.
func (e *Engine) State() domain.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// CanAnswer reports whether answer controls should be enabled.
func (e *Engine) CanAnswer() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == domain.PhaseInProgress && e.identityLocked() != nil
}

// Notices streams non-fatal, user-visible messages such as failed score
// submissions. Unread notices are dropped oldest first.
func (e *Engine) Notices() <-chan domain.Notice {
	return e.notices
}

// Wait blocks until every dispatched submission has finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Close releases the identity subscription. It does not wait for in-flight
// submissions.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		if e.cancelIdentity != nil {
			e.cancelIdentity()
		}
	})
}

func (e *Engine) submit(userID, quizName string, score, total int) {
	defer e.inflight.Done()

	logger := e.logger.With().
		Str("user_id", userID).
		Str("quiz", quizName).
		Int("score", score).
		Int("total", total).
		Logger()

	err := callWithTimeout(e.submitTimeout, func(ctx context.Context) error {
		return e.store.SubmitScore(ctx, userID, quizName, score, total)
	})
	switch {
	case err == nil:
		e.metrics.Submission(metrics.ResultOK)
		logger.Info().Msg("score submitted")
		e.notify(domain.Notice{
			Kind:    domain.NoticeScoreSaved,
			Message: fmt.Sprintf("Your final score is %d/%d (%d%%).", score, total, scoring.Percentage(score, total)),
		})
	case errors.Is(err, domain.ErrNetworkTimeout):
		e.metrics.Submission(metrics.ResultTimeout)
		logger.Warn().Err(err).Msg("score submission timed out")
		e.notify(domain.Notice{
			Kind:    domain.NoticeNetworkTimeout,
			Message: "Saving your final score timed out.",
		})
	default:
		e.metrics.Submission(metrics.ResultError)
		logger.Error().Err(err).Msg("score submission failed")
		e.notify(domain.Notice{
			Kind:    domain.NoticeStoreError,
			Message: "Failed to save your final score.",
		})
	}
}

func (e *Engine) notify(n domain.Notice) {
	select {
	case e.notices <- n:
		return
	default:
	}
	select {
	case <-e.notices:
	default:
	}
	select {
	case e.notices <- n:
	default:
	}
}

// identityLocked folds any pending identity update into the cached value.
func (e *Engine) identityLocked() *domain.Identity {
	if e.identityCh == nil {
		return e.identity
	}
	for {
		select {
		case id, ok := <-e.identityCh:
			if !ok {
				e.identityCh = nil
				e.identity = nil
				return nil
			}
			e.identity = id
		default:
			return e.identity
		}
	}
}

func (e *Engine) resetLocked() {
	e.phase = domain.PhaseIdle
	e.quizID = ""
	e.quizName = ""
	e.questions = nil
	e.index = 0
	e.selected = nil
	e.hasAnswered = false
	e.score = 0
	e.answeredBy = ""
}

func (e *Engine) snapshotLocked() domain.SessionState {
	state := domain.SessionState{
		Phase:        e.phase,
		QuizID:       e.quizID,
		QuizName:     e.quizName,
		Questions:    slices.Clone(e.questions),
		CurrentIndex: e.index,
		Total:        len(e.questions),
		HasAnswered:  e.hasAnswered,
		RunningScore: e.score,
	}
	if e.index < len(e.questions) && e.phase != domain.PhaseCompleted {
		q := e.questions[e.index]
		state.Current = &q
	}
	if e.selected != nil {
		s := *e.selected
		state.SelectedAnswer = &s
	}
	return state
}

// shuffle returns a uniformly random permutation of a copy of questions
// (Fisher-Yates).
func shuffle(rnd *rand.Rand, questions []domain.Question) []domain.Question {
	out := slices.Clone(questions)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// callWithTimeout runs fn with a deadline and returns domain.ErrNetworkTimeout
// once it passes, even if fn ignores its context.
func callWithTimeout(timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", domain.ErrNetworkTimeout, err)
		}
		return err
	case <-ctx.Done():
		return domain.ErrNetworkTimeout
	}
}
