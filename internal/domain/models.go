package domain

import "time"

// Question is a multiple-choice question. CorrectOption should equal one of
// Options for the question to be answerable; nothing enforces that on load.
type Question struct {
	Text          string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=1"`
	CorrectOption string   `json:"correctAnswer" validate:"required"`
}

// Category is a catalog entry as listed to clients.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IconID   string `json:"icon"`
	ColorTag string `json:"color"`
}

// QuizDefinition is a category bound to its question set.
type QuizDefinition struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	IconID    string     `json:"icon"`
	ColorTag  string     `json:"color"`
	Questions []Question `json:"questions"`
}

// Category returns the listing view of the definition.
func (q QuizDefinition) Category() Category {
	return Category{ID: q.ID, Name: q.Name, IconID: q.IconID, ColorTag: q.ColorTag}
}

// Identity is a signed-in user.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// ScoreRecord is one completed attempt. Records are append-only.
type ScoreRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	QuizName       string    `json:"quizName"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     int       `json:"percentage"`
	Timestamp      time.Time `json:"timestamp"`
}

// Phase is the state of a quiz session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseLoading    Phase = "loading"
	PhaseInProgress Phase = "in_progress"
	PhaseAnswered   Phase = "answered"
	PhaseCompleted  Phase = "completed"
)

// SessionState is a snapshot of one quiz attempt.
type SessionState struct {
	Phase          Phase      `json:"phase"`
	QuizID         string     `json:"quizId,omitempty"`
	QuizName       string     `json:"quizName,omitempty"`
	Questions      []Question `json:"-"`
	CurrentIndex   int        `json:"currentIndex"`
	Total          int        `json:"total"`
	Current        *Question  `json:"current,omitempty"`
	SelectedAnswer *string    `json:"selectedAnswer,omitempty"`
	HasAnswered    bool       `json:"hasAnswered"`
	RunningScore   int        `json:"runningScore"`
}

// AnswerOutcome is returned after an answer is scored.
type AnswerOutcome struct {
	IsCorrect     bool   `json:"isCorrect"`
	RunningScore  int    `json:"runningScore"`
	CorrectOption string `json:"correctOption"`
	IsLast        bool   `json:"isLast"`
}

// NoticeKind classifies non-fatal, user-visible notices.
type NoticeKind string

const (
	NoticeStoreError     NoticeKind = "store_error"
	NoticeNetworkTimeout NoticeKind = "network_timeout"
	NoticeScoreSaved     NoticeKind = "score_saved"
)

// Notice is a non-blocking message raised by a session.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// LeaderboardEntry is a ranked score record.
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	ScoreRecord
	// Owner is "You" for the viewing identity, otherwise a short user id.
	Owner string `json:"owner"`
}

// Leaderboard captures the ordered scores.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
