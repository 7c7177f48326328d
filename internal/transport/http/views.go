package http

import (
	"popquiz-service/internal/domain"
	"popquiz-service/internal/scoring"
)

// questionView hides the correct answer from clients.
type questionView struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

type sessionView struct {
	Phase          domain.Phase  `json:"phase"`
	QuizID         string        `json:"quizId,omitempty"`
	QuizName       string        `json:"quizName,omitempty"`
	CurrentIndex   int           `json:"currentIndex"`
	Total          int           `json:"total"`
	Question       *questionView `json:"question,omitempty"`
	SelectedAnswer *string       `json:"selectedAnswer,omitempty"`
	HasAnswered    bool          `json:"hasAnswered"`
	RunningScore   int           `json:"runningScore"`
	CanAnswer      bool          `json:"canAnswer"`
}

type completedView struct {
	QuizName   string `json:"quizName"`
	Score      int    `json:"score"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

func newSessionView(state domain.SessionState, canAnswer bool) sessionView {
	v := sessionView{
		Phase:          state.Phase,
		QuizID:         state.QuizID,
		QuizName:       state.QuizName,
		CurrentIndex:   state.CurrentIndex,
		Total:          state.Total,
		SelectedAnswer: state.SelectedAnswer,
		HasAnswered:    state.HasAnswered,
		RunningScore:   state.RunningScore,
		CanAnswer:      canAnswer,
	}
	if state.Current != nil {
		v.Question = &questionView{Text: state.Current.Text, Options: state.Current.Options}
	}
	return v
}

func newCompletedView(state domain.SessionState) completedView {
	return completedView{
		QuizName:   state.QuizName,
		Score:      state.RunningScore,
		Total:      state.Total,
		Percentage: scoring.Percentage(state.RunningScore, state.Total),
	}
}
