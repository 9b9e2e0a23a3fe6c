package dto

import (
	"time"

	"github.com/lshigami/quizcore/internal/model"
)

// SaveAnswersDTO carries a partial answer sheet keyed by question id. An empty list
// clears the answer for that question.
type SaveAnswersDTO struct {
	Answers map[uint][]string `json:"answers" binding:"required"`
}

// SubmitAttemptDTO optionally carries a final snapshot merged before scoring.
type SubmitAttemptDTO struct {
	Answers map[uint][]string `json:"answers"`
}

// AttemptSessionDTO is returned while an attempt is running.
type AttemptSessionDTO struct {
	AttemptID            uint                `json:"attempt_id"`
	QuizID               uint                `json:"quiz_id"`
	Status               model.AttemptStatus `json:"status"`
	StartedAt            time.Time           `json:"started_at"`
	TimeBudgetSeconds    int                 `json:"time_budget_seconds"`
	TimeRemainingSeconds int                 `json:"time_remaining_seconds"`
	IsExpired            bool                `json:"is_expired"`
	Resumed              bool                `json:"resumed"`
	Answers              map[uint][]string   `json:"answers"`
	// Result is set when the call itself completed the attempt (timeout on start or sync).
	Result *AttemptResultDTO `json:"result,omitempty"`
}

type EvaluationDTO struct {
	ID              uint                   `json:"id"`
	ScorePercent    float64                `json:"score_percent"`
	PointsAwarded   float64                `json:"points_awarded"`
	MaxPoints       float64                `json:"max_points"`
	Feedback        string                 `json:"ai_feedback"`
	Reasoning       string                 `json:"ai_reasoning,omitempty"`
	Correctness     *float64               `json:"correctness,omitempty"`
	Completeness    *float64               `json:"completeness,omitempty"`
	Clarity         *float64               `json:"clarity,omitempty"`
	Strengths       []string               `json:"strengths,omitempty"`
	Improvements    []string               `json:"improvements,omitempty"`
	Suggestions     []string               `json:"suggestions,omitempty"`
	EvaluatedBy     model.EvaluationSource `json:"evaluated_by"`
	ModelVersion    string                 `json:"model_version,omitempty"`
	Unavailable     bool                   `json:"unavailable"`
	KeywordsTotal   int                    `json:"keywords_total,omitempty"`
	KeywordsMatched int                    `json:"keywords_matched,omitempty"`
	DisputeStatus   *model.DisputeStatus   `json:"dispute_status,omitempty"`
	OverrideScore   *float64               `json:"override_score,omitempty"`
}

type QuestionResultDTO struct {
	QuestionID    uint               `json:"question_id"`
	QuestionType  model.QuestionType `json:"question_type"`
	OrderIndex    int                `json:"order_index"`
	PointsAwarded float64            `json:"points_awarded"`
	MaxPoints     float64            `json:"max_points"`
	Verdict       model.Verdict      `json:"verdict"`
	Overridden    bool               `json:"overridden"`
	Evaluation    *EvaluationDTO     `json:"evaluation,omitempty"`
}

// AttemptResultDTO is the full view of an attempt, with results once completed.
type AttemptResultDTO struct {
	AttemptID            uint                `json:"attempt_id"`
	QuizID               uint                `json:"quiz_id"`
	StudentID            uint                `json:"student_id"`
	Status               model.AttemptStatus `json:"status"`
	StartedAt            time.Time           `json:"started_at"`
	TimeBudgetSeconds    int                 `json:"time_budget_seconds"`
	TimeRemainingSeconds int                 `json:"time_remaining_seconds"`
	IsExpired            bool                `json:"is_expired"`
	CompletedAt          *time.Time          `json:"completed_at,omitempty"`
	Score                *float64            `json:"score,omitempty"`
	MaxScore             float64             `json:"max_score"`
	Answers              map[uint][]string   `json:"answers"`
	Results              []QuestionResultDTO `json:"results,omitempty"`
}

type AttemptSummaryDTO struct {
	AttemptID   uint                `json:"attempt_id"`
	QuizID      uint                `json:"quiz_id"`
	Status      model.AttemptStatus `json:"status"`
	IsExpired   bool                `json:"is_expired"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Score       *float64            `json:"score,omitempty"`
	MaxScore    float64             `json:"max_score"`
}
