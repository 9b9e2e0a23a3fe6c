package dto

import (
	"time"

	"github.com/lshigami/quizcore/internal/model"
)

type FileDisputeDTO struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

// ReviewDisputeDTO is the instructor decision. OverrideScore is a percentage of the
// question's points.
type ReviewDisputeDTO struct {
	Status        string   `json:"status" binding:"required,oneof=RESOLVED REJECTED"`
	Feedback      string   `json:"feedback" binding:"max=2000"`
	OverrideScore *float64 `json:"override_score" binding:"omitempty,min=0,max=100"`
}

// ReportDTO is an evaluation record seen through the dispute workflow.
type ReportDTO struct {
	ID             uint                   `json:"id"`
	AttemptID      uint                   `json:"attempt_id"`
	QuestionID     uint                   `json:"question_id"`
	QuizID         uint                   `json:"quiz_id"`
	StudentID      uint                   `json:"student_id"`
	ScorePercent   float64                `json:"score_percent"`
	PointsAwarded  float64                `json:"points_awarded"`
	MaxPoints      float64                `json:"max_points"`
	Feedback       string                 `json:"ai_feedback"`
	Reasoning      string                 `json:"ai_reasoning,omitempty"`
	EvaluatedBy    model.EvaluationSource `json:"evaluated_by"`
	Unavailable    bool                   `json:"unavailable"`
	Status         *model.DisputeStatus   `json:"status,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
	DisputedAt     *time.Time             `json:"disputed_at,omitempty"`
	ReviewerID     *uint                  `json:"reviewer_id,omitempty"`
	ReviewFeedback string                 `json:"review_feedback,omitempty"`
	OverrideScore  *float64               `json:"override_score,omitempty"`
	ReviewedAt     *time.Time             `json:"reviewed_at,omitempty"`
}

// PageQuery is the skip/limit pair accepted by list endpoints. A zero Limit means
// DefaultPageLimit.
type PageQuery struct {
	Skip  int `form:"skip" binding:"min=0"`
	Limit int `form:"limit" binding:"min=0,max=500"`
}

const DefaultPageLimit = 100
