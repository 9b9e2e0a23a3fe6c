package model

import (
	"time"

	"gorm.io/datatypes"
)

type EvaluationSource string

const (
	EvaluatedByExternalService EvaluationSource = "external_service"
	EvaluatedByFallbackKeyword EvaluationSource = "fallback_keyword"
)

type DisputeStatus string

const (
	DisputeStatusPending  DisputeStatus = "PENDING"
	DisputeStatusResolved DisputeStatus = "RESOLVED"
	DisputeStatusRejected DisputeStatus = "REJECTED"
)

func (s DisputeStatus) IsDecision() bool {
	return s == DisputeStatusResolved || s == DisputeStatusRejected
}

// EvaluationRecord is the outcome of scoring one free-text answer, and doubles as the
// dispute report for it. A nil DisputeStatus means the record was never disputed.
type EvaluationRecord struct {
	ID         uint `gorm:"primarykey" json:"id"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_evaluations_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_evaluations_attempt_question"`
	QuizID     uint `json:"quiz_id" gorm:"not null;index"`
	StudentID  uint `json:"student_id" gorm:"not null;index"`

	ScorePercent    float64                     `json:"score_percent"`
	PointsAwarded   float64                     `json:"points_awarded"`
	MaxPoints       float64                     `json:"max_points"`
	Feedback        string                      `json:"feedback" gorm:"type:text"`
	Reasoning       string                      `json:"reasoning,omitempty" gorm:"type:text"`
	Correctness     *float64                    `json:"correctness,omitempty"`
	Completeness    *float64                    `json:"completeness,omitempty"`
	Clarity         *float64                    `json:"clarity,omitempty"`
	Strengths       datatypes.JSONSlice[string] `json:"strengths,omitempty"`
	Improvements    datatypes.JSONSlice[string] `json:"improvements,omitempty"`
	Suggestions     datatypes.JSONSlice[string] `json:"suggestions,omitempty"`
	EvaluatedBy     EvaluationSource            `json:"evaluated_by" gorm:"type:varchar(32);not null"`
	ModelVersion    string                      `json:"model_version,omitempty"`
	Unavailable     bool                        `json:"unavailable" gorm:"not null;default:false"`
	KeywordsTotal   int                         `json:"keywords_total"`
	KeywordsMatched int                         `json:"keywords_matched"`

	DisputeStatus  *DisputeStatus `json:"dispute_status,omitempty" gorm:"type:varchar(16);index"`
	DisputeReason  string         `json:"dispute_reason,omitempty" gorm:"type:text"`
	DisputedAt     *time.Time     `json:"disputed_at,omitempty"`
	ReviewerID     *uint          `json:"reviewer_id,omitempty"`
	ReviewFeedback string         `json:"review_feedback,omitempty" gorm:"type:text"`
	OverrideScore  *float64       `json:"override_score,omitempty"` // percent of MaxPoints
	ReviewedAt     *time.Time     `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
