package model

import "time"

type Verdict string

const (
	VerdictCorrect    Verdict = "CORRECT"
	VerdictIncorrect  Verdict = "INCORRECT"
	VerdictPartial    Verdict = "PARTIAL"
	VerdictUnanswered Verdict = "UNANSWERED"
)

// QuestionResult is the stored per-question contribution to an attempt's score.
// The attempt score is always the sum of PointsAwarded over its results.
type QuestionResult struct {
	ID            uint         `gorm:"primarykey" json:"id"`
	AttemptID     uint         `json:"attempt_id" gorm:"not null;uniqueIndex:idx_results_attempt_question"`
	QuestionID    uint         `json:"question_id" gorm:"not null;uniqueIndex:idx_results_attempt_question"`
	QuestionType  QuestionType `json:"question_type" gorm:"type:varchar(32);not null"`
	OrderIndex    int          `json:"order_index"`
	PointsAwarded float64      `json:"points_awarded"`
	MaxPoints     float64      `json:"max_points"`
	Verdict       Verdict      `json:"verdict" gorm:"type:varchar(16);not null"`
	Overridden    bool         `json:"overridden" gorm:"not null;default:false"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
