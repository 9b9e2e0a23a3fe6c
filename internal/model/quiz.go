package model

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	Title            string         `json:"title" gorm:"not null"`
	Description      string         `json:"description,omitempty" gorm:"type:text"`
	InstructorID     uint           `json:"instructor_id" gorm:"not null;index"`
	GroupID          *uint          `json:"group_id,omitempty" gorm:"index"` // nil: open to every student
	TimeLimitMinutes *int           `json:"time_limit_minutes,omitempty"`
	Questions        []Question     `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TimeBudgetSeconds returns the attempt budget, falling back to defaultMinutes
// when the quiz has no positive limit of its own.
func (q *Quiz) TimeBudgetSeconds(defaultMinutes int) int {
	minutes := defaultMinutes
	if q.TimeLimitMinutes != nil && *q.TimeLimitMinutes > 0 {
		minutes = *q.TimeLimitMinutes
	}
	return minutes * 60
}

// MaxScore sums the points of all questions.
func (q *Quiz) MaxScore() float64 {
	total := 0.0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}
