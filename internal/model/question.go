package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeFreeText       QuestionType = "FREE_TEXT"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice, QuestionTypeFreeText:
		return true
	}
	return false
}

type Question struct {
	ID     uint         `gorm:"primarykey" json:"id"`
	QuizID uint         `json:"quiz_id" gorm:"not null;index"`
	Text   string       `json:"text" gorm:"type:text;not null"`
	Type   QuestionType `json:"type" gorm:"type:varchar(32);not null"`
	// Options is empty for free text.
	Options datatypes.JSONSlice[string] `json:"options,omitempty"`
	// CorrectAnswers holds fallback keywords (or accepted literals) for free text.
	CorrectAnswers     datatypes.JSONSlice[string] `json:"correct_answers,omitempty"`
	EvaluationGuidance string                      `json:"evaluation_guidance,omitempty" gorm:"type:text"`
	Points             float64                     `json:"points" gorm:"not null"`
	OrderIndex         int                         `json:"order_index" gorm:"not null"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
	DeletedAt          gorm.DeletedAt              `gorm:"index" json:"-"`
}
