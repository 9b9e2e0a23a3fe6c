package dto

import (
	"time"

	"github.com/lshigami/quizcore/internal/model"
)

// QuestionCreateDTO is one question inside QuizCreateDTO.
type QuestionCreateDTO struct {
	Text               string   `json:"text" binding:"required"`
	Type               string   `json:"type" binding:"required,oneof=SINGLE_CHOICE MULTIPLE_CHOICE FREE_TEXT"`
	Options            []string `json:"options"`
	CorrectAnswers     []string `json:"correct_answers"`
	EvaluationGuidance string   `json:"evaluation_guidance"`
	Points             float64  `json:"points" binding:"required,gt=0"`
	OrderIndex         int      `json:"order_index" binding:"min=0"`
}

// QuizCreateDTO is for an instructor to create a quiz with all its questions.
type QuizCreateDTO struct {
	Title            string              `json:"title" binding:"required"`
	Description      string              `json:"description"`
	GroupID          *uint               `json:"group_id"`
	TimeLimitMinutes *int                `json:"time_limit_minutes" binding:"omitempty,min=1"`
	Questions        []QuestionCreateDTO `json:"questions" binding:"required,min=1,dive"`
}

// QuestionResponseDTO is the instructor view of a question, answers included.
type QuestionResponseDTO struct {
	ID                 uint               `json:"id"`
	QuizID             uint               `json:"quiz_id"`
	Text               string             `json:"text"`
	Type               model.QuestionType `json:"type"`
	Options            []string           `json:"options,omitempty"`
	CorrectAnswers     []string           `json:"correct_answers,omitempty"`
	EvaluationGuidance string             `json:"evaluation_guidance,omitempty"`
	Points             float64            `json:"points"`
	OrderIndex         int                `json:"order_index"`
}

type QuizResponseDTO struct {
	ID               uint                  `json:"id"`
	Title            string                `json:"title"`
	Description      string                `json:"description,omitempty"`
	InstructorID     uint                  `json:"instructor_id"`
	GroupID          *uint                 `json:"group_id,omitempty"`
	TimeLimitMinutes int                   `json:"time_limit_minutes"`
	MaxScore         float64               `json:"max_score"`
	Questions        []QuestionResponseDTO `json:"questions,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

// StudentQuestionDTO hides correct answers and evaluation guidance.
type StudentQuestionDTO struct {
	ID         uint               `json:"id"`
	Text       string             `json:"text"`
	Type       model.QuestionType `json:"type"`
	Options    []string           `json:"options,omitempty"`
	Points     float64            `json:"points"`
	OrderIndex int                `json:"order_index"`
}

type StudentQuizDTO struct {
	ID               uint                 `json:"id"`
	Title            string               `json:"title"`
	Description      string               `json:"description,omitempty"`
	TimeLimitMinutes int                  `json:"time_limit_minutes"`
	MaxScore         float64              `json:"max_score"`
	Questions        []StudentQuestionDTO `json:"questions"`
}

// QuizSummaryDTO is used when listing an instructor's quizzes.
type QuizSummaryDTO struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	GroupID       *uint     `json:"group_id,omitempty"`
	QuestionCount int       `json:"question_count"`
	MaxScore      float64   `json:"max_score"`
	CreatedAt     time.Time `json:"created_at"`
}
