package model

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
	AttemptStatusExpired    AttemptStatus = "EXPIRED"
)

// AnswerSheet maps question id to the submitted value(s). Single choice and free text
// carry one element.
type AnswerSheet map[uint][]string

// Merge overlays partial on top of the sheet and returns the result.
// A key present in partial with an empty slice clears that answer.
func (s AnswerSheet) Merge(partial AnswerSheet) AnswerSheet {
	merged := make(AnswerSheet, len(s)+len(partial))
	for id, values := range s {
		merged[id] = values
	}
	for id, values := range partial {
		if len(values) == 0 {
			delete(merged, id)
			continue
		}
		merged[id] = append([]string(nil), values...)
	}
	return merged
}

// Attempt is one student's pass at one quiz. The partial unique index keeps a single
// open attempt per (quiz, student).
type Attempt struct {
	ID                   uint                            `gorm:"primarykey" json:"id"`
	QuizID               uint                            `json:"quiz_id" gorm:"not null;index;index:idx_attempts_open,unique,where:completed_at IS NULL"`
	StudentID            uint                            `json:"student_id" gorm:"not null;index;index:idx_attempts_open,unique,where:completed_at IS NULL"`
	Status               AttemptStatus                   `json:"status" gorm:"type:varchar(16);not null;default:'IN_PROGRESS'"`
	StartedAt            time.Time                       `json:"started_at" gorm:"not null"`
	TimeBudgetSeconds    int                             `json:"time_budget_seconds" gorm:"not null"`
	TimeRemainingSeconds int                             `json:"time_remaining_seconds"`
	IsExpired            bool                            `json:"is_expired" gorm:"not null;default:false"`
	Answers              datatypes.JSONType[AnswerSheet] `json:"answers"`
	// Version increases on every answer write; answer writes compare-and-set on it.
	Version              int                             `json:"-" gorm:"not null;default:0"`
	CompletedAt          *time.Time                      `json:"completed_at,omitempty" gorm:"index"`
	Score                *float64                        `json:"score,omitempty"`
	MaxScore             float64                         `json:"max_score"`
	Results              []QuestionResult                `json:"results,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Evaluations          []EvaluationRecord              `json:"evaluations,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt            time.Time                       `json:"created_at"`
	UpdatedAt            time.Time                       `json:"updated_at"`
}

// Sheet returns the stored answers, never nil.
func (a *Attempt) Sheet() AnswerSheet {
	sheet := a.Answers.Data()
	if sheet == nil {
		return AnswerSheet{}
	}
	return sheet
}

func (a *Attempt) SetSheet(sheet AnswerSheet) {
	a.Answers = datatypes.NewJSONType(sheet)
}

func (a *Attempt) IsTerminal() bool {
	return a.CompletedAt != nil || a.Status != AttemptStatusInProgress
}
