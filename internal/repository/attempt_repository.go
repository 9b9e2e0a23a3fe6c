package repository

import (
	"context"
	"time"

	"github.com/lshigami/quizcore/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Completion is the terminal state written by a submit or timeout pass. Version is
// the attempt version the answers were read at.
type Completion struct {
	Version              int
	Status               model.AttemptStatus
	CompletedAt          time.Time
	IsExpired            bool
	TimeRemainingSeconds int
	Answers              model.AnswerSheet
	Score                float64
	MaxScore             float64
	Results              []model.QuestionResult
	Evaluations          []model.EvaluationRecord
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *model.Attempt) error
	FindByID(ctx context.Context, id uint) (*model.Attempt, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*model.Attempt, error)
	FindOpen(ctx context.Context, quizID, studentID uint) (*model.Attempt, error)
	FindAllByQuizAndStudent(ctx context.Context, quizID, studentID uint) ([]model.Attempt, error)
	UpdateTimer(ctx context.Context, id uint, remainingSeconds int) error
	UpdateAnswers(ctx context.Context, id uint, version int, answers model.AnswerSheet, remainingSeconds int) error
	Complete(ctx context.Context, id uint, c Completion) error
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *attemptRepository) FindByID(ctx context.Context, id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, translate(err)
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIDWithDetails(ctx context.Context, id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC, question_id ASC")
		}).
		Preload("Evaluations", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_id ASC")
		}).
		First(&attempt, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &attempt, nil
}

func (r *attemptRepository) FindOpen(ctx context.Context, quizID, studentID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ? AND completed_at IS NULL", quizID, studentID).
		Order("started_at DESC").
		First(&attempt).Error
	if err != nil {
		return nil, translate(err)
	}
	return &attempt, nil
}

func (r *attemptRepository) FindAllByQuizAndStudent(ctx context.Context, quizID, studentID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) UpdateTimer(ctx context.Context, id uint, remainingSeconds int) error {
	return r.updateOpen(ctx, r.db.WithContext(ctx).Where("id = ? AND completed_at IS NULL", id), map[string]interface{}{
		"time_remaining_seconds": remainingSeconds,
	})
}

// UpdateAnswers replaces the sheet only if the attempt is still open and still at
// version. Either mismatch returns ErrStaleState.
func (r *attemptRepository) UpdateAnswers(ctx context.Context, id uint, version int, answers model.AnswerSheet, remainingSeconds int) error {
	scope := r.db.WithContext(ctx).Where("id = ? AND completed_at IS NULL AND version = ?", id, version)
	return r.updateOpen(ctx, scope, map[string]interface{}{
		"answers":                datatypes.NewJSONType(answers),
		"time_remaining_seconds": remainingSeconds,
		"version":                gorm.Expr("version + 1"),
	})
}

func (r *attemptRepository) updateOpen(_ context.Context, scope *gorm.DB, fields map[string]interface{}) error {
	result := scope.Model(&model.Attempt{}).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// Complete closes the attempt and stores its per-question results in one transaction.
// It returns ErrStaleState when another pass already completed the attempt or the
// answers changed since c.Version was read.
func (r *attemptRepository) Complete(ctx context.Context, id uint, c Completion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Attempt{}).
			Where("id = ? AND completed_at IS NULL AND version = ?", id, c.Version).
			Updates(map[string]interface{}{
				"status":                 c.Status,
				"completed_at":           c.CompletedAt,
				"is_expired":             c.IsExpired,
				"time_remaining_seconds": c.TimeRemainingSeconds,
				"answers":                datatypes.NewJSONType(c.Answers),
				"score":                  c.Score,
				"max_score":              c.MaxScore,
				"version":                gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleState
		}

		for i := range c.Results {
			c.Results[i].AttemptID = id
		}
		if len(c.Results) > 0 {
			if err := tx.Create(&c.Results).Error; err != nil {
				return err
			}
		}
		for i := range c.Evaluations {
			c.Evaluations[i].AttemptID = id
		}
		if len(c.Evaluations) > 0 {
			if err := tx.Create(&c.Evaluations).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
