package repository

import (
	"context"
	"time"

	"github.com/lshigami/quizcore/internal/model"
	"gorm.io/gorm"
)

// Review is an instructor decision on a pending dispute. OverridePercent, when set,
// replaces the question's contribution with that percentage of its max points.
type Review struct {
	Status          model.DisputeStatus
	ReviewerID      uint
	Feedback        string
	OverridePercent *float64
	ReviewedAt      time.Time
}

// Page bounds a list query. A zero Limit returns every row after Offset.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	return db
}

type EvaluationRepository interface {
	FindByID(ctx context.Context, id uint) (*model.EvaluationRecord, error)
	FindByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*model.EvaluationRecord, error)
	MarkDisputed(ctx context.Context, id uint, reason string, at time.Time) error
	FindPendingByInstructor(ctx context.Context, instructorID uint, page Page) ([]model.EvaluationRecord, error)
	FindDisputedByStudent(ctx context.Context, studentID uint) ([]model.EvaluationRecord, error)
	ApplyReview(ctx context.Context, id uint, review Review) (*model.EvaluationRecord, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) FindByID(ctx context.Context, id uint) (*model.EvaluationRecord, error) {
	var record model.EvaluationRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (r *evaluationRepository) FindByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*model.EvaluationRecord, error) {
	var record model.EvaluationRecord
	err := r.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&record).Error
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// MarkDisputed opens a dispute on a record that was never disputed before.
func (r *evaluationRepository) MarkDisputed(ctx context.Context, id uint, reason string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.EvaluationRecord{}).
		Where("id = ? AND dispute_status IS NULL", id).
		Updates(map[string]interface{}{
			"dispute_status": model.DisputeStatusPending,
			"dispute_reason": reason,
			"disputed_at":    at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

func (r *evaluationRepository) FindPendingByInstructor(ctx context.Context, instructorID uint, page Page) ([]model.EvaluationRecord, error) {
	var records []model.EvaluationRecord
	query := r.db.WithContext(ctx).
		Joins("JOIN quizzes ON quizzes.id = evaluation_records.quiz_id AND quizzes.deleted_at IS NULL").
		Where("quizzes.instructor_id = ? AND evaluation_records.dispute_status = ?", instructorID, model.DisputeStatusPending).
		Order("evaluation_records.disputed_at ASC, evaluation_records.id ASC")
	err := page.apply(query).Find(&records).Error
	return records, err
}

func (r *evaluationRepository) FindDisputedByStudent(ctx context.Context, studentID uint) ([]model.EvaluationRecord, error) {
	var records []model.EvaluationRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND dispute_status IS NOT NULL", studentID).
		Order("disputed_at DESC, id DESC").
		Find(&records).Error
	return records, err
}

// ApplyReview settles a pending dispute. With an override it rewrites the question
// result and re-derives the attempt score from all of its results, all in one transaction.
func (r *evaluationRepository) ApplyReview(ctx context.Context, id uint, review Review) (*model.EvaluationRecord, error) {
	var record model.EvaluationRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, id).Error; err != nil {
			return translate(err)
		}

		fields := map[string]interface{}{
			"dispute_status":  review.Status,
			"reviewer_id":     review.ReviewerID,
			"review_feedback": review.Feedback,
			"reviewed_at":     review.ReviewedAt,
		}
		if review.OverridePercent != nil {
			fields["override_score"] = *review.OverridePercent
		}
		result := tx.Model(&model.EvaluationRecord{}).
			Where("id = ? AND dispute_status = ?", id, model.DisputeStatusPending).
			Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleState
		}

		if review.OverridePercent == nil {
			return nil
		}
		points := *review.OverridePercent * record.MaxPoints / 100
		result = tx.Model(&model.QuestionResult{}).
			Where("attempt_id = ? AND question_id = ?", record.AttemptID, record.QuestionID).
			Updates(map[string]interface{}{
				"points_awarded": points,
				"verdict":        verdictFor(points, record.MaxPoints),
				"overridden":     true,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		var total float64
		if err := tx.Model(&model.QuestionResult{}).
			Where("attempt_id = ?", record.AttemptID).
			Select("COALESCE(SUM(points_awarded), 0)").
			Scan(&total).Error; err != nil {
			return err
		}
		return tx.Model(&model.Attempt{}).
			Where("id = ?", record.AttemptID).
			Update("score", total).Error
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func verdictFor(points, maxPoints float64) model.Verdict {
	switch {
	case maxPoints > 0 && points >= maxPoints:
		return model.VerdictCorrect
	case points > 0:
		return model.VerdictPartial
	default:
		return model.VerdictIncorrect
	}
}
