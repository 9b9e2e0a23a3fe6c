package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lshigami/quizcore/internal/dto"
	"github.com/lshigami/quizcore/internal/event"
	"github.com/lshigami/quizcore/internal/model"
	"github.com/lshigami/quizcore/internal/repository"
	"github.com/rs/zerolog/log"
)

// DisputeService lets a student contest a free-text evaluation and the quiz owner
// settle it.
type DisputeService interface {
	FileDispute(ctx context.Context, caller Caller, attemptID, questionID uint, reason string) (*dto.ReportDTO, error)
	ListPending(ctx context.Context, caller Caller, page dto.PageQuery) ([]dto.ReportDTO, error)
	Review(ctx context.Context, caller Caller, reportID uint, req dto.ReviewDisputeDTO) (*dto.ReportDTO, error)
	GetReport(ctx context.Context, caller Caller, reportID uint) (*dto.ReportDTO, error)
	ListMyReports(ctx context.Context, caller Caller) ([]dto.ReportDTO, error)
}

type disputeService struct {
	catalog     QuestionCatalog
	attemptRepo repository.AttemptRepository
	evalRepo    repository.EvaluationRepository
	publisher   event.Publisher
	clock       Clock
}

func NewDisputeService(
	catalog QuestionCatalog,
	attemptRepo repository.AttemptRepository,
	evalRepo repository.EvaluationRepository,
	publisher event.Publisher,
	clock Clock,
) DisputeService {
	return &disputeService{
		catalog:     catalog,
		attemptRepo: attemptRepo,
		evalRepo:    evalRepo,
		publisher:   publisher,
		clock:       clock,
	}
}

func (s *disputeService) FileDispute(ctx context.Context, caller Caller, attemptID, questionID uint, reason string) (*dto.ReportDTO, error) {
	attempt, err := s.attemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	if !caller.IsStudent() || attempt.StudentID != caller.ID {
		return nil, ErrNotOwner
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}

	// Only free-text answers have an evaluation record, so choice questions end here.
	record, err := s.evalRepo.FindByAttemptAndQuestion(ctx, attemptID, questionID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	if record.DisputeStatus != nil {
		return nil, ErrAlreadyDisputed
	}

	if err := s.evalRepo.MarkDisputed(ctx, record.ID, reason, s.clock.Now()); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrAlreadyDisputed
		}
		log.Error().Err(err).Uint("reportID", record.ID).Msg("FileDispute: failed to mark record disputed")
		return nil, fmt.Errorf("file dispute: %w", err)
	}

	updated, err := s.evalRepo.FindByID(ctx, record.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	log.Info().Uint("reportID", updated.ID).Uint("attemptID", attemptID).Uint("questionID", questionID).Msg("FileDispute: dispute filed")
	s.publish(ctx, event.EvaluationDisputed, updated)

	out := reportDTO(updated)
	return &out, nil
}

func (s *disputeService) ListPending(ctx context.Context, caller Caller, page dto.PageQuery) ([]dto.ReportDTO, error) {
	if !caller.IsInstructor() {
		return nil, ErrForbidden
	}
	limit := page.Limit
	if limit <= 0 {
		limit = dto.DefaultPageLimit
	}
	records, err := s.evalRepo.FindPendingByInstructor(ctx, caller.ID, repository.Page{Offset: page.Skip, Limit: limit})
	if err != nil {
		log.Error().Err(err).Uint("instructorID", caller.ID).Msg("ListPending: query failed")
		return nil, fmt.Errorf("list pending reports: %w", err)
	}
	return reportDTOs(records), nil
}

func (s *disputeService) Review(ctx context.Context, caller Caller, reportID uint, req dto.ReviewDisputeDTO) (*dto.ReportDTO, error) {
	if !caller.IsInstructor() {
		return nil, ErrForbidden
	}
	decision := model.DisputeStatus(req.Status)
	if !decision.IsDecision() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidDecision, req.Status)
	}
	if req.OverrideScore != nil {
		if decision != model.DisputeStatusResolved {
			return nil, fmt.Errorf("%w: override_score requires RESOLVED", ErrInvalidDecision)
		}
		if *req.OverrideScore < 0 || *req.OverrideScore > 100 {
			return nil, fmt.Errorf("%w: override_score must be within 0..100", ErrInvalidDecision)
		}
	}

	record, err := s.evalRepo.FindByID(ctx, reportID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	quiz, err := s.catalog.Quiz(ctx, record.QuizID)
	if err != nil {
		return nil, err
	}
	if quiz.InstructorID != caller.ID {
		return nil, ErrNotOwner
	}
	if record.DisputeStatus == nil || *record.DisputeStatus != model.DisputeStatusPending {
		return nil, ErrReportNotPending
	}

	updated, err := s.evalRepo.ApplyReview(ctx, reportID, repository.Review{
		Status:          decision,
		ReviewerID:      caller.ID,
		Feedback:        strings.TrimSpace(req.Feedback),
		OverridePercent: req.OverrideScore,
		ReviewedAt:      s.clock.Now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrReportNotPending
		}
		log.Error().Err(err).Uint("reportID", reportID).Msg("Review: failed to apply review")
		return nil, fmt.Errorf("apply review: %w", translateRepoErr(err))
	}

	log.Info().Uint("reportID", reportID).Str("decision", string(decision)).Bool("override", req.OverrideScore != nil).Msg("Review: dispute settled")
	s.publish(ctx, event.EvaluationReviewed, updated)

	out := reportDTO(updated)
	return &out, nil
}

func (s *disputeService) GetReport(ctx context.Context, caller Caller, reportID uint) (*dto.ReportDTO, error) {
	record, err := s.evalRepo.FindByID(ctx, reportID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	switch {
	case caller.IsStudent():
		if record.StudentID != caller.ID {
			return nil, ErrNotOwner
		}
	case caller.IsInstructor():
		quiz, err := s.catalog.Quiz(ctx, record.QuizID)
		if err != nil {
			return nil, err
		}
		if quiz.InstructorID != caller.ID {
			return nil, ErrNotOwner
		}
	default:
		return nil, ErrNotOwner
	}
	out := reportDTO(record)
	return &out, nil
}

func (s *disputeService) ListMyReports(ctx context.Context, caller Caller) ([]dto.ReportDTO, error) {
	if !caller.IsStudent() {
		return nil, ErrForbidden
	}
	records, err := s.evalRepo.FindDisputedByStudent(ctx, caller.ID)
	if err != nil {
		log.Error().Err(err).Uint("studentID", caller.ID).Msg("ListMyReports: query failed")
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reportDTOs(records), nil
}

func (s *disputeService) publish(ctx context.Context, eventType string, record *model.EvaluationRecord) {
	status := ""
	if record.DisputeStatus != nil {
		status = string(*record.DisputeStatus)
	}
	err := s.publisher.Publish(ctx, eventType, event.DisputePayload{
		ReportID:   record.ID,
		AttemptID:  record.AttemptID,
		QuestionID: record.QuestionID,
		QuizID:     record.QuizID,
		StudentID:  record.StudentID,
		Status:     status,
		Override:   record.OverrideScore,
	})
	if err != nil {
		log.Warn().Err(err).Uint("reportID", record.ID).Str("event", eventType).Msg("Failed to publish dispute event")
	}
}

func reportDTOs(records []model.EvaluationRecord) []dto.ReportDTO {
	out := make([]dto.ReportDTO, 0, len(records))
	for i := range records {
		out = append(out, reportDTO(&records[i]))
	}
	return out
}
