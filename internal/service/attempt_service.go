package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lshigami/quizcore/config"
	"github.com/lshigami/quizcore/internal/dto"
	"github.com/lshigami/quizcore/internal/event"
	"github.com/lshigami/quizcore/internal/model"
	"github.com/lshigami/quizcore/internal/monitoring"
	"github.com/lshigami/quizcore/internal/repository"
	"github.com/lshigami/quizcore/internal/scoring"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// AttemptService drives an attempt from start to a terminal SUBMITTED or EXPIRED state.
type AttemptService interface {
	Start(ctx context.Context, caller Caller, quizID uint) (*dto.AttemptSessionDTO, error)
	Resync(ctx context.Context, caller Caller, attemptID uint) (*dto.AttemptSessionDTO, error)
	SaveAnswers(ctx context.Context, caller Caller, attemptID uint, answers model.AnswerSheet) (*dto.AttemptSessionDTO, error)
	Submit(ctx context.Context, caller Caller, attemptID uint, final model.AnswerSheet) (*dto.AttemptResultDTO, error)
	AutoSubmit(ctx context.Context, caller Caller, attemptID uint, final model.AnswerSheet) (*dto.AttemptResultDTO, error)
	GetAttempt(ctx context.Context, caller Caller, attemptID uint) (*dto.AttemptResultDTO, error)
	ListMyAttempts(ctx context.Context, caller Caller, quizID uint) ([]dto.AttemptSummaryDTO, error)
}

type attemptService struct {
	catalog          QuestionCatalog
	attemptRepo      repository.AttemptRepository
	eligibility      EligibilityChecker
	engine           *scoring.Engine
	publisher        event.Publisher
	clock            Clock
	defaultTimeLimit int
	concurrency      int
}

func NewAttemptService(
	cfg *config.Config,
	catalog QuestionCatalog,
	attemptRepo repository.AttemptRepository,
	eligibility EligibilityChecker,
	engine *scoring.Engine,
	publisher event.Publisher,
	clock Clock,
) AttemptService {
	concurrency := cfg.Evaluator.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &attemptService{
		catalog:          catalog,
		attemptRepo:      attemptRepo,
		eligibility:      eligibility,
		engine:           engine,
		publisher:        publisher,
		clock:            clock,
		defaultTimeLimit: cfg.Quiz.DefaultTimeLimitMinutes,
		concurrency:      concurrency,
	}
}

// remainingSeconds derives the timer from the server clock only. The result may be
// negative once the budget is spent.
func remainingSeconds(a *model.Attempt, now time.Time) int {
	return a.TimeBudgetSeconds - int(now.Sub(a.StartedAt)/time.Second)
}

// maxWriteAttempts bounds the reload-and-retry loops around answer writes.
const maxWriteAttempts = 5

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func (s *attemptService) Start(ctx context.Context, caller Caller, quizID uint) (*dto.AttemptSessionDTO, error) {
	quiz, err := s.catalog.Quiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	ok, err := s.eligibility.CanTake(ctx, caller, quiz)
	if err != nil {
		log.Error().Err(err).Uint("quizID", quizID).Uint("studentID", caller.ID).Msg("Start: eligibility check failed")
		return nil, fmt.Errorf("eligibility check: %w", err)
	}
	if !ok {
		return nil, ErrNotEligible
	}

	open, err := s.attemptRepo.FindOpen(ctx, quizID, caller.ID)
	if err == nil {
		return s.resume(ctx, quiz, open, true)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up open attempt: %w", err)
	}

	now := s.clock.Now()
	budget := quiz.TimeBudgetSeconds(s.defaultTimeLimit)
	attempt := &model.Attempt{
		QuizID:               quizID,
		StudentID:            caller.ID,
		Status:               model.AttemptStatusInProgress,
		StartedAt:            now,
		TimeBudgetSeconds:    budget,
		TimeRemainingSeconds: budget,
		MaxScore:             quiz.MaxScore(),
	}
	attempt.SetSheet(model.AnswerSheet{})

	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		// A concurrent start for the same pair wins on idx_attempts_open.
		open, findErr := s.attemptRepo.FindOpen(ctx, quizID, caller.ID)
		if findErr != nil {
			log.Error().Err(err).Uint("quizID", quizID).Uint("studentID", caller.ID).Msg("Start: failed to create attempt")
			return nil, fmt.Errorf("create attempt: %w", err)
		}
		return s.resume(ctx, quiz, open, true)
	}

	log.Info().Uint("attemptID", attempt.ID).Uint("quizID", quizID).Uint("studentID", caller.ID).Int("budgetSeconds", budget).Msg("Start: attempt created")
	return sessionDTO(attempt, false), nil
}

// resume refreshes the timer of an open attempt, completing it as expired when the
// budget is spent.
func (s *attemptService) resume(ctx context.Context, quiz *model.Quiz, attempt *model.Attempt, resumed bool) (*dto.AttemptSessionDTO, error) {
	remaining := remainingSeconds(attempt, s.clock.Now())
	if remaining <= 0 {
		log.Info().Uint("attemptID", attempt.ID).Msg("Resume: time budget spent, auto-submitting")
		result, err := s.complete(ctx, quiz, attempt, nil, true)
		if errors.Is(err, ErrAlreadyCompleted) {
			return s.terminalSession(ctx, attempt.ID, resumed)
		}
		if err != nil {
			return nil, err
		}
		return resultSession(result, resumed), nil
	}

	if err := s.attemptRepo.UpdateTimer(ctx, attempt.ID, remaining); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return s.terminalSession(ctx, attempt.ID, resumed)
		}
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Resume: failed to persist timer")
		return nil, fmt.Errorf("update timer: %w", err)
	}
	attempt.TimeRemainingSeconds = remaining
	return sessionDTO(attempt, resumed), nil
}

// terminalSession reports an attempt that another pass completed in the meantime.
func (s *attemptService) terminalSession(ctx context.Context, attemptID uint, resumed bool) (*dto.AttemptSessionDTO, error) {
	attempt, err := s.attemptRepo.FindByIDWithDetails(ctx, attemptID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return resultSession(attemptResultDTO(attempt), resumed), nil
}

func (s *attemptService) Resync(ctx context.Context, caller Caller, attemptID uint) (*dto.AttemptSessionDTO, error) {
	attempt, err := s.loadOwned(ctx, caller, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.IsTerminal() {
		return sessionDTO(attempt, false), nil
	}
	quiz, err := s.catalog.Quiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	return s.resume(ctx, quiz, attempt, false)
}

func (s *attemptService) SaveAnswers(ctx context.Context, caller Caller, attemptID uint, answers model.AnswerSheet) (*dto.AttemptSessionDTO, error) {
	attempt, err := s.loadOwned(ctx, caller, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.IsTerminal() {
		return nil, ErrNotInProgress
	}
	quiz, err := s.catalog.Quiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	if err := validateSheet(quiz, answers); err != nil {
		return nil, err
	}

	for try := 1; ; try++ {
		merged := attempt.Sheet().Merge(answers)
		remaining := nonNegative(remainingSeconds(attempt, s.clock.Now()))
		err := s.attemptRepo.UpdateAnswers(ctx, attempt.ID, attempt.Version, merged, remaining)
		if err == nil {
			attempt.SetSheet(merged)
			attempt.Version++
			attempt.TimeRemainingSeconds = remaining
			return sessionDTO(attempt, false), nil
		}
		if !errors.Is(err, repository.ErrStaleState) {
			log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("SaveAnswers: failed to persist answers")
			return nil, fmt.Errorf("save answers: %w", err)
		}
		if try == maxWriteAttempts {
			log.Warn().Uint("attemptID", attempt.ID).Int("tries", try).Msg("SaveAnswers: gave up after concurrent writes")
			return nil, ErrConcurrentUpdate
		}
		// Another write landed between our read and our update: merge onto it.
		if attempt, err = s.attemptRepo.FindByID(ctx, attemptID); err != nil {
			return nil, translateRepoErr(err)
		}
		if attempt.IsTerminal() {
			return nil, ErrNotInProgress
		}
	}
}

func (s *attemptService) Submit(ctx context.Context, caller Caller, attemptID uint, final model.AnswerSheet) (*dto.AttemptResultDTO, error) {
	return s.finish(ctx, caller, attemptID, final, false)
}

// AutoSubmit is the timeout path: it always marks the attempt expired.
func (s *attemptService) AutoSubmit(ctx context.Context, caller Caller, attemptID uint, final model.AnswerSheet) (*dto.AttemptResultDTO, error) {
	return s.finish(ctx, caller, attemptID, final, true)
}

func (s *attemptService) finish(ctx context.Context, caller Caller, attemptID uint, final model.AnswerSheet, timedOut bool) (*dto.AttemptResultDTO, error) {
	attempt, err := s.loadOwned(ctx, caller, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.CompletedAt != nil {
		return nil, ErrAlreadyCompleted
	}
	quiz, err := s.catalog.Quiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	if err := validateSheet(quiz, final); err != nil {
		return nil, err
	}
	expired := timedOut || remainingSeconds(attempt, s.clock.Now()) <= 0
	return s.complete(ctx, quiz, attempt, final, expired)
}

type scoredQuestion struct {
	question model.Question
	outcome  scoring.Outcome
}

// complete scores every question and closes the attempt. Scoring happens before the
// compare-and-set, so a lost race discards the work. If another pass completed the
// attempt the result is ErrAlreadyCompleted; if answers were saved meanwhile the sheet
// is reloaded and scored again.
func (s *attemptService) complete(ctx context.Context, quiz *model.Quiz, attempt *model.Attempt, final model.AnswerSheet, expired bool) (*dto.AttemptResultDTO, error) {
	for try := 1; ; try++ {
		result, err := s.completeOnce(ctx, quiz, attempt, final, expired)
		if !errors.Is(err, repository.ErrStaleState) {
			return result, err
		}
		fresh, findErr := s.attemptRepo.FindByID(ctx, attempt.ID)
		if findErr != nil {
			return nil, translateRepoErr(findErr)
		}
		if fresh.CompletedAt != nil {
			return nil, ErrAlreadyCompleted
		}
		if try == maxWriteAttempts {
			log.Warn().Uint("attemptID", attempt.ID).Int("tries", try).Msg("Complete: gave up after concurrent answer writes")
			return nil, ErrConcurrentUpdate
		}
		log.Info().Uint("attemptID", attempt.ID).Msg("Complete: answers changed during scoring, rescoring")
		attempt = fresh
	}
}

func (s *attemptService) completeOnce(ctx context.Context, quiz *model.Quiz, attempt *model.Attempt, final model.AnswerSheet, expired bool) (*dto.AttemptResultDTO, error) {
	sheet := attempt.Sheet().Merge(final)
	scored := s.scoreAll(ctx, quiz, sheet)

	var (
		total       float64
		results     = make([]model.QuestionResult, 0, len(scored))
		evaluations []model.EvaluationRecord
	)
	for _, sq := range scored {
		total += sq.outcome.Points
		results = append(results, model.QuestionResult{
			QuestionID:    sq.question.ID,
			QuestionType:  sq.question.Type,
			OrderIndex:    sq.question.OrderIndex,
			PointsAwarded: sq.outcome.Points,
			MaxPoints:     sq.outcome.MaxPoints,
			Verdict:       sq.outcome.Verdict,
		})
		if sq.outcome.Evaluation != nil {
			evaluations = append(evaluations, evaluationRecord(quiz.ID, attempt.StudentID, sq))
		}
	}

	status := model.AttemptStatusSubmitted
	if expired {
		status = model.AttemptStatusExpired
	}
	now := s.clock.Now()
	err := s.attemptRepo.Complete(ctx, attempt.ID, repository.Completion{
		Version:              attempt.Version,
		Status:               status,
		CompletedAt:          now,
		IsExpired:            expired,
		TimeRemainingSeconds: nonNegative(remainingSeconds(attempt, now)),
		Answers:              sheet,
		Score:                total,
		MaxScore:             quiz.MaxScore(),
		Results:              results,
		Evaluations:          evaluations,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, err
		}
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Complete: transaction failed, attempt left open")
		return nil, fmt.Errorf("complete attempt: %w", err)
	}

	outcome, eventType := "submitted", event.AttemptSubmitted
	if expired {
		outcome, eventType = "expired", event.AttemptExpired
	}
	monitoring.Submissions.WithLabelValues(outcome).Inc()
	log.Info().Uint("attemptID", attempt.ID).Float64("score", total).Float64("maxScore", quiz.MaxScore()).Bool("expired", expired).Msg("Complete: attempt scored")

	if err := s.publisher.Publish(ctx, eventType, event.AttemptCompletedPayload{
		AttemptID: attempt.ID,
		QuizID:    quiz.ID,
		StudentID: attempt.StudentID,
		Score:     total,
		MaxScore:  quiz.MaxScore(),
		IsExpired: expired,
	}); err != nil {
		log.Warn().Err(err).Uint("attemptID", attempt.ID).Msg("Complete: failed to publish event")
	}

	stored, err := s.attemptRepo.FindByIDWithDetails(ctx, attempt.ID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return attemptResultDTO(stored), nil
}

// scoreAll scores questions in quiz order. Free-text evaluations run concurrently up
// to the configured limit; the evaluator never fails, so neither does this.
func (s *attemptService) scoreAll(ctx context.Context, quiz *model.Quiz, sheet model.AnswerSheet) []scoredQuestion {
	scored := make([]scoredQuestion, len(quiz.Questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range quiz.Questions {
		question := quiz.Questions[i]
		scored[i].question = question
		q, err := scoring.FromModel(&question)
		if err != nil {
			log.Error().Err(err).Uint("questionID", question.ID).Msg("ScoreAll: malformed question scored as zero")
			scored[i].outcome = scoring.Outcome{MaxPoints: question.Points, Verdict: model.VerdictIncorrect}
			continue
		}
		g.Go(func() error {
			scored[i].outcome = s.engine.Score(gctx, q, sheet[question.ID])
			return nil
		})
	}
	_ = g.Wait()
	return scored
}

func evaluationRecord(quizID, studentID uint, sq scoredQuestion) model.EvaluationRecord {
	ev := sq.outcome.Evaluation
	record := model.EvaluationRecord{
		QuestionID:      sq.question.ID,
		QuizID:          quizID,
		StudentID:       studentID,
		ScorePercent:    ev.Percent,
		PointsAwarded:   sq.outcome.Points,
		MaxPoints:       sq.outcome.MaxPoints,
		Feedback:        ev.Feedback,
		Reasoning:       ev.Reasoning,
		Strengths:       ev.Strengths,
		Improvements:    ev.Improvements,
		Suggestions:     ev.Suggestions,
		EvaluatedBy:     ev.Source,
		ModelVersion:    ev.ModelVersion,
		Unavailable:     ev.Unavailable,
		KeywordsTotal:   ev.KeywordsTotal,
		KeywordsMatched: ev.KeywordsMatched,
	}
	if bd := ev.Breakdown; bd != nil {
		record.Correctness = bd.Correctness
		record.Completeness = bd.Completeness
		record.Clarity = bd.Clarity
	}
	return record
}

func (s *attemptService) GetAttempt(ctx context.Context, caller Caller, attemptID uint) (*dto.AttemptResultDTO, error) {
	attempt, err := s.attemptRepo.FindByIDWithDetails(ctx, attemptID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	switch {
	case caller.IsStudent() && attempt.StudentID == caller.ID:
	case caller.IsInstructor():
		quiz, err := s.catalog.Quiz(ctx, attempt.QuizID)
		if err != nil {
			return nil, err
		}
		if quiz.InstructorID != caller.ID {
			return nil, ErrNotOwner
		}
	default:
		return nil, ErrNotOwner
	}

	result := attemptResultDTO(attempt)
	if !attempt.IsTerminal() {
		result.TimeRemainingSeconds = nonNegative(remainingSeconds(attempt, s.clock.Now()))
	}
	return result, nil
}

func (s *attemptService) ListMyAttempts(ctx context.Context, caller Caller, quizID uint) ([]dto.AttemptSummaryDTO, error) {
	if !caller.IsStudent() {
		return nil, ErrForbidden
	}
	attempts, err := s.attemptRepo.FindAllByQuizAndStudent(ctx, quizID, caller.ID)
	if err != nil {
		log.Error().Err(err).Uint("quizID", quizID).Uint("studentID", caller.ID).Msg("ListMyAttempts: query failed")
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	summaries := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for _, a := range attempts {
		summaries = append(summaries, dto.AttemptSummaryDTO{
			AttemptID:   a.ID,
			QuizID:      a.QuizID,
			Status:      a.Status,
			IsExpired:   a.IsExpired,
			StartedAt:   a.StartedAt,
			CompletedAt: a.CompletedAt,
			Score:       a.Score,
			MaxScore:    a.MaxScore,
		})
	}
	return summaries, nil
}

func (s *attemptService) loadOwned(ctx context.Context, caller Caller, attemptID uint) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	if attempt.StudentID != caller.ID || !caller.IsStudent() {
		return nil, ErrNotOwner
	}
	return attempt, nil
}

func validateSheet(quiz *model.Quiz, sheet model.AnswerSheet) error {
	if len(sheet) == 0 {
		return nil
	}
	known := make(map[uint]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		known[q.ID] = struct{}{}
	}
	for id := range sheet {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("question %d: %w", id, ErrInvalidAnswer)
		}
	}
	return nil
}

func translateRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
