package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/lshigami/quizcore/config"
	"github.com/lshigami/quizcore/internal/dto"
	"github.com/lshigami/quizcore/internal/model"
	"github.com/lshigami/quizcore/internal/repository"
	"github.com/rs/zerolog/log"
)

type QuizService interface {
	CreateQuiz(ctx context.Context, caller Caller, req dto.QuizCreateDTO) (*dto.QuizResponseDTO, error)
	GetQuiz(ctx context.Context, caller Caller, quizID uint) (*dto.QuizResponseDTO, error)
	ListMyQuizzes(ctx context.Context, caller Caller) ([]dto.QuizSummaryDTO, error)
	GetQuizForStudent(ctx context.Context, caller Caller, quizID uint) (*dto.StudentQuizDTO, error)
}

type quizService struct {
	quizRepo         repository.QuizRepository
	catalog          QuestionCatalog
	eligibility      EligibilityChecker
	defaultTimeLimit int
}

func NewQuizService(cfg *config.Config, quizRepo repository.QuizRepository, catalog QuestionCatalog, eligibility EligibilityChecker) QuizService {
	return &quizService{
		quizRepo:         quizRepo,
		catalog:          catalog,
		eligibility:      eligibility,
		defaultTimeLimit: cfg.Quiz.DefaultTimeLimitMinutes,
	}
}

func (s *quizService) CreateQuiz(ctx context.Context, caller Caller, req dto.QuizCreateDTO) (*dto.QuizResponseDTO, error) {
	if !caller.IsInstructor() {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidQuiz)
	}
	if len(req.Questions) == 0 {
		return nil, fmt.Errorf("%w: a quiz needs at least one question", ErrInvalidQuiz)
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i, qDto := range req.Questions {
		if err := validateQuestion(qDto); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrInvalidQuiz, i+1, err)
		}
		var question model.Question
		if err := copier.Copy(&question, &qDto); err != nil {
			return nil, fmt.Errorf("error preparing question %d: %w", i+1, err)
		}
		question.Type = model.QuestionType(qDto.Type)
		if question.OrderIndex == 0 {
			question.OrderIndex = i + 1
		}
		questions = append(questions, question)
	}

	quiz := model.Quiz{
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		InstructorID:     caller.ID,
		GroupID:          req.GroupID,
		TimeLimitMinutes: req.TimeLimitMinutes,
		Questions:        questions,
	}
	if err := s.quizRepo.Create(ctx, &quiz); err != nil {
		log.Error().Err(err).Uint("instructorID", caller.ID).Msg("CreateQuiz: failed to create quiz in database")
		return nil, fmt.Errorf("database error creating quiz: %w", err)
	}

	created, err := s.quizRepo.FindByIDWithQuestions(ctx, quiz.ID)
	if err != nil {
		log.Error().Err(err).Uint("quizID", quiz.ID).Msg("CreateQuiz: failed to reload quiz, answering from the request")
		created = &quiz
	}
	log.Info().Uint("quizID", created.ID).Int("questions", len(created.Questions)).Msg("CreateQuiz: quiz created")
	return s.quizResponse(created), nil
}

// validateQuestion checks the shape each question kind needs to be scorable.
func validateQuestion(q dto.QuestionCreateDTO) error {
	qType := model.QuestionType(q.Type)
	if !qType.Valid() {
		return fmt.Errorf("unknown type %q", q.Type)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("text is required")
	}
	if q.Points <= 0 {
		return fmt.Errorf("points must be positive")
	}

	if qType == model.QuestionTypeFreeText {
		if len(q.Options) > 0 {
			return fmt.Errorf("free text questions take no options")
		}
		return nil
	}

	if len(q.Options) < 2 {
		return fmt.Errorf("choice questions need at least two options")
	}
	options := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if _, dup := options[o]; dup {
			return fmt.Errorf("duplicate option %q", o)
		}
		options[o] = struct{}{}
	}
	if len(q.CorrectAnswers) == 0 {
		return fmt.Errorf("choice questions need correct answers")
	}
	if qType == model.QuestionTypeSingleChoice && len(q.CorrectAnswers) != 1 {
		return fmt.Errorf("single choice questions need exactly one correct answer")
	}
	for _, c := range q.CorrectAnswers {
		if _, ok := options[c]; !ok {
			return fmt.Errorf("correct answer %q is not one of the options", c)
		}
	}
	return nil
}

func (s *quizService) GetQuiz(ctx context.Context, caller Caller, quizID uint) (*dto.QuizResponseDTO, error) {
	if !caller.IsInstructor() {
		return nil, ErrForbidden
	}
	quiz, err := s.catalog.Quiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.InstructorID != caller.ID {
		return nil, ErrNotOwner
	}
	return s.quizResponse(quiz), nil
}

func (s *quizService) ListMyQuizzes(ctx context.Context, caller Caller) ([]dto.QuizSummaryDTO, error) {
	if !caller.IsInstructor() {
		return nil, ErrForbidden
	}
	quizzes, err := s.quizRepo.FindByInstructor(ctx, caller.ID)
	if err != nil {
		log.Error().Err(err).Uint("instructorID", caller.ID).Msg("ListMyQuizzes: query failed")
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]dto.QuizSummaryDTO, 0, len(quizzes))
	for i := range quizzes {
		q := &quizzes[i]
		out = append(out, dto.QuizSummaryDTO{
			ID:            q.ID,
			Title:         q.Title,
			GroupID:       q.GroupID,
			QuestionCount: len(q.Questions),
			MaxScore:      q.MaxScore(),
			CreatedAt:     q.CreatedAt,
		})
	}
	return out, nil
}

// GetQuizForStudent returns the quiz without correct answers or guidance.
func (s *quizService) GetQuizForStudent(ctx context.Context, caller Caller, quizID uint) (*dto.StudentQuizDTO, error) {
	quiz, err := s.catalog.Quiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	ok, err := s.eligibility.CanTake(ctx, caller, quiz)
	if err != nil {
		return nil, fmt.Errorf("eligibility check: %w", err)
	}
	if !ok {
		return nil, ErrNotEligible
	}

	out := &dto.StudentQuizDTO{
		ID:               quiz.ID,
		Title:            quiz.Title,
		Description:      quiz.Description,
		TimeLimitMinutes: quiz.TimeBudgetSeconds(s.defaultTimeLimit) / 60,
		MaxScore:         quiz.MaxScore(),
		Questions:        make([]dto.StudentQuestionDTO, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		out.Questions = append(out.Questions, dto.StudentQuestionDTO{
			ID:         q.ID,
			Text:       q.Text,
			Type:       q.Type,
			Options:    q.Options,
			Points:     q.Points,
			OrderIndex: q.OrderIndex,
		})
	}
	return out, nil
}

func (s *quizService) quizResponse(quiz *model.Quiz) *dto.QuizResponseDTO {
	return &dto.QuizResponseDTO{
		ID:               quiz.ID,
		Title:            quiz.Title,
		Description:      quiz.Description,
		InstructorID:     quiz.InstructorID,
		GroupID:          quiz.GroupID,
		TimeLimitMinutes: quiz.TimeBudgetSeconds(s.defaultTimeLimit) / 60,
		MaxScore:         quiz.MaxScore(),
		Questions:        questionResponseDTOs(quiz.Questions),
		CreatedAt:        quiz.CreatedAt,
	}
}
