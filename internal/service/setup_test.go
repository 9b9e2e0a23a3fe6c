package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/lshigami/quizcore/config"
	"github.com/lshigami/quizcore/internal/model"
	"github.com/lshigami/quizcore/internal/repository"
	"github.com/lshigami/quizcore/internal/scoring"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type harness struct {
	db        *gorm.DB
	clock     *fakeClock
	publisher *recordingPublisher
	attempts  AttemptService
	disputes  DisputeService
	quizzes   QuizService
}

const (
	instructorID uint = 1
	studentID    uint = 42
)

var (
	instructor = Caller{ID: instructorID, Role: RoleInstructor}
	student    = Caller{ID: studentID, Role: RoleStudent}
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Quiz.DefaultTimeLimitMinutes = 30
	cfg.Evaluator.Concurrency = 4
	return cfg
}

func newHarness(t *testing.T, freeText scoring.FreeTextEvaluator) *harness {
	t.Helper()
	return newHarnessWithAttempts(t, freeText, nil)
}

// newHarnessWithAttempts lets a test wrap the attempt repository to interleave
// concurrent writes at exact points.
func newHarnessWithAttempts(t *testing.T, freeText scoring.FreeTextEvaluator, wrap func(repository.AttemptRepository) repository.AttemptRepository) *harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(
		&model.Quiz{},
		&model.Question{},
		&model.Attempt{},
		&model.QuestionResult{},
		&model.EvaluationRecord{},
		&model.GroupMember{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := testConfig()
	clock := newFakeClock()
	publisher := &recordingPublisher{}
	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	if wrap != nil {
		attemptRepo = wrap(attemptRepo)
	}
	evalRepo := repository.NewEvaluationRepository(db)
	catalog := NewQuestionCatalog(quizRepo, nil, cfg)
	eligibility := NewEligibilityChecker(repository.NewGroupRepository(db))
	engine := scoring.NewEngine(freeText)

	return &harness{
		db:        db,
		clock:     clock,
		publisher: publisher,
		attempts:  NewAttemptService(cfg, catalog, attemptRepo, eligibility, engine, publisher, clock),
		disputes:  NewDisputeService(catalog, attemptRepo, evalRepo, publisher, clock),
		quizzes:   NewQuizService(cfg, quizRepo, catalog, eligibility),
	}
}

// seedQuiz stores the three-question quiz used across the lifecycle tests and
// returns it with question ids populated.
func (h *harness) seedQuiz(t *testing.T, groupID *uint) *model.Quiz {
	t.Helper()
	quiz := &model.Quiz{
		Title:        "Physics basics",
		InstructorID: instructorID,
		GroupID:      groupID,
		Questions: []model.Question{
			{Text: "Pick B", Type: model.QuestionTypeSingleChoice, Options: []string{"A", "B", "C"}, CorrectAnswers: []string{"B"}, Points: 10, OrderIndex: 1},
			{Text: "Pick X and Y", Type: model.QuestionTypeMultipleChoice, Options: []string{"X", "Y", "Z"}, CorrectAnswers: []string{"X", "Y"}, Points: 10, OrderIndex: 2},
			{Text: "State the second law", Type: model.QuestionTypeFreeText, CorrectAnswers: []string{"newton", "force"}, EvaluationGuidance: "newton, force", Points: 10, OrderIndex: 3},
		},
	}
	if err := h.db.Create(quiz).Error; err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return quiz
}

func sheet(quiz *model.Quiz, single []string, multi []string, free string) model.AnswerSheet {
	s := model.AnswerSheet{}
	if single != nil {
		s[quiz.Questions[0].ID] = single
	}
	if multi != nil {
		s[quiz.Questions[1].ID] = multi
	}
	if free != "" {
		s[quiz.Questions[2].ID] = []string{free}
	}
	return s
}
