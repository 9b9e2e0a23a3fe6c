package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/lshigami/quizcore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seedQuiz(t *testing.T, db *gorm.DB, instructorID uint) *model.Quiz {
	t.Helper()
	quiz := &model.Quiz{
		Title:        "Mechanics",
		InstructorID: instructorID,
		Questions: []model.Question{
			{Text: "Pick 4", Type: model.QuestionTypeSingleChoice, Options: []string{"3", "4"}, CorrectAnswers: []string{"4"}, Points: 10, OrderIndex: 1},
			{Text: "Second law?", Type: model.QuestionTypeFreeText, CorrectAnswers: []string{"newton", "force"}, Points: 10, OrderIndex: 2},
		},
	}
	if err := NewQuizRepository(db).Create(context.Background(), quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func openAttempt(t *testing.T, db *gorm.DB, quizID, studentID uint) *model.Attempt {
	t.Helper()
	a := &model.Attempt{
		QuizID:               quizID,
		StudentID:            studentID,
		Status:               model.AttemptStatusInProgress,
		StartedAt:            time.Now(),
		TimeBudgetSeconds:    600,
		TimeRemainingSeconds: 600,
		MaxScore:             20,
	}
	a.SetSheet(model.AnswerSheet{})
	if err := NewAttemptRepository(db).Create(context.Background(), a); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	return a
}

func completeAttempt(t *testing.T, db *gorm.DB, quiz *model.Quiz, attempt *model.Attempt) {
	t.Helper()
	free := quiz.Questions[1]
	err := NewAttemptRepository(db).Complete(context.Background(), attempt.ID, Completion{
		Status:      model.AttemptStatusSubmitted,
		CompletedAt: time.Now(),
		Answers:     model.AnswerSheet{quiz.Questions[0].ID: {"4"}, free.ID: {"Newton"}},
		Score:       16,
		MaxScore:    20,
		Results: []model.QuestionResult{
			{QuestionID: quiz.Questions[0].ID, QuestionType: model.QuestionTypeSingleChoice, OrderIndex: 1, PointsAwarded: 10, MaxPoints: 10, Verdict: model.VerdictCorrect},
			{QuestionID: free.ID, QuestionType: model.QuestionTypeFreeText, OrderIndex: 2, PointsAwarded: 6, MaxPoints: 10, Verdict: model.VerdictPartial},
		},
		Evaluations: []model.EvaluationRecord{
			{QuestionID: free.ID, QuizID: quiz.ID, StudentID: attempt.StudentID, ScorePercent: 60, PointsAwarded: 6, MaxPoints: 10, Feedback: "Good answer, but some key points are missing.", EvaluatedBy: model.EvaluatedByFallbackKeyword},
		},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
}

func TestAttemptRepository_OneOpenAttemptPerQuizAndStudent(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db, 1)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	first := openAttempt(t, db, quiz.ID, 42)

	dup := &model.Attempt{QuizID: quiz.ID, StudentID: 42, Status: model.AttemptStatusInProgress, StartedAt: time.Now(), TimeBudgetSeconds: 600}
	if err := repo.Create(ctx, dup); err == nil {
		t.Fatal("expected unique violation for a second open attempt")
	}

	open, err := repo.FindOpen(ctx, quiz.ID, 42)
	if err != nil || open.ID != first.ID {
		t.Fatalf("FindOpen = (%v, %v), want attempt %d", open, err, first.ID)
	}

	completeAttempt(t, db, quiz, first)
	if _, err := repo.FindOpen(ctx, quiz.ID, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindOpen after completion err = %v, want ErrNotFound", err)
	}
	second := openAttempt(t, db, quiz.ID, 42)
	all, err := repo.FindAllByQuizAndStudent(ctx, quiz.ID, 42)
	if err != nil || len(all) != 2 {
		t.Fatalf("FindAllByQuizAndStudent = (%d, %v), want 2 attempts", len(all), err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a fresh attempt")
	}
}

func TestAttemptRepository_CompleteIsCompareAndSet(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db, 1)
	repo := NewAttemptRepository(db)
	ctx := context.Background()
	attempt := openAttempt(t, db, quiz.ID, 42)

	completeAttempt(t, db, quiz, attempt)

	err := repo.Complete(ctx, attempt.ID, Completion{Status: model.AttemptStatusSubmitted, CompletedAt: time.Now(), Score: 0})
	if !errors.Is(err, ErrStaleState) {
		t.Fatalf("second Complete err = %v, want ErrStaleState", err)
	}
	if err := repo.UpdateTimer(ctx, attempt.ID, 10); !errors.Is(err, ErrStaleState) {
		t.Errorf("UpdateTimer on completed attempt err = %v, want ErrStaleState", err)
	}
	if err := repo.UpdateAnswers(ctx, attempt.ID, attempt.Version, model.AnswerSheet{1: {"3"}}, 10); !errors.Is(err, ErrStaleState) {
		t.Errorf("UpdateAnswers on completed attempt err = %v, want ErrStaleState", err)
	}

	got, err := repo.FindByIDWithDetails(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("FindByIDWithDetails: %v", err)
	}
	if got.Score == nil || *got.Score != 16 {
		t.Errorf("score = %v, want 16", got.Score)
	}
	if len(got.Results) != 2 || len(got.Evaluations) != 1 {
		t.Errorf("results = %d evaluations = %d, want 2 and 1", len(got.Results), len(got.Evaluations))
	}
	if got.Results[0].OrderIndex != 1 {
		t.Errorf("results not ordered by order_index")
	}
	if got.Sheet()[quiz.Questions[1].ID][0] != "Newton" {
		t.Errorf("answers not persisted: %v", got.Sheet())
	}
}

func TestAttemptRepository_UpdateAnswers(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db, 1)
	repo := NewAttemptRepository(db)
	ctx := context.Background()
	attempt := openAttempt(t, db, quiz.ID, 7)

	sheet := model.AnswerSheet{quiz.Questions[0].ID: {"3"}}
	if err := repo.UpdateAnswers(ctx, attempt.ID, 0, sheet, 420); err != nil {
		t.Fatalf("UpdateAnswers: %v", err)
	}
	got, err := repo.FindByID(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.TimeRemainingSeconds != 420 || got.Sheet()[quiz.Questions[0].ID][0] != "3" || got.Version != 1 {
		t.Errorf("got remaining=%d sheet=%v version=%d", got.TimeRemainingSeconds, got.Sheet(), got.Version)
	}

	// A writer still holding version 0 must not overwrite the newer sheet.
	if err := repo.UpdateAnswers(ctx, attempt.ID, 0, model.AnswerSheet{}, 400); !errors.Is(err, ErrStaleState) {
		t.Errorf("UpdateAnswers at old version err = %v, want ErrStaleState", err)
	}
	err = repo.Complete(ctx, attempt.ID, Completion{Version: 0, Status: model.AttemptStatusSubmitted, CompletedAt: time.Now()})
	if !errors.Is(err, ErrStaleState) {
		t.Errorf("Complete at old version err = %v, want ErrStaleState", err)
	}
	if got, _ := repo.FindByID(ctx, attempt.ID); got.CompletedAt != nil || len(got.Sheet()) != 1 {
		t.Errorf("stale writes changed the attempt: completed=%v sheet=%v", got.CompletedAt, got.Sheet())
	}
	if _, err := repo.FindByID(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing attempt err = %v, want ErrNotFound", err)
	}
}

func TestEvaluationRepository_DisputeAndReviewWithOverride(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db, 1)
	attempt := openAttempt(t, db, quiz.ID, 42)
	completeAttempt(t, db, quiz, attempt)

	repo := NewEvaluationRepository(db)
	ctx := context.Background()
	record, err := repo.FindByAttemptAndQuestion(ctx, attempt.ID, quiz.Questions[1].ID)
	if err != nil {
		t.Fatalf("FindByAttemptAndQuestion: %v", err)
	}

	if err := repo.MarkDisputed(ctx, record.ID, "too harsh", time.Now()); err != nil {
		t.Fatalf("MarkDisputed: %v", err)
	}
	if err := repo.MarkDisputed(ctx, record.ID, "again", time.Now()); !errors.Is(err, ErrStaleState) {
		t.Fatalf("second MarkDisputed err = %v, want ErrStaleState", err)
	}

	pending, err := repo.FindPendingByInstructor(ctx, 1, Page{})
	if err != nil || len(pending) != 1 {
		t.Fatalf("FindPendingByInstructor = (%d, %v), want 1", len(pending), err)
	}
	if other, _ := repo.FindPendingByInstructor(ctx, 2, Page{}); len(other) != 0 {
		t.Errorf("other instructor sees %d pending reports", len(other))
	}

	override := 80.0
	reviewed, err := repo.ApplyReview(ctx, record.ID, Review{
		Status:          model.DisputeStatusResolved,
		ReviewerID:      1,
		Feedback:        "fair point",
		OverridePercent: &override,
		ReviewedAt:      time.Now(),
	})
	if err != nil {
		t.Fatalf("ApplyReview: %v", err)
	}
	if reviewed.DisputeStatus == nil || *reviewed.DisputeStatus != model.DisputeStatusResolved {
		t.Errorf("status = %v, want RESOLVED", reviewed.DisputeStatus)
	}
	if reviewed.OverrideScore == nil || *reviewed.OverrideScore != 80 {
		t.Errorf("override = %v, want 80", reviewed.OverrideScore)
	}

	got, err := NewAttemptRepository(db).FindByIDWithDetails(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("FindByIDWithDetails: %v", err)
	}
	if got.Score == nil || *got.Score != 18 {
		t.Errorf("attempt score = %v, want 18 (16 + 8 - 6)", got.Score)
	}
	if !got.Results[1].Overridden || got.Results[1].PointsAwarded != 8 {
		t.Errorf("free text result = %+v, want overridden with 8 points", got.Results[1])
	}

	if _, err := repo.ApplyReview(ctx, record.ID, Review{Status: model.DisputeStatusRejected, ReviewedAt: time.Now()}); !errors.Is(err, ErrStaleState) {
		t.Errorf("second review err = %v, want ErrStaleState", err)
	}

	mine, err := repo.FindDisputedByStudent(ctx, 42)
	if err != nil || len(mine) != 1 {
		t.Errorf("FindDisputedByStudent = (%d, %v), want 1", len(mine), err)
	}
}

func TestEvaluationRepository_FindPendingPages(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db, 1)
	repo := NewEvaluationRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var ids []uint
	for i, studentID := range []uint{41, 42, 43} {
		attempt := openAttempt(t, db, quiz.ID, studentID)
		completeAttempt(t, db, quiz, attempt)
		record, err := repo.FindByAttemptAndQuestion(ctx, attempt.ID, quiz.Questions[1].ID)
		if err != nil {
			t.Fatalf("FindByAttemptAndQuestion: %v", err)
		}
		if err := repo.MarkDisputed(ctx, record.ID, "too harsh", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("MarkDisputed: %v", err)
		}
		ids = append(ids, record.ID)
	}

	tests := []struct {
		name string
		page Page
		want []uint
	}{
		{"unbounded", Page{}, ids},
		{"first page", Page{Limit: 2}, ids[:2]},
		{"offset only", Page{Offset: 2}, ids[2:]},
		{"middle", Page{Offset: 1, Limit: 1}, ids[1:2]},
		{"past the end", Page{Offset: 5, Limit: 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindPendingByInstructor(ctx, 1, tt.page)
			if err != nil {
				t.Fatalf("FindPendingByInstructor: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d reports, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("report %d = %d, want %d (oldest dispute first)", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestEvaluationRepository_RejectKeepsScore(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db, 1)
	attempt := openAttempt(t, db, quiz.ID, 42)
	completeAttempt(t, db, quiz, attempt)

	repo := NewEvaluationRepository(db)
	ctx := context.Background()
	record, _ := repo.FindByAttemptAndQuestion(ctx, attempt.ID, quiz.Questions[1].ID)
	if err := repo.MarkDisputed(ctx, record.ID, "too harsh", time.Now()); err != nil {
		t.Fatalf("MarkDisputed: %v", err)
	}
	if _, err := repo.ApplyReview(ctx, record.ID, Review{Status: model.DisputeStatusRejected, ReviewerID: 1, ReviewedAt: time.Now()}); err != nil {
		t.Fatalf("ApplyReview: %v", err)
	}
	got, _ := NewAttemptRepository(db).FindByID(ctx, attempt.ID)
	if got.Score == nil || *got.Score != 16 {
		t.Errorf("score = %v, want unchanged 16", got.Score)
	}
}

func TestGroupRepository_IsMember(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&model.GroupMember{GroupID: 3, StudentID: 42}).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	repo := NewGroupRepository(db)
	tests := []struct {
		group, student uint
		want           bool
	}{
		{3, 42, true},
		{3, 43, false},
		{4, 42, false},
	}
	for _, tc := range tests {
		got, err := repo.IsMember(context.Background(), tc.group, tc.student)
		if err != nil || got != tc.want {
			t.Errorf("IsMember(%d, %d) = (%v, %v), want %v", tc.group, tc.student, got, err, tc.want)
		}
	}
}

func TestQuizRepository_QuestionsOrdered(t *testing.T) {
	db := newTestDB(t)
	quiz := seedQuiz(t, db, 5)
	repo := NewQuizRepository(db)
	ctx := context.Background()

	got, err := repo.FindByIDWithQuestions(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("FindByIDWithQuestions: %v", err)
	}
	if len(got.Questions) != 2 || got.Questions[0].OrderIndex != 1 || got.MaxScore() != 20 {
		t.Errorf("unexpected quiz: %+v", got)
	}
	if got.Questions[1].CorrectAnswers[1] != "force" {
		t.Errorf("correct answers not round-tripped: %v", got.Questions[1].CorrectAnswers)
	}
	list, err := repo.FindByInstructor(ctx, 5)
	if err != nil || len(list) != 1 {
		t.Errorf("FindByInstructor = (%d, %v), want 1", len(list), err)
	}
	if _, err := repo.FindByID(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID missing err = %v, want ErrNotFound", err)
	}
}
