package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lshigami/quizcore/internal/dto"
)

func validQuizRequest() dto.QuizCreateDTO {
	limit := 15
	return dto.QuizCreateDTO{
		Title:            "Kinematics",
		TimeLimitMinutes: &limit,
		Questions: []dto.QuestionCreateDTO{
			{Text: "2+2?", Type: "SINGLE_CHOICE", Options: []string{"3", "4"}, CorrectAnswers: []string{"4"}, Points: 2},
			{Text: "Primes?", Type: "MULTIPLE_CHOICE", Options: []string{"2", "3", "4"}, CorrectAnswers: []string{"2", "3"}, Points: 3},
			{Text: "Explain inertia", Type: "FREE_TEXT", CorrectAnswers: []string{"mass", "motion"}, EvaluationGuidance: "mentions mass and resistance to change in motion", Points: 5},
		},
	}
}

func TestQuizService_CreateAndRead(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	created, err := h.quizzes.CreateQuiz(ctx, instructor, validQuizRequest())
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	if created.InstructorID != instructorID || created.MaxScore != 10 || created.TimeLimitMinutes != 15 {
		t.Errorf("created = %+v", created)
	}
	if len(created.Questions) != 3 || created.Questions[2].OrderIndex != 3 || len(created.Questions[1].CorrectAnswers) != 2 {
		t.Errorf("questions = %+v", created.Questions)
	}

	got, err := h.quizzes.GetQuiz(ctx, instructor, created.ID)
	if err != nil || got.ID != created.ID {
		t.Fatalf("GetQuiz = (%+v, %v)", got, err)
	}
	if _, err := h.quizzes.GetQuiz(ctx, Caller{ID: 9, Role: RoleInstructor}, created.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign GetQuiz err = %v, want ErrNotOwner", err)
	}

	list, err := h.quizzes.ListMyQuizzes(ctx, instructor)
	if err != nil || len(list) != 1 || list[0].QuestionCount != 3 {
		t.Errorf("ListMyQuizzes = (%+v, %v)", list, err)
	}

	view, err := h.quizzes.GetQuizForStudent(ctx, student, created.ID)
	if err != nil {
		t.Fatalf("GetQuizForStudent: %v", err)
	}
	if len(view.Questions) != 3 || view.Questions[0].Options[1] != "4" || view.TimeLimitMinutes != 15 {
		t.Errorf("student view = %+v", view)
	}
}

func TestQuizService_DefaultTimeLimit(t *testing.T) {
	h := newHarness(t, nil)
	req := validQuizRequest()
	req.TimeLimitMinutes = nil
	created, err := h.quizzes.CreateQuiz(context.Background(), instructor, req)
	if err != nil {
		t.Fatalf("CreateQuiz: %v", err)
	}
	if created.TimeLimitMinutes != 30 {
		t.Errorf("time limit = %d, want default 30", created.TimeLimitMinutes)
	}
}

func TestQuizService_CreateQuizValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.QuizCreateDTO)
	}{
		{name: "no questions", mutate: func(r *dto.QuizCreateDTO) { r.Questions = nil }},
		{name: "blank title", mutate: func(r *dto.QuizCreateDTO) { r.Title = "  " }},
		{name: "unknown type", mutate: func(r *dto.QuizCreateDTO) { r.Questions[0].Type = "ESSAY" }},
		{name: "zero points", mutate: func(r *dto.QuizCreateDTO) { r.Questions[0].Points = 0 }},
		{name: "single choice with two answers", mutate: func(r *dto.QuizCreateDTO) { r.Questions[0].CorrectAnswers = []string{"3", "4"} }},
		{name: "answer outside options", mutate: func(r *dto.QuizCreateDTO) { r.Questions[1].CorrectAnswers = []string{"2", "9"} }},
		{name: "duplicate option", mutate: func(r *dto.QuizCreateDTO) { r.Questions[1].Options = []string{"2", "2", "3"} }},
		{name: "choice without answers", mutate: func(r *dto.QuizCreateDTO) { r.Questions[1].CorrectAnswers = nil }},
		{name: "free text with options", mutate: func(r *dto.QuizCreateDTO) { r.Questions[2].Options = []string{"a", "b"} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil)
			req := validQuizRequest()
			tc.mutate(&req)
			if _, err := h.quizzes.CreateQuiz(context.Background(), instructor, req); !errors.Is(err, ErrInvalidQuiz) {
				t.Errorf("err = %v, want ErrInvalidQuiz", err)
			}
		})
	}

	h := newHarness(t, nil)
	if _, err := h.quizzes.CreateQuiz(context.Background(), student, validQuizRequest()); !errors.Is(err, ErrForbidden) {
		t.Errorf("student CreateQuiz err = %v, want ErrForbidden", err)
	}
}
