package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lshigami/quizcore/internal/dto"
	"github.com/lshigami/quizcore/internal/event"
	"github.com/lshigami/quizcore/internal/model"
)

// submitted returns a completed attempt where the free-text answer matched one of two
// keywords, worth 6 of 10 points.
func submitted(t *testing.T, h *harness, quiz *model.Quiz) *dto.AttemptResultDTO {
	t.Helper()
	ctx := context.Background()
	session, err := h.attempts.Start(ctx, student, quiz.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	result, err := h.attempts.Submit(ctx, student, session.AttemptID, sheet(quiz, []string{"B"}, []string{"X", "Y"}, "Newton was right"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if *result.Score != 26 {
		t.Fatalf("precondition: score = %v, want 26", *result.Score)
	}
	return result
}

func TestDisputeService_OverrideReaggregatesScore(t *testing.T) {
	h := newHarness(t, nil)
	quiz := h.seedQuiz(t, nil)
	ctx := context.Background()
	result := submitted(t, h, quiz)
	freeID := quiz.Questions[2].ID

	report, err := h.disputes.FileDispute(ctx, student, result.AttemptID, freeID, "  too harsh ")
	if err != nil {
		t.Fatalf("FileDispute: %v", err)
	}
	if report.Status == nil || *report.Status != model.DisputeStatusPending || report.Reason != "too harsh" {
		t.Fatalf("report = %+v, want PENDING with trimmed reason", report)
	}

	pending, err := h.disputes.ListPending(ctx, instructor, dto.PageQuery{})
	if err != nil || len(pending) != 1 || pending[0].ID != report.ID {
		t.Fatalf("ListPending = (%+v, %v), want the filed report", pending, err)
	}
	if skipped, err := h.disputes.ListPending(ctx, instructor, dto.PageQuery{Skip: 1, Limit: 10}); err != nil || len(skipped) != 0 {
		t.Errorf("ListPending past the only report = (%d, %v), want none", len(skipped), err)
	}

	override := 80.0
	reviewed, err := h.disputes.Review(ctx, instructor, report.ID, dto.ReviewDisputeDTO{
		Status:        string(model.DisputeStatusResolved),
		Feedback:      "Partially fair",
		OverrideScore: &override,
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if *reviewed.Status != model.DisputeStatusResolved || reviewed.ReviewedAt == nil || reviewed.ReviewFeedback != "Partially fair" {
		t.Errorf("reviewed = %+v", reviewed)
	}

	after, err := h.attempts.GetAttempt(ctx, student, result.AttemptID)
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	if delta := *after.Score - *result.Score; delta != 2 {
		t.Errorf("score moved by %v, want exactly +2 (6 -> 8)", delta)
	}
	if free := after.Results[2]; !free.Overridden || free.PointsAwarded != 8 {
		t.Errorf("free text result = %+v, want 8 overridden points", free)
	}

	if pending, _ := h.disputes.ListPending(ctx, instructor, dto.PageQuery{}); len(pending) != 0 {
		t.Errorf("resolved report still pending")
	}
	events := h.publisher.Events()
	if len(events) != 3 || events[1] != event.EvaluationDisputed || events[2] != event.EvaluationReviewed {
		t.Errorf("events = %v", events)
	}
}

func TestDisputeService_FileDisputeErrors(t *testing.T) {
	h := newHarness(t, nil)
	quiz := h.seedQuiz(t, nil)
	ctx := context.Background()
	result := submitted(t, h, quiz)
	freeID := quiz.Questions[2].ID

	tests := []struct {
		name       string
		caller     Caller
		attemptID  uint
		questionID uint
		reason     string
		want       error
	}{
		{name: "someone else's attempt", caller: Caller{ID: 77, Role: RoleStudent}, attemptID: result.AttemptID, questionID: freeID, reason: "x", want: ErrNotOwner},
		{name: "instructor", caller: instructor, attemptID: result.AttemptID, questionID: freeID, reason: "x", want: ErrNotOwner},
		{name: "choice question", caller: student, attemptID: result.AttemptID, questionID: quiz.Questions[0].ID, reason: "x", want: ErrNotFound},
		{name: "missing attempt", caller: student, attemptID: 9999, questionID: freeID, reason: "x", want: ErrNotFound},
		{name: "blank reason", caller: student, attemptID: result.AttemptID, questionID: freeID, reason: "   ", want: ErrEmptyReason},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.disputes.FileDispute(ctx, tc.caller, tc.attemptID, tc.questionID, tc.reason)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := h.disputes.FileDispute(ctx, student, result.AttemptID, freeID, "too harsh"); err != nil {
		t.Fatalf("FileDispute: %v", err)
	}
	if _, err := h.disputes.FileDispute(ctx, student, result.AttemptID, freeID, "again"); !errors.Is(err, ErrAlreadyDisputed) {
		t.Errorf("duplicate dispute err = %v, want ErrAlreadyDisputed", err)
	}
}

func TestDisputeService_ReviewErrors(t *testing.T) {
	h := newHarness(t, nil)
	quiz := h.seedQuiz(t, nil)
	ctx := context.Background()
	result := submitted(t, h, quiz)
	report, err := h.disputes.FileDispute(ctx, student, result.AttemptID, quiz.Questions[2].ID, "too harsh")
	if err != nil {
		t.Fatalf("FileDispute: %v", err)
	}

	tooHigh := 120.0
	fifty := 50.0
	tests := []struct {
		name   string
		caller Caller
		req    dto.ReviewDisputeDTO
		want   error
	}{
		{name: "student", caller: student, req: dto.ReviewDisputeDTO{Status: "RESOLVED"}, want: ErrForbidden},
		{name: "other instructor", caller: Caller{ID: 5, Role: RoleInstructor}, req: dto.ReviewDisputeDTO{Status: "RESOLVED"}, want: ErrNotOwner},
		{name: "pending is not a decision", caller: instructor, req: dto.ReviewDisputeDTO{Status: "PENDING"}, want: ErrInvalidDecision},
		{name: "override above 100", caller: instructor, req: dto.ReviewDisputeDTO{Status: "RESOLVED", OverrideScore: &tooHigh}, want: ErrInvalidDecision},
		{name: "override on rejection", caller: instructor, req: dto.ReviewDisputeDTO{Status: "REJECTED", OverrideScore: &fifty}, want: ErrInvalidDecision},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.disputes.Review(ctx, tc.caller, report.ID, tc.req); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := h.disputes.Review(ctx, instructor, report.ID, dto.ReviewDisputeDTO{Status: "REJECTED", Feedback: "score stands"}); err != nil {
		t.Fatalf("Review: %v", err)
	}
	after, _ := h.attempts.GetAttempt(ctx, student, result.AttemptID)
	if *after.Score != *result.Score {
		t.Errorf("rejection changed score from %v to %v", *result.Score, *after.Score)
	}
	if _, err := h.disputes.Review(ctx, instructor, report.ID, dto.ReviewDisputeDTO{Status: "RESOLVED"}); !errors.Is(err, ErrReportNotPending) {
		t.Errorf("second review err = %v, want ErrReportNotPending", err)
	}
	if _, err := h.disputes.Review(ctx, instructor, 9999, dto.ReviewDisputeDTO{Status: "RESOLVED"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing report err = %v, want ErrNotFound", err)
	}
}

func TestDisputeService_Reads(t *testing.T) {
	h := newHarness(t, nil)
	quiz := h.seedQuiz(t, nil)
	ctx := context.Background()
	result := submitted(t, h, quiz)
	report, _ := h.disputes.FileDispute(ctx, student, result.AttemptID, quiz.Questions[2].ID, "too harsh")

	if _, err := h.disputes.GetReport(ctx, student, report.ID); err != nil {
		t.Errorf("student GetReport: %v", err)
	}
	if _, err := h.disputes.GetReport(ctx, instructor, report.ID); err != nil {
		t.Errorf("instructor GetReport: %v", err)
	}
	if _, err := h.disputes.GetReport(ctx, Caller{ID: 8, Role: RoleStudent}, report.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("stranger GetReport err = %v, want ErrNotOwner", err)
	}
	mine, err := h.disputes.ListMyReports(ctx, student)
	if err != nil || len(mine) != 1 {
		t.Errorf("ListMyReports = (%d, %v), want 1", len(mine), err)
	}
	if _, err := h.disputes.ListPending(ctx, student, dto.PageQuery{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("student ListPending err = %v, want ErrForbidden", err)
	}
	if other, _ := h.disputes.ListPending(ctx, Caller{ID: 5, Role: RoleInstructor}, dto.PageQuery{}); len(other) != 0 {
		t.Errorf("other instructor sees %d pending reports", len(other))
	}
}
