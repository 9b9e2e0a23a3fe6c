package service

import (
	"github.com/jinzhu/copier"
	"github.com/lshigami/quizcore/internal/dto"
	"github.com/lshigami/quizcore/internal/model"
	"github.com/rs/zerolog/log"
)

func sheetDTO(sheet model.AnswerSheet) map[uint][]string {
	out := make(map[uint][]string, len(sheet))
	for id, values := range sheet {
		out[id] = values
	}
	return out
}

func sessionDTO(a *model.Attempt, resumed bool) *dto.AttemptSessionDTO {
	return &dto.AttemptSessionDTO{
		AttemptID:            a.ID,
		QuizID:               a.QuizID,
		Status:               a.Status,
		StartedAt:            a.StartedAt,
		TimeBudgetSeconds:    a.TimeBudgetSeconds,
		TimeRemainingSeconds: a.TimeRemainingSeconds,
		IsExpired:            a.IsExpired,
		Resumed:              resumed,
		Answers:              sheetDTO(a.Sheet()),
	}
}

// resultSession wraps a completed attempt for callers that expected a running session.
func resultSession(r *dto.AttemptResultDTO, resumed bool) *dto.AttemptSessionDTO {
	return &dto.AttemptSessionDTO{
		AttemptID:            r.AttemptID,
		QuizID:               r.QuizID,
		Status:               r.Status,
		StartedAt:            r.StartedAt,
		TimeBudgetSeconds:    r.TimeBudgetSeconds,
		TimeRemainingSeconds: r.TimeRemainingSeconds,
		IsExpired:            r.IsExpired,
		Resumed:              resumed,
		Answers:              r.Answers,
		Result:               r,
	}
}

func attemptResultDTO(a *model.Attempt) *dto.AttemptResultDTO {
	out := &dto.AttemptResultDTO{
		AttemptID:            a.ID,
		QuizID:               a.QuizID,
		StudentID:            a.StudentID,
		Status:               a.Status,
		StartedAt:            a.StartedAt,
		TimeBudgetSeconds:    a.TimeBudgetSeconds,
		TimeRemainingSeconds: a.TimeRemainingSeconds,
		IsExpired:            a.IsExpired,
		CompletedAt:          a.CompletedAt,
		Score:                a.Score,
		MaxScore:             a.MaxScore,
		Answers:              sheetDTO(a.Sheet()),
	}

	evaluations := make(map[uint]*model.EvaluationRecord, len(a.Evaluations))
	for i := range a.Evaluations {
		evaluations[a.Evaluations[i].QuestionID] = &a.Evaluations[i]
	}
	for _, r := range a.Results {
		var result dto.QuestionResultDTO
		if err := copier.Copy(&result, &r); err != nil {
			log.Error().Err(err).Uint("attemptID", a.ID).Msg("Failed to copy QuestionResult to DTO")
		}
		if record, ok := evaluations[r.QuestionID]; ok {
			var ev dto.EvaluationDTO
			if err := copier.Copy(&ev, record); err != nil {
				log.Error().Err(err).Uint("evaluationID", record.ID).Msg("Failed to copy EvaluationRecord to DTO")
			}
			result.Evaluation = &ev
		}
		out.Results = append(out.Results, result)
	}
	return out
}

func reportDTO(record *model.EvaluationRecord) dto.ReportDTO {
	var out dto.ReportDTO
	if err := copier.Copy(&out, record); err != nil {
		log.Error().Err(err).Uint("reportID", record.ID).Msg("Failed to copy EvaluationRecord to ReportDTO")
	}
	out.Status = record.DisputeStatus
	out.Reason = record.DisputeReason
	return out
}

func questionResponseDTOs(questions []model.Question) []dto.QuestionResponseDTO {
	out := make([]dto.QuestionResponseDTO, 0, len(questions))
	for i := range questions {
		var q dto.QuestionResponseDTO
		if err := copier.Copy(&q, &questions[i]); err != nil {
			log.Error().Err(err).Uint("questionID", questions[i].ID).Msg("Failed to copy Question to DTO")
		}
		out = append(out, q)
	}
	return out
}
