package event

type AttemptCompletedPayload struct {
	AttemptID uint    `json:"attempt_id"`
	QuizID    uint    `json:"quiz_id"`
	StudentID uint    `json:"student_id"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
	IsExpired bool    `json:"is_expired"`
}

type DisputePayload struct {
	ReportID   uint     `json:"report_id"`
	AttemptID  uint     `json:"attempt_id"`
	QuestionID uint     `json:"question_id"`
	QuizID     uint     `json:"quiz_id"`
	StudentID  uint     `json:"student_id"`
	Status     string   `json:"status"`
	Override   *float64 `json:"override_score,omitempty"`
}
