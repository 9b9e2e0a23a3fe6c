package student

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizcore/internal/controller"
	"github.com/lshigami/quizcore/internal/dto"
	"github.com/lshigami/quizcore/internal/middleware"
	"github.com/lshigami/quizcore/internal/model"
	"github.com/lshigami/quizcore/internal/service"
)

type StudentController struct {
	quizService    service.QuizService
	attemptService service.AttemptService
	disputeService service.DisputeService
}

func NewStudentController(qs service.QuizService, as service.AttemptService, ds service.DisputeService) *StudentController {
	return &StudentController{
		quizService:    qs,
		attemptService: as,
		disputeService: ds,
	}
}

// RegisterRoutes mounts the student surface on a group that already runs middleware.Identity.
// Attempt and report reads stay open to instructors; ownership is checked by the services.
func (c *StudentController) RegisterRoutes(api *gin.RouterGroup) {
	studentOnly := middleware.RequireRole(service.RoleStudent)

	api.GET("/quizzes/:quiz_id", studentOnly, c.GetQuiz)
	api.POST("/quizzes/:quiz_id/attempts/start", studentOnly, c.StartAttempt)
	api.GET("/quizzes/:quiz_id/my-attempts", studentOnly, c.ListMyAttempts)

	api.GET("/attempts/:attempt_id", c.GetAttempt)
	api.POST("/attempts/:attempt_id/sync", studentOnly, c.SyncAttempt)
	api.PUT("/attempts/:attempt_id/answers", studentOnly, c.SaveAnswers)
	api.POST("/attempts/:attempt_id/submit", studentOnly, c.SubmitAttempt)
	api.POST("/attempts/:attempt_id/auto-submit", studentOnly, c.AutoSubmitAttempt)
	api.POST("/attempts/:attempt_id/questions/:question_id/report", studentOnly, c.FileDispute)

	api.GET("/student/reports", studentOnly, c.ListMyReports)
	api.GET("/reports/:report_id", c.GetReport)
}

// GetQuiz godoc
// @Summary (Student) Get a quiz to take
// @Description Returns the quiz and its questions without correct answers or evaluation guidance.
// @Tags Student - Quizzes
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(student, instructor)
// @Param quiz_id path int true "Quiz ID"
// @Success 200 {object} dto.StudentQuizDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Quiz ID format"
// @Failure 403 {object} dto.ErrorResponse "Not eligible for this quiz"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /quizzes/{quiz_id} [get]
func (c *StudentController) GetQuiz(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	quizID, ok := controller.ParseID(ctx, "quiz_id", "Quiz ID")
	if !ok {
		return
	}
	quiz, err := c.quizService.GetQuizForStudent(ctx.Request.Context(), caller, quizID)
	if err != nil {
		controller.RespondError(ctx, "Student GetQuiz", "Failed to retrieve quiz", err)
		return
	}
	ctx.JSON(http.StatusOK, quiz)
}

// StartAttempt godoc
// @Summary (Student) Start or resume an attempt
// @Description Creates a timed attempt, or resumes the open one. An open attempt whose budget is spent is auto-submitted and returned with its result.
// @Tags Student - Attempts
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(student, instructor)
// @Param quiz_id path int true "Quiz ID"
// @Success 200 {object} dto.AttemptSessionDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Quiz ID format"
// @Failure 403 {object} dto.ErrorResponse "Not eligible for this quiz"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /quizzes/{quiz_id}/attempts/start [post]
func (c *StudentController) StartAttempt(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	quizID, ok := controller.ParseID(ctx, "quiz_id", "Quiz ID")
	if !ok {
		return
	}
	session, err := c.attemptService.Start(ctx.Request.Context(), caller, quizID)
	if err != nil {
		controller.RespondError(ctx, "Student StartAttempt", "Failed to start attempt", err)
		return
	}
	ctx.JSON(http.StatusOK, session)
}

// ListMyAttempts godoc
// @Summary (Student) List my attempts for a quiz
// @Tags Student - Attempts
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(student, instructor)
// @Param quiz_id path int true "Quiz ID"
// @Success 200 {array} dto.AttemptSummaryDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Quiz ID format"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /quizzes/{quiz_id}/my-attempts [get]
func (c *StudentController) ListMyAttempts(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	quizID, ok := controller.ParseID(ctx, "quiz_id", "Quiz ID")
	if !ok {
		return
	}
	attempts, err := c.attemptService.ListMyAttempts(ctx.Request.Context(), caller, quizID)
	if err != nil {
		controller.RespondError(ctx, "Student ListMyAttempts", "Failed to retrieve attempts", err)
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}

// GetAttempt godoc
// @Summary Get an attempt
// @Description Visible to the attempt's student and to the instructor owning the quiz. Completed attempts include per-question results and evaluations.
// @Tags Student - Attempts
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(student, instructor)
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Attempt ID format"
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id} [get]
func (c *StudentController) GetAttempt(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "attempt_id", "Attempt ID")
	if !ok {
		return
	}
	attempt, err := c.attemptService.GetAttempt(ctx.Request.Context(), caller, attemptID)
	if err != nil {
		controller.RespondError(ctx, "GetAttempt", "Failed to retrieve attempt", err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

// SyncAttempt godoc
// @Summary (Student) Resynchronise the attempt timer
// @Description Recomputes remaining time from the server clock. Expires and auto-submits the attempt when the budget is spent.
// @Tags Student - Attempts
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(student, instructor)
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptSessionDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Attempt ID format"
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id}/sync [post]
func (c *StudentController) SyncAttempt(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "attempt_id", "Attempt ID")
	if !ok {
		return
	}
	session, err := c.attemptService.Resync(ctx.Request.Context(), caller, attemptID)
	if err != nil {
		controller.RespondError(ctx, "Student SyncAttempt", "Failed to sync attempt", err)
		return
	}
	ctx.JSON(http.StatusOK, session)
}

// SaveAnswers godoc
// @Summary (Student) Save answers without submitting
// @Description Merges a partial answer sheet keyed by question id. An empty list clears that answer.
// @Tags Student - Attempts
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(student, instructor)
// @Param attempt_id path int true "Attempt ID"
// @Param answers body dto.SaveAnswersDTO true "Partial answers"
// @Success 200 {object} dto.AttemptSessionDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 409 {object} dto.ErrorResponse "Attempt is not in progress"
// @Router /attempts/{attempt_id}/answers [put]
func (c *StudentController) SaveAnswers(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "attempt_id", "Attempt ID")
	if !ok {
		return
	}
	var req dto.SaveAnswersDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BindError(ctx, "Student SaveAnswers", err)
		return
	}
	session, err := c.attemptService.SaveAnswers(ctx.Request.Context(), caller, attemptID, model.AnswerSheet(req.Answers))
	if err != nil {
		controller.RespondError(ctx, "Student SaveAnswers", "Failed to save answers", err)
		return
	}
	ctx.JSON(http.StatusOK, session)
}

// SubmitAttempt godoc
// @Summary (Student) Submit an attempt for scoring
// @Description Optionally merges a final answer snapshot, then scores every question once. A second submission is rejected.
// @Tags Student - Attempts
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(student, instructor)
// @Param attempt_id path int true "Attempt ID"
// @Param answers body dto.SubmitAttemptDTO false "Final answers"
// @Success 200 {object} dto.AttemptResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 409 {object} dto.ErrorResponse "Attempt already completed"
// @Router /attempts/{attempt_id}/submit [post]
func (c *StudentController) SubmitAttempt(ctx *gin.Context) {
	c.finish(ctx, "Student SubmitAttempt", c.attemptService.Submit)
}

// AutoSubmitAttempt godoc
// @Summary (Student) Auto-submit an attempt on timeout
// @Description Same as submit but the attempt is always marked expired. Missing answers score zero.
// @Tags Student - Attempts
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(student, instructor)
// @Param attempt_id path int true "Attempt ID"
// @Param answers body dto.SubmitAttemptDTO false "Last known answers"
// @Success 200 {object} dto.AttemptResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 409 {object} dto.ErrorResponse "Attempt already completed"
// @Router /attempts/{attempt_id}/auto-submit [post]
func (c *StudentController) AutoSubmitAttempt(ctx *gin.Context) {
	c.finish(ctx, "Student AutoSubmitAttempt", c.attemptService.AutoSubmit)
}

type finishFunc func(ctx context.Context, caller service.Caller, attemptID uint, final model.AnswerSheet) (*dto.AttemptResultDTO, error)

func (c *StudentController) finish(ctx *gin.Context, op string, fn finishFunc) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "attempt_id", "Attempt ID")
	if !ok {
		return
	}
	var req dto.SubmitAttemptDTO
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			controller.BindError(ctx, op, err)
			return
		}
	}
	result, err := fn(ctx.Request.Context(), caller, attemptID, model.AnswerSheet(req.Answers))
	if err != nil {
		controller.RespondError(ctx, op, "Failed to submit attempt", err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// FileDispute godoc
// @Summary (Student) Dispute the evaluation of a free-text answer
// @Tags Student - Reports
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(student, instructor)
// @Param attempt_id path int true "Attempt ID"
// @Param question_id path int true "Question ID"
// @Param report body dto.FileDisputeDTO true "Dispute reason"
// @Success 201 {object} dto.ReportDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 404 {object} dto.ErrorResponse "No evaluation for this question"
// @Failure 409 {object} dto.ErrorResponse "Already disputed"
// @Router /attempts/{attempt_id}/questions/{question_id}/report [post]
func (c *StudentController) FileDispute(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParseID(ctx, "attempt_id", "Attempt ID")
	if !ok {
		return
	}
	questionID, ok := controller.ParseID(ctx, "question_id", "Question ID")
	if !ok {
		return
	}
	var req dto.FileDisputeDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BindError(ctx, "Student FileDispute", err)
		return
	}
	report, err := c.disputeService.FileDispute(ctx.Request.Context(), caller, attemptID, questionID, req.Reason)
	if err != nil {
		controller.RespondError(ctx, "Student FileDispute", "Failed to file dispute", err)
		return
	}
	ctx.JSON(http.StatusCreated, report)
}

// ListMyReports godoc
// @Summary (Student) List my disputes
// @Tags Student - Reports
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(student, instructor)
// @Success 200 {array} dto.ReportDTO
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /student/reports [get]
func (c *StudentController) ListMyReports(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	reports, err := c.disputeService.ListMyReports(ctx.Request.Context(), caller)
	if err != nil {
		controller.RespondError(ctx, "Student ListMyReports", "Failed to retrieve reports", err)
		return
	}
	ctx.JSON(http.StatusOK, reports)
}

// GetReport godoc
// @Summary Get a dispute report
// @Description Visible to the disputing student and to the instructor owning the quiz.
// @Tags Student - Reports
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(student, instructor)
// @Param report_id path int true "Report ID"
// @Success 200 {object} dto.ReportDTO
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 404 {object} dto.ErrorResponse "Report not found"
// @Router /reports/{report_id} [get]
func (c *StudentController) GetReport(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	reportID, ok := controller.ParseID(ctx, "report_id", "Report ID")
	if !ok {
		return
	}
	report, err := c.disputeService.GetReport(ctx.Request.Context(), caller, reportID)
	if err != nil {
		controller.RespondError(ctx, "GetReport", "Failed to retrieve report", err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}
