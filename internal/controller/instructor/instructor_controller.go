package instructor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizcore/internal/controller"
	"github.com/lshigami/quizcore/internal/dto"
	"github.com/lshigami/quizcore/internal/middleware"
	"github.com/lshigami/quizcore/internal/service"
)

type InstructorController struct {
	quizService    service.QuizService
	disputeService service.DisputeService
}

func NewInstructorController(qs service.QuizService, ds service.DisputeService) *InstructorController {
	return &InstructorController{quizService: qs, disputeService: ds}
}

// RegisterRoutes mounts /instructor on a group that already runs middleware.Identity.
func (c *InstructorController) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/instructor", middleware.RequireRole(service.RoleInstructor))
	{
		group.POST("/quizzes", c.CreateQuiz)
		group.GET("/quizzes", c.ListQuizzes)
		group.GET("/quizzes/:quiz_id", c.GetQuiz)
		group.GET("/reports", c.ListPendingReports)
		group.PUT("/reports/:report_id/review", c.ReviewReport)
	}
}

// CreateQuiz godoc
// @Summary (Instructor) Create a new quiz
// @Description Creates a quiz with its questions. Choice questions need options and correct answers drawn from them; free-text questions carry accepted keywords and evaluation guidance.
// @Tags Instructor - Quizzes
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(instructor)
// @Param quiz body dto.QuizCreateDTO true "Quiz to create"
// @Success 201 {object} dto.QuizResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid request body or quiz structure"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /instructor/quizzes [post]
func (c *InstructorController) CreateQuiz(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	var req dto.QuizCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BindError(ctx, "Instructor CreateQuiz", err)
		return
	}
	quiz, err := c.quizService.CreateQuiz(ctx.Request.Context(), caller, req)
	if err != nil {
		controller.RespondError(ctx, "Instructor CreateQuiz", "Failed to create quiz", err)
		return
	}
	ctx.JSON(http.StatusCreated, quiz)
}

// ListQuizzes godoc
// @Summary (Instructor) List my quizzes
// @Tags Instructor - Quizzes
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(instructor)
// @Success 200 {array} dto.QuizSummaryDTO
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /instructor/quizzes [get]
func (c *InstructorController) ListQuizzes(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	quizzes, err := c.quizService.ListMyQuizzes(ctx.Request.Context(), caller)
	if err != nil {
		controller.RespondError(ctx, "Instructor ListQuizzes", "Failed to retrieve quizzes", err)
		return
	}
	ctx.JSON(http.StatusOK, quizzes)
}

// GetQuiz godoc
// @Summary (Instructor) Get a quiz with answers
// @Tags Instructor - Quizzes
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(instructor)
// @Param quiz_id path int true "Quiz ID"
// @Success 200 {object} dto.QuizResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Quiz ID format"
// @Failure 403 {object} dto.ErrorResponse "Not the quiz owner"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /instructor/quizzes/{quiz_id} [get]
func (c *InstructorController) GetQuiz(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	quizID, ok := controller.ParseID(ctx, "quiz_id", "Quiz ID")
	if !ok {
		return
	}
	quiz, err := c.quizService.GetQuiz(ctx.Request.Context(), caller, quizID)
	if err != nil {
		controller.RespondError(ctx, "Instructor GetQuiz", "Failed to retrieve quiz", err)
		return
	}
	ctx.JSON(http.StatusOK, quiz)
}

// ListPendingReports godoc
// @Summary (Instructor) List pending disputes on my quizzes
// @Tags Instructor - Reports
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(instructor)
// @Param skip query int false "Reports to skip" default(0)
// @Param limit query int false "Maximum reports to return" default(100)
// @Success 200 {array} dto.ReportDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid paging parameters"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /instructor/reports [get]
func (c *InstructorController) ListPendingReports(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	var page dto.PageQuery
	if err := ctx.ShouldBindQuery(&page); err != nil {
		controller.BindError(ctx, "Instructor ListPendingReports", err)
		return
	}
	reports, err := c.disputeService.ListPending(ctx.Request.Context(), caller, page)
	if err != nil {
		controller.RespondError(ctx, "Instructor ListPendingReports", "Failed to retrieve reports", err)
		return
	}
	ctx.JSON(http.StatusOK, reports)
}

// ReviewReport godoc
// @Summary (Instructor) Resolve or reject a dispute
// @Description override_score is a percentage (0-100) of the question's points and is only accepted with RESOLVED. The attempt score is recomputed from its question results.
// @Tags Instructor - Reports
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Caller ID"
// @Param X-User-Role header string true "Caller role" Enums(instructor)
// @Param report_id path int true "Report ID"
// @Param review body dto.ReviewDisputeDTO true "Review decision"
// @Success 200 {object} dto.ReportDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid decision"
// @Failure 403 {object} dto.ErrorResponse "Not the quiz owner"
// @Failure 404 {object} dto.ErrorResponse "Report not found"
// @Failure 409 {object} dto.ErrorResponse "Report is not pending"
// @Router /instructor/reports/{report_id}/review [put]
func (c *InstructorController) ReviewReport(ctx *gin.Context) {
	caller, ok := controller.Caller(ctx)
	if !ok {
		return
	}
	reportID, ok := controller.ParseID(ctx, "report_id", "Report ID")
	if !ok {
		return
	}
	var req dto.ReviewDisputeDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BindError(ctx, "Instructor ReviewReport", err)
		return
	}
	report, err := c.disputeService.Review(ctx.Request.Context(), caller, reportID, req)
	if err != nil {
		controller.RespondError(ctx, "Instructor ReviewReport", "Failed to review report", err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}
