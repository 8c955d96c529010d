package controller

import (
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// QuizController 讲师端测验管理
type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

type addQuestionsRequest struct {
	Questions []service.QuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// @Summary 创建测验
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateQuizRequest true "测验定义"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Router /api/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.CreateQuiz(user.UserID, user.IsAdmin(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.CreatedWithMessage(ctx, "Quiz created successfully", quiz)
}

// @Summary 我创建的测验
// @Tags 测验管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/quizzes/mine [get]
func (c *QuizController) ListMyQuizzes(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	page, limit := util.ParsePage(ctx, 10, 100)
	quizzes, total, err := c.QuizService.ListMyQuizzes(user.UserID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: quizzes, Total: total, Page: page, Limit: limit})
}

// @Summary 课时下的测验
// @Tags 测验管理
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "课时ID"
// @Success 200 {object} util.Response{data=[]model.Quiz}
// @Router /api/lessons/{lessonId}/quizzes [get]
func (c *QuizController) ListLessonQuizzes(ctx *gin.Context) {
	quizzes, err := c.QuizService.ListLessonQuizzes(ctx.Param("lessonId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// @Summary 获取测验详情（含答案）
// @Description 仅测验创建者或管理员可查看
// @Tags 测验管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 403 {object} util.Response
// @Router /api/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quiz, err := c.QuizService.GetQuizForEditing(ctx.Request.Context(), ctx.Param("id"), user.UserID, user.IsAdmin())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary 更新测验
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Param request body service.UpdateQuizRequest true "需要修改的字段"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /api/quizzes/{id} [put]
func (c *QuizController) UpdateQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.UpdateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.UpdateQuiz(ctx.Request.Context(), ctx.Param("id"), user.UserID, user.IsAdmin(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Quiz updated successfully", quiz)
}

// @Summary 删除测验
// @Tags 测验管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.QuizService.DeleteQuiz(ctx.Request.Context(), ctx.Param("id"), user.UserID, user.IsAdmin()); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Quiz deleted successfully", nil)
}

// @Summary 批量添加题目
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Param request body addQuestionsRequest true "题目列表"
// @Success 201 {object} util.Response{data=[]model.Question}
// @Router /api/quizzes/{id}/questions [post]
func (c *QuizController) AddQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req addQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	questions, err := c.QuizService.AddQuestions(ctx.Request.Context(), ctx.Param("id"), user.UserID, user.IsAdmin(), req.Questions)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.CreatedWithMessage(ctx, "Questions added successfully", questions)
}

// @Summary 停用题目
// @Description 停用后不再出现在新的作答中，历史作答不受影响
// @Tags 测验管理
// @Produce json
// @Security BearerAuth
// @Param questionId path string true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/quizzes/questions/{questionId} [delete]
func (c *QuizController) DeactivateQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.QuizService.DeactivateQuestion(ctx.Request.Context(), ctx.Param("questionId"), user.UserID, user.IsAdmin()); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Question deactivated", nil)
}
