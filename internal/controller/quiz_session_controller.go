package controller

import (
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizSessionController struct {
	SessionService *service.QuizSessionService
}

func NewQuizSessionController(sessionService *service.QuizSessionService) *QuizSessionController {
	return &QuizSessionController{SessionService: sessionService}
}

// @Summary 获取测验信息
// @Description 返回测验概要以及当前用户的作答次数、剩余次数和是否已通过
// @Tags 测验作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.QuizInfo}
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{id}/info [get]
func (c *QuizSessionController) GetQuizInfo(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	info, err := c.SessionService.GetQuizInfo(ctx.Request.Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, info)
}

// @Summary 开始测验
// @Description 创建新的作答会话，超过次数限制或已有进行中的会话时失败
// @Tags 测验作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 201 {object} util.Response{data=service.SessionStarted}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/quizzes/{id}/start [post]
func (c *QuizSessionController) StartQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	started, err := c.SessionService.CreateSession(ctx.Request.Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.CreatedWithMessage(ctx, "Quiz session started", started)
}

// @Summary 获取会话题目
// @Description 分页返回题目，不包含正确答案；限时测验会附带剩余时间
// @Tags 测验作答
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=service.QuestionPage}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/quizzes/session/{sessionId}/questions [get]
func (c *QuizSessionController) GetQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	page, limit := util.ParsePage(ctx, c.SessionService.DefaultPageSize, c.SessionService.MaxPageSize)
	questions, err := c.SessionService.GetQuestions(ctx.Request.Context(), ctx.Param("sessionId"), user.UserID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// @Summary 暂存作答进度
// @Description 校验会话仍在进行中并返回剩余时间，答案不落库
// @Tags 测验作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Param request body service.SaveProgressRequest true "当前答案"
// @Success 200 {object} util.Response{data=service.ProgressSaved}
// @Router /api/quizzes/session/{sessionId}/progress [put]
func (c *QuizSessionController) SaveProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SaveProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	saved, err := c.SessionService.SaveProgress(ctx.Request.Context(), ctx.Param("sessionId"), user.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Progress saved", saved)
}

// @Summary 提交测验
// @Description 评分并结束会话，超时提交会被拒绝
// @Tags 测验作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Param request body service.SubmitQuizRequest true "答案"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/quizzes/{id}/submit [post]
func (c *QuizSessionController) SubmitQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.SessionService.SubmitQuiz(ctx.Request.Context(), ctx.Param("id"), user.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, result.Message, result)
}

// @Summary 查询会话状态
// @Tags 测验作答
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response{data=service.SessionStatus}
// @Router /api/quizzes/session/{sessionId}/status [get]
func (c *QuizSessionController) GetSessionStatus(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	status, err := c.SessionService.CheckSessionStatus(ctx.Request.Context(), ctx.Param("sessionId"), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// @Summary 我的测验成绩
// @Description 返回当前用户在该测验下的全部作答记录和统计
// @Tags 测验作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.UserQuizResults}
// @Router /api/quizzes/{id}/results [get]
func (c *QuizSessionController) GetResults(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	results, err := c.SessionService.GetUserQuizResults(ctx.Request.Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, results)
}
