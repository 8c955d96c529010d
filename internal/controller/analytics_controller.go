package controller

import (
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// @Summary 我的学习统计
// @Description 选课数、完成率、测验统计以及最近 10 次测验
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.UserStatistics}
// @Router /api/analytics/me [get]
func (c *AnalyticsController) GetUserStatistics(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.AnalyticsService.UserStatistics(user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary 学习建议
// @Description 根据近 30 天测验成绩生成
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.LearningInsights}
// @Router /api/analytics/insights [get]
func (c *AnalyticsController) GetInsights(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	insights, err := c.AnalyticsService.LearningInsights(user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, insights)
}

// @Summary 课程统计
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseStatistics}
// @Failure 403 {object} util.Response
// @Router /api/analytics/courses/{id} [get]
func (c *AnalyticsController) GetCourseStatistics(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.AnalyticsService.CourseStatistics(ctx.Param("id"), user.UserID, user.IsAdmin())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary 讲师课程统计
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.InstructorAnalytics}
// @Router /api/analytics/instructor [get]
func (c *AnalyticsController) GetInstructorAnalytics(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.AnalyticsService.InstructorAnalytics(user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary 平台概览
// @Description 仅管理员
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.PlatformAnalytics}
// @Router /api/admin/analytics [get]
func (c *AnalyticsController) GetPlatformAnalytics(ctx *gin.Context) {
	stats, err := c.AnalyticsService.PlatformAnalytics()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
