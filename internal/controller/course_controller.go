package controller

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/service"
	"elearning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// currentUser 游客返回 0 和 false
func currentUser(ctx *gin.Context) (uint, bool) {
	if user := util.GetUserFromContext(ctx); user != nil {
		return user.UserID, user.IsAdmin()
	}
	return 0, false
}

// @Summary 课程列表
// @Description 支持关键字、难度、讲师筛选；非管理员只能看到已发布课程和自己的课程
// @Tags 课程
// @Produce json
// @Param search query string false "关键字"
// @Param status query string false "状态"
// @Param difficulty query string false "难度"
// @Param instructorId query int false "讲师ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	userID, isAdmin := currentUser(ctx)
	page, limit := util.ParsePage(ctx, 10, 100)

	q := service.CourseQuery{
		Search:       ctx.Query("search"),
		Status:       model.CourseStatus(ctx.Query("status")),
		Difficulty:   model.QuizDifficulty(ctx.Query("difficulty")),
		InstructorID: util.MustParseUint(ctx.Query("instructorId")),
		Page:         page,
		Limit:        limit,
	}
	courses, total, err := c.CourseService.ListCourses(q, userID, isAdmin)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// @Summary 课程详情
// @Description 包含模块和课时
// @Tags 课程
// @Produce json
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	userID, isAdmin := currentUser(ctx)
	course, err := c.CourseService.GetCourse(ctx.Param("id"), userID, isAdmin)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 创建课程
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.CreateCourse(user.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.CreatedWithMessage(ctx, "Course created successfully", course)
}

// @Summary 更新课程
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Param request body service.CourseRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.UpdateCourse(ctx.Param("id"), user.UserID, user.IsAdmin(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Course updated successfully", course)
}

// @Summary 删除课程
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.CourseService.DeleteCourse(ctx.Param("id"), user.UserID, user.IsAdmin()); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Course deleted successfully", nil)
}

// @Summary 模块列表
// @Tags 课程
// @Produce json
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Module}
// @Router /api/courses/{id}/modules [get]
func (c *CourseController) ListModules(ctx *gin.Context) {
	userID, isAdmin := currentUser(ctx)
	modules, err := c.CourseService.ListModules(ctx.Param("id"), userID, isAdmin)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}

// @Summary 创建模块
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Param request body service.ModuleRequest true "模块信息"
// @Success 201 {object} util.Response{data=model.Module}
// @Router /api/courses/{id}/modules [post]
func (c *CourseController) CreateModule(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	module, err := c.CourseService.CreateModule(ctx.Param("id"), user.UserID, user.IsAdmin(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

// @Summary 更新模块
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param moduleId path string true "模块ID"
// @Param request body service.ModuleRequest true "模块信息"
// @Success 200 {object} util.Response{data=model.Module}
// @Router /api/modules/{moduleId} [put]
func (c *CourseController) UpdateModule(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	module, err := c.CourseService.UpdateModule(ctx.Param("moduleId"), user.UserID, user.IsAdmin(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, module)
}

// @Summary 删除模块
// @Tags 课程
// @Security BearerAuth
// @Param moduleId path string true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/modules/{moduleId} [delete]
func (c *CourseController) DeleteModule(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.CourseService.DeleteModule(ctx.Param("moduleId"), user.UserID, user.IsAdmin()); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Module deleted successfully", nil)
}

// @Summary 创建课时
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param moduleId path string true "模块ID"
// @Param request body service.LessonRequest true "课时信息"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Router /api/modules/{moduleId}/lessons [post]
func (c *CourseController) CreateLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.CourseService.CreateLesson(ctx.Param("moduleId"), user.UserID, user.IsAdmin(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// @Summary 更新课时
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "课时ID"
// @Param request body service.LessonRequest true "课时信息"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/lessons/{lessonId} [put]
func (c *CourseController) UpdateLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.CourseService.UpdateLesson(ctx.Param("lessonId"), user.UserID, user.IsAdmin(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// @Summary 删除课时
// @Tags 课程
// @Security BearerAuth
// @Param lessonId path string true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/lessons/{lessonId} [delete]
func (c *CourseController) DeleteLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.CourseService.DeleteLesson(ctx.Param("lessonId"), user.UserID, user.IsAdmin()); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Lesson deleted successfully", nil)
}

// @Summary 上传课时附件
// @Tags 课程
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "课时ID"
// @Param file formData file true "附件"
// @Success 201 {object} util.Response{data=model.LessonAsset}
// @Router /api/lessons/{lessonId}/assets [post]
func (c *CourseController) UploadLessonAsset(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	asset, err := c.CourseService.UploadLessonAsset(ctx.Request.Context(), ctx.Param("lessonId"), user.UserID, user.IsAdmin(), header.Filename, file, header.Size)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, asset)
}
