package controller

import (
	"strconv"

	"lms_support_backend/internal/model"
	"lms_support_backend/internal/service"
	"lms_support_backend/internal/taxonomy"
	"lms_support_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminController 管理端：工单队列处理、知识库文档、看板数据。
type AdminController struct {
	TicketService    *service.TicketService
	DocumentService  *service.DocumentService
	AnalyticsService *service.AnalyticsService
	Catalog          *taxonomy.Catalog
}

func NewAdminController(ticketService *service.TicketService, documentService *service.DocumentService, analyticsService *service.AnalyticsService, catalog *taxonomy.Catalog) *AdminController {
	return &AdminController{
		TicketService:    ticketService,
		DocumentService:  documentService,
		AnalyticsService: analyticsService,
		Catalog:          catalog,
	}
}

// ListTickets godoc
// @Summary 管理端工单列表
// @Description 可按 resolved/unresolved 过滤，已解决组含已关闭
// @Tags 管理
// @Produce  json
// @Param   status_filter query string false "resolved 或 unresolved"
// @Success 200 {object} util.Response{data=[]service.TicketSummary}
// @Router /api/admin/tickets [get]
func (c *AdminController) ListTickets(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	filter := ctx.Query("status_filter")
	if filter != "" && filter != "resolved" && filter != "unresolved" {
		util.BadRequest(ctx, "status_filter must be resolved or unresolved")
		return
	}

	summaries, err := c.TicketService.ListForAdmin(claims.UserID, filter)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summaries)
}

type RespondRequest struct {
	Message string `json:"message" binding:"required"`
}

// Respond godoc
// @Summary 管理员回复
// @Description 追加管理员消息并将工单置为处理中
// @Tags 管理
// @Accept  json
// @Produce  json
// @Param   id path int true "工单ID"
// @Param   body body RespondRequest true "回复内容"
// @Success 201 {object} util.Response{data=model.Conversation}
// @Failure 409 {object} util.Response "工单状态不接受消息"
// @Router /api/admin/tickets/{id}/respond [post]
func (c *AdminController) Respond(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	ticketID, ok := parseTicketID(ctx)
	if !ok {
		return
	}

	var req RespondRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	conv, err := c.TicketService.Respond(ctx.Request.Context(), ticketID, claims.UserID, req.Message)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, conv)
}

type ResolveRequest struct {
	Message string `json:"message" binding:"required"`
}

// Resolve godoc
// @Summary 解决工单
// @Description 追加结单消息并置为已解决；已解决/已关闭的工单拒绝
// @Tags 管理
// @Accept  json
// @Produce  json
// @Param   id path int true "工单ID"
// @Param   body body ResolveRequest true "结单消息"
// @Success 200 {object} util.Response{data=model.Ticket}
// @Failure 409 {object} util.Response "工单已解决"
// @Router /api/admin/tickets/{id}/resolve [post]
func (c *AdminController) Resolve(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	ticketID, ok := parseTicketID(ctx)
	if !ok {
		return
	}

	var req ResolveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ticket, err := c.TicketService.Resolve(ctx.Request.Context(), ticketID, claims.UserID, req.Message)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, ticket)
}

type SetStatusRequest struct {
	Status model.TicketStatus `json:"status" binding:"required"`
	Reason string             `json:"reason,omitempty"`
}

// SetStatus godoc
// @Summary 设置工单状态
// @Description 通用状态流转；已解决/已关闭只能通过重开离开
// @Tags 管理
// @Accept  json
// @Produce  json
// @Param   id path int true "工单ID"
// @Param   body body SetStatusRequest true "目标状态"
// @Success 200 {object} util.Response{data=model.Ticket}
// @Failure 400 {object} util.Response "未知状态"
// @Failure 409 {object} util.Response "当前状态不允许"
// @Router /api/admin/tickets/{id}/status [put]
func (c *AdminController) SetStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	ticketID, ok := parseTicketID(ctx)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ticket, err := c.TicketService.SetStatus(ctx.Request.Context(), ticketID, req.Status, req.Reason, &claims.UserID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, ticket)
}

// Reopen godoc
// @Summary 管理员重开工单
// @Description 重开后直接进入待管理员处理队列
// @Tags 管理
// @Produce  json
// @Param   id path int true "工单ID"
// @Success 200 {object} util.Response{data=model.Ticket}
// @Failure 409 {object} util.Response "工单不在可重开状态"
// @Router /api/admin/tickets/{id}/reopen [post]
func (c *AdminController) Reopen(ctx *gin.Context) {
	ticketID, ok := parseTicketID(ctx)
	if !ok {
		return
	}

	ticket, err := c.TicketService.Reopen(ctx.Request.Context(), ticketID, model.Admin)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, ticket)
}

// TicketDetail godoc
// @Summary 管理端工单详情
// @Tags 管理
// @Produce  json
// @Param   id path int true "工单ID"
// @Success 200 {object} util.Response{data=service.TicketDetail}
// @Router /api/admin/tickets/{id} [get]
func (c *AdminController) TicketDetail(ctx *gin.Context) {
	ticketID, ok := parseTicketID(ctx)
	if !ok {
		return
	}

	detail, err := c.TicketService.Get(ticketID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// UploadDocument godoc
// @Summary 上传知识库文档
// @Description multipart 上传，标签需通过课程目录级联校验
// @Tags 知识库
// @Accept  multipart/form-data
// @Produce  json
// @Param   file formData file true "文档文件"
// @Param   category formData string true "一级分类"
// @Param   course_categories formData []string false "课程分类标签"
// @Param   course_names formData []string false "课程名标签"
// @Success 201 {object} util.Response{data=model.KnowledgeDocument}
// @Failure 400 {object} util.Response "标签不合法"
// @Failure 502 {object} util.Response "对象存储不可用"
// @Router /api/admin/documents [post]
func (c *AdminController) UploadDocument(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	req := &service.UploadDocumentRequest{
		FileName:         fileHeader.Filename,
		ContentType:      fileHeader.Header.Get("Content-Type"),
		Size:             fileHeader.Size,
		Category:         model.DocumentCategory(ctx.PostForm("category")),
		CourseCategories: ctx.PostFormArray("course_categories"),
		CourseNames:      ctx.PostFormArray("course_names"),
		UploadedBy:       claims.UserID,
	}

	doc, err := c.DocumentService.Upload(ctx.Request.Context(), req, file)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, doc)
}

// ListDocuments godoc
// @Summary 知识库文档列表
// @Tags 知识库
// @Produce  json
// @Param   category query string false "一级分类过滤"
// @Success 200 {object} util.Response{data=[]model.KnowledgeDocument}
// @Router /api/admin/documents [get]
func (c *AdminController) ListDocuments(ctx *gin.Context) {
	docs, err := c.DocumentService.List(ctx.Query("category"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, docs)
}

// DeleteDocument godoc
// @Summary 删除知识库文档
// @Description 先删对象存储再删元数据，失败时文档保持完整
// @Tags 知识库
// @Produce  json
// @Param   id path string true "文档UUID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "文档不存在"
// @Failure 502 {object} util.Response "对象存储不可用"
// @Router /api/admin/documents/{id} [delete]
func (c *AdminController) DeleteDocument(ctx *gin.Context) {
	if err := c.DocumentService.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// DocumentCategories godoc
// @Summary 文档一级分类
// @Tags 知识库
// @Produce  json
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/admin/documents/categories [get]
func (c *AdminController) DocumentCategories(ctx *gin.Context) {
	util.Success(ctx, c.DocumentService.Categories())
}

// Catalog godoc
// @Summary 课程目录
// @Description 返回分类及其课程，供前端构建级联选择
// @Tags 知识库
// @Produce  json
// @Success 200 {object} util.Response{data=[]taxonomy.Entry}
// @Router /api/admin/catalog [get]
func (c *AdminController) CatalogEntries(ctx *gin.Context) {
	util.Success(ctx, c.Catalog.Entries())
}

type ToggleRequest struct {
	Selection taxonomy.Selection `json:"selection"`
	Category  string             `json:"category,omitempty"`
	Course    string             `json:"course,omitempty"`
}

// ToggleCategory godoc
// @Summary 切换分类选择
// @Description 勾选分类带入其全部课程，取消则清掉其课程
// @Tags 知识库
// @Accept  json
// @Produce  json
// @Param   body body ToggleRequest true "当前选择与目标分类"
// @Success 200 {object} util.Response{data=taxonomy.Selection}
// @Failure 400 {object} util.Response "未知分类"
// @Router /api/admin/catalog/toggle-category [post]
func (c *AdminController) ToggleCategory(ctx *gin.Context) {
	var req ToggleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	next, err := c.Catalog.ToggleCategory(req.Selection, req.Category)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, next)
}

// ToggleCourse godoc
// @Summary 切换课程选择
// @Description 取消某分类最后一门课程时该分类一并取消
// @Tags 知识库
// @Accept  json
// @Produce  json
// @Param   body body ToggleRequest true "当前选择与目标课程"
// @Success 200 {object} util.Response{data=taxonomy.Selection}
// @Failure 400 {object} util.Response "未知课程"
// @Router /api/admin/catalog/toggle-course [post]
func (c *AdminController) ToggleCourse(ctx *gin.Context) {
	var req ToggleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	next, err := c.Catalog.ToggleCourse(req.Selection, req.Course)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, next)
}

// Analytics godoc
// @Summary 看板数据
// @Description 近 N 天的工单与自动应答统计，默认 7 天
// @Tags 管理
// @Produce  json
// @Param   days query int false "统计天数"
// @Success 200 {object} util.Response{data=service.AnalyticsReport}
// @Router /api/admin/analytics [get]
func (c *AdminController) Analytics(ctx *gin.Context) {
	days := 7
	if raw := ctx.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 90 {
			util.BadRequest(ctx, "days must be between 1 and 90")
			return
		}
		days = parsed
	}

	report, err := c.AnalyticsService.GetAnalytics(ctx.Request.Context(), days)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
