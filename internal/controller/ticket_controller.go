package controller

import (
	"strconv"

	"lms_support_backend/internal/model"
	"lms_support_backend/internal/service"
	"lms_support_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TicketController 学生端工单接口。学生发起或追加消息后，
// 在后台协程触发自动应答流水线，请求本身立即返回。
type TicketController struct {
	TicketService     *service.TicketService
	ResolutionService *service.ResolutionService
}

func NewTicketController(ticketService *service.TicketService, resolutionService *service.ResolutionService) *TicketController {
	return &TicketController{
		TicketService:     ticketService,
		ResolutionService: resolutionService,
	}
}

// Create godoc
// @Summary 创建工单
// @Description 学生创建工单并附首条消息，随后触发自动应答
// @Tags 工单
// @Accept  json
// @Produce  json
// @Param   body body service.CreateTicketRequest true "工单信息"
// @Success 201 {object} util.Response{data=model.Ticket} "创建成功"
// @Failure 400 {object} util.Response "类别或内容不合法"
// @Router /api/tickets [post]
func (c *TicketController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req service.CreateTicketRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ticket, err := c.TicketService.Create(ctx.Request.Context(), claims.UserID, &req)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	go c.ResolutionService.Process(ticket.ID)

	util.Created(ctx, ticket)
}

type PostMessageRequest struct {
	Message     string   `json:"message" binding:"required"`
	Attachments []string `json:"attachments,omitempty"`
}

// PostMessage godoc
// @Summary 追加消息
// @Description 向工单会话追加一条学生消息，已解决/已关闭的工单拒绝
// @Tags 工单
// @Accept  json
// @Produce  json
// @Param   id path int true "工单ID"
// @Param   body body PostMessageRequest true "消息内容"
// @Success 201 {object} util.Response{data=model.Conversation} "追加成功"
// @Failure 404 {object} util.Response "工单不存在"
// @Failure 409 {object} util.Response "工单状态不接受消息"
// @Router /api/tickets/{id}/messages [post]
func (c *TicketController) PostMessage(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	ticketID, ok := parseTicketID(ctx)
	if !ok {
		return
	}

	var req PostMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if !c.ownsTicket(ctx, claims.UserID, ticketID) {
		return
	}

	conv, err := c.TicketService.PostMessage(ctx.Request.Context(), ticketID, model.SenderStudent, &claims.UserID, req.Message, req.Attachments)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	go c.ResolutionService.Process(ticketID)

	util.Created(ctx, conv)
}

// List godoc
// @Summary 我的工单
// @Description 返回当前学生的全部工单及回复摘要
// @Tags 工单
// @Produce  json
// @Success 200 {object} util.Response{data=[]service.TicketSummary}
// @Router /api/tickets [get]
func (c *TicketController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	summaries, err := c.TicketService.ListForStudent(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summaries)
}

// Detail godoc
// @Summary 工单详情
// @Description 返回工单及完整会话，按追加顺序
// @Tags 工单
// @Produce  json
// @Param   id path int true "工单ID"
// @Success 200 {object} util.Response{data=service.TicketDetail}
// @Failure 404 {object} util.Response "工单不存在"
// @Router /api/tickets/{id} [get]
func (c *TicketController) Detail(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	ticketID, ok := parseTicketID(ctx)
	if !ok {
		return
	}

	detail, err := c.TicketService.Get(ticketID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	// 学生只能查看自己的工单
	if claims.Role == model.Student && detail.Ticket.UserID != claims.UserID {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, detail)
}

// Reopen godoc
// @Summary 重开工单
// @Description 将已解决/已关闭的工单重新打开，历史与评分保留
// @Tags 工单
// @Produce  json
// @Param   id path int true "工单ID"
// @Success 200 {object} util.Response{data=model.Ticket}
// @Failure 409 {object} util.Response "工单不在可重开状态"
// @Router /api/tickets/{id}/reopen [post]
func (c *TicketController) Reopen(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	ticketID, ok := parseTicketID(ctx)
	if !ok {
		return
	}
	if !c.ownsTicket(ctx, claims.UserID, ticketID) {
		return
	}

	ticket, err := c.TicketService.Reopen(ctx.Request.Context(), ticketID, model.Student)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, ticket)
}

type RateRequest struct {
	Rating int `json:"rating" binding:"required"`
}

// Rate godoc
// @Summary 评分
// @Description 对已解决的工单打 1-5 分，重复评分覆盖
// @Tags 工单
// @Accept  json
// @Produce  json
// @Param   id path int true "工单ID"
// @Param   body body RateRequest true "评分"
// @Success 200 {object} util.Response{data=model.Ticket}
// @Failure 400 {object} util.Response "评分超出范围"
// @Failure 409 {object} util.Response "工单未解决"
// @Router /api/tickets/{id}/rating [post]
func (c *TicketController) Rate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	ticketID, ok := parseTicketID(ctx)
	if !ok {
		return
	}

	var req RateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ticket, err := c.TicketService.Rate(ctx.Request.Context(), ticketID, claims.UserID, req.Rating)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, ticket)
}

// Categories godoc
// @Summary 工单类别
// @Tags 工单
// @Produce  json
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/tickets/categories [get]
func (c *TicketController) Categories(ctx *gin.Context) {
	util.Success(ctx, model.TicketCategories())
}

func (c *TicketController) ownsTicket(ctx *gin.Context, userID, ticketID uint) bool {
	detail, err := c.TicketService.Get(ticketID)
	if err != nil {
		util.FromError(ctx, err)
		return false
	}
	if detail.Ticket.UserID != userID {
		util.NotFound(ctx)
		return false
	}
	return true
}

func parseTicketID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid ticket id")
		return 0, false
	}
	return uint(id), true
}
