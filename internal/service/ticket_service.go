package service

import (
	"context"
	"encoding/json"
	"strconv"

	"lms_support_backend/internal/model"
	"lms_support_backend/internal/repository"
	"lms_support_backend/internal/util"
	"lms_support_backend/pkg/logger"
	"lms_support_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TicketService 工单生命周期管理：状态流转、消息追加、解决、评分、重开。
// 每一次状态变更都在持有工单行锁的事务内完成，并发的
// resolve/reopen 串行化，只有一个成功，另一个观察到变更后的状态被拒绝。
type TicketService struct {
	db        *gorm.DB
	tickets   *repository.TicketRepository
	convs     *repository.ConversationRepository
	analytics *AnalyticsService
}

func NewTicketService(db *gorm.DB, tickets *repository.TicketRepository, convs *repository.ConversationRepository, analytics *AnalyticsService) *TicketService {
	return &TicketService{
		db:        db,
		tickets:   tickets,
		convs:     convs,
		analytics: analytics,
	}
}

type CreateTicketRequest struct {
	Category        model.TicketCategory   `json:"category" binding:"required"`
	Title           string                 `json:"title" binding:"required"`
	Message         string                 `json:"message" binding:"required"`
	SubcategoryData map[string]interface{} `json:"subcategoryData,omitempty"`
	FromDate        string                 `json:"fromDate,omitempty"`
	ToDate          string                 `json:"toDate,omitempty"`
	Attachments     []string               `json:"attachments,omitempty"`
}

// TicketDetail 工单详情：工单加完整会话
type TicketDetail struct {
	Ticket        *model.Ticket        `json:"ticket"`
	Conversations []model.Conversation `json:"conversations"`
}

// TicketSummary 列表项：工单加回复数与最后一条消息
type TicketSummary struct {
	model.Ticket
	ResponseCount    int64  `json:"responseCount"`
	LastResponse     string `json:"lastResponse,omitempty"`
	LastResponseTime string `json:"lastResponseTime,omitempty"`
}

// Create validates the request and creates the ticket with its originating
// student message in one transaction.
func (s *TicketService) Create(ctx context.Context, studentID uint, req *CreateTicketRequest) (*model.Ticket, error) {
	if !req.Category.Valid() {
		return nil, util.NewValidationError("category", "unknown ticket category "+string(req.Category))
	}
	if req.Title == "" {
		return nil, util.NewValidationError("title", "title is required")
	}
	if req.Message == "" {
		return nil, util.NewValidationError("message", "message is required")
	}

	ticket := &model.Ticket{
		UserID:   studentID,
		Category: req.Category,
		Status:   model.StatusOpen,
		Title:    req.Title,
		Message:  req.Message,
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
	}
	if req.SubcategoryData != nil {
		raw, err := json.Marshal(req.SubcategoryData)
		if err != nil {
			return nil, util.NewValidationError("subcategoryData", "not serializable")
		}
		ticket.SubcategoryData = raw
	}
	attachments := marshalAttachments(req.Attachments)
	ticket.Attachments = attachments

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.tickets.Create(tx, ticket); err != nil {
			return err
		}
		return s.convs.Append(tx, &model.Conversation{
			TicketID:    ticket.ID,
			SenderRole:  model.SenderStudent,
			SenderID:    &studentID,
			Message:     req.Message,
			Attachments: attachments,
		})
	})
	if err != nil {
		return nil, err
	}

	s.analytics.LogEvent(ctx, EventTicketCreated, string(ticket.Category))
	monitoring.TicketsCreated.WithLabelValues(string(ticket.Category)).Inc()
	logger.Log.Info("ticket created",
		zap.Uint("ticketId", ticket.ID),
		zap.String("category", string(ticket.Category)))
	return ticket, nil
}

// PostMessage appends a message to an open conversation. Tickets in
// Resolved or Closed reject new messages; the only message that may land
// on a resolving ticket is the closing message written by Resolve itself.
// Appending never changes the status.
func (s *TicketService) PostMessage(ctx context.Context, ticketID uint, senderRole model.SenderRole, senderID *uint, body string, attachments []string) (*model.Conversation, error) {
	if !senderRole.Valid() {
		return nil, util.NewValidationError("senderRole", "unknown sender role "+string(senderRole))
	}
	if body == "" {
		return nil, util.NewValidationError("message", "message is required")
	}

	conv := &model.Conversation{
		TicketID:    ticketID,
		SenderRole:  senderRole,
		SenderID:    senderID,
		Message:     body,
		Attachments: marshalAttachments(attachments),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		ticket, err := s.tickets.LockByID(tx, ticketID)
		if err != nil {
			return translateNotFound(err, ticketID)
		}
		if !ticket.Status.AcceptsMessages() {
			return util.NewInvalidStateError(ticketID, string(ticket.Status), "post message")
		}
		if err := s.convs.Append(tx, conv); err != nil {
			return err
		}
		return s.tickets.Touch(tx, ticketID)
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Resolve closes out a ticket: appends the closing message as an
// admin-authored entry and moves the ticket to Resolved. Allowed from any
// non-terminal status; resolving an already Resolved (or Closed) ticket is
// rejected — it must be reopened first.
func (s *TicketService) Resolve(ctx context.Context, ticketID uint, adminID uint, closingMessage string) (*model.Ticket, error) {
	if closingMessage == "" {
		return nil, util.NewValidationError("message", "closing message is required")
	}

	closing := &model.Conversation{
		TicketID:   ticketID,
		SenderRole: model.SenderAdmin,
		SenderID:   &adminID,
		Message:    closingMessage,
	}
	ticket, err := s.resolveWith(ticketID, closing, &adminID)
	if err != nil {
		return nil, err
	}

	s.analytics.LogEvent(ctx, EventHumanResolved, string(ticket.Category))
	monitoring.TicketsResolved.WithLabelValues("admin").Inc()
	return ticket, nil
}

// ResolveByAgent records an automated resolution: the resolver's answer is
// appended as an agent message carrying its confidence score, then the
// ticket moves to Resolved. The score is recorded verbatim, never computed
// here.
func (s *TicketService) ResolveByAgent(ctx context.Context, ticketID uint, answer string, confidence float64) (*model.Ticket, error) {
	if answer == "" {
		return nil, util.NewValidationError("message", "closing message is required")
	}
	if confidence < 0 || confidence > 1 {
		return nil, util.NewValidationError("confidence", "confidence must be between 0 and 1")
	}

	closing := &model.Conversation{
		TicketID:        ticketID,
		SenderRole:      model.SenderAgent,
		Message:         answer,
		ConfidenceScore: &confidence,
	}
	ticket, err := s.resolveWith(ticketID, closing, nil)
	if err != nil {
		return nil, err
	}

	s.analytics.LogEvent(ctx, EventAgentResolved, string(ticket.Category))
	s.analytics.LogConfidence(ctx, confidence)
	monitoring.TicketsResolved.WithLabelValues("agent").Inc()
	return ticket, nil
}

func (s *TicketService) resolveWith(ticketID uint, closing *model.Conversation, assignTo *uint) (*model.Ticket, error) {
	var resolved *model.Ticket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ticket, err := s.tickets.LockByID(tx, ticketID)
		if err != nil {
			return translateNotFound(err, ticketID)
		}
		if ticket.Status == model.StatusResolved || ticket.Status == model.StatusClosed {
			return util.NewInvalidStateError(ticketID, string(ticket.Status), "resolve")
		}
		// 结单消息作为解决动作的一部分追加，先写消息再置状态
		if err := s.convs.Append(tx, closing); err != nil {
			return err
		}
		if err := s.tickets.UpdateStatus(tx, ticket, model.StatusResolved, assignTo); err != nil {
			return err
		}
		resolved = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// Reopen moves a Resolved or Closed ticket back to an actionable status.
// The target depends on who reopens: a student lands it back on Open, an
// admin puts it straight on the admin queue. History and rating are kept;
// no message is appended.
func (s *TicketService) Reopen(ctx context.Context, ticketID uint, by model.UserRole) (*model.Ticket, error) {
	next := model.StatusOpen
	if by == model.Admin {
		next = model.StatusAdminActionRequired
	}

	var reopened *model.Ticket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ticket, err := s.tickets.LockByID(tx, ticketID)
		if err != nil {
			return translateNotFound(err, ticketID)
		}
		if ticket.Status != model.StatusResolved && ticket.Status != model.StatusClosed {
			return util.NewInvalidStateError(ticketID, string(ticket.Status), "reopen")
		}
		if err := s.tickets.UpdateStatus(tx, ticket, next, nil); err != nil {
			return err
		}
		reopened = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("ticket reopened",
		zap.Uint("ticketId", ticketID),
		zap.String("by", string(by)),
		zap.String("status", string(next)))
	return reopened, nil
}

// Rate attaches a 1-5 rating to a Resolved ticket owned by studentID.
// Re-rating overwrites the previous value.
func (s *TicketService) Rate(ctx context.Context, ticketID uint, studentID uint, rating int) (*model.Ticket, error) {
	if rating < 1 || rating > 5 {
		return nil, util.NewValidationError("rating", "rating must be an integer between 1 and 5")
	}

	var rated *model.Ticket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ticket, err := s.tickets.LockByID(tx, ticketID)
		if err != nil {
			return translateNotFound(err, ticketID)
		}
		if ticket.UserID != studentID {
			return util.NewNotFoundError("ticket", itoa(ticketID))
		}
		if ticket.Status != model.StatusResolved {
			return util.NewInvalidStateError(ticketID, string(ticket.Status), "rate")
		}
		if err := s.tickets.SetRating(tx, ticket, rating); err != nil {
			return err
		}
		rated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rated, nil
}

// SetStatus is the generic transition used by the resolution pipeline
// (e.g. escalation to Admin Action Required). Resolved and Closed can only
// be left through Reopen, so they reject this entry point.
func (s *TicketService) SetStatus(ctx context.Context, ticketID uint, newStatus model.TicketStatus, reason string, assignTo *uint) (*model.Ticket, error) {
	if !newStatus.Valid() {
		return nil, util.NewValidationError("status", "unknown ticket status "+string(newStatus))
	}

	var updated *model.Ticket
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ticket, err := s.tickets.LockByID(tx, ticketID)
		if err != nil {
			return translateNotFound(err, ticketID)
		}
		if ticket.Status == model.StatusResolved || ticket.Status == model.StatusClosed {
			return util.NewInvalidStateError(ticketID, string(ticket.Status), "set status")
		}
		if err := s.tickets.UpdateStatus(tx, ticket, newStatus, assignTo); err != nil {
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("ticket status set",
		zap.Uint("ticketId", ticketID),
		zap.String("status", string(newStatus)),
		zap.String("reason", reason))
	return updated, nil
}

// Respond is the admin reply operation: appends the admin's message, takes
// assignment, and moves the ticket to Work in Progress.
func (s *TicketService) Respond(ctx context.Context, ticketID uint, adminID uint, message string) (*model.Conversation, error) {
	if message == "" {
		return nil, util.NewValidationError("message", "message is required")
	}

	conv := &model.Conversation{
		TicketID:   ticketID,
		SenderRole: model.SenderAdmin,
		SenderID:   &adminID,
		Message:    message,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ticket, err := s.tickets.LockByID(tx, ticketID)
		if err != nil {
			return translateNotFound(err, ticketID)
		}
		if !ticket.Status.AcceptsMessages() {
			return util.NewInvalidStateError(ticketID, string(ticket.Status), "respond")
		}
		if err := s.convs.Append(tx, conv); err != nil {
			return err
		}
		return s.tickets.UpdateStatus(tx, ticket, model.StatusWIP, &adminID)
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Get returns the ticket with its full conversation in append order.
func (s *TicketService) Get(ticketID uint) (*TicketDetail, error) {
	ticket, err := s.tickets.FindByID(ticketID)
	if err != nil {
		return nil, translateNotFound(err, ticketID)
	}
	convs, err := s.convs.List(ticketID)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{Ticket: ticket, Conversations: convs}, nil
}

// ListForStudent returns the student's tickets with reply counts.
func (s *TicketService) ListForStudent(userID uint) ([]TicketSummary, error) {
	tickets, err := s.tickets.ListForStudent(userID)
	if err != nil {
		return nil, err
	}
	return s.summarize(tickets)
}

// ListForAdmin returns tickets visible to the admin, optionally filtered
// into resolved (Resolved or Closed) and unresolved groups.
func (s *TicketService) ListForAdmin(adminID uint, statusFilter string) ([]TicketSummary, error) {
	tickets, err := s.tickets.ListForAdmin(adminID, statusFilter)
	if err != nil {
		return nil, err
	}
	return s.summarize(tickets)
}

func (s *TicketService) summarize(tickets []model.Ticket) ([]TicketSummary, error) {
	summaries := make([]TicketSummary, 0, len(tickets))
	for _, t := range tickets {
		count, err := s.convs.Count(t.ID)
		if err != nil {
			return nil, err
		}
		summary := TicketSummary{Ticket: t}
		// 回复数不含学生的首条消息
		if count > 0 {
			summary.ResponseCount = count - 1
		}
		last, err := s.convs.Last(t.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			summary.LastResponse = last.Message
			summary.LastResponseTime = last.Timestamp.Format("2006-01-02T15:04:05Z07:00")
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Conversation returns the message log in append order.
func (s *TicketService) Conversation(ticketID uint) ([]model.Conversation, error) {
	if _, err := s.tickets.FindByID(ticketID); err != nil {
		return nil, translateNotFound(err, ticketID)
	}
	return s.convs.List(ticketID)
}

func marshalAttachments(attachments []string) json.RawMessage {
	if len(attachments) == 0 {
		return nil
	}
	raw, err := json.Marshal(attachments)
	if err != nil {
		return nil
	}
	return raw
}

func translateNotFound(err error, ticketID uint) error {
	if err == gorm.ErrRecordNotFound {
		return util.NewNotFoundError("ticket", itoa(ticketID))
	}
	return err
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
