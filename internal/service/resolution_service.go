package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"lms_support_backend/internal/model"
	"lms_support_backend/internal/repository"
	"lms_support_backend/internal/util"
	"lms_support_backend/pkg/logger"
	"lms_support_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// ResolutionService drives automatic resolution after a student writes:
// classify the ticket through the upstream resolver and apply exactly one
// of respond / request_info / escalate. On any resolver failure the ticket
// is left untouched for the admin queue.
type ResolutionService struct {
	resolver  *ResolverService
	tickets   *TicketService
	users     *repository.UserRepository
	analytics *AnalyticsService
}

func NewResolutionService(resolver *ResolverService, tickets *TicketService, users *repository.UserRepository, analytics *AnalyticsService) *ResolutionService {
	return &ResolutionService{
		resolver:  resolver,
		tickets:   tickets,
		users:     users,
		analytics: analytics,
	}
}

// Process runs the resolution pipeline for one ticket. Callers invoke it in
// a background goroutine; errors are logged, never returned to the student.
func (s *ResolutionService) Process(ticketID uint) {
	if !s.resolver.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	detail, err := s.tickets.Get(ticketID)
	if err != nil {
		logger.Log.Warn("resolution: load ticket failed", zap.Uint("ticketId", ticketID), zap.Error(err))
		return
	}
	ticket := detail.Ticket
	// 已解决或已进入人工队列的工单不再触发自动应答
	if ticket.Status != model.StatusOpen && ticket.Status != model.StatusStudentActionRequired {
		return
	}

	user, err := s.users.FindByID(ticket.UserID)
	if err != nil {
		logger.Log.Warn("resolution: load user failed", zap.Uint("ticketId", ticketID), zap.Error(err))
		return
	}

	outcome, err := s.resolver.Classify(ctx, ticket, user, detail.Conversations)
	if err != nil {
		var depErr *util.DependencyError
		if errors.As(err, &depErr) {
			monitoring.ResolverFailures.Inc()
		}
		logger.Log.Error("resolution: classify failed", zap.Uint("ticketId", ticketID), zap.Error(err))
		return
	}

	if err := s.apply(ctx, ticket, outcome); err != nil {
		logger.Log.Error("resolution: apply outcome failed",
			zap.Uint("ticketId", ticketID),
			zap.String("decision", string(outcome.Decision)),
			zap.Error(err))
	}
}

func (s *ResolutionService) apply(ctx context.Context, ticket *model.Ticket, outcome *ResolverOutcome) error {
	switch outcome.Decision {
	case DecisionRespond:
		_, err := s.tickets.ResolveByAgent(ctx, ticket.ID, outcome.Response, outcome.Confidence)
		return err

	case DecisionRequestInfo:
		msg := outcome.Response
		if msg == "" {
			msg = "We need a bit more information to help you: " + strings.Join(outcome.MissingInfo, ", ")
		}
		if _, err := s.tickets.PostMessage(ctx, ticket.ID, model.SenderAgent, nil, msg, nil); err != nil {
			return err
		}
		_, err := s.tickets.SetStatus(ctx, ticket.ID, model.StatusStudentActionRequired, "resolver requested information", nil)
		return err

	case DecisionEscalate:
		assignTo := s.pickAdmin(outcome.AdminType)
		_, err := s.tickets.SetStatus(ctx, ticket.ID, model.StatusAdminActionRequired, outcome.Reason, assignTo)
		if err != nil {
			return err
		}
		s.analytics.LogEvent(ctx, EventEscalated, string(ticket.Category))
		logger.Log.Info("ticket escalated",
			zap.Uint("ticketId", ticket.ID),
			zap.String("adminType", string(outcome.AdminType)),
			zap.String("reason", outcome.Reason))
		return nil

	default:
		return util.NewDependencyError("resolver classify",
			errors.New("unknown decision "+string(outcome.Decision)))
	}
}

// pickAdmin finds an admin of the requested type for assignment. Returns
// nil when none is registered; the ticket still lands on the shared queue.
func (s *ResolutionService) pickAdmin(adminType model.AdminType) *uint {
	if adminType == "" {
		return nil
	}
	admins, err := s.users.FindAdmins(adminType)
	if err != nil || len(admins) == 0 {
		return nil
	}
	return &admins[0].ID
}
