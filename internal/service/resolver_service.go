package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"lms_support_backend/internal/config"
	"lms_support_backend/internal/model"
	"lms_support_backend/internal/util"
)

// ResolverDecision 自动应答服务的决策类型。
type ResolverDecision string

const (
	DecisionRespond     ResolverDecision = "respond"
	DecisionRequestInfo ResolverDecision = "request_info"
	DecisionEscalate    ResolverDecision = "escalate"
)

// ResolverOutcome is what the external classify/answer service returns.
// The core records this verbatim; it never computes confidence itself.
type ResolverOutcome struct {
	Decision    ResolverDecision `json:"decision"`
	Response    string           `json:"response,omitempty"`
	MissingInfo []string         `json:"missing_info,omitempty"`
	Reason      string           `json:"escalation_reason,omitempty"`
	AdminType   model.AdminType  `json:"admin_type,omitempty"`
	Confidence  float64          `json:"confidence"`
}

type resolverMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type resolverRequest struct {
	TicketID       uint              `json:"ticket_id"`
	Category       string            `json:"category"`
	Title          string            `json:"title"`
	Query          string            `json:"query"`
	CourseCategory string            `json:"course_category,omitempty"`
	CourseName     string            `json:"course_name,omitempty"`
	History        []resolverMessage `json:"history,omitempty"`
}

// ResolverService 外部自动应答服务的HTTP客户端。
// 超时与失败包装为 DependencyError 向上传递，不触发任何状态变更。
type ResolverService struct {
	config config.ResolverConfig
	client *http.Client
}

func NewResolverService(cfg config.ResolverConfig) *ResolverService {
	return &ResolverService{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether an upstream resolver is configured at all.
func (s *ResolverService) Enabled() bool {
	return s.config.BaseURL != ""
}

// Classify hands the ticket's category and conversation to the resolver and
// returns its recorded outcome. The caller bounds the call with ctx.
func (s *ResolverService) Classify(ctx context.Context, ticket *model.Ticket, user *model.User, history []model.Conversation) (*ResolverOutcome, error) {
	reqBody := resolverRequest{
		TicketID: ticket.ID,
		Category: string(ticket.Category),
		Title:    ticket.Title,
		Query:    ticket.Message,
	}
	if user != nil {
		reqBody.CourseCategory = user.CourseCategory
		reqBody.CourseName = user.CourseName
	}
	for _, conv := range history {
		reqBody.History = append(reqBody.History, resolverMessage{
			Role:    string(conv.SenderRole),
			Content: conv.Message,
		})
		// 最后一条学生消息是当前待处理的问题
		if conv.SenderRole == model.SenderStudent {
			reqBody.Query = conv.Message
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/classify", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, util.NewDependencyError("resolver", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, util.NewDependencyError("resolver", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, util.NewDependencyError("resolver",
			fmt.Errorf("resolver API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var outcome ResolverOutcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return nil, util.NewDependencyError("resolver", err)
	}

	switch outcome.Decision {
	case DecisionRespond, DecisionRequestInfo, DecisionEscalate:
	default:
		return nil, util.NewDependencyError("resolver",
			fmt.Errorf("unknown resolver decision %q", outcome.Decision))
	}

	return &outcome, nil
}
