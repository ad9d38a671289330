package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lms_support_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 分析事件类型
const (
	EventTicketCreated = "ticket_created"
	EventAgentResolved = "agent_resolved"
	EventHumanResolved = "human_resolved"
	EventEscalated     = "escalated"
)

// AnalyticsService 基于Redis的按天计数器，驱动管理端看板。
// 记录失败只打日志，绝不影响工单操作本身。
type AnalyticsService struct {
	rdb *redis.Client
}

func NewAnalyticsService(rdb *redis.Client) *AnalyticsService {
	return &AnalyticsService{rdb: rdb}
}

func (s *AnalyticsService) key(metric, date string) string {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return fmt.Sprintf("analytics:%s:%s", date, metric)
}

// LogEvent increments today's counter for eventType, and a per-category
// counter when category is non-empty.
func (s *AnalyticsService) LogEvent(ctx context.Context, eventType, category string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Incr(ctx, s.key(eventType, "")).Err(); err != nil {
		logger.Log.Warn("analytics incr failed", zap.String("event", eventType), zap.Error(err))
		return
	}
	if category != "" {
		s.rdb.Incr(ctx, s.key(eventType+"_by_category:"+category, ""))
	}
}

// LogConfidence records one agent confidence sample for today.
func (s *AnalyticsService) LogConfidence(ctx context.Context, score float64) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.RPush(ctx, s.key("agent_confidence_scores", ""), score).Err(); err != nil {
		logger.Log.Warn("analytics rpush failed", zap.Error(err))
	}
}

type AnalyticsSummary struct {
	TotalCreated           int64   `json:"totalCreated"`
	TotalAgentResolved     int64   `json:"totalAgentResolved"`
	TotalHumanResolved     int64   `json:"totalHumanResolved"`
	TotalEscalated         int64   `json:"totalEscalated"`
	AgentSuccessRate       float64 `json:"agentSuccessRate"`
	AverageConfidenceScore float64 `json:"averageConfidenceScore"`
}

type AnalyticsReport struct {
	Summary     AnalyticsSummary            `json:"summary"`
	DailyTrends map[string]map[string]int64 `json:"dailyTrends"`
}

// GetAnalytics aggregates the last `days` day-buckets.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, days int) (*AnalyticsReport, error) {
	if days <= 0 {
		days = 7
	}

	metrics := []string{EventTicketCreated, EventAgentResolved, EventHumanResolved, EventEscalated}
	daily := make(map[string]map[string]int64, len(metrics))
	totals := make(map[string]int64, len(metrics))
	for _, m := range metrics {
		daily[m] = make(map[string]int64, days)
	}

	var confidences []float64
	today := time.Now()
	for d := 0; d < days; d++ {
		date := today.AddDate(0, 0, -d).Format("2006-01-02")
		for _, m := range metrics {
			val, err := s.rdb.Get(ctx, s.key(m, date)).Result()
			if err != nil && err != redis.Nil {
				return nil, err
			}
			count, _ := strconv.ParseInt(val, 10, 64)
			daily[m][date] = count
			totals[m] += count
		}

		scores, err := s.rdb.LRange(ctx, s.key("agent_confidence_scores", date), 0, -1).Result()
		if err != nil && err != redis.Nil {
			return nil, err
		}
		for _, raw := range scores {
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				confidences = append(confidences, f)
			}
		}
	}

	summary := AnalyticsSummary{
		TotalCreated:       totals[EventTicketCreated],
		TotalAgentResolved: totals[EventAgentResolved],
		TotalHumanResolved: totals[EventHumanResolved],
		TotalEscalated:     totals[EventEscalated],
	}
	if attempted := summary.TotalAgentResolved + summary.TotalEscalated; attempted > 0 {
		summary.AgentSuccessRate = round2(float64(summary.TotalAgentResolved) / float64(attempted) * 100)
	}
	if len(confidences) > 0 {
		var sum float64
		for _, f := range confidences {
			sum += f
		}
		summary.AverageConfidenceScore = round2(sum / float64(len(confidences)) * 100)
	}

	return &AnalyticsReport{Summary: summary, DailyTrends: daily}, nil
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
