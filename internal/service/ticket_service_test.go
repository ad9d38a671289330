package service

import (
	"context"
	"errors"
	"testing"

	"lms_support_backend/internal/model"
	"lms_support_backend/internal/repository"
	"lms_support_backend/internal/util"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Ticket{}, &model.Conversation{}, &model.KnowledgeDocument{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestTicketService(t *testing.T) (*TicketService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewTicketService(db,
		repository.NewTicketRepository(db),
		repository.NewConversationRepository(db),
		NewAnalyticsService(nil),
	)
	return svc, db
}

func seedStudent(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user := &model.User{Email: "student@example.com", PasswordHash: "x", Role: model.Student}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return user
}

func seedAdmin(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user := &model.User{Email: "admin@example.com", PasswordHash: "x", Role: model.Admin, AdminType: model.AdminTypeIA}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return user
}

func mustCreateTicket(t *testing.T, svc *TicketService, studentID uint) *model.Ticket {
	t.Helper()
	ticket, err := svc.Create(context.Background(), studentID, &CreateTicketRequest{
		Category: model.CategoryCourseQuery,
		Title:    "Doubt about recursion lecture",
		Message:  "I did not follow the base case discussion, can someone help?",
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func TestCreateTicket(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)

	ticket := mustCreateTicket(t, svc, student.ID)

	if ticket.Status != model.StatusOpen {
		t.Errorf("status = %q, want Open", ticket.Status)
	}
	convs, err := svc.Conversation(ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations, want 1", len(convs))
	}
	first := convs[0]
	if first.SenderRole != model.SenderStudent {
		t.Errorf("sender role = %q", first.SenderRole)
	}
	if first.SenderID == nil || *first.SenderID != student.ID {
		t.Errorf("sender id = %v", first.SenderID)
	}
	if first.ConfidenceScore != nil {
		t.Error("student message carries a confidence score")
	}
}

func TestCreateTicketValidation(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateTicketRequest
	}{
		{"unknown category", CreateTicketRequest{Category: "Astrology", Title: "t", Message: "m"}},
		{"missing title", CreateTicketRequest{Category: model.CategoryLeave, Message: "m"}},
		{"missing message", CreateTicketRequest{Category: model.CategoryLeave, Title: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, student.ID, &tt.req)
			var vErr *util.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}

func TestPostMessageAppendsWithoutStatusChange(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)
	admin := seedAdmin(t, db)
	ctx := context.Background()

	ticket := mustCreateTicket(t, svc, student.ID)

	if _, err := svc.Respond(ctx, ticket.ID, admin.ID, "Looking into it."); err != nil {
		t.Fatal(err)
	}
	// Respond 置为处理中，后续学生消息不再改变状态
	if _, err := svc.PostMessage(ctx, ticket.ID, model.SenderStudent, &student.ID, "Thanks, waiting.", nil); err != nil {
		t.Fatal(err)
	}

	detail, err := svc.Get(ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Ticket.Status != model.StatusWIP {
		t.Errorf("status = %q, want Work in Progress", detail.Ticket.Status)
	}
	if len(detail.Conversations) != 3 {
		t.Errorf("got %d conversations, want 3", len(detail.Conversations))
	}
}

func TestPostMessageRejectedOnResolvedAndClosed(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)
	admin := seedAdmin(t, db)
	ctx := context.Background()

	ticket := mustCreateTicket(t, svc, student.ID)
	if _, err := svc.Resolve(ctx, ticket.ID, admin.ID, "Covered in tomorrow's doubt session."); err != nil {
		t.Fatal(err)
	}

	_, err := svc.PostMessage(ctx, ticket.ID, model.SenderStudent, &student.ID, "One more thing", nil)
	var stateErr *util.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("error = %v, want InvalidStateError", err)
	}

	// 被拒绝的消息不落库
	count := int64(0)
	db.Model(&model.Conversation{}).Where("ticket_id = ?", ticket.ID).Count(&count)
	if count != 2 {
		t.Errorf("conversation count = %d, want 2", count)
	}
}

func TestPostMessageUnknownTicket(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)

	_, err := svc.PostMessage(context.Background(), 9999, model.SenderStudent, &student.ID, "hello", nil)
	var nfErr *util.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Errorf("error = %v, want NotFoundError", err)
	}
}

func TestResolveAppendsClosingMessage(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)
	admin := seedAdmin(t, db)
	ctx := context.Background()

	ticket := mustCreateTicket(t, svc, student.ID)
	resolved, err := svc.Resolve(ctx, ticket.ID, admin.ID, "Recording link shared on the portal.")
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != model.StatusResolved {
		t.Errorf("status = %q", resolved.Status)
	}

	detail, _ := svc.Get(ticket.ID)
	last := detail.Conversations[len(detail.Conversations)-1]
	if last.SenderRole != model.SenderAdmin || last.Message != "Recording link shared on the portal." {
		t.Errorf("closing message = %+v", last)
	}

	// 已解决的工单不能再次 resolve
	_, err = svc.Resolve(ctx, ticket.ID, admin.ID, "again")
	var stateErr *util.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Errorf("second resolve error = %v, want InvalidStateError", err)
	}
}

func TestResolveByAgentRecordsConfidence(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)
	ctx := context.Background()

	ticket := mustCreateTicket(t, svc, student.ID)
	if _, err := svc.ResolveByAgent(ctx, ticket.ID, "The base case stops the recursion; see module 3.", 0.87); err != nil {
		t.Fatal(err)
	}

	detail, _ := svc.Get(ticket.ID)
	if detail.Ticket.Status != model.StatusResolved {
		t.Errorf("status = %q", detail.Ticket.Status)
	}
	last := detail.Conversations[len(detail.Conversations)-1]
	if last.SenderRole != model.SenderAgent {
		t.Errorf("sender role = %q", last.SenderRole)
	}
	if last.SenderID != nil {
		t.Error("agent message has a sender id")
	}
	if last.ConfidenceScore == nil || *last.ConfidenceScore != 0.87 {
		t.Errorf("confidence = %v, want 0.87", last.ConfidenceScore)
	}

	_, err := svc.ResolveByAgent(ctx, ticket.ID, "answer", 1.5)
	var vErr *util.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("out-of-range confidence error = %v, want ValidationError", err)
	}
}

func TestReopen(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)
	admin := seedAdmin(t, db)
	ctx := context.Background()

	ticket := mustCreateTicket(t, svc, student.ID)

	// 未解决的工单不能重开
	if _, err := svc.Reopen(ctx, ticket.ID, model.Student); err == nil {
		t.Error("reopen accepted on an open ticket")
	}

	if _, err := svc.Resolve(ctx, ticket.ID, admin.ID, "done"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Rate(ctx, ticket.ID, student.ID, 4); err != nil {
		t.Fatal(err)
	}

	reopened, err := svc.Reopen(ctx, ticket.ID, model.Student)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Status != model.StatusOpen {
		t.Errorf("student reopen status = %q, want Open", reopened.Status)
	}

	// 历史与评分保留，重开不追加消息
	detail, _ := svc.Get(ticket.ID)
	if len(detail.Conversations) != 2 {
		t.Errorf("conversation count = %d, want 2", len(detail.Conversations))
	}
	if detail.Ticket.Rating == nil || *detail.Ticket.Rating != 4 {
		t.Errorf("rating = %v, want retained 4", detail.Ticket.Rating)
	}

	// 管理员重开直接进入待管理员处理
	if _, err := svc.Resolve(ctx, ticket.ID, admin.ID, "done again"); err != nil {
		t.Fatal(err)
	}
	reopened, err = svc.Reopen(ctx, ticket.ID, model.Admin)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Status != model.StatusAdminActionRequired {
		t.Errorf("admin reopen status = %q, want Admin Action Required", reopened.Status)
	}
}

func TestRate(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)
	admin := seedAdmin(t, db)
	other := &model.User{Email: "other@example.com", PasswordHash: "x", Role: model.Student}
	if err := db.Create(other).Error; err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	ticket := mustCreateTicket(t, svc, student.ID)

	// 未解决不能评分
	_, err := svc.Rate(ctx, ticket.ID, student.ID, 5)
	var stateErr *util.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Errorf("rate before resolve error = %v, want InvalidStateError", err)
	}

	if _, err := svc.Resolve(ctx, ticket.ID, admin.ID, "done"); err != nil {
		t.Fatal(err)
	}

	for _, bad := range []int{0, 6, -1} {
		_, err := svc.Rate(ctx, ticket.ID, student.ID, bad)
		var vErr *util.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("rating %d error = %v, want ValidationError", bad, err)
		}
	}

	// 非本人的工单对评分者不可见
	_, err = svc.Rate(ctx, ticket.ID, other.ID, 3)
	var nfErr *util.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Errorf("foreign rate error = %v, want NotFoundError", err)
	}

	if _, err := svc.Rate(ctx, ticket.ID, student.ID, 3); err != nil {
		t.Fatal(err)
	}
	// 重复评分覆盖
	rated, err := svc.Rate(ctx, ticket.ID, student.ID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if rated.Rating == nil || *rated.Rating != 5 {
		t.Errorf("rating = %v, want 5", rated.Rating)
	}
}

func TestSetStatus(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)
	admin := seedAdmin(t, db)
	ctx := context.Background()

	ticket := mustCreateTicket(t, svc, student.ID)

	updated, err := svc.SetStatus(ctx, ticket.ID, model.StatusAdminActionRequired, "needs manual review", &admin.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != model.StatusAdminActionRequired {
		t.Errorf("status = %q", updated.Status)
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != admin.ID {
		t.Errorf("assignedTo = %v", updated.AssignedTo)
	}

	if _, err := svc.SetStatus(ctx, ticket.ID, "Half Open", "", nil); err == nil {
		t.Error("unknown status accepted")
	}

	// 已解决只能通过 reopen 离开
	if _, err := svc.Resolve(ctx, ticket.ID, admin.ID, "done"); err != nil {
		t.Fatal(err)
	}
	_, err = svc.SetStatus(ctx, ticket.ID, model.StatusOpen, "", nil)
	var stateErr *util.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Errorf("set status on resolved error = %v, want InvalidStateError", err)
	}
}

func TestConversationAppendOrder(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)
	admin := seedAdmin(t, db)
	ctx := context.Background()

	ticket := mustCreateTicket(t, svc, student.ID)
	bodies := []string{"second", "third", "fourth", "fifth"}
	for i, body := range bodies {
		sender := model.SenderStudent
		senderID := &student.ID
		if i%2 == 1 {
			sender = model.SenderAdmin
			senderID = &admin.ID
		}
		if _, err := svc.PostMessage(ctx, ticket.ID, sender, senderID, body, nil); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := svc.Conversation(ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != len(bodies)+1 {
		t.Fatalf("got %d conversations", len(convs))
	}
	for i := 1; i < len(convs); i++ {
		if convs[i].ID <= convs[i-1].ID {
			t.Fatalf("append order broken at index %d: %d <= %d", i, convs[i].ID, convs[i-1].ID)
		}
		if convs[i].Message != bodies[i-1] {
			t.Errorf("message[%d] = %q, want %q", i, convs[i].Message, bodies[i-1])
		}
	}
}

func TestListSummaries(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)
	admin := seedAdmin(t, db)
	ctx := context.Background()

	first := mustCreateTicket(t, svc, student.ID)
	second := mustCreateTicket(t, svc, student.ID)

	if _, err := svc.Respond(ctx, first.ID, admin.ID, "On it."); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.PostMessage(ctx, first.ID, model.SenderStudent, &student.ID, "Thanks!", nil); err != nil {
		t.Fatal(err)
	}

	summaries, err := svc.ListForStudent(student.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	byID := map[uint]TicketSummary{}
	for _, s := range summaries {
		byID[s.Ticket.ID] = s
	}
	// 回复数不含首条消息
	if got := byID[first.ID].ResponseCount; got != 2 {
		t.Errorf("first responseCount = %d, want 2", got)
	}
	if got := byID[second.ID].ResponseCount; got != 0 {
		t.Errorf("second responseCount = %d, want 0", got)
	}
	if byID[first.ID].LastResponse != "Thanks!" {
		t.Errorf("lastResponse = %q", byID[first.ID].LastResponse)
	}
}

func TestListForAdminStatusFilter(t *testing.T) {
	svc, db := newTestTicketService(t)
	student := seedStudent(t, db)
	admin := seedAdmin(t, db)
	ctx := context.Background()

	open := mustCreateTicket(t, svc, student.ID)
	done := mustCreateTicket(t, svc, student.ID)
	if _, err := svc.Resolve(ctx, done.ID, admin.ID, "fixed"); err != nil {
		t.Fatal(err)
	}

	resolved, err := svc.ListForAdmin(admin.ID, "resolved")
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 1 || resolved[0].Ticket.ID != done.ID {
		t.Errorf("resolved list = %+v", resolved)
	}

	unresolved, err := svc.ListForAdmin(admin.ID, "unresolved")
	if err != nil {
		t.Fatal(err)
	}
	if len(unresolved) != 1 || unresolved[0].Ticket.ID != open.ID {
		t.Errorf("unresolved list = %+v", unresolved)
	}

	all, err := svc.ListForAdmin(admin.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("unfiltered list has %d entries", len(all))
	}
}

// 完整生命周期：创建 → 管理员留言 → 解决 → 评分 → 重开
func TestTicketLifecycleEndToEnd(t *testing.T) {
	svc, db := newTestTicketService(t)
	ctx := context.Background()
	student := seedStudent(t, db)
	admin := seedAdmin(t, db)

	ticket, err := svc.Create(ctx, student.ID, &CreateTicketRequest{
		Category: model.CategoryCourseQuery,
		Title:    "Cannot access Unit 3",
		Message:  "The unit page keeps loading forever.",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Status != model.StatusOpen {
		t.Fatalf("status after create = %q, want Open", ticket.Status)
	}
	if convs, _ := svc.Conversation(ticket.ID); len(convs) != 1 {
		t.Fatalf("conversation length after create = %d, want 1", len(convs))
	}

	if _, err := svc.PostMessage(ctx, ticket.ID, model.SenderAdmin, &admin.ID, "Please clear your browser cache and retry", nil); err != nil {
		t.Fatalf("admin message: %v", err)
	}
	detail, err := svc.Get(ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.Conversations) != 2 {
		t.Fatalf("conversation length after admin message = %d, want 2", len(detail.Conversations))
	}
	if detail.Ticket.Status != model.StatusOpen {
		t.Errorf("plain message must not change status, got %q", detail.Ticket.Status)
	}

	if _, err := svc.Resolve(ctx, ticket.ID, admin.ID, "Issue fixed, cache was stale"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	detail, _ = svc.Get(ticket.ID)
	if detail.Ticket.Status != model.StatusResolved {
		t.Fatalf("status after resolve = %q, want Resolved", detail.Ticket.Status)
	}
	if len(detail.Conversations) != 3 {
		t.Fatalf("conversation length after resolve = %d, want 3", len(detail.Conversations))
	}

	if _, err := svc.Rate(ctx, ticket.ID, student.ID, 4); err != nil {
		t.Fatalf("rate: %v", err)
	}

	reopened, err := svc.Reopen(ctx, ticket.ID, model.Student)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != model.StatusOpen {
		t.Errorf("status after reopen = %q, want Open", reopened.Status)
	}
	if reopened.Rating == nil || *reopened.Rating != 4 {
		t.Errorf("rating after reopen = %v, want 4 retained", reopened.Rating)
	}
	if convs, _ := svc.Conversation(ticket.ID); len(convs) != 3 {
		t.Errorf("reopen must not append a message, conversation length = %d", len(convs))
	}
}
