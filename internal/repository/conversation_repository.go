package repository

import (
	"time"

	"lms_support_backend/internal/model"

	"gorm.io/gorm"
)

// ConversationRepository 工单消息的只追加存储。
// 消息一旦写入不再修改或删除；自增ID即追加顺序，
// 顺序相关的查询都按ID排序，时间戳仅用于显示。
type ConversationRepository struct {
	DB *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{DB: db}
}

// Append inserts one message. The caller must hold the ticket's row lock
// (see TicketRepository.LockByID) so per-ticket append order is serialized.
func (r *ConversationRepository) Append(tx *gorm.DB, conv *model.Conversation) error {
	if conv.Timestamp.IsZero() {
		conv.Timestamp = time.Now()
	}
	return tx.Create(conv).Error
}

// List returns the full conversation of a ticket in append order.
func (r *ConversationRepository) List(ticketID uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.DB.Where("ticket_id = ?", ticketID).Order("id asc").Find(&convs).Error
	return convs, err
}

func (r *ConversationRepository) Count(ticketID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Conversation{}).Where("ticket_id = ?", ticketID).Count(&count).Error
	return count, err
}

// Last returns the most recently appended message, by append order.
func (r *ConversationRepository) Last(ticketID uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.DB.Where("ticket_id = ?", ticketID).Order("id desc").First(&conv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// First returns the originating message of a ticket.
func (r *ConversationRepository) First(ticketID uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.DB.Where("ticket_id = ?", ticketID).Order("id asc").First(&conv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}
