package model

import (
	"encoding/json"
	"time"
)

type SenderRole string

const (
	SenderStudent SenderRole = "student"
	SenderAdmin   SenderRole = "admin"
	SenderAgent   SenderRole = "agent"
)

func (r SenderRole) Valid() bool {
	return r == SenderStudent || r == SenderAdmin || r == SenderAgent
}

// Conversation is one entry of a ticket's append-only message log.
// Rows are never updated or deleted; the auto-increment ID is the
// append order, Timestamp is advisory display data.
// swagger:model Conversation
type Conversation struct {
	ID       uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketID uint       `gorm:"index;not null" json:"ticketId"`

	SenderRole SenderRole `gorm:"type:varchar(10);not null" json:"senderRole"`
	// 发送者ID，agent 消息为空
	SenderID *uint  `json:"senderId,omitempty"`
	Message  string `gorm:"type:text;not null" json:"message"`

	// 仅 agent 消息：自动应答置信度 0~1
	ConfidenceScore *float64 `json:"confidenceScore,omitempty"`

	Attachments json.RawMessage `gorm:"type:json" json:"attachments,omitempty"`
	Timestamp   time.Time       `gorm:"not null" json:"timestamp"`

	Ticket Ticket `gorm:"foreignKey:TicketID" json:"-"`
}

func (Conversation) TableName() string {
	return "conversations"
}
