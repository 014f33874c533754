package dto

import (
	"encoding/json"
	"time"

	"helpdesk_backend/internal/models"
)

// Request/Response structures

type SendMessageRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,is-conversation-status"`
}

type SetFilterRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=all open pending closed"`
	Query  string `json:"query" validate:"max=200"`
}

type SelectConversationRequest struct {
	ConversationID string `json:"conversation_id" validate:"required,uuid"`
}

// Filter - фильтр списка диалогов. Применяется только к представлению,
// хранимые данные не мутирует.
type Filter struct {
	Status string `json:"status"` // all, open, pending, closed
	Query  string `json:"query"`
}

// ConversationView - обогащенная строка списка диалогов
type ConversationView struct {
	ID              string                    `json:"id"`
	UserID          string                    `json:"user_id"`
	AssignedAdminID *string                   `json:"assigned_admin_id,omitempty"`
	Status          models.ConversationStatus `json:"status"`
	Subject         string                    `json:"subject"`
	Meta            json.RawMessage           `json:"meta,omitempty"`
	User            models.Identity           `json:"user"`
	UnreadCount     int                       `json:"unread_count"`
	LastMessage     string                    `json:"last_message"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
	LastMessageAt   time.Time                 `json:"last_message_at"`
}

// MessageView - сообщение таймлайна с разрешенным отправителем
type MessageView struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	SenderID       string            `json:"sender_id"`
	SenderType     models.SenderType `json:"sender_type"`
	Sender         models.Identity   `json:"sender"`
	Body           string            `json:"body"`
	Read           bool              `json:"read"`
	ReadAt         *time.Time        `json:"read_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// InboxStats - производная статистика по всем удерживаемым диалогам.
// Пересчитывается при каждой мутации стора, инкрементально не ведется.
type InboxStats struct {
	Total       int `json:"total"`
	Open        int `json:"open"`
	Pending     int `json:"pending"`
	Closed      int `json:"closed"`
	TotalUnread int `json:"total_unread"`
}

// ConversationsSnapshot - срез списка диалогов для UI
type ConversationsSnapshot struct {
	Conversations []ConversationView `json:"conversations"`
	Stats         InboxStats         `json:"stats"`
	Filter        Filter             `json:"filter"`
}

// TimelineSnapshot - срез таймлайна выбранного диалога для UI
type TimelineSnapshot struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []MessageView `json:"messages"`
	Empty          bool          `json:"empty"` // "no messages" состояние
}
