package realtime

import (
	"encoding/json"
	"time"

	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/models/support"
)

type Table string
type EventKind string

const (
	TableMessages      Table = "messages"
	TableConversations Table = "conversations"

	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
)

// ChangeEvent - одно асинхронное изменение удаленного хранилища.
// Заполнено ровно одно из полей Message/Conversation, по таблице.
type ChangeEvent struct {
	Table        Table
	Kind         EventKind
	Message      *support.Message
	Conversation *support.Conversation
}

// notifyPayload - формат NOTIFY-сообщения, собираемого триггером:
// {"table": "...", "event": "...", "row": {...}}
type notifyPayload struct {
	Table Table           `json:"table"`
	Event EventKind       `json:"event"`
	Row   json.RawMessage `json:"row"`
}

type messageRow struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	SenderType     string     `json:"sender_type"`
	Body           string     `json:"body"`
	Read           bool       `json:"read"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type conversationRow struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	AssignedAdminID *string         `json:"assigned_admin_id"`
	Status          string          `json:"status"`
	Subject         string          `json:"subject"`
	Meta            json.RawMessage `json:"meta"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	LastMessageAt   time.Time       `json:"last_message_at"`
}

// ParseEvent разбирает полезную нагрузку NOTIFY в ChangeEvent
func ParseEvent(payload []byte) (ChangeEvent, error) {
	var raw notifyPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return ChangeEvent{}, err
	}

	event := ChangeEvent{Table: raw.Table, Kind: raw.Event}

	switch raw.Table {
	case TableMessages:
		var row messageRow
		if err := json.Unmarshal(raw.Row, &row); err != nil {
			return ChangeEvent{}, err
		}
		event.Message = &support.Message{
			ID:             row.ID,
			ConversationID: row.ConversationID,
			SenderID:       row.SenderID,
			SenderType:     models.SenderType(row.SenderType),
			Body:           row.Body,
			Read:           row.Read,
			ReadAt:         row.ReadAt,
			CreatedAt:      row.CreatedAt,
		}
	case TableConversations:
		var row conversationRow
		if err := json.Unmarshal(raw.Row, &row); err != nil {
			return ChangeEvent{}, err
		}
		event.Conversation = &support.Conversation{
			ID:              row.ID,
			UserID:          row.UserID,
			AssignedAdminID: row.AssignedAdminID,
			Status:          models.ConversationStatus(row.Status),
			Subject:         row.Subject,
			Meta:            []byte(row.Meta),
			CreatedAt:       row.CreatedAt,
			UpdatedAt:       row.UpdatedAt,
			LastMessageAt:   row.LastMessageAt,
		}
	}

	return event, nil
}
