package support

import (
	"time"

	"helpdesk_backend/internal/models"
)

type Message struct {
	ID             string            `gorm:"primaryKey;type:uuid"`
	ConversationID string            `gorm:"index;not null"`
	SenderID       string            `gorm:"index;not null"`
	SenderType     models.SenderType `gorm:"type:varchar(10);not null"` // user, admin
	Body           string            `gorm:"type:text"`
	Read           bool              `gorm:"default:false;index"`
	ReadAt         *time.Time
	CreatedAt      time.Time `gorm:"index"`
}

func (Message) TableName() string {
	return "support.messages"
}

// FromUser сообщает, отправлено ли сообщение конечным пользователем.
// Только такие сообщения участвуют в учете непрочитанного.
func (m *Message) FromUser() bool {
	return m.SenderType != models.SenderAdmin
}
