package support

import (
	"time"

	"gorm.io/datatypes"

	"helpdesk_backend/internal/models"
)

type Conversation struct {
	ID              string                    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID          string                    `gorm:"index;not null"`
	AssignedAdminID *string                   `gorm:"index"`
	Status          models.ConversationStatus `gorm:"type:varchar(20);default:'open';index"`
	Subject         string                    `gorm:"type:varchar(200)"`
	Meta            datatypes.JSON            `gorm:"type:jsonb"` // {"page": "...", "user_agent": "..."}
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastMessageAt   time.Time `gorm:"index"`
}

func (Conversation) TableName() string {
	return "support.conversations"
}
