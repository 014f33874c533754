package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/models/support"
)

type MessageRepository interface {
	// ListByConversation возвращает сообщения диалога, created_at ASC, id ASC
	ListByConversation(ctx context.Context, conversationID string) ([]support.Message, error)
	// CountUnread считает непрочитанные не-операторские сообщения
	CountUnread(ctx context.Context, conversationID string) (int64, error)
	// FindLast возвращает последнее сообщение диалога или nil, если их нет
	FindLast(ctx context.Context, conversationID string) (*support.Message, error)
	Insert(ctx context.Context, message *support.Message) error
	// MarkConversationRead помечает прочитанными все непрочитанные
	// не-операторские сообщения диалога и возвращает их id
	MarkConversationRead(ctx context.Context, conversationID string, at time.Time) ([]string, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string) ([]support.Message, error) {
	var messages []support.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) CountUnread(ctx context.Context, conversationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&support.Message{}).
		Where("conversation_id = ? AND sender_type <> ? AND read = ?", conversationID, models.SenderAdmin, false).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) FindLast(ctx context.Context, conversationID string) (*support.Message, error) {
	var message support.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) Insert(ctx context.Context, message *support.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) MarkConversationRead(ctx context.Context, conversationID string, at time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&support.Message{}).
		Where("conversation_id = ? AND sender_type <> ? AND read = ?", conversationID, models.SenderAdmin, false).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err = r.db.WithContext(ctx).
		Model(&support.Message{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"read":    true,
			"read_at": at,
		}).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
