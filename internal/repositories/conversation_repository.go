package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/models/support"
)

var ErrConversationNotFound = errors.New("conversation not found")

type ConversationRepository interface {
	// ListAll возвращает все диалоги, отсортированные по last_message_at DESC
	ListAll(ctx context.Context) ([]support.Conversation, error)
	FindByID(ctx context.Context, id string) (*support.Conversation, error)
	UpdateStatus(ctx context.Context, id string, status models.ConversationStatus) error
	// Touch обновляет last_message_at/updated_at после новой записи
	Touch(ctx context.Context, id string, at time.Time) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) ListAll(ctx context.Context) ([]support.Conversation, error) {
	var conversations []support.Conversation
	err := r.db.WithContext(ctx).
		Order("last_message_at DESC").
		Find(&conversations).Error
	return conversations, err
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*support.Conversation, error) {
	var conversation support.Conversation
	err := r.db.WithContext(ctx).First(&conversation, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepository) UpdateStatus(ctx context.Context, id string, status models.ConversationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&support.Conversation{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (r *conversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&support.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_at": at,
			"updated_at":      at,
		}).Error
}
