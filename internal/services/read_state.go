package services

import (
	"context"
	"time"

	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/pkg/apperrors"
)

// ReadStateReconciler сводит read-состояние: персистентно помечает
// прочитанными входящие сообщения диалога и выравнивает локальные
// счетчики. Вызывается при выборе диалога и при доставке нового
// пользовательского сообщения в выбранный диалог.
type ReadStateReconciler struct {
	msgRepo  repositories.MessageRepository
	store    *ConversationStore
	timeline *MessageTimeline
}

func NewReadStateReconciler(
	msgRepo repositories.MessageRepository,
	store *ConversationStore,
	timeline *MessageTimeline,
) *ReadStateReconciler {
	return &ReadStateReconciler{
		msgRepo:  msgRepo,
		store:    store,
		timeline: timeline,
	}
}

// MarkRead пишет read=true/read_at=now во все непрочитанные
// не-операторские сообщения диалога, затем обнуляет локальный счетчик и
// поднимает флаги в загруженном таймлайне. Повторный вызов - no-op.
func (r *ReadStateReconciler) MarkRead(ctx context.Context, conversationID string) error {
	now := time.Now().UTC()

	start := time.Now()
	ids, err := r.msgRepo.MarkConversationRead(ctx, conversationID, now)
	logger.StoreLog("mark_read", "support.messages", time.Since(start), err)
	if err != nil {
		return apperrors.BackendError(err, "support.messages")
	}

	r.store.ZeroUnread(conversationID)
	if len(ids) > 0 && r.timeline.Current() == conversationID {
		r.timeline.MarkRead(ids, now)
	}
	return nil
}
