package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/models/support"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/internal/services/dto"
	"helpdesk_backend/pkg/apperrors"
)

// SendPipeline выполняет исходящую запись сообщения и публикует
// оптимистичное локальное обновление, не дожидаясь echo из
// realtime-канала. Отправки сериализуются: одна в полете, без очереди.
type SendPipeline struct {
	msgRepo  repositories.MessageRepository
	convRepo repositories.ConversationRepository
	resolver *ProfileResolver
	timeline *MessageTimeline
	store    *ConversationStore

	mu       sync.Mutex
	inFlight bool
}

func NewSendPipeline(
	msgRepo repositories.MessageRepository,
	convRepo repositories.ConversationRepository,
	resolver *ProfileResolver,
	timeline *MessageTimeline,
	store *ConversationStore,
) *SendPipeline {
	return &SendPipeline{
		msgRepo:  msgRepo,
		convRepo: convRepo,
		resolver: resolver,
		timeline: timeline,
		store:    store,
	}
}

// Send пишет сообщение оператора. К моменту успешного возврата запись
// надежно сохранена удаленно и видна в таймлайне ровно один раз, хотя
// realtime-канал позже доставит ту же строку (Append подавит дубликат).
// При отказе записи локальное состояние не трогается вовсе.
func (p *SendPipeline) Send(ctx context.Context, conversationID, body, operatorID string) (*dto.MessageView, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return nil, apperrors.ErrAlreadySending
	}
	p.inFlight = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	now := time.Now().UTC()
	readAt := now
	message := &support.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       operatorID,
		SenderType:     models.SenderAdmin,
		Body:           body,
		Read:           true, // свое сообщение оператор "прочитал" по определению
		ReadAt:         &readAt,
		CreatedAt:      now,
	}

	start := time.Now()
	err := p.msgRepo.Insert(ctx, message)
	logger.StoreLog("insert", "support.messages", time.Since(start), err)
	if err != nil {
		// Никакого частичного append: состояние остается нетронутым
		return nil, apperrors.SendFailed(err)
	}

	// Best-effort: сама запись уже легла, отказ touch только логируется
	if err := p.convRepo.Touch(ctx, conversationID, now); err != nil {
		logger.CtxWithError(ctx, "conversation touch failed after send", err,
			"conversation_id", conversationID)
	}

	identity, err := p.resolver.Resolve(ctx, operatorID, models.RoleAdmin)
	if err != nil {
		logger.CtxWithError(ctx, "operator resolution degraded", err, "operator_id", operatorID)
	}

	view := messageView(message, identity)

	p.timeline.Append(view)
	if !p.store.ApplyIncomingMessageSignal(conversationID, body, now, false, true) {
		logger.CtxWarn(ctx, "sent into conversation missing from local list", "conversation_id", conversationID)
	}
	return &view, nil
}
