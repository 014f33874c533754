package services

import (
	"context"
	"sync"
	"time"

	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/models/support"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/internal/services/dto"
	"helpdesk_backend/pkg/apperrors"
)

// MessageTimeline держит упорядоченную последовательность сообщений
// ровно одного диалога. Порядок: created_at ASC, при равенстве id ASC.
// Append идемпотентен по id: повторная вставка того же сообщения
// (оптимистичная отправка против echo из realtime-канала) молча
// игнорируется.
type MessageTimeline struct {
	msgRepo  repositories.MessageRepository
	resolver *ProfileResolver

	mu             sync.Mutex
	conversationID string
	generation     uint64
	entries        []dto.MessageView
	seen           map[string]bool
}

func NewMessageTimeline(msgRepo repositories.MessageRepository, resolver *ProfileResolver) *MessageTimeline {
	return &MessageTimeline{
		msgRepo:  msgRepo,
		resolver: resolver,
		seen:     make(map[string]bool),
	}
}

// Select фиксирует новый выбранный диалог и сбрасывает таймлайн.
// Результаты загрузок, начатых до этого вызова, будут отброшены.
func (t *MessageTimeline) Select(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conversationID = conversationID
	t.generation++
	t.entries = nil
	t.seen = make(map[string]bool)
}

// Current возвращает id выбранного диалога ("" если ничего не выбрано)
func (t *MessageTimeline) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conversationID
}

// Load выбирает все сообщения диалога и заменяет таймлайн целиком.
// Это единственная замещающая операция. Если за время загрузки выбор
// сменился, результат отбрасывается (guard по выбранному id и
// поколению на момент старта).
func (t *MessageTimeline) Load(ctx context.Context) error {
	t.mu.Lock()
	conversationID := t.conversationID
	generation := t.generation
	t.mu.Unlock()

	if conversationID == "" {
		return apperrors.ErrNoConversationSelected
	}

	start := time.Now()
	messages, err := t.msgRepo.ListByConversation(ctx, conversationID)
	logger.StoreLog("list", "support.messages", time.Since(start), err)
	if err != nil {
		return apperrors.BackendError(err, "support.messages")
	}

	views := make([]dto.MessageView, 0, len(messages))
	seen := make(map[string]bool, len(messages))
	for i := range messages {
		views = append(views, t.buildView(ctx, &messages[i]))
		seen[messages[i].ID] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conversationID != conversationID || t.generation != generation {
		// Выбор сменился, пока ответ был в полете
		return apperrors.ErrStaleResponse
	}
	t.entries = views
	t.seen = seen
	return nil
}

func (t *MessageTimeline) buildView(ctx context.Context, message *support.Message) dto.MessageView {
	role := message.SenderType.SenderRole()
	identity, err := t.resolver.Resolve(ctx, message.SenderID, role)
	if err != nil {
		// Resolve при ошибке отдает плейсхолдер; строка деградирует, не падает
		logger.CtxWithError(ctx, "sender resolution degraded", err, "message_id", message.ID)
	}
	return messageView(message, identity)
}

// Append вставляет сообщение в упорядоченную последовательность, если
// записи с таким id еще нет. Дубликат - тихий no-op, не ошибка.
// Возвращает true, если запись была вставлена.
func (t *MessageTimeline) Append(view dto.MessageView) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if view.ConversationID != t.conversationID {
		return false
	}
	if t.seen[view.ID] {
		return false
	}

	// Вставка с сохранением порядка (created_at, id)
	pos := len(t.entries)
	for i := range t.entries {
		if less(view, t.entries[i]) {
			pos = i
			break
		}
	}
	t.entries = append(t.entries, dto.MessageView{})
	copy(t.entries[pos+1:], t.entries[pos:])
	t.entries[pos] = view
	t.seen[view.ID] = true
	return true
}

func less(a, b dto.MessageView) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// MarkRead локально переводит read=false -> true для перечисленных id.
// Порядок не меняется.
func (t *MessageTimeline) MarkRead(ids []string, at time.Time) {
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		if idSet[t.entries[i].ID] && !t.entries[i].Read {
			readAt := at
			t.entries[i].Read = true
			t.entries[i].ReadAt = &readAt
		}
	}
}

// Snapshot отдает копию таймлайна для UI
func (t *MessageTimeline) Snapshot() dto.TimelineSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	messages := make([]dto.MessageView, len(t.entries))
	copy(messages, t.entries)
	return dto.TimelineSnapshot{
		ConversationID: t.conversationID,
		Messages:       messages,
		Empty:          len(messages) == 0,
	}
}
