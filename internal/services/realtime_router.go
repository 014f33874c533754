package services

import (
	"context"

	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/models/support"
	"helpdesk_backend/internal/realtime"
)

// RealtimeRouter принимает асинхронные события изменений и вливает их в
// ConversationStore / MessageTimeline. Сведение принимает (выбранный
// диалог, событие) как явные входы, поэтому гонка оптимистичной
// отправки против echo проверяется без живого канала. Подписка во время
// локальной отправки не отключается: дубликат гасится идемпотентным
// Append.
type RealtimeRouter struct {
	store      *ConversationStore
	timeline   *MessageTimeline
	resolver   *ProfileResolver
	reconciler *ReadStateReconciler

	selection func() string // id выбранного диалога на момент события
	onMerged  func()        // уведомление UI-слоя после каждого сведения

	feed    realtime.Feed
	handles []realtime.Handle
}

func NewRealtimeRouter(
	store *ConversationStore,
	timeline *MessageTimeline,
	resolver *ProfileResolver,
	reconciler *ReadStateReconciler,
	selection func() string,
) *RealtimeRouter {
	return &RealtimeRouter{
		store:      store,
		timeline:   timeline,
		resolver:   resolver,
		reconciler: reconciler,
		selection:  selection,
	}
}

// SetOnMerged устанавливает колбэк, зовущийся после каждого влитого
// события
func (r *RealtimeRouter) SetOnMerged(fn func()) {
	r.onMerged = fn
}

// Start подписывает роутер на потоки вставок сообщений и любых
// изменений диалогов
func (r *RealtimeRouter) Start(ctx context.Context, feed realtime.Feed) {
	r.feed = feed
	r.handles = append(r.handles,
		feed.Subscribe(realtime.TableMessages, []realtime.EventKind{realtime.EventInsert}, func(event realtime.ChangeEvent) {
			if event.Message == nil {
				return
			}
			r.HandleMessageInsert(ctx, r.selection(), event.Message)
			r.merged()
		}),
		feed.Subscribe(realtime.TableConversations, []realtime.EventKind{realtime.EventInsert, realtime.EventUpdate}, func(event realtime.ChangeEvent) {
			r.HandleConversationChange(ctx)
			r.merged()
		}),
	)
}

// Stop снимает подписки. Явной логики переподключения нет: оборванный
// канал оставляет локальное представление устаревшим до следующего
// явного обновления.
func (r *RealtimeRouter) Stop() {
	if r.feed == nil {
		return
	}
	for _, handle := range r.handles {
		r.feed.Unsubscribe(handle)
	}
	r.handles = nil
	r.feed = nil
}

// HandleMessageInsert вливает вставку сообщения. Для удерживаемого
// диалога применяется точечный сигнал; полная перезагрузка списка
// выполняется только для локально неизвестного диалога. Если сообщение
// пришло в выбранный диалог, оно добавляется в таймлайн (идемпотентно),
// и для пользовательских сообщений запускается сведение read-состояния.
func (r *RealtimeRouter) HandleMessageInsert(ctx context.Context, selectedID string, message *support.Message) {
	focused := selectedID != "" && selectedID == message.ConversationID

	known := r.store.ApplyIncomingMessageSignal(
		message.ConversationID, message.Body, message.CreatedAt, message.FromUser(), focused)
	if !known {
		// Новый диалог: точечного патча недостаточно
		if err := r.store.Reload(ctx); err != nil {
			logger.CtxWithError(ctx, "store sweep after unknown conversation failed", err,
				"conversation_id", message.ConversationID)
		}
	}

	if !focused {
		return
	}

	identity, err := r.resolver.Resolve(ctx, message.SenderID, message.SenderType.SenderRole())
	if err != nil {
		logger.CtxWithError(ctx, "sender resolution degraded", err, "message_id", message.ID)
	}

	r.timeline.Append(messageView(message, identity))

	if message.FromUser() {
		if err := r.reconciler.MarkRead(ctx, message.ConversationID); err != nil {
			logger.CtxWithError(ctx, "read reconciliation failed", err,
				"conversation_id", message.ConversationID)
		}
	}
}

// HandleConversationChange перечитывает весь список диалогов. Грубо
// намеренно: изменения строк диалогов редки на фоне потока сообщений.
func (r *RealtimeRouter) HandleConversationChange(ctx context.Context) {
	if err := r.store.Reload(ctx); err != nil {
		logger.CtxWithError(ctx, "conversation sweep failed", err)
	}
}

func (r *RealtimeRouter) merged() {
	if r.onMerged != nil {
		r.onMerged()
	}
}
