package services

import (
	"context"
	"sync"

	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/realtime"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/internal/services/dto"
	"helpdesk_backend/pkg/apperrors"
)

// Inbox - сессия одного оператора: резолвер с собственным кэшем, стор
// диалогов, таймлайн выбранного диалога, конвейер отправки и сведение
// read-состояния. Новая сессия начинает с пустого кэша личностей.
type Inbox struct {
	OperatorID string

	resolver   *ProfileResolver
	store      *ConversationStore
	timeline   *MessageTimeline
	pipeline   *SendPipeline
	reconciler *ReadStateReconciler
	router     *RealtimeRouter

	mu       sync.Mutex
	onChange func(kind string)
}

func NewInbox(
	operatorID string,
	profileRepo repositories.ProfileRepository,
	convRepo repositories.ConversationRepository,
	msgRepo repositories.MessageRepository,
	previewLen int,
) *Inbox {
	resolver := NewProfileResolver(profileRepo)
	store := NewConversationStore(convRepo, msgRepo, resolver, previewLen)
	timeline := NewMessageTimeline(msgRepo, resolver)
	pipeline := NewSendPipeline(msgRepo, convRepo, resolver, timeline, store)
	reconciler := NewReadStateReconciler(msgRepo, store, timeline)

	inbox := &Inbox{
		OperatorID: operatorID,
		resolver:   resolver,
		store:      store,
		timeline:   timeline,
		pipeline:   pipeline,
		reconciler: reconciler,
	}
	inbox.router = NewRealtimeRouter(store, timeline, resolver, reconciler, timeline.Current)
	inbox.router.SetOnMerged(func() { inbox.changed("merge") })
	return inbox
}

// SetOnChange регистрирует колбэк для пуша снапшотов в UI-слой
func (i *Inbox) SetOnChange(fn func(kind string)) {
	i.mu.Lock()
	i.onChange = fn
	i.mu.Unlock()
}

func (i *Inbox) changed(kind string) {
	i.mu.Lock()
	fn := i.onChange
	i.mu.Unlock()
	if fn != nil {
		fn(kind)
	}
}

// Open выполняет первичную загрузку списка и подключает роутер к каналу
// изменений
func (i *Inbox) Open(ctx context.Context, feed realtime.Feed) error {
	if err := i.store.Load(ctx, dto.Filter{Status: FilterStatusAll}); err != nil {
		return err
	}
	i.router.Start(ctx, feed)
	logger.CtxInfo(ctx, "inbox session opened", "operator_id", i.OperatorID)
	return nil
}

// Close снимает realtime-подписки сессии
func (i *Inbox) Close() {
	i.router.Stop()
	logger.Info("inbox session closed", "operator_id", i.OperatorID)
}

// SelectConversation делает диалог текущим: таймлайн перечитывается
// целиком, затем входящие сообщения помечаются прочитанными. Смена
// выбора до прихода ответа загрузки отбрасывает устаревший ответ.
func (i *Inbox) SelectConversation(ctx context.Context, conversationID string) error {
	if !i.store.Has(conversationID) {
		return apperrors.ErrConversationNotFound
	}

	i.timeline.Select(conversationID)
	if err := i.timeline.Load(ctx); err != nil {
		return err
	}
	if err := i.reconciler.MarkRead(ctx, conversationID); err != nil {
		return err
	}
	i.changed("select")
	return nil
}

// Send отправляет сообщение оператора в выбранный диалог
func (i *Inbox) Send(ctx context.Context, body string) (*dto.MessageView, error) {
	conversationID := i.timeline.Current()
	if conversationID == "" {
		return nil, apperrors.ErrNoConversationSelected
	}

	view, err := i.pipeline.Send(ctx, conversationID, body, i.OperatorID)
	if err != nil {
		return nil, err
	}
	i.changed("send")
	return view, nil
}

// SetStatus меняет статус выбранного диалога
func (i *Inbox) SetStatus(ctx context.Context, status models.ConversationStatus) error {
	conversationID := i.timeline.Current()
	if conversationID == "" {
		return apperrors.ErrNoConversationSelected
	}

	if err := i.store.ApplyStatusChange(ctx, conversationID, status); err != nil {
		return err
	}
	i.changed("status")
	return nil
}

// SetFilter пересобирает видимый список без перечитывания
func (i *Inbox) SetFilter(filter dto.Filter) {
	i.store.SetFilter(filter)
	i.changed("filter")
}

// Refresh явно перечитывает список диалогов (в т.ч. после обрыва канала)
func (i *Inbox) Refresh(ctx context.Context) error {
	if err := i.store.Reload(ctx); err != nil {
		return err
	}
	i.changed("refresh")
	return nil
}

// Conversations отдает срез списка диалогов и статистику
func (i *Inbox) Conversations() dto.ConversationsSnapshot {
	return i.store.Snapshot()
}

// Timeline отдает срез таймлайна выбранного диалога
func (i *Inbox) Timeline() dto.TimelineSnapshot {
	return i.timeline.Snapshot()
}

// Selected возвращает id выбранного диалога
func (i *Inbox) Selected() string {
	return i.timeline.Current()
}

// ============================================
// Менеджер сессий
// ============================================

// inboxSession - запись менеджера: сессия плюс барьер готовности.
// ready закрывается после завершения первичной загрузки; до этого
// сессия никому не отдается.
type inboxSession struct {
	inbox *Inbox
	ready chan struct{}
	err   error // пишется строго до close(ready)
}

// InboxManager держит сессии операторов по id
type InboxManager struct {
	profileRepo repositories.ProfileRepository
	convRepo    repositories.ConversationRepository
	msgRepo     repositories.MessageRepository
	feed        realtime.Feed
	previewLen  int

	mu       sync.RWMutex
	sessions map[string]*inboxSession
}

func NewInboxManager(
	profileRepo repositories.ProfileRepository,
	convRepo repositories.ConversationRepository,
	msgRepo repositories.MessageRepository,
	feed realtime.Feed,
	previewLen int,
) *InboxManager {
	return &InboxManager{
		profileRepo: profileRepo,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		feed:        feed,
		previewLen:  previewLen,
		sessions:    make(map[string]*inboxSession),
	}
}

// Open возвращает существующую сессию оператора или открывает новую.
// Конкурентные вызовы по одному оператору (UI открывает WebSocket и
// тут же дергает HTTP) ждут одну и ту же первичную загрузку: наружу
// никогда не уходит недоинициализированная сессия.
func (m *InboxManager) Open(ctx context.Context, operatorID string) (*Inbox, error) {
	m.mu.Lock()
	if session, ok := m.sessions[operatorID]; ok {
		m.mu.Unlock()
		<-session.ready
		if session.err != nil {
			return nil, session.err
		}
		return session.inbox, nil
	}

	session := &inboxSession{
		inbox: NewInbox(operatorID, m.profileRepo, m.convRepo, m.msgRepo, m.previewLen),
		ready: make(chan struct{}),
	}
	m.sessions[operatorID] = session
	m.mu.Unlock()

	// Сессия переживает открывший ее HTTP-запрос: отмена запроса не
	// должна рубить обработку realtime-событий
	ctx = context.WithoutCancel(ctx)
	if err := session.inbox.Open(ctx, m.feed); err != nil {
		session.err = err
		m.mu.Lock()
		delete(m.sessions, operatorID)
		m.mu.Unlock()
		close(session.ready)
		return nil, err
	}
	close(session.ready)
	return session.inbox, nil
}

// Get возвращает готовую сессию или nil, без ожидания
func (m *InboxManager) Get(operatorID string) *Inbox {
	m.mu.RLock()
	session := m.sessions[operatorID]
	m.mu.RUnlock()
	if session == nil {
		return nil
	}
	select {
	case <-session.ready:
		if session.err != nil {
			return nil
		}
		return session.inbox
	default:
		// Первичная загрузка еще в полете
		return nil
	}
}

// Close закрывает и забывает сессию оператора
func (m *InboxManager) Close(operatorID string) {
	m.mu.Lock()
	session, ok := m.sessions[operatorID]
	delete(m.sessions, operatorID)
	m.mu.Unlock()
	if !ok {
		return
	}
	<-session.ready
	if session.err == nil {
		session.inbox.Close()
	}
}

// AnyFocused сообщает, держит ли хоть одна сессия диалог выбранным.
// Используется нотификатором: письмо уходит только по несмотримым
// диалогам.
func (m *InboxManager) AnyFocused(conversationID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, session := range m.sessions {
		select {
		case <-session.ready:
		default:
			continue
		}
		if session.err == nil && session.inbox.Selected() == conversationID {
			return true
		}
	}
	return false
}
