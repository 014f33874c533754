package services

import (
	"context"
	"sync"
	"time"

	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/models/support"
	"helpdesk_backend/internal/realtime"
	"helpdesk_backend/internal/repositories"
)

// ============================================
// In-memory репозитории для тестов
// ============================================

type fakeProfileRepo struct {
	mu     sync.Mutex
	users  map[string]*models.UserProfile
	admins map[string]*models.AdminProfile
	emails map[string]string

	userErr  error // принудительная ошибка FindUserByID
	adminErr error
	authErr  error

	userCalls int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		users:  make(map[string]*models.UserProfile),
		admins: make(map[string]*models.AdminProfile),
		emails: make(map[string]string),
	}
}

func (f *fakeProfileRepo) FindUserByID(_ context.Context, id string) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	if f.userErr != nil {
		return nil, f.userErr
	}
	profile, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrProfileNotFound
	}
	return profile, nil
}

func (f *fakeProfileRepo) FindAdminByID(_ context.Context, id string) (*models.AdminProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adminErr != nil {
		return nil, f.adminErr
	}
	profile, ok := f.admins[id]
	if !ok {
		return nil, repositories.ErrProfileNotFound
	}
	return profile, nil
}

func (f *fakeProfileRepo) FindAuthEmail(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authErr != nil {
		return "", f.authErr
	}
	email, ok := f.emails[id]
	if !ok {
		return "", repositories.ErrAuthNotFound
	}
	return email, nil
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*support.Conversation

	listErr   error
	statusErr error
	touchErr  error

	touched map[string]time.Time
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[string]*support.Conversation),
		touched:       make(map[string]time.Time),
	}
}

func (f *fakeConversationRepo) add(c *support.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations[c.ID] = c
}

func (f *fakeConversationRepo) ListAll(_ context.Context) ([]support.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]support.Conversation, 0, len(f.conversations))
	for _, c := range f.conversations {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeConversationRepo) FindByID(_ context.Context, id string) (*support.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, repositories.ErrConversationNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeConversationRepo) UpdateStatus(_ context.Context, id string, status models.ConversationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return f.statusErr
	}
	c, ok := f.conversations[id]
	if !ok {
		return repositories.ErrConversationNotFound
	}
	c.Status = status
	return nil
}

func (f *fakeConversationRepo) Touch(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched[id] = at
	if c, ok := f.conversations[id]; ok && at.After(c.LastMessageAt) {
		c.LastMessageAt = at
	}
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*support.Message

	listErr   error
	insertErr error
	markErr   error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (f *fakeMessageRepo) add(m *support.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
}

func (f *fakeMessageRepo) ListByConversation(_ context.Context, conversationID string) ([]support.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []support.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	// Порядок created_at ASC, id ASC, как в SQL-запросе
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1], out[j]
			if a.CreatedAt.After(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID > b.ID) {
				out[j-1], out[j] = b, a
			}
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) CountUnread(_ context.Context, conversationID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.FromUser() && !m.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeMessageRepo) FindLast(_ context.Context, conversationID string) (*support.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *support.Message
	for _, m := range f.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if last == nil || m.CreatedAt.After(last.CreatedAt) ||
			(m.CreatedAt.Equal(last.CreatedAt) && m.ID > last.ID) {
			last = m
		}
	}
	if last == nil {
		return nil, nil
	}
	copied := *last
	return &copied, nil
}

func (f *fakeMessageRepo) Insert(_ context.Context, message *support.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	copied := *message
	f.messages = append(f.messages, &copied)
	return nil
}

func (f *fakeMessageRepo) MarkConversationRead(_ context.Context, conversationID string, at time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return nil, f.markErr
	}
	var flipped []string
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.FromUser() && !m.Read {
			readAt := at
			m.Read = true
			m.ReadAt = &readAt
			flipped = append(flipped, m.ID)
		}
	}
	return flipped, nil
}

func (f *fakeMessageRepo) count(conversationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			n++
		}
	}
	return n
}

// fakeFeed раздает события синхронно, прямо из Emit
type fakeFeed struct {
	mu     sync.Mutex
	nextID realtime.Handle
	subs   map[realtime.Handle]func(realtime.ChangeEvent)
	tables map[realtime.Handle]realtime.Table
	kinds  map[realtime.Handle]map[realtime.EventKind]bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		nextID: 1,
		subs:   make(map[realtime.Handle]func(realtime.ChangeEvent)),
		tables: make(map[realtime.Handle]realtime.Table),
		kinds:  make(map[realtime.Handle]map[realtime.EventKind]bool),
	}
}

func (f *fakeFeed) Subscribe(table realtime.Table, kinds []realtime.EventKind, handler realtime.Handler) realtime.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	kindSet := make(map[realtime.EventKind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}
	f.subs[id] = handler
	f.tables[id] = table
	f.kinds[id] = kindSet
	return id
}

func (f *fakeFeed) Unsubscribe(handle realtime.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, handle)
	delete(f.tables, handle)
	delete(f.kinds, handle)
}

func (f *fakeFeed) Emit(event realtime.ChangeEvent) {
	f.mu.Lock()
	var handlers []func(realtime.ChangeEvent)
	for id, handler := range f.subs {
		if f.tables[id] == event.Table && f.kinds[id][event.Kind] {
			handlers = append(handlers, handler)
		}
	}
	f.mu.Unlock()
	for _, handler := range handlers {
		handler(event)
	}
}

// ============================================
// Конструкторы тестовых данных
// ============================================

func testConversation(id, userID string, status models.ConversationStatus, lastMessageAt time.Time) *support.Conversation {
	return &support.Conversation{
		ID:            id,
		UserID:        userID,
		Status:        status,
		Subject:       "Подписка не работает",
		CreatedAt:     lastMessageAt.Add(-time.Hour),
		UpdatedAt:     lastMessageAt,
		LastMessageAt: lastMessageAt,
	}
}

func testMessage(id, conversationID, senderID string, senderType models.SenderType, body string, createdAt time.Time) *support.Message {
	return &support.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderType:     senderType,
		Body:           body,
		Read:           senderType == models.SenderAdmin,
		CreatedAt:      createdAt,
	}
}

func testUserProfile(id, name, email string) *models.UserProfile {
	return &models.UserProfile{
		BaseModel: models.BaseModel{ID: id},
		Name:      name,
		Email:     email,
	}
}

func testAdminProfile(id, name, email string) *models.AdminProfile {
	return &models.AdminProfile{
		BaseModel: models.BaseModel{ID: id},
		Name:      name,
		Email:     email,
	}
}
