package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/realtime"
	"helpdesk_backend/internal/services/dto"
)

type routerFixture struct {
	profileRepo *fakeProfileRepo
	convRepo    *fakeConversationRepo
	msgRepo     *fakeMessageRepo
	resolver    *ProfileResolver
	store       *ConversationStore
	timeline    *MessageTimeline
	reconciler  *ReadStateReconciler
	router      *RealtimeRouter
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	profileRepo := newFakeProfileRepo()
	profileRepo.users["u1"] = testUserProfile("u1", "Анна", "anna@example.com")
	profileRepo.users["u2"] = testUserProfile("u2", "Борис", "boris@example.com")
	profileRepo.admins["a1"] = testAdminProfile("a1", "Олег", "oleg@support.example.com")

	convRepo := newFakeConversationRepo()
	convRepo.add(testConversation("c1", "u1", models.ConversationOpen, base))
	convRepo.add(testConversation("c2", "u2", models.ConversationOpen, base.Add(-time.Hour)))

	msgRepo := newFakeMessageRepo()
	resolver := NewProfileResolver(profileRepo)
	store := NewConversationStore(convRepo, msgRepo, resolver, 50)
	timeline := NewMessageTimeline(msgRepo, resolver)
	reconciler := NewReadStateReconciler(msgRepo, store, timeline)

	require.NoError(t, store.Load(context.Background(), dto.Filter{}))

	return &routerFixture{
		profileRepo: profileRepo,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		resolver:    resolver,
		store:       store,
		timeline:    timeline,
		reconciler:  reconciler,
		router:      NewRealtimeRouter(store, timeline, resolver, reconciler, timeline.Current),
	}
}

// TestRouter_FocusedMessageMarkedRead - пользовательское сообщение в
// выбранный диалог попадает в таймлайн и сразу сводится к прочитанному
func TestRouter_FocusedMessageMarkedRead(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fx := newRouterFixture(t)
	fx.timeline.Select("c1")
	require.NoError(t, fx.timeline.Load(context.Background()))

	incoming := testMessage("m1", "c1", "u1", models.SenderUser, "Вы тут?", base.Add(time.Minute))
	fx.msgRepo.add(incoming) // строка уже в хранилище, событие ее эхо
	fx.router.HandleMessageInsert(context.Background(), "c1", incoming)

	// 1. В таймлайне ровно одна запись, уже прочитанная
	snapshot := fx.timeline.Snapshot()
	require.Len(t, snapshot.Messages, 1)
	assert.True(t, snapshot.Messages[0].Read, "сообщение в открытом диалоге читается сразу")
	assert.Equal(t, "Анна", snapshot.Messages[0].Sender.Name)

	// 2. Счетчик непрочитанного не вырос
	assert.Equal(t, 0, fx.store.UnreadCount("c1"))

	// 3. Персистентное состояние тоже сведено
	unread, err := fx.msgRepo.CountUnread(context.Background(), "c1")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

// TestRouter_UnfocusedMessageCountsUnread - сообщение в чужой диалог
// растит счетчик и не попадает в таймлайн
func TestRouter_UnfocusedMessageCountsUnread(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fx := newRouterFixture(t)
	fx.timeline.Select("c1")
	require.NoError(t, fx.timeline.Load(context.Background()))

	incoming := testMessage("m1", "c2", "u2", models.SenderUser, "Здравствуйте", base.Add(time.Minute))
	fx.msgRepo.add(incoming)
	fx.router.HandleMessageInsert(context.Background(), "c1", incoming)

	assert.Empty(t, fx.timeline.Snapshot().Messages, "чужой диалог не трогает таймлайн")
	assert.Equal(t, 1, fx.store.UnreadCount("c2"))

	// Сообщение не помечено прочитанным: диалог никто не смотрит
	unread, err := fx.msgRepo.CountUnread(context.Background(), "c2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	// Диалог c2 поднялся наверх
	assert.Equal(t, "c2", fx.store.Snapshot().Conversations[0].ID)
}

// TestRouter_UnknownConversationSweep - событие по неизвестному диалогу
// вызывает полную перезагрузку списка
func TestRouter_UnknownConversationSweep(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fx := newRouterFixture(t)

	// Новый диалог появился в хранилище после первичной загрузки
	fx.convRepo.add(testConversation("c3", "u2", models.ConversationOpen, base.Add(time.Hour)))
	incoming := testMessage("m1", "c3", "u2", models.SenderUser, "Новый вопрос", base.Add(time.Hour))
	fx.msgRepo.add(incoming)

	require.False(t, fx.store.Has("c3"))
	fx.router.HandleMessageInsert(context.Background(), "", incoming)

	assert.True(t, fx.store.Has("c3"), "неизвестный диалог подтягивается полной перезагрузкой")
	assert.Equal(t, 1, fx.store.UnreadCount("c3"))
}

// TestRouter_ConversationChangeSweep - изменение строки диалога
// перечитывает весь список
func TestRouter_ConversationChangeSweep(t *testing.T) {
	t.Parallel()

	fx := newRouterFixture(t)

	// Статус поменялся на стороне хранилища
	require.NoError(t, fx.convRepo.UpdateStatus(context.Background(), "c1", models.ConversationClosed))
	fx.router.HandleConversationChange(context.Background())

	for _, c := range fx.store.Snapshot().Conversations {
		if c.ID == "c1" {
			assert.Equal(t, models.ConversationClosed, c.Status)
			return
		}
	}
	t.Fatal("диалог c1 пропал из списка")
}

// TestRouter_FeedSubscription - роутер через канал получает события и
// зовет onMerged; после Stop события игнорируются
func TestRouter_FeedSubscription(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fx := newRouterFixture(t)
	feed := newFakeFeed()

	var merges atomic.Int64
	fx.router.SetOnMerged(func() { merges.Add(1) })
	fx.router.Start(context.Background(), feed)

	incoming := testMessage("m1", "c1", "u1", models.SenderUser, "через канал", base.Add(time.Minute))
	fx.msgRepo.add(incoming)
	feed.Emit(realtime.ChangeEvent{
		Table:   realtime.TableMessages,
		Kind:    realtime.EventInsert,
		Message: incoming,
	})

	assert.EqualValues(t, 1, merges.Load())
	assert.Equal(t, 1, fx.store.UnreadCount("c1"))

	feed.Emit(realtime.ChangeEvent{
		Table: realtime.TableConversations,
		Kind:  realtime.EventUpdate,
	})
	assert.EqualValues(t, 2, merges.Load())

	fx.router.Stop()
	feed.Emit(realtime.ChangeEvent{
		Table:   realtime.TableMessages,
		Kind:    realtime.EventInsert,
		Message: incoming,
	})
	assert.EqualValues(t, 2, merges.Load(), "после Stop события не доставляются")
}

// TestRouter_EchoAfterOptimisticSend - порядок "локальный append, потом
// echo" и "echo, потом append" дают одинаковый результат
func TestRouter_EchoAfterOptimisticSend(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fx := newRouterFixture(t)
	fx.timeline.Select("c1")
	require.NoError(t, fx.timeline.Load(context.Background()))

	sent := testMessage("m1", "c1", "a1", models.SenderAdmin, "ответ оператора", base.Add(time.Minute))
	sent.Read = true

	// Вариант 1: оптимистичный append пришел первым
	fx.timeline.Append(dto.MessageView{
		ID: sent.ID, ConversationID: "c1", SenderID: "a1",
		SenderType: models.SenderAdmin, Body: sent.Body, Read: true, CreatedAt: sent.CreatedAt,
	})
	fx.router.HandleMessageInsert(context.Background(), "c1", sent)
	assert.Len(t, fx.timeline.Snapshot().Messages, 1)

	// Вариант 2: echo первым, append потом
	fx.timeline.Select("c1")
	require.NoError(t, fx.timeline.Load(context.Background()))
	fx.router.HandleMessageInsert(context.Background(), "c1", sent)
	inserted := fx.timeline.Append(dto.MessageView{
		ID: sent.ID, ConversationID: "c1", SenderID: "a1",
		SenderType: models.SenderAdmin, Body: sent.Body, Read: true, CreatedAt: sent.CreatedAt,
	})
	assert.False(t, inserted)
	assert.Len(t, fx.timeline.Snapshot().Messages, 1)
}
