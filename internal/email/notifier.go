package email

import (
	"context"
	"fmt"

	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/realtime"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/internal/services"
)

// Notifier шлет письмо назначенному админу, когда сообщение пользователя
// приходит в диалог, который ни одна активная сессия не держит открытым.
// Отправка строго best-effort: сбои логируются и не влияют на синхронизацию.
type Notifier struct {
	sender   *Sender
	inboxes  *services.InboxManager
	convRepo repositories.ConversationRepository
	profiles repositories.ProfileRepository

	handle realtime.Handle
	feed   realtime.Feed
}

func NewNotifier(
	sender *Sender,
	inboxes *services.InboxManager,
	convRepo repositories.ConversationRepository,
	profiles repositories.ProfileRepository,
) *Notifier {
	return &Notifier{
		sender:   sender,
		inboxes:  inboxes,
		convRepo: convRepo,
		profiles: profiles,
	}
}

// Start подписывает нотификатор на вставки сообщений
func (n *Notifier) Start(feed realtime.Feed) {
	if !n.sender.Enabled() {
		logger.Info("email notifier disabled")
		return
	}

	n.feed = feed
	n.handle = feed.Subscribe(realtime.TableMessages, []realtime.EventKind{realtime.EventInsert}, func(event realtime.ChangeEvent) {
		// Письма не должны тормозить диспетчеризацию событий
		go n.handleMessage(event)
	})
	logger.Info("email notifier started")
}

func (n *Notifier) Stop() {
	if n.feed != nil {
		n.feed.Unsubscribe(n.handle)
	}
}

func (n *Notifier) handleMessage(event realtime.ChangeEvent) {
	message := event.Message
	if message == nil || !message.FromUser() {
		return
	}

	// Открытый у кого-то диалог читается сразу, письмо не нужно
	if n.inboxes.AnyFocused(message.ConversationID) {
		return
	}

	ctx := context.Background()

	conversation, err := n.convRepo.FindByID(ctx, message.ConversationID)
	if err != nil {
		logger.WithError(err).Warn("email notifier: conversation lookup failed", "conversation_id", message.ConversationID)
		return
	}

	if conversation.AssignedAdminID == nil {
		return
	}

	admin, err := n.profiles.FindAdminByID(ctx, *conversation.AssignedAdminID)
	if err != nil {
		logger.WithError(err).Warn("email notifier: admin lookup failed", "admin_id", *conversation.AssignedAdminID)
		return
	}

	if admin.Email == "" {
		return
	}

	subject := fmt.Sprintf("Новое сообщение в диалоге: %s", conversation.Subject)
	body := fmt.Sprintf(
		"В диалоге %q появилось новое сообщение от пользователя.\n\n%s\n\nОткройте панель поддержки, чтобы ответить.",
		conversation.Subject,
		message.Body,
	)

	if err := n.sender.Send(admin.Email, subject, body); err != nil {
		logger.WithError(err).Warn("email notifier: send failed", "admin_id", admin.ID)
		return
	}

	logger.Info("email notifier: message sent", "admin_id", admin.ID, "conversation_id", conversation.ID)
}
