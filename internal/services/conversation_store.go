package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"helpdesk_backend/internal/logger"
	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/models/support"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/internal/services/dto"
	"helpdesk_backend/pkg/apperrors"
)

const FilterStatusAll = "all"

// ConversationStore держит отфильтрованный, отсортированный набор
// диалогов и производную статистику. Единственный писатель состояния;
// наружу отдаются только копии-срезы.
type ConversationStore struct {
	convRepo   repositories.ConversationRepository
	msgRepo    repositories.MessageRepository
	resolver   *ProfileResolver
	previewLen int

	mu         sync.Mutex
	rows       []*dto.ConversationView // полный набор, last_message_at DESC
	filter     dto.Filter
	generation uint64 // растет на каждой локальной мутации строк
}

func NewConversationStore(
	convRepo repositories.ConversationRepository,
	msgRepo repositories.MessageRepository,
	resolver *ProfileResolver,
	previewLen int,
) *ConversationStore {
	if previewLen <= 0 {
		previewLen = 50
	}
	return &ConversationStore{
		convRepo:   convRepo,
		msgRepo:    msgRepo,
		resolver:   resolver,
		previewLen: previewLen,
		filter:     dto.Filter{Status: FilterStatusAll},
	}
}

// Load выбирает все диалоги, обогащает каждый (личность, счетчик
// непрочитанного, превью) и применяет фильтр. Сбой обогащения одной
// строки деградирует ее до плейсхолдера, но не валит всю загрузку.
// Если за время выборки строки успела мутировать точечным сигналом,
// результат устарел и выборка повторяется: установка не должна
// откатывать более свежее локальное состояние.
func (s *ConversationStore) Load(ctx context.Context, filter dto.Filter) error {
	for attempt := 0; ; attempt++ {
		s.mu.Lock()
		generation := s.generation
		s.mu.Unlock()

		start := time.Now()
		conversations, err := s.convRepo.ListAll(ctx)
		logger.StoreLog("list", "support.conversations", time.Since(start), err)
		if err != nil {
			return apperrors.BackendError(err, "support.conversations")
		}

		rows := make([]*dto.ConversationView, 0, len(conversations))
		for i := range conversations {
			rows = append(rows, s.enrich(ctx, &conversations[i]))
		}

		s.mu.Lock()
		if s.generation != generation && attempt < 2 {
			// Сигнал обогнал выборку, перечитываем. После третьей
			// попытки ставим как есть: следующее событие выровняет
			s.mu.Unlock()
			continue
		}
		s.rows = rows
		if filter.Status == "" {
			filter.Status = FilterStatusAll
		}
		s.filter = filter
		s.sortLocked()
		s.mu.Unlock()
		return nil
	}
}

// Reload повторяет загрузку с текущим фильтром
func (s *ConversationStore) Reload(ctx context.Context) error {
	s.mu.Lock()
	filter := s.filter
	s.mu.Unlock()
	return s.Load(ctx, filter)
}

func (s *ConversationStore) enrich(ctx context.Context, conversation *support.Conversation) *dto.ConversationView {
	view := &dto.ConversationView{
		ID:              conversation.ID,
		UserID:          conversation.UserID,
		AssignedAdminID: conversation.AssignedAdminID,
		Status:          conversation.Status,
		Subject:         conversation.Subject,
		Meta:            []byte(conversation.Meta),
		CreatedAt:       conversation.CreatedAt,
		UpdatedAt:       conversation.UpdatedAt,
		LastMessageAt:   conversation.LastMessageAt,
	}

	identity, err := s.resolver.Resolve(ctx, conversation.UserID, models.RoleUser)
	if err != nil {
		// Деградация строки вместо провала всей пачки
		logger.CtxWithError(ctx, "conversation enrichment degraded", err, "conversation_id", conversation.ID)
		view.User = models.PlaceholderIdentity(conversation.UserID, models.RoleUser)
		view.UnreadCount = 0
		return view
	}
	view.User = identity

	unread, err := s.msgRepo.CountUnread(ctx, conversation.ID)
	if err != nil {
		logger.CtxWithError(ctx, "unread count failed", err, "conversation_id", conversation.ID)
		view.User = models.PlaceholderIdentity(conversation.UserID, models.RoleUser)
		view.UnreadCount = 0
		return view
	}
	view.UnreadCount = int(unread)

	last, err := s.msgRepo.FindLast(ctx, conversation.ID)
	if err != nil {
		logger.CtxWithError(ctx, "last message lookup failed", err, "conversation_id", conversation.ID)
		return view
	}
	if last != nil {
		view.LastMessage = truncate(last.Body, s.previewLen)
	}
	return view
}

// ApplyStatusChange пишет статус в удаленное хранилище и правит локальную
// строку на месте, без перечитывания списка
func (s *ConversationStore) ApplyStatusChange(ctx context.Context, conversationID string, status models.ConversationStatus) error {
	if !models.ValidConversationStatus(status) {
		return apperrors.ErrInvalidConversationStatus
	}

	if err := s.convRepo.UpdateStatus(ctx, conversationID, status); err != nil {
		if err == repositories.ErrConversationNotFound {
			return apperrors.ErrConversationNotFound
		}
		return apperrors.BackendError(err, "support.conversations")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == conversationID {
			row.Status = status
			row.UpdatedAt = time.Now().UTC()
			s.generation++
			break
		}
	}
	return nil
}

// ApplyIncomingMessageSignal вносит следы нового сообщения: двигает
// last_message_at (монотонно), обновляет превью и, если сообщение
// пришло от пользователя в не сфокусированный диалог, наращивает
// счетчик непрочитанного. Возвращает false, если диалог локально
// неизвестен и нужна полная перезагрузка списка.
func (s *ConversationStore) ApplyIncomingMessageSignal(conversationID, body string, at time.Time, fromUser, focused bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row *dto.ConversationView
	for _, r := range s.rows {
		if r.ID == conversationID {
			row = r
			break
		}
	}
	if row == nil {
		return false
	}

	if at.After(row.LastMessageAt) {
		row.LastMessageAt = at
		row.UpdatedAt = at
		row.LastMessage = truncate(body, s.previewLen)
	} else {
		// Запоздавший по часам апдейт не двигает порядок, но может нести
		// более свежие серверные данные, обогнавшие оптимистичное превью
		row.LastMessage = truncate(body, s.previewLen)
	}

	if fromUser && !focused {
		row.UnreadCount++
	}

	s.generation++
	s.sortLocked()
	return true
}

// ZeroUnread локально обнуляет счетчик диалога после персистентного
// markRead
func (s *ConversationStore) ZeroUnread(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == conversationID {
			row.UnreadCount = 0
			s.generation++
			break
		}
	}
}

// SetFilter перестраивает видимый список из уже удерживаемых строк
func (s *ConversationStore) SetFilter(filter dto.Filter) {
	if filter.Status == "" {
		filter.Status = FilterStatusAll
	}
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
}

// Snapshot отдает отфильтрованный список и статистику. Статистика
// считается по всем удерживаемым диалогам, не по отфильтрованным.
func (s *ConversationStore) Snapshot() dto.ConversationsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := dto.ConversationsSnapshot{
		Conversations: make([]dto.ConversationView, 0, len(s.rows)),
		Stats:         s.statsLocked(),
		Filter:        s.filter,
	}
	for _, row := range s.rows {
		if s.matchesLocked(row) {
			snapshot.Conversations = append(snapshot.Conversations, *row)
		}
	}
	return snapshot
}

// Has сообщает, удерживается ли диалог локально
func (s *ConversationStore) Has(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == conversationID {
			return true
		}
	}
	return false
}

// UnreadCount возвращает локальный счетчик диалога
func (s *ConversationStore) UnreadCount(conversationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == conversationID {
			return row.UnreadCount
		}
	}
	return 0
}

func (s *ConversationStore) sortLocked() {
	// Стабильная сортировка: равные таймстемпы сохраняют прежний порядок
	sort.SliceStable(s.rows, func(i, j int) bool {
		return s.rows[i].LastMessageAt.After(s.rows[j].LastMessageAt)
	})
}

func (s *ConversationStore) statsLocked() dto.InboxStats {
	var stats dto.InboxStats
	stats.Total = len(s.rows)
	for _, row := range s.rows {
		switch row.Status {
		case models.ConversationOpen:
			stats.Open++
		case models.ConversationPending:
			stats.Pending++
		case models.ConversationClosed:
			stats.Closed++
		}
		stats.TotalUnread += row.UnreadCount
	}
	return stats
}

func (s *ConversationStore) matchesLocked(row *dto.ConversationView) bool {
	if s.filter.Status != "" && s.filter.Status != FilterStatusAll {
		if string(row.Status) != s.filter.Status {
			return false
		}
	}

	query := strings.TrimSpace(strings.ToLower(s.filter.Query))
	if query == "" {
		return true
	}

	// Строка проходит, если ЛЮБОЕ поле содержит подстроку
	for _, field := range []string{row.User.Email, row.User.Name, row.Subject, row.LastMessage} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
