package models

type Role string
type ConversationStatus string
type SenderType string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"

	ConversationOpen    ConversationStatus = "open"
	ConversationPending ConversationStatus = "pending"
	ConversationClosed  ConversationStatus = "closed"

	SenderUser  SenderType = "user"
	SenderAdmin SenderType = "admin"
)

// ValidConversationStatus проверяет значение статуса диалога
func ValidConversationStatus(s ConversationStatus) bool {
	switch s {
	case ConversationOpen, ConversationPending, ConversationClosed:
		return true
	}
	return false
}

// SenderRole сопоставляет тип отправителя с ролью для резолвера личностей.
// Диспетчеризация всегда идет по явному тегу, никогда по форме записи.
func (t SenderType) SenderRole() Role {
	if t == SenderAdmin {
		return RoleAdmin
	}
	return RoleUser
}
